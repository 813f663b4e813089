package coordinator

import (
	"context"
	"fmt"
	"testing"

	"github.com/haasonsaas/outreach-autopilot/internal/domain"
)

func TestZZRepro(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"Alice, ML engineer in NYC"}, verifyOK: []bool{true}}
	decision := &fakeDecision{verdicts: []domain.Verdict{{Decision: domain.DecisionYes, Draft: "hi alice", Score: 0.9, Confidence: 0.9}}}
	seen := newFakeSeen()
	quota := &fakeQuota{allowed: true}
	stop := &fakeStop{}
	clock := &fakeClock{}
	events := &fakeEvents{}

	c := New(baseRun(), Deps{Browser: browser, Decision: decision, Seen: seen, Quota: quota, Stop: stop, Clock: clock, Events: events, Renderer: fakeRenderer{}})
	c.Run(context.Background())

	for i, r := range events.records {
		fmt.Printf("%d: %s\n", i, r.event)
	}
}
