package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/haasonsaas/outreach-autopilot/internal/domain"
	"github.com/haasonsaas/outreach-autopilot/internal/fingerprint"
	"github.com/stretchr/testify/require"
)

// fakeEvents records every emitted event in order, for asserting the
// ordering invariants (decision precedes sent, duplicate replaces decision,
// profile_processing_error replaces partial subsequent events).
type fakeEvents struct {
	records []fakeRecord
}

type fakeRecord struct {
	event  string
	fields map[string]any
}

func (e *fakeEvents) Emit(event string, fields map[string]any) {
	e.records = append(e.records, fakeRecord{event: event, fields: fields})
}

func (e *fakeEvents) names() []string {
	out := make([]string, len(e.records))
	for i, r := range e.records {
		out[i] = r.event
	}
	return out
}

// fakeBrowser scripts a fixed sequence of profile cards and records which
// operations were called, in order, without touching a real browser.
type fakeBrowser struct {
	profiles   []string
	cursor     int
	skipped    []string
	focusErr   error
	submitErr  error
	verifyOK   []bool // consumed in order by VerifySent calls
	verifyIdx  int
	fillCalls  []string
	onFill     func() // invoked after each Fill, for mid-send test hooks
}

func (b *fakeBrowser) Open(url string) error { return nil }

func (b *fakeBrowser) OpenNextProfile() (bool, error) {
	if b.cursor >= len(b.profiles) {
		return false, nil
	}
	return true, nil
}

func (b *fakeBrowser) ReadProfileText() (string, error) {
	text := b.profiles[b.cursor]
	return text, nil
}

func (b *fakeBrowser) FocusInput() error { return b.focusErr }
func (b *fakeBrowser) Fill(text string) error {
	b.fillCalls = append(b.fillCalls, text)
	if b.onFill != nil {
		b.onFill()
	}
	return nil
}
func (b *fakeBrowser) Submit() error { return b.submitErr }
func (b *fakeBrowser) VerifySent() bool {
	if b.verifyIdx >= len(b.verifyOK) {
		return false
	}
	ok := b.verifyOK[b.verifyIdx]
	b.verifyIdx++
	return ok
}
func (b *fakeBrowser) Skip() error {
	b.skipped = append(b.skipped, b.profiles[b.cursor])
	b.cursor++
	return nil
}
func (b *fakeBrowser) Close() error { return nil }

// fakeDecision returns a scripted verdict per call, in order.
type fakeDecision struct {
	verdicts []domain.Verdict
	calls    int
}

func (d *fakeDecision) Decide(ctx context.Context, req DecisionRequest) domain.Verdict {
	v := d.verdicts[d.calls]
	d.calls++
	return v
}

type fakeSeen struct {
	seen map[string]bool
	marked []string
}

func newFakeSeen() *fakeSeen { return &fakeSeen{seen: map[string]bool{}} }
func (s *fakeSeen) IsSeen(ctx context.Context, fp string) (bool, error) { return s.seen[fp], nil }
func (s *fakeSeen) MarkSeen(ctx context.Context, fp string) error {
	s.seen[fp] = true
	s.marked = append(s.marked, fp)
	return nil
}

type fakeQuota struct {
	allowed  bool
	consumed int
	refunded int
}

func (q *fakeQuota) TryConsume(ctx context.Context) (ConsumeResult, error) {
	if !q.allowed {
		return ConsumeResult{Allowed: false}, nil
	}
	q.consumed++
	return ConsumeResult{Allowed: true}, nil
}

func (q *fakeQuota) Refund(ctx context.Context) error {
	q.refunded++
	return nil
}

// netConsumed is the quota count a real store would show after refunds.
func (q *fakeQuota) netConsumed() int { return q.consumed - q.refunded }

type fakeStop struct{ set bool }

func (s *fakeStop) IsSet() bool { return s.set }

type fakeClock struct{ sleeps int }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error { c.sleeps++; return nil }
func (c *fakeClock) Now() time.Time                                  { return time.Time{} }

type fakeRenderer struct{}

func (fakeRenderer) Render(tmpl string, verdict domain.Verdict, fields map[string]string) (string, error) {
	return verdict.Draft, nil
}

func baseRun() domain.RunContext {
	return domain.RunContext{
		RunID: "run-1", SelfProfile: "me", Criteria: "crit", Template: "Hi {name}",
		AutoSend: true, ProfileLimit: 10, PaceSeconds: 0,
	}
}

func TestHappyPathSendOrdering(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"Alice, ML engineer in NYC"}, verifyOK: []bool{true}}
	decision := &fakeDecision{verdicts: []domain.Verdict{{Decision: domain.DecisionYes, Draft: "hi alice", Score: 0.9, Confidence: 0.9}}}
	seen := newFakeSeen()
	quota := &fakeQuota{allowed: true}
	stop := &fakeStop{}
	clock := &fakeClock{}
	events := &fakeEvents{}

	c := New(baseRun(), Deps{Browser: browser, Decision: decision, Seen: seen, Quota: quota, Stop: stop, Clock: clock, Events: events, Renderer: fakeRenderer{}})
	c.Run(context.Background())

	names := events.names()
	require.Contains(t, names, "profile_extracted")
	require.Contains(t, names, "decision")
	require.Contains(t, names, "sent")
	// The sent card is re-encountered as a duplicate on the next iteration,
	// so only the first occurrence of each event belongs to the sent profile.
	extractedIdx, decisionIdx, sentIdx := -1, -1, -1
	for i, n := range names {
		switch {
		case n == "profile_extracted" && extractedIdx < 0:
			extractedIdx = i
		case n == "decision" && decisionIdx < 0:
			decisionIdx = i
		case n == "sent" && sentIdx < 0:
			sentIdx = i
		}
	}
	require.Less(t, extractedIdx, decisionIdx)
	require.Less(t, decisionIdx, sentIdx)
	last := events.records[len(events.records)-1]
	require.Equal(t, "run_complete", last.event)
	require.Equal(t, []string{fingerprintOf(browser.profiles[0])}, seen.marked)
}

func TestDuplicateProfileReplacesDecisionAndSkips(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"Bob, backend engineer"}}
	decision := &fakeDecision{verdicts: []domain.Verdict{}}
	seen := newFakeSeen()
	seen.seen[fingerprintOf(browser.profiles[0])] = true
	quota := &fakeQuota{allowed: true}
	events := &fakeEvents{}

	c := New(baseRun(), Deps{Browser: browser, Decision: decision, Seen: seen, Quota: quota, Stop: &fakeStop{}, Clock: &fakeClock{}, Events: events, Renderer: fakeRenderer{}})
	c.Run(context.Background())

	require.Contains(t, events.names(), "duplicate")
	require.NotContains(t, events.names(), "decision")
	require.Equal(t, []string{browser.profiles[0]}, browser.skipped)
}

func TestShadowModeMarksSeenWithoutSending(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"Carol, product"}}
	decision := &fakeDecision{verdicts: []domain.Verdict{{Decision: domain.DecisionYes, Draft: "hi carol"}}}
	seen := newFakeSeen()
	run := baseRun()
	run.Shadow = true
	events := &fakeEvents{}

	c := New(run, Deps{Browser: browser, Decision: decision, Seen: seen, Quota: &fakeQuota{allowed: true}, Stop: &fakeStop{}, Clock: &fakeClock{}, Events: events, Renderer: fakeRenderer{}})
	c.Run(context.Background())

	require.Contains(t, events.names(), "shadow_send")
	require.NotContains(t, events.names(), "sent")
	require.Contains(t, seen.marked, fingerprintOf(browser.profiles[0]))
}

func TestVerificationRetrySucceedsOnSecondAttempt(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"Dana, data scientist"}, verifyOK: []bool{false, true}}
	decision := &fakeDecision{verdicts: []domain.Verdict{{Decision: domain.DecisionYes, Draft: "hi dana"}}}
	events := &fakeEvents{}

	c := New(baseRun(), Deps{Browser: browser, Decision: decision, Seen: newFakeSeen(), Quota: &fakeQuota{allowed: true}, Stop: &fakeStop{}, Clock: &fakeClock{}, Events: events, Renderer: fakeRenderer{}})
	c.Run(context.Background())

	require.Contains(t, events.names(), "sent")
	require.Equal(t, 2, browser.verifyIdx)
}

func TestStopSignalBeforeFirstProfileAbortsWithoutSending(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"Eve, designer"}}
	decision := &fakeDecision{verdicts: []domain.Verdict{{Decision: domain.DecisionYes, Draft: "hi eve"}}}
	events := &fakeEvents{}
	stop := &fakeStop{set: true}

	c := New(baseRun(), Deps{Browser: browser, Decision: decision, Seen: newFakeSeen(), Quota: &fakeQuota{allowed: true}, Stop: stop, Clock: &fakeClock{}, Events: events, Renderer: fakeRenderer{}})
	c.Run(context.Background())

	require.Equal(t, []string{"stopped"}, events.names())
	require.NotContains(t, events.names(), "sent")
}

func TestProfileLimitReachedCompletesExhausted(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"Gina, ML researcher"}, verifyOK: []bool{true}}
	decision := &fakeDecision{verdicts: []domain.Verdict{{Decision: domain.DecisionYes, Draft: "hi gina"}}}
	events := &fakeEvents{}
	run := baseRun()
	run.ProfileLimit = 1

	c := New(run, Deps{Browser: browser, Decision: decision, Seen: newFakeSeen(), Quota: &fakeQuota{allowed: true}, Stop: &fakeStop{}, Clock: &fakeClock{}, Events: events, Renderer: fakeRenderer{}})
	c.Run(context.Background())

	last := events.records[len(events.records)-1]
	require.Equal(t, "run_complete", last.event)
	require.Equal(t, "exhausted", last.fields["reason"])
}

func TestQuotaExhaustedEndsRunCleanly(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"Frank, cto"}}
	decision := &fakeDecision{verdicts: []domain.Verdict{{Decision: domain.DecisionYes, Draft: "hi frank"}}}
	events := &fakeEvents{}

	c := New(baseRun(), Deps{Browser: browser, Decision: decision, Seen: newFakeSeen(), Quota: &fakeQuota{allowed: false}, Stop: &fakeStop{}, Clock: &fakeClock{}, Events: events, Renderer: fakeRenderer{}})
	c.Run(context.Background())

	require.Contains(t, events.names(), "quota_exhausted")
	last := events.records[len(events.records)-1]
	require.Equal(t, "run_complete", last.event)
	require.Equal(t, "quota", last.fields["reason"])
}

func fingerprintOf(text string) string {
	return fingerprint.Of(text)
}
