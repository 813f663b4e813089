package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendStepStopAtSendStart(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"x"}}
	events := &fakeEvents{}
	step := NewSendStep(browser, &fakeQuota{allowed: true}, &fakeStop{set: true}, &fakeClock{}, events, 0, nil)

	outcome := step.Run(context.Background(), 0, "draft", 0)

	require.Equal(t, sendStopped, outcome)
	require.Equal(t, []string{"stopped"}, events.names())
	require.Empty(t, browser.fillCalls)
}

func TestSendStepQuotaExhausted(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"x"}}
	events := &fakeEvents{}
	step := NewSendStep(browser, &fakeQuota{allowed: false}, &fakeStop{}, &fakeClock{}, events, 0, nil)

	outcome := step.Run(context.Background(), 0, "draft", 0)

	require.Equal(t, sendQuota, outcome)
	require.Equal(t, []string{"quota_exhausted"}, events.names())
}

func TestSendStepHappyPath(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"x"}, verifyOK: []bool{true}}
	events := &fakeEvents{}
	clock := &fakeClock{}
	quota := &fakeQuota{allowed: true}
	step := NewSendStep(browser, quota, &fakeStop{}, clock, events, 0, nil)

	outcome := step.Run(context.Background(), 0, "hello", 5)

	require.Equal(t, sendOK, outcome)
	require.Equal(t, []string{"hello"}, browser.fillCalls)
	require.Equal(t, []string{"quota_check", "sent"}, events.names())
	require.Greater(t, clock.sleeps, 0) // verify wait + pacing sleeps occurred
	require.Equal(t, 1, quota.netConsumed(), "a verified send keeps its quota reservation")
}

func TestSendStepStopBeforeSubmitRefundsQuota(t *testing.T) {
	stop := &fakeStop{}
	browser := &fakeBrowser{profiles: []string{"x"}}
	browser.onFill = func() { stop.set = true }
	events := &fakeEvents{}
	quota := &fakeQuota{allowed: true}
	step := NewSendStep(browser, quota, stop, &fakeClock{}, events, 0, nil)

	outcome := step.Run(context.Background(), 0, "hello", 0)

	require.Equal(t, sendStopped, outcome)
	require.Equal(t, []string{"quota_check", "stopped"}, events.names())
	require.Equal(t, "before_submit", events.records[1].fields["where"])
	require.Equal(t, 0, quota.netConsumed(), "an unsent draft must not consume quota")
}

// durationClock records every requested sleep so pacing totals can be
// asserted without real delays.
type durationClock struct {
	sleeps []time.Duration
}

func (c *durationClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	return nil
}
func (c *durationClock) Now() time.Time { return time.Time{} }

func TestSendStepPacesFullIntervalAfterVerifiedSend(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"x"}, verifyOK: []bool{true}}
	clock := &durationClock{}
	step := NewSendStep(browser, &fakeQuota{allowed: true}, &fakeStop{}, clock, &fakeEvents{}, time.Millisecond, nil)

	outcome := step.Run(context.Background(), 0, "hello", 45)

	require.Equal(t, sendOK, outcome)
	var total time.Duration
	for _, d := range clock.sleeps {
		total += d
	}
	// verify wait (1ms) plus pacing slices summing to the full interval.
	require.GreaterOrEqual(t, total, 45*time.Second)
}

func TestSendStepFailsAfterRetryExhausted(t *testing.T) {
	browser := &fakeBrowser{profiles: []string{"x"}, verifyOK: []bool{false, false}}
	events := &fakeEvents{}
	quota := &fakeQuota{allowed: true}
	step := NewSendStep(browser, quota, &fakeStop{}, &fakeClock{}, events, 0, nil)

	outcome := step.Run(context.Background(), 0, "hello", 0)

	require.Equal(t, sendFailed, outcome)
	require.Equal(t, []string{"quota_check", "send_failed"}, events.names())
	require.Equal(t, 2, browser.verifyIdx)
	require.Equal(t, 0, quota.netConsumed(), "an unverified send must not consume quota")
}
