package coordinator

import (
	"context"
	"time"

	"github.com/haasonsaas/outreach-autopilot/internal/browserdriver"
)

// sendOutcome is SendStep's result, used by Coordinator to decide whether
// to mark_seen and whether to treat the profile as failed.
type sendOutcome string

const (
	sendOK       sendOutcome = "ok"
	sendStopped  sendOutcome = "stopped"
	sendQuota    sendOutcome = "quota_exhausted"
	sendFailed   sendOutcome = "send_failed"
)

// SendStep runs the quota→stop→focus→fill→submit→verify→retry-once→pace
// sub-pipeline for one draft.
type SendStep struct {
	browser BrowserDriver
	quota   QuotaStore
	stop    StopSignal
	clock   Clock
	events  EventLog
	metrics MetricsSink

	// verifyWait is the bounded pause between submit and the first
	// verify_sent check, and again between the retry submit and the second
	// check. Defaults to browserdriver.WaitWindow().
	verifyWait time.Duration
	// pollSlice bounds how long a single StopSignal poll-and-sleep cycle
	// waits before re-checking, keeping stop latency within the
	// configured bound regardless of the pacing interval's length.
	pollSlice time.Duration
}

// NewSendStep builds a SendStep. verifyWait<=0 uses browserdriver's default
// post-submit wait window. A nil metrics sink is replaced by a no-op.
func NewSendStep(browser BrowserDriver, quota QuotaStore, stop StopSignal, clock Clock, events EventLog, verifyWait time.Duration, metrics MetricsSink) *SendStep {
	if verifyWait <= 0 {
		verifyWait = browserdriver.WaitWindow()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SendStep{
		browser:    browser,
		quota:      quota,
		stop:       stop,
		clock:      clock,
		events:     events,
		metrics:    metrics,
		verifyWait: verifyWait,
		pollSlice:  250 * time.Millisecond,
	}
}

// Run executes the send sub-pipeline for one profile's draft, pacing
// afterward for paceSeconds on verified success. The quota consume is a
// reservation: any exit that is not a verified success refunds it, so the
// counters only ever reflect verified sends. Returns the outcome for
// Coordinator to act on.
func (s *SendStep) Run(ctx context.Context, profile int, draft string, paceSeconds int) (outcome sendOutcome) {
	defer func() { s.metrics.IncSendOutcome(string(outcome)) }()

	if s.stop.IsSet() {
		s.events.Emit("stopped", map[string]any{"where": "send_start"})
		return sendStopped
	}

	result, err := s.quota.TryConsume(ctx)
	if err != nil {
		s.events.Emit("send_failed", map[string]any{"profile": profile, "reason": "quota", "error": err.Error()})
		return sendFailed
	}
	if !result.Allowed {
		scope, used, limit := blockedScope(result)
		s.events.Emit("quota_exhausted", map[string]any{"type": scope, "used": used, "limit": limit})
		return sendQuota
	}
	s.events.Emit("quota_check", map[string]any{
		"day_used": result.Counters.DayUsed, "day_limit": result.Counters.DayLimit,
		"week_used": result.Counters.WeekUsed, "week_limit": result.Counters.WeekLimit,
	})
	defer func() {
		if outcome == sendOK {
			return
		}
		if err := s.quota.Refund(ctx); err != nil {
			s.events.Emit("profile_processing_error", map[string]any{"profile": profile, "error": err.Error(), "stage": "quota_refund"})
		}
	}()

	if s.stop.IsSet() {
		s.events.Emit("stopped", map[string]any{"where": "before_focus"})
		return sendStopped
	}

	if err := s.browser.FocusInput(); err != nil {
		s.events.Emit("send_failed", map[string]any{"profile": profile, "reason": "focus", "error": err.Error()})
		return sendFailed
	}
	if err := s.browser.Fill(draft); err != nil {
		s.events.Emit("send_failed", map[string]any{"profile": profile, "reason": "fill", "error": err.Error()})
		return sendFailed
	}

	if s.stop.IsSet() {
		s.events.Emit("stopped", map[string]any{"where": "before_submit"})
		return sendStopped
	}

	if err := s.browser.Submit(); err != nil {
		s.events.Emit("send_failed", map[string]any{"profile": profile, "reason": "submit", "error": err.Error()})
		return sendFailed
	}

	if err := s.clock.Sleep(ctx, s.verifyWait); err != nil {
		s.events.Emit("stopped", map[string]any{"where": "verify_wait"})
		return sendStopped
	}

	retried := 0
	if !s.browser.VerifySent() {
		if s.stop.IsSet() {
			s.events.Emit("stopped", map[string]any{"where": "before_retry"})
			return sendStopped
		}

		if err := s.browser.Submit(); err != nil {
			s.events.Emit("send_failed", map[string]any{"profile": profile, "reason": "retry_submit", "error": err.Error()})
			return sendFailed
		}
		if err := s.clock.Sleep(ctx, s.verifyWait); err != nil {
			s.events.Emit("stopped", map[string]any{"where": "verify_wait"})
			return sendStopped
		}
		if !s.browser.VerifySent() {
			s.events.Emit("send_failed", map[string]any{"profile": profile, "reason": "verify"})
			return sendFailed
		}
		retried = 1
	}

	s.events.Emit("sent", map[string]any{"profile": profile, "ok": true, "mode": "auto", "verified": true, "retry": retried})

	s.paceNonBlocking(ctx, time.Duration(paceSeconds)*time.Second)
	return sendOK
}

// blockedScope reports which limit blocked a disallowed consume.
func blockedScope(result ConsumeResult) (scope string, used, limit int) {
	c := result.Counters
	if c.DayUsed >= c.DayLimit {
		return "day", c.DayUsed, c.DayLimit
	}
	return "week", c.WeekUsed, c.WeekLimit
}

// paceNonBlocking waits the pacing interval in pollSlice-sized pieces so a
// stop request raised mid-wait is honored promptly instead of blocking for
// the full interval.
func (s *SendStep) paceNonBlocking(ctx context.Context, interval time.Duration) {
	remaining := interval
	for remaining > 0 {
		if s.stop.IsSet() {
			return
		}
		slice := s.pollSlice
		if slice > remaining {
			slice = remaining
		}
		if err := s.clock.Sleep(ctx, slice); err != nil {
			return
		}
		remaining -= slice
	}
}
