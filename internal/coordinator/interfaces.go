// Package coordinator implements the per-candidate pipeline described in
// the outreach autopilot design: Coordinator drives BrowserDriver and
// DecisionEngine across the listing, applying safety gates (duplicate
// detection, quota, stop signal, shadow mode) and emitting one ordered
// EventLog record per step; SendStep is the send sub-pipeline it invokes
// for a positive, sendable verdict.
//
// One profile is processed at a time by a single cooperative loop;
// I/O-bound calls are offloaded to worker goroutines only where needed so
// a concurrent event-log tailer is never blocked, with context.Context and
// channels as the only concurrency primitives.
package coordinator

import (
	"context"
	"time"

	"github.com/haasonsaas/outreach-autopilot/internal/domain"
)

// BrowserDriver is the subset of internal/browserdriver.Driver the
// coordinator depends on, narrowed to an interface so tests can supply a
// fake instead of a real browser session.
type BrowserDriver interface {
	Open(url string) error
	OpenNextProfile() (bool, error)
	ReadProfileText() (string, error)
	FocusInput() error
	Fill(text string) error
	Submit() error
	VerifySent() bool
	Skip() error
	Close() error
}

// DecisionEngine is the subset of internal/decision.Engine the coordinator
// depends on.
type DecisionEngine interface {
	Decide(ctx context.Context, req DecisionRequest) domain.Verdict
}

// DecisionRequest carries what the coordinator knows that the decision
// engine needs; it is translated into a decision.Request by the concrete
// adapter wiring the two packages together (see cmd/autopilot).
type DecisionRequest struct {
	SelfProfile string
	Criteria    string
	Template    string
	ProfileText string
}

// SeenStore is the subset of internal/seenstore.Store the coordinator uses.
type SeenStore interface {
	IsSeen(ctx context.Context, fp string) (bool, error)
	MarkSeen(ctx context.Context, fp string) error
}

// QuotaStore is the subset of internal/quotastore.Store the coordinator
// uses. TryConsume reserves one send; Refund releases the reservation when
// the send does not complete as a verified success, so the counters only
// ever reflect verified sends.
type QuotaStore interface {
	TryConsume(ctx context.Context) (ConsumeResult, error)
	Refund(ctx context.Context) error
}

// ConsumeResult mirrors quotastore.ConsumeResult so this package does not
// need to import quotastore's domain dependency directly.
type ConsumeResult struct {
	Allowed  bool
	Counters domain.QuotaCounters
}

// StopSignal is the subset of internal/stopsignal.Signal the coordinator
// polls.
type StopSignal interface {
	IsSet() bool
}

// EventLog is the subset of internal/eventlog.Log the coordinator writes
// to.
type EventLog interface {
	Emit(event string, fields map[string]any)
}

// Clock is the subset of internal/clock.Clock the coordinator uses for the
// pacing sleep between sends.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
	Now() time.Time
}

// MetricsSink is the subset of internal/metrics.Metrics the coordinator and
// SendStep increment at each pipeline stage. Optional: a nil Deps.Metrics
// is replaced by a no-op sink so callers never need a nil check.
type MetricsSink interface {
	IncProfileOutcome(outcome string)
	IncDecision(decision string)
	IncSendOutcome(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) IncProfileOutcome(string) {}
func (noopMetrics) IncDecision(string)       {}
func (noopMetrics) IncSendOutcome(string)    {}
