// Package metrics exposes the run-level Prometheus counters and timings
// described in the outreach autopilot design's Metrics component,
// summarized per run (profiles processed, decisions by outcome, sends,
// quota/stop terminations, provider and browser latency): one struct of
// promauto-registered CounterVec/HistogramVec/GaugeVec fields built by a
// single constructor.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the run-level metrics surface. A process registers it once
// against the default Prometheus registry; Coordinator and its
// collaborators increment it at each pipeline stage.
type Metrics struct {
	// ProfilesProcessed counts profiles the coordinator finished handling,
	// labeled by outcome (sent|shadow_send|skipped|pending_approval|send_failed).
	ProfilesProcessed *prometheus.CounterVec

	// DecisionsTotal counts DecisionEngine verdicts by decision
	// (yes|no|error).
	DecisionsTotal *prometheus.CounterVec

	// DecisionDuration measures DecisionEngine.Decide wall-clock latency.
	DecisionDuration prometheus.Histogram

	// BrowserOperationDuration measures BrowserDriver operation latency,
	// labeled by operation name.
	BrowserOperationDuration *prometheus.HistogramVec

	// SendOutcomes counts SendStep results (ok|stopped|quota_exhausted|send_failed).
	SendOutcomes *prometheus.CounterVec

	// QuotaRemaining is a gauge snapshot of remaining day/week quota,
	// labeled by scope (day|week).
	QuotaRemaining *prometheus.GaugeVec

	// RunsActive tracks the number of currently running coordinators.
	RunsActive prometheus.Gauge

	// ProviderTokensUsed counts decision-model input/output tokens,
	// labeled by type (input|output).
	ProviderTokensUsed *prometheus.CounterVec
}

// New builds and registers a Metrics instance against the default
// Prometheus registry.
func New() *Metrics {
	return &Metrics{
		ProfilesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_autopilot_profiles_processed_total",
				Help: "Total number of candidate profiles processed, by outcome.",
			},
			[]string{"outcome"},
		),
		DecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_autopilot_decisions_total",
				Help: "Total number of DecisionEngine verdicts, by decision.",
			},
			[]string{"decision"},
		),
		DecisionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "outreach_autopilot_decision_duration_seconds",
				Help:    "DecisionEngine.Decide wall-clock latency in seconds.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
			},
		),
		BrowserOperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outreach_autopilot_browser_operation_duration_seconds",
				Help:    "BrowserDriver operation latency in seconds, by operation.",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"operation"},
		),
		SendOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_autopilot_send_outcomes_total",
				Help: "Total number of SendStep results, by outcome.",
			},
			[]string{"outcome"},
		),
		QuotaRemaining: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "outreach_autopilot_quota_remaining",
				Help: "Remaining send quota, by scope (day|week).",
			},
			[]string{"scope"},
		),
		RunsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "outreach_autopilot_runs_active",
				Help: "Number of currently running coordinators.",
			},
		),
		ProviderTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_autopilot_provider_tokens_total",
				Help: "Total decision-model tokens consumed, by type (input|output).",
			},
			[]string{"type"},
		),
	}
}

// ObserveDecision records DecisionDuration and increments DecisionsTotal.
func (m *Metrics) ObserveDecision(decision string, d time.Duration) {
	m.DecisionDuration.Observe(d.Seconds())
	m.DecisionsTotal.WithLabelValues(decision).Inc()
}

// IncDecision increments DecisionsTotal without a duration observation, for
// callers (Coordinator) that only know the outcome.
func (m *Metrics) IncDecision(decision string) {
	m.DecisionsTotal.WithLabelValues(decision).Inc()
}

// IncProfileOutcome increments ProfilesProcessed for the given terminal
// outcome of one profile's pipeline run.
func (m *Metrics) IncProfileOutcome(outcome string) {
	m.ProfilesProcessed.WithLabelValues(outcome).Inc()
}

// IncSendOutcome increments SendOutcomes for one SendStep result.
func (m *Metrics) IncSendOutcome(outcome string) {
	m.SendOutcomes.WithLabelValues(outcome).Inc()
}

// SetQuotaRemaining sets the QuotaRemaining gauge for scope ("day"|"week").
func (m *Metrics) SetQuotaRemaining(scope string, remaining float64) {
	m.QuotaRemaining.WithLabelValues(scope).Set(remaining)
}

// ObserveBrowserOp records BrowserOperationDuration for the named
// operation.
func (m *Metrics) ObserveBrowserOp(operation string, d time.Duration) {
	m.BrowserOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}
