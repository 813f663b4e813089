package main

import (
	"context"

	"github.com/haasonsaas/outreach-autopilot/internal/coordinator"
	"github.com/haasonsaas/outreach-autopilot/internal/decision"
	"github.com/haasonsaas/outreach-autopilot/internal/domain"
	"github.com/haasonsaas/outreach-autopilot/internal/eventlog"
	"github.com/haasonsaas/outreach-autopilot/internal/metrics"
)

// decisionAdapter bridges internal/decision.Engine's richer Request/usage
// shape to coordinator.DecisionEngine's narrow interface, translating a
// successful call into a model_usage event so the engine package stays
// free of an eventlog dependency.
type decisionAdapter struct {
	engine  *decision.Engine
	events  *eventlog.Log
	cfg     *decisionParams
	metrics *metrics.Metrics
}

// decisionParams carries the fixed per-run decision-call settings pulled
// from Config, so decisionAdapter.Decide only has to fill in the
// per-profile fields.
type decisionParams struct {
	Model                  string
	MaxOutputTokens        int
	Temperature            *float64
	Verbosity              string
	ReasoningEffort        string
	ServiceTier            string
	WallClockBudgetSeconds int
}

func newDecisionAdapter(engine *decision.Engine, events *eventlog.Log, cfg *decisionParams, m *metrics.Metrics) *decisionAdapter {
	return &decisionAdapter{engine: engine, events: events, cfg: cfg, metrics: m}
}

func (a *decisionAdapter) Decide(ctx context.Context, req coordinator.DecisionRequest) domain.Verdict {
	return a.engine.Decide(ctx, decision.Request{
		SelfProfile:            req.SelfProfile,
		Criteria:               req.Criteria,
		Template:               req.Template,
		ProfileText:            req.ProfileText,
		Model:                  a.cfg.Model,
		MaxOutputTokens:        a.cfg.MaxOutputTokens,
		Temperature:            a.cfg.Temperature,
		Verbosity:              a.cfg.Verbosity,
		ReasoningEffort:        a.cfg.ReasoningEffort,
		ServiceTier:            a.cfg.ServiceTier,
		WallClockBudgetSeconds: a.cfg.WallClockBudgetSeconds,
	}, func(u decision.UsageEvent) {
		a.events.Emit("model_usage", map[string]any{
			"model": u.Model, "tokens_in": u.TokensIn, "tokens_out": u.TokensOut,
		})
		if a.metrics != nil {
			a.metrics.ProviderTokensUsed.WithLabelValues("input").Add(float64(u.TokensIn))
			a.metrics.ProviderTokensUsed.WithLabelValues("output").Add(float64(u.TokensOut))
		}
	})
}
