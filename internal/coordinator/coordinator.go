package coordinator

import (
	"context"
	"strings"
	"time"

	"github.com/haasonsaas/outreach-autopilot/internal/domain"
	"github.com/haasonsaas/outreach-autopilot/internal/fingerprint"
)

// TemplateRenderer is the subset of internal/template.Renderer the
// coordinator uses to turn a Verdict into a final message.
type TemplateRenderer interface {
	Render(tmpl string, verdict domain.Verdict, fields map[string]string) (string, error)
}

// Coordinator drives the per-candidate pipeline for one run.
type Coordinator struct {
	browser  BrowserDriver
	decision DecisionEngine
	seen     SeenStore
	quota    QuotaStore
	stop     StopSignal
	clock    Clock
	events   EventLog
	renderer TemplateRenderer
	sendStep *SendStep
	metrics  MetricsSink

	run domain.RunContext
}

// Deps bundles everything Coordinator needs, so wiring stays in one call.
type Deps struct {
	Browser  BrowserDriver
	Decision DecisionEngine
	Seen     SeenStore
	Quota    QuotaStore
	Stop     StopSignal
	Clock    Clock
	Events   EventLog
	Renderer TemplateRenderer
	// Metrics is optional; a nil value is replaced by a no-op sink.
	Metrics MetricsSink
}

// New builds a Coordinator for run over deps.
func New(run domain.RunContext, deps Deps) *Coordinator {
	m := deps.Metrics
	if m == nil {
		m = noopMetrics{}
	}
	return &Coordinator{
		browser:  deps.Browser,
		decision: deps.Decision,
		seen:     deps.Seen,
		quota:    deps.Quota,
		stop:     deps.Stop,
		clock:    deps.Clock,
		events:   deps.Events,
		renderer: deps.Renderer,
		sendStep: NewSendStep(deps.Browser, deps.Quota, deps.Stop, deps.Clock, deps.Events, 0, m),
		metrics:  m,
		run:      run,
	}
}

// Run drives the sequential per-profile loop up to run.ProfileLimit,
// matching the ordering and failure-semantics invariants: decision
// precedes sent; duplicate replaces decision for seen fingerprints;
// profile_processing_error replaces any partial subsequent events for that
// profile; the run never aborts on a single profile's failure.
func (c *Coordinator) Run(ctx context.Context) {
	limit := c.run.ProfileLimit
	if limit <= 0 {
		limit = 1
	}

	for i := 0; i < limit; i++ {
		if c.stop.IsSet() {
			c.events.Emit("stopped", map[string]any{"at_profile": i})
			return
		}

		hasMore, quotaExhausted := c.processProfile(ctx, i)
		if !hasMore {
			c.events.Emit("run_complete", map[string]any{"reason": "no_more_profiles"})
			return
		}
		if quotaExhausted {
			c.events.Emit("run_complete", map[string]any{"reason": "quota"})
			return
		}
	}

	c.events.Emit("run_complete", map[string]any{"reason": "exhausted"})
}

// processProfile handles exactly one profile card. It returns
// hasMore=false when the listing is exhausted (OpenNextProfile returned
// false) and quotaExhausted=true when a send attempt stopped the run via
// quota exhaustion.
func (c *Coordinator) processProfile(ctx context.Context, index int) (hasMore bool, quotaExhausted bool) {
	defer func() {
		if r := recover(); r != nil {
			c.events.Emit("profile_processing_error", map[string]any{"error": toErrString(r), "stage": "panic", "profile": index})
			hasMore, quotaExhausted = true, false
		}
	}()

	ok, err := c.browser.OpenNextProfile()
	if err != nil {
		c.events.Emit("profile_processing_error", map[string]any{"error": err.Error(), "stage": "open_next_profile", "profile": index})
		return true, false
	}
	if !ok {
		return false, false
	}

	extractStart := c.clock.Now()
	text, err := c.readProfileTextWithRetry()
	extractMs := c.clock.Now().Sub(extractStart).Milliseconds()
	if err != nil {
		c.events.Emit("profile_processing_error", map[string]any{"error": err.Error(), "stage": "read_profile_text", "profile": index})
		return true, false
	}
	if text == "" {
		c.events.Emit("empty_profile", map[string]any{"at_profile": index, "engine": c.engine(), "skip_reason": "empty_after_retry", "extract_ms": extractMs})
		return true, false
	}
	c.events.Emit("profile_extracted", map[string]any{"profile": index, "extracted_len": len(text), "engine": c.engine(), "extract_ms": extractMs})

	fp := fingerprint.Of(text)

	seen, err := c.seen.IsSeen(ctx, fp)
	if err != nil {
		c.events.Emit("profile_processing_error", map[string]any{"error": err.Error(), "stage": "is_seen", "profile": index})
		return true, false
	}
	if seen {
		c.events.Emit("duplicate", map[string]any{"hash": fp})
		if err := c.browser.Skip(); err != nil {
			c.events.Emit("profile_processing_error", map[string]any{"error": err.Error(), "stage": "skip", "profile": index})
		}
		return true, false
	}

	verdict := c.decision.Decide(ctx, DecisionRequest{
		SelfProfile: c.run.SelfProfile,
		Criteria:    c.run.Criteria,
		Template:    c.run.Template,
		ProfileText: text,
	})
	decisionFields := map[string]any{
		"profile": index, "decision": string(verdict.Decision), "rationale": verdict.Rationale,
		"score": verdict.Score, "confidence": verdict.Confidence,
		"engine": c.engine(), "extracted_len": len(text), "decision_json_ok": verdict.JSONOk,
	}
	if !verdict.JSONOk && verdict.RawText != "" {
		decisionFields["raw"] = verdict.RawText
	}
	c.events.Emit("decision", decisionFields)
	c.metrics.IncDecision(strings.ToLower(string(verdict.Decision)))

	if verdict.Decision != domain.DecisionYes || !verdict.IsSendable() {
		c.metrics.IncProfileOutcome("skipped")
		if err := c.browser.Skip(); err != nil {
			c.events.Emit("profile_processing_error", map[string]any{"error": err.Error(), "stage": "skip", "profile": index})
		}
		return true, false
	}

	return c.handlePositiveVerdict(ctx, fp, text, verdict, index)
}

func (c *Coordinator) handlePositiveVerdict(ctx context.Context, fp, profileText string, verdict domain.Verdict, index int) (hasMore bool, quotaExhausted bool) {
	if c.run.Shadow {
		c.events.Emit("shadow_send", map[string]any{"profile": index, "would_send": true})
		c.metrics.IncProfileOutcome("shadow_send")
		if err := c.seen.MarkSeen(ctx, fp); err != nil {
			c.events.Emit("profile_processing_error", map[string]any{"error": err.Error(), "stage": "mark_seen", "profile": index})
		}
		if err := c.browser.Skip(); err != nil {
			c.events.Emit("profile_processing_error", map[string]any{"error": err.Error(), "stage": "skip", "profile": index})
		}
		return true, false
	}

	if !c.run.AutoSend {
		c.events.Emit("pending_approval", map[string]any{"profile": index, "draft": verdict.Draft})
		c.metrics.IncProfileOutcome("pending_approval")
		return true, false
	}

	draft, err := c.renderer.Render(c.run.Template, verdict, map[string]string{"name": extractName(profileText)})
	if err != nil {
		c.events.Emit("send_failed", map[string]any{"profile": index, "reason": "template", "error": err.Error()})
		if err := c.browser.Skip(); err != nil {
			c.events.Emit("profile_processing_error", map[string]any{"error": err.Error(), "stage": "skip", "profile": index})
		}
		return true, false
	}

	outcome := c.sendStep.Run(ctx, index, draft, c.run.PaceSeconds)
	switch outcome {
	case sendOK:
		c.metrics.IncProfileOutcome("sent")
		if err := c.seen.MarkSeen(ctx, fp); err != nil {
			c.events.Emit("profile_processing_error", map[string]any{"error": err.Error(), "stage": "mark_seen", "profile": index})
		}
		return true, false
	case sendQuota:
		return true, true
	case sendStopped:
		return true, false
	default: // sendFailed
		c.metrics.IncProfileOutcome("send_failed")
		if err := c.browser.Skip(); err != nil {
			c.events.Emit("profile_processing_error", map[string]any{"error": err.Error(), "stage": "skip", "profile": index})
		}
		return true, false
	}
}

// engine names the extraction engine for event payloads: the
// planner-executor loop when a computer-use model is resolved, fixed DOM
// selectors otherwise.
func (c *Coordinator) engine() string {
	if c.run.CUAModel != "" {
		return "planner"
	}
	return "dom"
}

// readProfileTextWithRetry retries once after a 1s pause if the first read
// comes back empty, per the coordinator's bounded-retry contract.
func (c *Coordinator) readProfileTextWithRetry() (string, error) {
	text, err := c.browser.ReadProfileText()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	if err := c.clock.Sleep(context.Background(), time.Second); err != nil {
		return "", err
	}

	text, err = c.browser.ReadProfileText()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// extractName applies a simple heuristic for the template's {name} slot: the
// text up to the first comma or newline, since profile cards on the target
// site lead with the candidate's display name.
func extractName(profileText string) string {
	cut := strings.IndexAny(profileText, ",\n")
	if cut < 0 {
		return strings.TrimSpace(profileText)
	}
	return strings.TrimSpace(profileText[:cut])
}

func toErrString(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return "panic"
}
