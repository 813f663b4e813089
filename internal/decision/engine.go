// Package decision implements the decision engine: it prepares prompts,
// calls the configured LLM, parses the response into a Verdict, and
// handles the unsupported-parameter and transient-error retry policies.
// Retry/backoff is built on internal/backoff's generic exponential-backoff
// helper.
package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/outreach-autopilot/internal/backoff"
	"github.com/haasonsaas/outreach-autopilot/internal/domain"
)

// RetryPolicy is the exponential backoff schedule for transient provider
// errors: initial 2s, factor 2, max 8s.
func RetryPolicy() backoff.Policy {
	return backoff.Policy{Initial: 2 * time.Second, Max: 8 * time.Second, Factor: 2}
}

// maxTransientAttempts is "retry up to two additional times" => 3 total
// attempts on the transient-error path.
const maxTransientAttempts = 3

const defaultWallClockBudgetSeconds = 60

// Engine turns a Request into a Verdict via a Responses-API-shaped client.
type Engine struct {
	client *Client
}

// NewEngine builds a DecisionEngine over client.
func NewEngine(client *Client) *Engine {
	return &Engine{client: client}
}

// UsageEvent is emitted by Decide via the onUsage callback so callers can
// log a model_usage event without the engine depending on eventlog.
type UsageEvent struct {
	Model        string
	TokensIn     int
	TokensOut    int
}

// Decide runs the full provider call policy (capability probe + retry,
// transient backoff, wall-clock budget) and returns a Verdict. onUsage, if
// non-nil, is invoked once per successful provider call.
func (e *Engine) Decide(ctx context.Context, req Request, onUsage func(UsageEvent)) domain.Verdict {
	budget := req.WallClockBudgetSeconds
	if budget <= 0 {
		budget = defaultWallClockBudgetSeconds
	}
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(budget)*time.Second)
	defer cancel()

	resp, err := e.callWithPolicy(callCtx, req, onUsage)
	if err != nil {
		return domain.Verdict{
			Decision: domain.DecisionError,
			JSONOk:   false,
			RawText:  truncate(err.Error(), 200),
		}
	}

	verdict, rawText, err := parseVerdict(resp)
	if err != nil {
		return domain.Verdict{
			Decision: domain.DecisionError,
			JSONOk:   false,
			RawText:  truncate(rawText, 200),
		}
	}

	verdict.ClampScores()
	verdict.JSONOk = true

	// A YES with an empty draft must be treated as ERROR and never sent.
	if verdict.Decision == domain.DecisionYes && verdict.Draft == "" {
		verdict.Decision = domain.DecisionError
		verdict.RawText = "YES verdict carried an empty draft"
	}

	return verdict
}

// callWithPolicy implements the provider call policy:
//  1. first attempt with all optional parameters,
//  2. on an unsupported-parameter error, retry once with those parameters
//     stripped and a stronger JSON instruction appended,
//  3. on transient 5xx/network errors, retry up to two additional times
//     with exponential backoff.
func (e *Engine) callWithPolicy(ctx context.Context, req Request, onUsage func(UsageEvent)) (*providerResponse, error) {
	resp, err := e.callWithTransientRetry(ctx, req, fullOptions(), onUsage)
	if err == nil {
		return resp, nil
	}

	var unsupported *UnsupportedParameterError
	if errors.As(err, &unsupported) {
		return e.callWithTransientRetry(ctx, req, strippedOptions(), onUsage)
	}

	return nil, err
}

// callWithTransientRetry retries only on ServerError (5xx/network); any
// other error — including UnsupportedParameterError and parse failures —
// stops immediately, since only transient errors are eligible for the
// exponential backoff path.
func (e *Engine) callWithTransientRetry(ctx context.Context, req Request, opts callOptions, onUsage func(UsageEvent)) (*providerResponse, error) {
	resp, err := backoff.Retry(ctx, RetryPolicy(), maxTransientAttempts,
		func(err error) bool {
			var serverErr *ServerError
			return errors.As(err, &serverErr)
		},
		func(int) (*providerResponse, error) {
			return e.client.call(ctx, req, opts)
		})
	if err != nil {
		return nil, err
	}
	if onUsage != nil && resp.Usage != nil {
		onUsage(UsageEvent{Model: req.Model, TokensIn: resp.Usage.InputTokens, TokensOut: resp.Usage.OutputTokens})
	}
	return resp, nil
}

// parseVerdict prefers the provider's aggregated output_text field, falling
// back to concatenating text from message-type output items (explicitly
// skipping reasoning-only items), then parses the result as JSON.
func parseVerdict(resp *providerResponse) (domain.Verdict, string, error) {
	text := strings.TrimSpace(resp.OutputText)
	if text == "" {
		var b strings.Builder
		for _, item := range resp.Output {
			switch item.Type.normalized() {
			case itemTypeMessage:
				for _, part := range item.Content {
					b.WriteString(part.Text)
				}
			case itemTypeReasoning, itemTypeToolCall, itemTypeComputerAction, itemTypeUnknown:
				continue
			}
		}
		text = strings.TrimSpace(b.String())
	}

	text = stripMarkdownFence(text)

	var raw rawVerdict
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return domain.Verdict{}, text, fmt.Errorf("decision: parse verdict json: %w", err)
	}

	decision := domain.Decision(strings.ToUpper(strings.TrimSpace(raw.Decision)))
	switch decision {
	case domain.DecisionYes, domain.DecisionNo, domain.DecisionError:
	default:
		return domain.Verdict{}, text, fmt.Errorf("decision: invalid decision value %q", raw.Decision)
	}

	return domain.Verdict{
		Decision:   decision,
		Rationale:  truncate(raw.Rationale, 280),
		Draft:      raw.Draft,
		Score:      raw.Score,
		Confidence: raw.Confidence,
	}, text, nil
}

func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
