package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// UnsupportedParameterError is returned by the provider when an optional
// request parameter is not supported by the target model. DecisionEngine
// strips the offending parameters and retries once on this error class.
type UnsupportedParameterError struct {
	Param string
}

func (e *UnsupportedParameterError) Error() string {
	return fmt.Sprintf("unsupported parameter: %s", e.Param)
}

// ServerError marks a transient 5xx/network failure eligible for the
// exponential-backoff retry path.
type ServerError struct {
	StatusCode int
	Err        error
}

func (e *ServerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server error (%d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("server error (%d)", e.StatusCode)
}
func (e *ServerError) Unwrap() error { return e.Err }

// Client is a minimal client for a Responses-API-shaped LLM endpoint. It
// exists because the chat-completions types vendored by go-openai don't
// model the Responses API's nested parameter groups (text.verbosity,
// reasoning.effort) this engine needs — see DESIGN.md.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
}

// NewClient builds a Client against baseURL (e.g. "https://api.openai.com/v1").
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 0}, // per-call timeout via context
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
	}
}

// wireRequest is the JSON body sent to the Responses endpoint. Optional
// provider capabilities are nested parameter groups, never top-level
// flags, per the decision engine's request-construction contract.
type wireRequest struct {
	Model           string       `json:"model"`
	Input           string       `json:"input"`
	MaxOutputTokens int          `json:"max_output_tokens"`
	Temperature     *float64     `json:"temperature,omitempty"`
	ServiceTier     string       `json:"service_tier,omitempty"`
	Text            *textConfig  `json:"text,omitempty"`
	Reasoning       *reasoningConfig `json:"reasoning,omitempty"`
}

type textConfig struct {
	Verbosity string        `json:"verbosity,omitempty"`
	Format    *formatConfig `json:"format,omitempty"`
}

// formatConfig requests schema-constrained output, nested under the text
// group rather than exposed as a top-level flag.
type formatConfig struct {
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type reasoningConfig struct {
	Effort string `json:"effort,omitempty"`
}

// callOptions controls which optional parameter groups are included in the
// wire request, so the unsupported-parameter fallback can strip them.
type callOptions struct {
	includeSchema    bool
	includeTextGroup bool
	includeReasoning bool
	includeTemp      bool
	strictJSONSuffix bool
}

func fullOptions() callOptions {
	return callOptions{includeSchema: true, includeTextGroup: true, includeReasoning: true, includeTemp: true}
}

func strippedOptions() callOptions {
	return callOptions{strictJSONSuffix: true}
}

// call issues a single Responses API request and returns the raw decoded
// response. It does not retry; retry/backoff policy lives in engine.go.
func (c *Client) call(ctx context.Context, req Request, opts callOptions) (*providerResponse, error) {
	prompt := buildPrompt(req, opts.strictJSONSuffix)

	wire := wireRequest{
		Model:           req.Model,
		Input:           prompt,
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if opts.includeTemp && req.Temperature != nil {
		wire.Temperature = req.Temperature
	}
	if opts.includeSchema || (opts.includeTextGroup && req.Verbosity != "") {
		text := &textConfig{}
		if opts.includeTextGroup {
			text.Verbosity = req.Verbosity
		}
		if opts.includeSchema {
			text.Format = &formatConfig{Type: "json_schema", Name: "verdict", Schema: verdictJSONSchema(), Strict: true}
		}
		wire.Text = text
	}
	if opts.includeReasoning && req.ReasoningEffort != "" {
		wire.Reasoning = &reasoningConfig{Effort: req.ReasoningEffort}
	}
	if req.ServiceTier != "" {
		wire.ServiceTier = req.ServiceTier
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("decision: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decision: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &ServerError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServerError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 500 {
		return nil, &ServerError{StatusCode: resp.StatusCode, Err: errors.New(string(respBody))}
	}
	if resp.StatusCode == http.StatusBadRequest {
		if param, ok := unsupportedParam(respBody); ok {
			return nil, &UnsupportedParameterError{Param: param}
		}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("decision: provider error (%d): %s", resp.StatusCode, string(respBody))
	}

	var parsed providerResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decision: decode response: %w", err)
	}
	return &parsed, nil
}

// unsupportedParam inspects an error body for the provider's
// unsupported-parameter signal and returns the offending field name.
func unsupportedParam(body []byte) (string, bool) {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Param   string `json:"param"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false
	}
	if envelope.Error.Code == "unsupported_parameter" || strings.Contains(strings.ToLower(envelope.Error.Message), "unsupported parameter") {
		if envelope.Error.Param != "" {
			return envelope.Error.Param, true
		}
		return "unknown", true
	}
	return "", false
}

func buildPrompt(req Request, strictJSON bool) string {
	var b strings.Builder
	b.WriteString("# System rules\n")
	b.WriteString("You are evaluating a candidate profile against a co-founder match criteria. ")
	b.WriteString("Return a single JSON object with exactly these keys: decision (YES|NO|ERROR), ")
	b.WriteString("rationale (string, at most 280 characters), draft (string), score (0-1), confidence (0-1).\n\n")

	b.WriteString("# Self profile\n")
	b.WriteString(req.SelfProfile)
	b.WriteString("\n\n# Criteria\n")
	b.WriteString(req.Criteria)
	b.WriteString("\n\n# Message template\n")
	b.WriteString(req.Template)
	b.WriteString("\n\n# Candidate profile\n")
	b.WriteString(req.ProfileText)

	if strictJSON {
		b.WriteString("\n\n# Output format\n")
		b.WriteString("Return STRICT JSON only. No markdown fences, no commentary, no leading or trailing text. ")
		b.WriteString("The response body must parse as a single JSON object with exactly the keys decision, rationale, draft, score, confidence.")
	}

	return b.String()
}
