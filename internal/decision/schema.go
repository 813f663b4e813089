package decision

import "encoding/json"

// Request carries everything needed to build one decision prompt.
type Request struct {
	SelfProfile string
	Criteria    string
	Template    string
	ProfileText string
	Model       string

	// MaxOutputTokens is the output token budget (default 4000, max 128000).
	MaxOutputTokens int
	// Temperature is optional, [0,2].
	Temperature *float64
	// Verbosity is one of low/medium/high, nested under a text config group.
	Verbosity string
	// ReasoningEffort is one of minimal/low/medium/high, nested under a
	// reasoning config group.
	ReasoningEffort string
	// ServiceTier is provider-specific and optional.
	ServiceTier string

	// WallClockBudgetSeconds bounds the whole call including retries
	// (default 60).
	WallClockBudgetSeconds int
}

// outputItemType is the closed sum of item kinds a Responses-style API can
// return: reasoning, message, tool_call, computer_action, or unknown.
// Parsing must branch on this explicitly rather than assuming the first
// item carries the message.
type outputItemType string

const (
	itemTypeReasoning      outputItemType = "reasoning"
	itemTypeMessage        outputItemType = "message"
	itemTypeToolCall       outputItemType = "tool_call"
	itemTypeComputerAction outputItemType = "computer_call"
	itemTypeUnknown        outputItemType = "unknown"
)

// normalized folds any unrecognized wire value into itemTypeUnknown so
// switches over the sum stay exhaustive as providers add item kinds.
func (t outputItemType) normalized() outputItemType {
	switch t {
	case itemTypeReasoning, itemTypeMessage, itemTypeToolCall, itemTypeComputerAction:
		return t
	default:
		return itemTypeUnknown
	}
}

// outputItem is one item of a provider response's output array.
type outputItem struct {
	Type    outputItemType    `json:"type"`
	Content []outputContentPart `json:"content"`
}

type outputContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// providerResponse is the subset of a Responses-API-shaped payload this
// engine understands.
type providerResponse struct {
	// OutputText is a provider-supplied aggregated text field, preferred
	// when present so callers skip manual item concatenation.
	OutputText string       `json:"output_text"`
	Output     []outputItem `json:"output"`
	Usage      *usage       `json:"usage"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// rawVerdict is the exact JSON shape the model is instructed to return.
type rawVerdict struct {
	Decision   string  `json:"decision"`
	Rationale  string  `json:"rationale"`
	Draft      string  `json:"draft"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// verdictJSONSchema is the schema attached to the request's text.format
// group when the target model supports structured output. Stripped on the
// unsupported-parameter fallback path.
func verdictJSONSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"decision": {"type": "string", "enum": ["YES", "NO", "ERROR"]},
			"rationale": {"type": "string", "maxLength": 280},
			"draft": {"type": "string"},
			"score": {"type": "number", "minimum": 0, "maximum": 1},
			"confidence": {"type": "number", "minimum": 0, "maximum": 1}
		},
		"required": ["decision", "rationale", "draft", "score", "confidence"],
		"additionalProperties": false
	}`)
}
