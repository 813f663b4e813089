// Package errs defines the error taxonomy shared by the decision engine,
// browser driver, and coordinator.
package errs

import "errors"

// Kind classifies an error for propagation and retry decisions.
type Kind string

const (
	// KindConfig is a fatal configuration problem detected at startup.
	KindConfig Kind = "config"
	// KindProvider is an LLM provider 4xx/5xx/timeout error.
	KindProvider Kind = "provider"
	// KindParse means a provider response could not be turned into a Verdict.
	KindParse Kind = "parse"
	// KindBrowser is a browser operation failure (selector/timeout).
	KindBrowser Kind = "browser"
	// KindVerification means a submit produced no confirmation.
	KindVerification Kind = "verification"
	// KindInternal is an invariant violation.
	KindInternal Kind = "internal"
)

// Error wraps an underlying cause with a Kind and an optional Stage label
// describing which pipeline step produced it.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return string(e.Kind) + " at " + e.Stage + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified Error.
func New(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
