package main

import "errors"

// exitCode classifies a run outcome into the CLI's documented exit codes.
type exitCode int

const (
	exitOK               exitCode = 0
	exitConfigError      exitCode = 2
	exitLoginRequired    exitCode = 3
	exitQuotaExhausted   exitCode = 4
	exitFatalInternal    exitCode = 5
)

// exitError pairs an error with the exit code main() should return for it.
type exitError struct {
	code exitCode
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code exitCode, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCodeFor extracts the exit code a returned error carries, defaulting
// to a fatal internal error for anything unclassified.
func exitCodeFor(err error) int {
	if err == nil {
		return int(exitOK)
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return int(ee.code)
	}
	return int(exitFatalInternal)
}
