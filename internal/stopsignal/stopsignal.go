// Package stopsignal implements a cooperative cancellation flag polled by
// every long-running step of the outreach pipeline.
package stopsignal

import "sync/atomic"

// Signal is an O(1), non-blocking, concurrency-safe cooperative stop flag.
// Setting it never interrupts in-flight work; callers must poll IsSet at
// the well-defined points the coordinator and send step specify.
type Signal struct {
	flag atomic.Bool
}

// New returns an unset Signal.
func New() *Signal { return &Signal{} }

// Set raises the flag. Idempotent.
func (s *Signal) Set() { s.flag.Store(true) }

// Reset lowers the flag. Used between runs that reuse the same Signal.
func (s *Signal) Reset() { s.flag.Store(false) }

// IsSet reports whether the flag has been raised.
func (s *Signal) IsSet() bool { return s.flag.Load() }
