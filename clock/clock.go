// Package clock provides an injectable wall-clock source so the signature
// verifier's freshness check (spec.md §4.3) can be frozen and advanced in
// tests instead of racing the real time.Now().
package clock

import "time"

// Clock is a source of the current wall time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Wall is the production Clock, backed by time.Now.
type Wall struct{}

// Now returns time.Now().
func (Wall) Now() time.Time { return time.Now() }

// New returns the production wall clock.
func New() Clock { return Wall{} }
