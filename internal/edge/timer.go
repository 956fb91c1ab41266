// Package edge measures the time between successive GPIO edges.
package edge

import "time"

// Timer remembers the timestamp of the previous edge.
// Timestamps are monotonic offsets from an arbitrary origin; only the
// difference between two of them is meaningful.
// Not safe for concurrent use: each capture component owns one Timer and
// touches it only from one context at a time.
type Timer struct {
	prev time.Duration
}

// Mark returns the time elapsed since the previous mark and records now
// as the new previous timestamp.
func (t *Timer) Mark(now time.Duration) time.Duration {
	d := now - t.prev
	t.prev = now
	return d
}

// Previous returns the last marked timestamp.
func (t *Timer) Previous() time.Duration {
	return t.prev
}
