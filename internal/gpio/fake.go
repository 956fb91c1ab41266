package gpio

import (
	"sync"
	"time"
)

// FakeLine is a test double that delivers scripted edges.
// Edges fired while delivery is disabled are counted and dropped, the way a
// masked interrupt never reaches its handler.
type FakeLine struct {
	mu      sync.Mutex
	handler Handler
	enabled bool
	clock   time.Duration

	// Calls records line operations in order: "enable", "disable",
	// "drive-low", "input".
	Calls []string

	// Low is true while the line is driven low as an output.
	Low bool

	// Dropped counts edges fired while delivery was disabled.
	Dropped int

	// Closed tracks if Close was called.
	Closed bool

	// Errors returned by the corresponding operations, if set.
	EnableError   error
	DisableError  error
	DriveLowError error
	InputError    error
}

// NewFakeLine creates a FakeLine with delivery disabled and the clock at zero.
func NewFakeLine() *FakeLine {
	return &FakeLine{}
}

// Now returns the fake clock.
func (f *FakeLine) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

// SetNow moves the fake clock to ts without firing an edge.
func (f *FakeLine) SetNow(ts time.Duration) {
	f.mu.Lock()
	f.clock = ts
	f.mu.Unlock()
}

// Notify registers the edge callback.
func (f *FakeLine) Notify(h Handler) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

// Enable resumes delivery.
func (f *FakeLine) Enable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "enable")
	if f.EnableError != nil {
		return f.EnableError
	}
	f.enabled = true
	return nil
}

// Disable suspends delivery.
func (f *FakeLine) Disable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "disable")
	if f.DisableError != nil {
		return f.DisableError
	}
	f.enabled = false
	return nil
}

// DriveLow marks the line as an output driven low.
func (f *FakeLine) DriveLow() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "drive-low")
	if f.DriveLowError != nil {
		return f.DriveLowError
	}
	f.Low = true
	return nil
}

// Input marks the line as an input.
func (f *FakeLine) Input() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "input")
	if f.InputError != nil {
		return f.InputError
	}
	f.Low = false
	return nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.enabled = false
	f.mu.Unlock()
	return nil
}

// Enabled reports whether delivery is currently enabled.
func (f *FakeLine) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

// Fire sets the clock to ts and delivers an edge at that instant.
// Returns false if delivery was disabled and the edge was dropped.
func (f *FakeLine) Fire(ts time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = ts
	if !f.enabled || f.handler == nil {
		f.Dropped++
		return false
	}
	f.handler(ts)
	return true
}

// FireAfter advances the clock by d and delivers an edge.
func (f *FakeLine) FireAfter(d time.Duration) bool {
	return f.Fire(f.Now() + d)
}

// FireDeltas delivers one edge per delta, each delta after the previous
// edge. It returns the number of edges delivered.
func (f *FakeLine) FireDeltas(deltas ...time.Duration) int {
	n := 0
	for _, d := range deltas {
		if f.FireAfter(d) {
			n++
		}
	}
	return n
}

// ResetCalls clears the recorded call log.
func (f *FakeLine) ResetCalls() {
	f.mu.Lock()
	f.Calls = nil
	f.mu.Unlock()
}
