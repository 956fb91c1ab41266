// Package gpio provides edge-notifying GPIO lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// Handler is called once per detected edge with the edge timestamp.
// It runs in the line's event context and must not block.
type Handler func(ts time.Duration)

// Edge selects which transitions generate notifications.
type Edge int

const (
	EdgeFalling Edge = iota
	EdgeRising
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeFalling:
		return "falling"
	case EdgeRising:
		return "rising"
	case EdgeBoth:
		return "both"
	}
	return "unknown"
}

// Line is a GPIO line that delivers edge notifications to a registered
// Handler. Timestamps passed to the handler and returned by Now share one
// monotonic clock.
type Line interface {
	// Now returns the current time on the event clock.
	Now() time.Duration

	// Notify registers the edge callback, replacing any previous one.
	Notify(h Handler)

	// Enable resumes delivery of edge notifications.
	Enable() error

	// Disable suspends delivery of edge notifications. It does not return
	// while a handler invocation is in flight, and no handler runs after
	// it returns until Enable is called.
	Disable() error

	// DriveLow switches the line to output and drives it low.
	DriveLow() error

	// Input switches the line back to input with edge detection.
	Input() error

	// Close releases GPIO resources.
	Close() error
}

// Default line configuration (BCM numbering).
const (
	DefaultChip     = "gpiochip0"
	DefaultPinFreq  = 17
	DefaultPinRHT03 = 4
)

var (
	_ Line = (*RealLine)(nil)
	_ Line = (*FakeLine)(nil)
)
