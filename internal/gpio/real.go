//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

const consumer = "edge-sensors"

// RealLine is a line on an actual Linux GPIO character device.
// Kernel edge timestamps use CLOCK_MONOTONIC, which Now also reads.
type RealLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	edge Edge

	// mu is held for the duration of every handler call, so Disable
	// waits out an in-flight edge before returning.
	mu      sync.Mutex
	handler Handler
	enabled bool
}

// NewRealLine requests offset on the named chip as an input generating
// events on the given edges. Delivery starts disabled.
func NewRealLine(chipName string, offset int, edge Edge) (*RealLine, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	l := &RealLine{chip: chip, edge: edge}
	line, err := chip.RequestLine(offset,
		gpiocdev.AsInput,
		edge.requestOption(),
		gpiocdev.WithEventHandler(l.dispatch))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pin %d: %w", offset, err)
	}
	l.line = line

	return l, nil
}

func (l *RealLine) dispatch(evt gpiocdev.LineEvent) {
	l.mu.Lock()
	if l.enabled && l.handler != nil {
		l.handler(evt.Timestamp)
	}
	l.mu.Unlock()
}

// Now reads CLOCK_MONOTONIC.
func (l *RealLine) Now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

// Notify registers the edge callback.
func (l *RealLine) Notify(h Handler) {
	l.mu.Lock()
	l.handler = h
	l.mu.Unlock()
}

// Enable resumes delivery of edge notifications.
func (l *RealLine) Enable() error {
	l.mu.Lock()
	l.enabled = true
	l.mu.Unlock()
	return nil
}

// Disable suspends delivery of edge notifications.
func (l *RealLine) Disable() error {
	l.mu.Lock()
	l.enabled = false
	l.mu.Unlock()
	return nil
}

// DriveLow reconfigures the line as an output at level 0.
// Edge detection is only valid on inputs, so it is switched off too.
func (l *RealLine) DriveLow() error {
	if err := l.line.Reconfigure(gpiocdev.AsOutput(0), gpiocdev.WithoutEdges); err != nil {
		return fmt.Errorf("drive pin %d low: %w", l.line.Offset(), err)
	}
	return nil
}

// Input reconfigures the line as an input with its configured edge detection.
func (l *RealLine) Input() error {
	if err := l.line.Reconfigure(gpiocdev.AsInput, l.edge.configOption()); err != nil {
		return fmt.Errorf("set pin %d input: %w", l.line.Offset(), err)
	}
	return nil
}

// Close releases GPIO resources.
// The line is left as an input without edge detection before it is released.
func (l *RealLine) Close() error {
	var errs []error

	l.Disable()
	if l.line != nil {
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithoutEdges); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin: %w", err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin: %w", err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func (e Edge) requestOption() gpiocdev.LineReqOption {
	switch e {
	case EdgeRising:
		return gpiocdev.WithRisingEdge
	case EdgeBoth:
		return gpiocdev.WithBothEdges
	}
	return gpiocdev.WithFallingEdge
}

func (e Edge) configOption() gpiocdev.LineConfigOption {
	switch e {
	case EdgeRising:
		return gpiocdev.WithRisingEdge
	case EdgeBoth:
		return gpiocdev.WithBothEdges
	}
	return gpiocdev.WithFallingEdge
}
