//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// NewRealLine returns an error on non-Linux platforms.
func NewRealLine(chipName string, offset int, edge Edge) (*RealLine, error) {
	return nil, errUnsupported
}

func (l *RealLine) Now() time.Duration { return 0 }
func (l *RealLine) Notify(h Handler)   {}
func (l *RealLine) Enable() error      { return errUnsupported }
func (l *RealLine) Disable() error     { return errUnsupported }
func (l *RealLine) DriveLow() error    { return errUnsupported }
func (l *RealLine) Input() error       { return errUnsupported }
func (l *RealLine) Close() error       { return nil }
