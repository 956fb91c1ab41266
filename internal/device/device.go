// Package device exposes a sensor reading path with the semantics of a
// read-only character device: a read yields newline-terminated text or
// zero bytes, and writes are rejected.
package device

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid is returned for any write.
	ErrInvalid = errors.New("device: invalid argument")

	// ErrIO wraps every fault raised by the sensor itself.
	ErrIO = errors.New("device: i/o fault")

	// ErrCopy is returned when the reading does not fit the caller's buffer.
	ErrCopy = errors.New("device: bad address")
)

// MaxReading is large enough for any reading a Source produces.
const MaxReading = 32

// Source produces one reading per call. A nil slice with a nil error means
// there is no reading this time.
type Source interface {
	Read() ([]byte, error)
}

// Device is a named read-only view of a Source.
type Device struct {
	name string
	src  Source
}

// New creates a Device that reads from src.
func New(name string, src Source) *Device {
	return &Device{name: name, src: src}
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// Read copies one reading into p.
// n == 0 with a nil error means no valid reading this call; it is not EOF.
func (d *Device) Read(p []byte) (int, error) {
	text, err := d.src.Read()
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", d.name, ErrIO, err)
	}
	if len(text) == 0 {
		return 0, nil
	}
	if len(p) < len(text) {
		return 0, fmt.Errorf("%s: %w: reading needs %d bytes, buffer has %d", d.name, ErrCopy, len(text), len(p))
	}
	return copy(p, text), nil
}

// Write always fails with ErrInvalid.
func (d *Device) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("%s: %w", d.name, ErrInvalid)
}

// ReadString performs one Read into a MaxReading buffer.
func (d *Device) ReadString() (string, error) {
	var buf [MaxReading]byte
	n, err := d.Read(buf[:])
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}
