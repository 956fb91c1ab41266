// Package rht03 reads RHT03 (DHT22) humidity/temperature sensors over their
// single-wire protocol.
//
// A read drives the data line low to request a measurement, releases it
// and times the falling edges the sensor sends back. The first two edges are
// the sensor's response pulse; the next 40 carry five bytes, most
// significant bit first. A bit is a one when its edge arrives more than
// 100µs after the previous edge.
package rht03

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sweeney/edge-sensors/internal/edge"
	"github.com/sweeney/edge-sensors/internal/gpio"
)

// Frame geometry.
const (
	FrameBytes     = 5
	HandshakeEdges = 2
	FrameEdges     = HandshakeEdges + FrameBytes*8

	// OneBitGap separates zero bits (~78µs between edges) from one bits
	// (~120µs).
	OneBitGap = 100 * time.Microsecond
)

// ErrFrame reports a frame that arrived with the wrong number of edges or a
// bad checksum. The next read starts a fresh handshake.
var ErrFrame = errors.New("rht03: frame fault")

// Config holds handshake timing.
type Config struct {
	RequestMin time.Duration // shortest low pulse that requests a reading
	RequestMax time.Duration
	Listen     time.Duration // how long edges are captured after the request
}

// DefaultConfig returns the timing that works with an RHT03 on a Raspberry Pi.
func DefaultConfig() Config {
	return Config{
		RequestMin: time.Millisecond,
		RequestMax: 20 * time.Millisecond,
		Listen:     10 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.RequestMin <= 0 || c.RequestMax < c.RequestMin {
		return fmt.Errorf("request pulse range %v-%v is invalid", c.RequestMin, c.RequestMax)
	}
	if c.Listen <= 0 {
		return fmt.Errorf("listen window %v must be positive", c.Listen)
	}
	return nil
}

// Option customizes a Decoder.
type Option func(*Decoder)

// WithSleep replaces the blocking sleep used for the request pulse and the
// listen window.
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Decoder) { d.sleep = sleep }
}

// WithPulse replaces the function that picks the request pulse length
// within [lo, hi].
func WithPulse(pick func(lo, hi time.Duration) time.Duration) Option {
	return func(d *Decoder) { d.pulse = pick }
}

// Decoder owns the frame buffer for one RHT03 line.
//
// OnEdge only runs while Read has delivery enabled on the line, and Read
// only inspects the frame after disabling it again. Only one reader may
// call Read at a time.
type Decoder struct {
	line  gpio.Line
	cfg   Config
	sleep func(time.Duration)
	pulse func(lo, hi time.Duration) time.Duration

	timer    edge.Timer
	frame    [FrameBytes]byte
	edges    int
	cooldown bool
}

// New builds a Decoder on line and registers its edge callback. Delivery
// is left disabled until a read asks for a measurement.
func New(line gpio.Line, cfg Config, opts ...Option) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("rht03 config: %w", err)
	}

	d := &Decoder{
		line:  line,
		cfg:   cfg,
		sleep: time.Sleep,
		pulse: uniform,
	}
	for _, opt := range opts {
		opt(d)
	}

	line.Notify(d.OnEdge)
	if err := line.Disable(); err != nil {
		return nil, fmt.Errorf("disable edges: %w", err)
	}
	return d, nil
}

func uniform(lo, hi time.Duration) time.Duration {
	return lo + rand.N(hi-lo+1)
}

// OnEdge classifies one falling edge. Edges past the frame are counted but
// not decoded.
func (d *Decoder) OnEdge(now time.Duration) {
	gap := d.timer.Mark(now)
	if d.edges >= HandshakeEdges && d.edges < FrameEdges && gap.Microseconds() > OneBitGap.Microseconds() {
		bit := d.edges - HandshakeEdges
		d.frame[bit/8] |= 1 << (7 - bit%8)
	}
	d.edges++
}

// Measurement is one decoded reading, both fields in tenths.
type Measurement struct {
	Humidity    int // tenths of a percent relative humidity
	Temperature int // tenths of a degree Celsius
}

// String formats the measurement as "h=<humidity> t=<temperature>".
func (m Measurement) String() string {
	return fmt.Sprintf("h=%d t=%d", m.Humidity, m.Temperature)
}

// Measure performs one handshake and decodes the reply.
// ok is false without an error when the read falls in the cooldown that
// follows every successful measurement.
func (d *Decoder) Measure() (m Measurement, ok bool, err error) {
	if d.cooldown {
		d.cooldown = false
		return Measurement{}, false, nil
	}

	d.timer.Mark(d.line.Now())
	if err := d.line.DriveLow(); err != nil {
		return Measurement{}, false, fmt.Errorf("rht03: request: %w", err)
	}
	d.sleep(d.pulse(d.cfg.RequestMin, d.cfg.RequestMax))
	if err := d.line.Input(); err != nil {
		return Measurement{}, false, fmt.Errorf("rht03: release: %w", err)
	}

	d.frame = [FrameBytes]byte{}
	d.edges = 0
	if err := d.line.Enable(); err != nil {
		return Measurement{}, false, fmt.Errorf("rht03: enable edges: %w", err)
	}
	d.sleep(d.cfg.Listen)
	if err := d.line.Disable(); err != nil {
		return Measurement{}, false, fmt.Errorf("rht03: disable edges: %w", err)
	}

	if d.edges != FrameEdges {
		return Measurement{}, false, fmt.Errorf("%w: expected %d edges, got %d", ErrFrame, FrameEdges, d.edges)
	}
	m, err = DecodeFrame(d.frame)
	if err != nil {
		return Measurement{}, false, err
	}

	d.cooldown = true
	return m, true, nil
}

// Read returns "h=<humidity> t=<temperature>\n", or nil during cooldown.
func (d *Decoder) Read() ([]byte, error) {
	m, ok, err := d.Measure()
	if err != nil || !ok {
		return nil, err
	}
	return []byte(m.String() + "\n"), nil
}

// DecodeFrame validates the checksum and extracts the fields.
// Humidity is big-endian in bytes 0-1. Temperature is sign-magnitude in
// bytes 2-3 with the sign in the top bit of byte 2.
func DecodeFrame(frame [FrameBytes]byte) (Measurement, error) {
	var sum byte
	for _, b := range frame[:FrameBytes-1] {
		sum += b
	}
	if sum != frame[FrameBytes-1] {
		return Measurement{}, fmt.Errorf("%w: expected checksum 0x%02x, but calculated 0x%02x",
			ErrFrame, frame[FrameBytes-1], sum)
	}

	h := int(frame[0])<<8 | int(frame[1])
	t := int(frame[2]&0x7f)<<8 | int(frame[3])
	if frame[2]&0x80 != 0 {
		t = -t
	}
	return Measurement{Humidity: h, Temperature: t}, nil
}

// EncodeFrame builds the frame a sensor would send for m, checksum included.
func EncodeFrame(m Measurement) [FrameBytes]byte {
	var f [FrameBytes]byte
	h := uint16(m.Humidity)
	t := m.Temperature
	var sign byte
	if t < 0 {
		sign = 0x80
		t = -t
	}
	f[0] = byte(h >> 8)
	f[1] = byte(h)
	f[2] = byte(t>>8)&0x7f | sign
	f[3] = byte(t)
	f[4] = f[0] + f[1] + f[2] + f[3]
	return f
}
