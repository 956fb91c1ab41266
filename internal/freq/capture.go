// Package freq estimates the frequency of a square-wave sensor output by
// timing its edges.
//
// Every rising and falling edge appends the time since the previous edge to
// a fixed ring. A read drains the ring, sums adjacent pairs of entries into
// full periods, keeps the periods whose frequency falls inside the
// configured window and averages them.
package freq

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sweeney/edge-sensors/internal/edge"
	"github.com/sweeney/edge-sensors/internal/gpio"
)

// Defaults match an HH10D humidity sensor, which outputs 5-10 kHz.
const (
	DefaultCapacity = 256
	DefaultMinHz    = 5000
	DefaultMaxHz    = 10000
)

const nsPerSecond = uint64(time.Second)

// Config holds the acceptance window and ring size.
type Config struct {
	MinHz    int
	MaxHz    int
	Capacity int // number of edge durations held; must be even
}

// DefaultConfig returns the default acceptance window and ring size.
func DefaultConfig() Config {
	return Config{
		MinHz:    DefaultMinHz,
		MaxHz:    DefaultMaxHz,
		Capacity: DefaultCapacity,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Capacity < 2 || c.Capacity%2 != 0 {
		return fmt.Errorf("capacity %d must be even and at least 2", c.Capacity)
	}
	if c.MinHz < 0 || c.MaxHz <= 0 {
		return errors.New("frequency window must be positive")
	}
	if c.MinHz > c.MaxHz {
		return fmt.Errorf("min frequency %d exceeds max frequency %d", c.MinHz, c.MaxHz)
	}
	return nil
}

// Estimate is the outcome of draining the ring once.
type Estimate struct {
	Hz       uint64 // averaged frequency; zero unless Valid
	Accepted int    // pairs inside the acceptance window
	Pairs    int    // pairs examined
	Valid    bool
}

// Capture owns the sample ring for one frequency line.
//
// OnEdge runs in the line's event context and Measure in the reader's.
// They never run at the same time: Measure disables delivery on the line
// before touching the ring and re-enables it afterwards. Only one reader
// may call Measure or Read at a time.
type Capture struct {
	line  gpio.Line
	minHz uint64
	maxHz uint64

	timer edge.Timer
	ring  []uint64 // nanoseconds between consecutive edges
	next  int
}

// New builds a Capture on line, registers its edge callback and enables
// delivery. The edge timer baseline is the line's current time.
func New(line gpio.Line, cfg Config) (*Capture, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("freq config: %w", err)
	}

	c := &Capture{
		line:  line,
		minHz: uint64(cfg.MinHz),
		maxHz: uint64(cfg.MaxHz),
		ring:  make([]uint64, cfg.Capacity),
	}
	c.timer.Mark(line.Now())
	line.Notify(c.OnEdge)
	if err := line.Enable(); err != nil {
		return nil, fmt.Errorf("enable edges: %w", err)
	}
	return c, nil
}

// OnEdge records the time since the previous edge, overwriting the oldest
// entry once the ring is full.
func (c *Capture) OnEdge(now time.Duration) {
	d := c.timer.Mark(now)
	if d < 0 {
		d = 0
	}
	c.ring[c.next] = uint64(d)
	c.next = (c.next + 1) % len(c.ring)
}

// Measure drains the ring and returns the frequency estimate.
// The ring is zeroed whether or not the estimate is valid.
func (c *Capture) Measure() (Estimate, error) {
	if err := c.line.Disable(); err != nil {
		return Estimate{}, fmt.Errorf("mask edges: %w", err)
	}
	sum, accepted := c.drain()
	if err := c.line.Enable(); err != nil {
		return Estimate{}, fmt.Errorf("unmask edges: %w", err)
	}

	est := Estimate{Accepted: accepted, Pairs: len(c.ring) / 2}
	if accepted <= est.Pairs/4 {
		return est, nil
	}
	avg := sum / uint64(accepted)
	if avg == 0 {
		return est, nil
	}
	est.Hz = nsPerSecond / avg
	est.Valid = true
	return est, nil
}

// Read returns the estimated frequency as "<hz>\n", or nil when there were
// not enough usable samples since the previous read.
func (c *Capture) Read() ([]byte, error) {
	est, err := c.Measure()
	if err != nil {
		return nil, err
	}
	if !est.Valid {
		return nil, nil
	}
	return append(strconv.AppendUint(nil, est.Hz, 10), '\n'), nil
}

// drain sums the in-window periods and resets the ring.
// Caller must have disabled edge delivery.
func (c *Capture) drain() (sum uint64, accepted int) {
	for i := 0; i+1 < len(c.ring); i += 2 {
		period := c.ring[i] + c.ring[i+1]
		if period == 0 {
			continue
		}
		hz := nsPerSecond / period
		if hz >= c.minHz && hz <= c.maxHz {
			sum += period
			accepted++
		}
	}
	clear(c.ring)
	c.next = 0
	return sum, accepted
}
