package logic

import (
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/edge-sensors/internal/hh10d"
	"periph.io/x/conn/v3/physic"
)

// One tenth of the device reporting unit.
const (
	tenthPercentRH = physic.PercentRH / 10
	tenthKelvin    = physic.Kelvin / 10
)

// Processor classifies device reads and keeps running counts.
type Processor struct {
	sensors       []Sensor
	factors       *hh10d.Factors
	startTime     time.Time
	counts        EventCounts
	last          map[Sensor]Reading
	lastHeartbeat time.Time
}

// NewProcessor creates a processor for the given sensors.
// The startTime is used for calculating uptime in heartbeat events.
func NewProcessor(startTime time.Time, sensors ...Sensor) *Processor {
	return &Processor{
		sensors:       sensors,
		startTime:     startTime,
		counts:        make(EventCounts),
		last:          make(map[Sensor]Reading),
		lastHeartbeat: startTime,
	}
}

// SetCalibration enables humidity conversion of frequency readings.
func (p *Processor) SetCalibration(f hh10d.Factors) {
	p.factors = &f
}

// Calibration returns the factors set by SetCalibration.
func (p *Processor) Calibration() (hh10d.Factors, bool) {
	if p.factors == nil {
		return hh10d.Factors{}, false
	}
	return *p.factors, true
}

// Process classifies one device read.
// Text that cannot be parsed counts as a fault.
func (p *Processor) Process(in Input) Result {
	c := p.counts[in.Sensor]
	defer func() { p.counts[in.Sensor] = c }()

	if in.Err != nil {
		c.Faults++
		return Result{Outcome: OutcomeFault, Err: in.Err}
	}
	if in.Text == "" {
		c.Empty++
		return Result{Outcome: OutcomeEmpty}
	}

	r, err := p.parse(in)
	if err != nil {
		c.Faults++
		return Result{Outcome: OutcomeFault, Err: err}
	}
	c.Readings++
	p.last[in.Sensor] = *r
	return Result{Outcome: OutcomeReading, Reading: r}
}

func (p *Processor) parse(in Input) (*Reading, error) {
	r := &Reading{
		Sensor:    in.Sensor,
		Timestamp: in.Time,
		Raw:       strings.TrimRight(in.Text, "\n"),
	}

	switch in.Sensor {
	case SensorFreq:
		hz, err := hh10d.ParseFrequency(in.Text)
		if err != nil {
			return nil, err
		}
		r.Hz = hz
		r.Frequency = physic.Frequency(hz) * physic.Hertz
		if p.factors != nil {
			r.setHumidity(p.factors.Humidity(hz) * 10)
		}

	case SensorRHT03:
		var h, t int
		if _, err := fmt.Sscanf(in.Text, "h=%d t=%d", &h, &t); err != nil {
			return nil, fmt.Errorf("parse rht03 reading %q: %w", r.Raw, err)
		}
		r.setHumidity(h)
		r.TemperatureTenths = t
		r.HasTemperature = true
		r.Temperature = physic.ZeroCelsius + physic.Temperature(t)*tenthKelvin

	default:
		return nil, fmt.Errorf("unknown sensor %q", in.Sensor)
	}
	return r, nil
}

func (r *Reading) setHumidity(tenths int) {
	r.HumidityTenths = tenths
	r.HasHumidity = true
	r.Humidity = physic.RelativeHumidity(tenths) * tenthPercentRH
}

// IsReady returns whether every sensor has produced at least one reading.
func (p *Processor) IsReady() bool {
	for _, s := range p.sensors {
		if _, ok := p.last[s]; !ok {
			return false
		}
	}
	return true
}

// Last returns the most recent reading from s.
func (p *Processor) Last(s Sensor) (Reading, bool) {
	r, ok := p.last[s]
	return r, ok
}

// EventCountsSnapshot returns a copy of the outcome counts.
func (p *Processor) EventCountsSnapshot() EventCounts {
	out := make(EventCounts, len(p.counts))
	for s, c := range p.counts {
		out[s] = c
	}
	return out
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (p *Processor) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(p.lastHeartbeat) < interval {
		return nil
	}

	p.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(p.startTime),
		Counts:    p.EventCountsSnapshot(),
	}
}
