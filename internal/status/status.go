// Package status provides a thread-safe status tracker for the sensor daemon.
// It is read by the HTTP handlers and by the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/edge-sensors/internal/hh10d"
	"github.com/sweeney/edge-sensors/internal/logic"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	FreqPin     int // -1 when disabled
	MinHz       int
	MaxHz       int
	FreqPollMs  int64
	RHT03Pin    int // -1 when disabled
	RHT03PollMs int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// SensorStatus is the latest poll state of one sensor.
type SensorStatus struct {
	LastPoll    time.Time
	LastOutcome logic.Outcome
	LastError   string
	Last        *logic.Reading // most recent successful reading
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; safe to use after the lock is released.
type Snapshot struct {
	Sensors       map[logic.Sensor]SensorStatus
	Ready         bool
	Counts        logic.EventCounts
	Calibration   *hh10d.Factors
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Sensors:   make(map[logic.Sensor]SensorStatus),
			Counts:    make(logic.EventCounts),
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Record stores the outcome of one poll of sensor.
func (t *Tracker) Record(sensor logic.Sensor, res logic.Result, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.snap.Sensors[sensor]
	s.LastPoll = at
	s.LastOutcome = res.Outcome
	s.LastError = ""
	if res.Err != nil {
		s.LastError = res.Err.Error()
	}
	if res.Reading != nil {
		r := *res.Reading
		s.Last = &r
	}
	t.snap.Sensors[sensor] = s
}

// Update sets readiness and outcome counts.
func (t *Tracker) Update(ready bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Ready = ready
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetCalibration records the HH10D calibration factors in use.
func (t *Tracker) SetCalibration(f hh10d.Factors) {
	t.mu.Lock()
	t.snap.Calibration = &f
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Sensors = make(map[logic.Sensor]SensorStatus, len(t.snap.Sensors))
	for k, v := range t.snap.Sensors {
		s.Sensors[k] = v
	}
	s.Counts = make(logic.EventCounts, len(t.snap.Counts))
	for k, v := range t.snap.Counts {
		s.Counts[k] = v
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
