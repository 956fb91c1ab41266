package status

import (
	"encoding/json"
	"sort"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Ready         bool         `json:"ready"`
	Sensors       []SensorJSON `json:"sensors"`
	Calibration   *CalibJSON   `json:"calibration,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SensorJSON is the JSON representation of one sensor.
type SensorJSON struct {
	Name        string   `json:"name"`
	Outcome     string   `json:"last_outcome"`
	Error       string   `json:"last_error,omitempty"`
	LastPoll    string   `json:"last_poll,omitempty"`
	Raw         string   `json:"raw,omitempty"`
	ReadAt      string   `json:"read_at,omitempty"`
	Hz          int      `json:"hz,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Readings    int      `json:"readings"`
	Empty       int      `json:"empty"`
	Faults      int      `json:"faults"`
}

// CalibJSON is the JSON representation of HH10D calibration factors.
type CalibJSON struct {
	Sensitivity int `json:"sensitivity"`
	Offset      int `json:"offset"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip        string `json:"chip"`
	FreqPin     int    `json:"freq_pin"`
	MinHz       int    `json:"min_hz"`
	MaxHz       int    `json:"max_hz"`
	FreqPollMs  int64  `json:"freq_poll_ms"`
	RHT03Pin    int    `json:"rht03_pin"`
	RHT03PollMs int64  `json:"rht03_poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:         snap.Ready,
		Sensors:       buildSensors(snap),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Chip:        snap.Config.Chip,
			FreqPin:     snap.Config.FreqPin,
			MinHz:       snap.Config.MinHz,
			MaxHz:       snap.Config.MaxHz,
			FreqPollMs:  snap.Config.FreqPollMs,
			RHT03Pin:    snap.Config.RHT03Pin,
			RHT03PollMs: snap.Config.RHT03PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if snap.Calibration != nil {
		inner.Calibration = &CalibJSON{
			Sensitivity: snap.Calibration.Sensitivity,
			Offset:      snap.Calibration.Offset,
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// buildSensors lists sensors by name so the output is stable.
func buildSensors(snap Snapshot) []SensorJSON {
	out := make([]SensorJSON, 0, len(snap.Sensors))
	for name, s := range snap.Sensors {
		c := snap.Counts[name]
		sj := SensorJSON{
			Name:     string(name),
			Outcome:  string(s.LastOutcome),
			Error:    s.LastError,
			Readings: c.Readings,
			Empty:    c.Empty,
			Faults:   c.Faults,
		}
		if !s.LastPoll.IsZero() {
			sj.LastPoll = s.LastPoll.UTC().Format(time.RFC3339)
		}
		if r := s.Last; r != nil {
			sj.Raw = r.Raw
			sj.ReadAt = r.Timestamp.UTC().Format(time.RFC3339)
			sj.Hz = r.Hz
			if r.HasHumidity {
				h := float64(r.HumidityTenths) / 10
				sj.Humidity = &h
			}
			if r.HasTemperature {
				t := float64(r.TemperatureTenths) / 10
				sj.Temperature = &t
			}
		}
		out = append(out, sj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// View returns the status details FormatJSON encodes.
func View(snap Snapshot) StatusInner {
	return buildInner(snap)
}
