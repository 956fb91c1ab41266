// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/edge-sensors/internal/logic"
)

// DefaultTopic is the base topic. Readings go to <base>/<sensor> and
// lifecycle events to <base>/system.
const DefaultTopic = "sensors/gpio"

// ReadingTopic returns the topic for readings from sensor.
func ReadingTopic(base string, sensor logic.Sensor) string {
	return base + "/" + string(sensor)
}

// SystemTopic returns the topic for lifecycle events.
func SystemTopic(base string) string {
	return base + "/system"
}

// Publisher publishes readings to MQTT.
type Publisher interface {
	// Publish sends a sensor reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(r logic.Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a reading.
type Payload struct {
	Reading ReadingPayload `json:"reading"`
}

// ReadingPayload contains the reading details. Humidity and temperature are
// omitted when the sensor does not provide them.
type ReadingPayload struct {
	Timestamp   string   `json:"timestamp"`
	Sensor      string   `json:"sensor"`
	Raw         string   `json:"raw"`
	Hz          int      `json:"hz,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`    // percent RH
	Temperature *float64 `json:"temperature,omitempty"` // degrees Celsius
}

// FormatPayload creates the JSON payload for a reading.
func FormatPayload(r logic.Reading) ([]byte, error) {
	p := ReadingPayload{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
		Sensor:    string(r.Sensor),
		Raw:       r.Raw,
		Hz:        r.Hz,
	}
	if r.HasHumidity {
		h := float64(r.HumidityTenths) / 10
		p.Humidity = &h
	}
	if r.HasTemperature {
		t := float64(r.TemperatureTenths) / 10
		p.Temperature = &t
	}
	return json.Marshal(Payload{Reading: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
