// Package logic contains pure reading logic for the sensor daemon.
// This package does NO I/O (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// Sensor names a sensor device.
type Sensor string

const (
	SensorFreq  Sensor = "freq"
	SensorRHT03 Sensor = "rht03"
)

// Outcome classifies a single poll of a device.
type Outcome string

const (
	OutcomeReading Outcome = "READING"
	OutcomeEmpty   Outcome = "EMPTY" // no valid reading this poll, not an error
	OutcomeFault   Outcome = "FAULT"
)

// Input is the result of one device read.
type Input struct {
	Sensor Sensor
	Text   string // device output, empty when there was no reading
	Err    error
	Time   time.Time
}

// Reading is a parsed device reading.
type Reading struct {
	Sensor    Sensor
	Timestamp time.Time
	Raw       string // device text without the trailing newline

	// Frequency sensor: the measured frequency, plus the calibrated
	// humidity when calibration factors are known.
	Hz        int
	Frequency physic.Frequency

	// HumidityTenths is set for RHT03 readings, and for frequency readings
	// with calibration (whole percent scaled to tenths).
	HumidityTenths int
	HasHumidity    bool
	Humidity       physic.RelativeHumidity

	// TemperatureTenths is set for RHT03 readings only.
	TemperatureTenths int
	HasTemperature    bool
	Temperature       physic.Temperature
}

// Result is the classified outcome of one Input.
type Result struct {
	Outcome Outcome
	Reading *Reading // set for OutcomeReading
	Err     error    // set for OutcomeFault
}

// Counts tracks per-sensor poll outcomes since startup.
type Counts struct {
	Readings int
	Empty    int
	Faults   int
}

// EventCounts maps each sensor to its counts.
type EventCounts map[Sensor]Counts

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
