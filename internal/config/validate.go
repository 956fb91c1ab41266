package config

import (
	"errors"
	"fmt"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if !cfg.Freq.Enabled && !cfg.RHT03.Enabled {
		return errors.New("no sensor enabled")
	}
	if cfg.Chip == "" {
		return errors.New("chip must be set")
	}

	if cfg.Freq.Enabled {
		if cfg.Freq.Pin < 0 {
			return fmt.Errorf("freq: pin %d is invalid", cfg.Freq.Pin)
		}
		if cfg.Freq.Poll <= 0 {
			return fmt.Errorf("freq: poll interval %v must be positive", cfg.Freq.Poll)
		}
		if err := cfg.Freq.Capture().Validate(); err != nil {
			return fmt.Errorf("freq: %w", err)
		}
	}

	if cfg.RHT03.Enabled {
		if cfg.RHT03.Pin < 0 {
			return fmt.Errorf("rht03: pin %d is invalid", cfg.RHT03.Pin)
		}
		if cfg.Freq.Enabled && cfg.RHT03.Pin == cfg.Freq.Pin {
			return fmt.Errorf("rht03: pin %d is already used by freq", cfg.RHT03.Pin)
		}
		if err := cfg.RHT03.Decoder().Validate(); err != nil {
			return fmt.Errorf("rht03: %w", err)
		}
		// A read blocks for the request pulse and the listen window.
		if busy := cfg.RHT03.RequestMax + cfg.RHT03.Listen; cfg.RHT03.Poll <= busy {
			return fmt.Errorf("rht03: poll interval %v must exceed %v", cfg.RHT03.Poll, busy)
		}
	}

	if cfg.HH10D.Enabled {
		if !cfg.Freq.Enabled {
			return errors.New("hh10d: calibration requires the freq sensor")
		}
		if cfg.HH10D.Bus == "" {
			return errors.New("hh10d: bus must be set")
		}
		if cfg.HH10D.Address == 0 || cfg.HH10D.Address > 0x7F {
			return fmt.Errorf("hh10d: address %#x is not a 7-bit I2C address", cfg.HH10D.Address)
		}
	}

	if cfg.Heartbeat < 0 {
		return fmt.Errorf("heartbeat interval %v must not be negative", cfg.Heartbeat)
	}
	if cfg.MQTT.Broker != "" && cfg.MQTT.Topic == "" {
		return errors.New("mqtt: topic must be set")
	}
	return nil
}
