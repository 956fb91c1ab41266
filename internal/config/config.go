// Package config loads daemon configuration from a YAML file and
// command-line flags. Flags override the file; the file overrides defaults.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/edge-sensors/internal/freq"
	"github.com/sweeney/edge-sensors/internal/gpio"
	"github.com/sweeney/edge-sensors/internal/hh10d"
	"github.com/sweeney/edge-sensors/internal/mqtt"
	"github.com/sweeney/edge-sensors/internal/rht03"
)

type Config struct {
	Chip      string        `yaml:"chip"`
	Freq      FreqConfig    `yaml:"freq"`
	RHT03     RHT03Config   `yaml:"rht03"`
	HH10D     HH10DConfig   `yaml:"hh10d"`
	MQTT      MQTTConfig    `yaml:"mqtt"`
	HTTP      string        `yaml:"http"`      // empty disables
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables

	// Once reads every enabled sensor a single time, prints and exits.
	Once bool `yaml:"-"`
}

// ---- FREQUENCY ----

type FreqConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Pin      int           `yaml:"pin"`
	MinHz    int           `yaml:"min_hz"`
	MaxHz    int           `yaml:"max_hz"`
	Capacity int           `yaml:"capacity"`
	Poll     time.Duration `yaml:"poll"`
}

// Capture returns the capture settings.
func (c FreqConfig) Capture() freq.Config {
	return freq.Config{MinHz: c.MinHz, MaxHz: c.MaxHz, Capacity: c.Capacity}
}

// ---- RHT03 ----

type RHT03Config struct {
	Enabled    bool          `yaml:"enabled"`
	Pin        int           `yaml:"pin"`
	RequestMin time.Duration `yaml:"request_min"`
	RequestMax time.Duration `yaml:"request_max"`
	Listen     time.Duration `yaml:"listen"`
	Poll       time.Duration `yaml:"poll"`
}

// Decoder returns the handshake timing.
func (c RHT03Config) Decoder() rht03.Config {
	return rht03.Config{RequestMin: c.RequestMin, RequestMax: c.RequestMax, Listen: c.Listen}
}

// ---- HH10D ----

type HH10DConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker   string `yaml:"broker"` // empty disables
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// Default returns the configuration used when neither file nor flags set a value.
func Default() Config {
	fc := freq.DefaultConfig()
	rc := rht03.DefaultConfig()
	return Config{
		Chip: gpio.DefaultChip,
		Freq: FreqConfig{
			Enabled:  true,
			Pin:      gpio.DefaultPinFreq,
			MinHz:    fc.MinHz,
			MaxHz:    fc.MaxHz,
			Capacity: fc.Capacity,
			Poll:     time.Second,
		},
		RHT03: RHT03Config{
			Enabled:    true,
			Pin:        gpio.DefaultPinRHT03,
			RequestMin: rc.RequestMin,
			RequestMax: rc.RequestMax,
			Listen:     rc.Listen,
			Poll:       2 * time.Second,
		},
		HH10D: HH10DConfig{
			Bus:     "1",
			Address: hh10d.EEPROMAddress,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "edge-sensors",
			Topic:    mqtt.DefaultTopic,
		},
		HTTP:      ":8080",
		Heartbeat: 15 * time.Minute,
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := decode(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Parse loads the file named by -config, applies the remaining flags on
// top and validates the result.
func Parse(name string, args []string) (*Config, error) {
	var path string
	scratch := Default()
	if err := newFlagSet(name, &scratch, &path).Parse(args); err != nil {
		return nil, err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fs := newFlagSet(name, cfg, new(string))
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newFlagSet binds every flag directly to a field of cfg, so a flag only
// changes what was loaded when it is given.
func newFlagSet(name string, cfg *Config, path *string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(path, "config", "", "YAML config file")

	fs.StringVar(&cfg.Chip, "chip", cfg.Chip, "GPIO chip name")
	fs.StringVar(&cfg.HTTP, "http", cfg.HTTP, "HTTP status address (empty to disable)")
	fs.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.BoolVar(&cfg.Once, "once", cfg.Once, "Read each sensor once, print and exit")

	fs.BoolVar(&cfg.Freq.Enabled, "freq", cfg.Freq.Enabled, "Enable the frequency sensor")
	fs.IntVar(&cfg.Freq.Pin, "freq-pin", cfg.Freq.Pin, "GPIO line offset of the frequency input")
	fs.IntVar(&cfg.Freq.MinHz, "freq-min", cfg.Freq.MinHz, "Lowest accepted frequency in Hz")
	fs.IntVar(&cfg.Freq.MaxHz, "freq-max", cfg.Freq.MaxHz, "Highest accepted frequency in Hz")
	fs.IntVar(&cfg.Freq.Capacity, "freq-capacity", cfg.Freq.Capacity, "Edge durations held between reads (even)")
	fs.DurationVar(&cfg.Freq.Poll, "freq-poll", cfg.Freq.Poll, "Frequency read interval")

	fs.BoolVar(&cfg.RHT03.Enabled, "rht03", cfg.RHT03.Enabled, "Enable the RHT03 sensor")
	fs.IntVar(&cfg.RHT03.Pin, "rht03-pin", cfg.RHT03.Pin, "GPIO line offset of the RHT03 data line")
	fs.DurationVar(&cfg.RHT03.Listen, "rht03-listen", cfg.RHT03.Listen, "How long a read listens for the reply")
	fs.DurationVar(&cfg.RHT03.Poll, "rht03-poll", cfg.RHT03.Poll, "RHT03 read interval")

	fs.BoolVar(&cfg.HH10D.Enabled, "hh10d", cfg.HH10D.Enabled, "Read HH10D calibration over I2C")
	fs.StringVar(&cfg.HH10D.Bus, "hh10d-bus", cfg.HH10D.Bus, "I2C bus of the HH10D EEPROM")
	fs.Func("hh10d-addr", "I2C address of the HH10D EEPROM", func(s string) error {
		v, err := strconv.ParseUint(s, 0, 16)
		if err != nil {
			return err
		}
		cfg.HH10D.Address = uint16(v)
		return nil
	})

	fs.StringVar(&cfg.MQTT.Broker, "broker", cfg.MQTT.Broker, "MQTT broker address (empty to disable)")
	fs.StringVar(&cfg.MQTT.ClientID, "client-id", cfg.MQTT.ClientID, "MQTT client ID")
	fs.StringVar(&cfg.MQTT.Topic, "topic", cfg.MQTT.Topic, "MQTT base topic")
	return fs
}
