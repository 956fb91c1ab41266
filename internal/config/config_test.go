package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensord.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Freq.Pin != 17 || cfg.RHT03.Pin != 4 {
		t.Errorf("pins: got freq=%d rht03=%d, want 17/4", cfg.Freq.Pin, cfg.RHT03.Pin)
	}
	if cfg.Freq.Capacity != 256 {
		t.Errorf("capacity: got %d, want 256", cfg.Freq.Capacity)
	}
	if cfg.HH10D.Address != 0x51 {
		t.Errorf("hh10d address: got %#x, want 0x51", cfg.HH10D.Address)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
chip: gpiochip4
freq:
  pin: 22
  min_hz: 6000
  poll: 500ms
rht03:
  enabled: false
hh10d:
  enabled: true
  bus: "2"
  address: 0x52
mqtt:
  broker: tcp://10.0.0.2:1883
heartbeat: 1m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Chip != "gpiochip4" {
		t.Errorf("Chip: got %q", cfg.Chip)
	}
	if cfg.Freq.Pin != 22 || cfg.Freq.MinHz != 6000 || cfg.Freq.Poll != 500*time.Millisecond {
		t.Errorf("Freq: got %+v", cfg.Freq)
	}
	if cfg.Freq.MaxHz != 10000 || !cfg.Freq.Enabled {
		t.Errorf("unset freq fields should keep defaults: %+v", cfg.Freq)
	}
	if cfg.RHT03.Enabled {
		t.Error("expected rht03 disabled")
	}
	if !cfg.HH10D.Enabled || cfg.HH10D.Bus != "2" || cfg.HH10D.Address != 0x52 {
		t.Errorf("HH10D: got %+v", cfg.HH10D)
	}
	if cfg.MQTT.Broker != "tcp://10.0.0.2:1883" || cfg.MQTT.Topic != "sensors/gpio" {
		t.Errorf("MQTT: got %+v", cfg.MQTT)
	}
	if cfg.Heartbeat != time.Minute {
		t.Errorf("Heartbeat: got %v", cfg.Heartbeat)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "freq:\n  pins: 3\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "freq:\n  pin: 22\n  max_hz: 9000\nhttp: \":9090\"\n")

	cfg, err := Parse("sensord", []string{
		"-config", path,
		"-freq-pin", "23",
		"-broker", "",
		"-hh10d-addr", "0x50",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Freq.Pin != 23 {
		t.Errorf("flag should override file: pin=%d", cfg.Freq.Pin)
	}
	if cfg.Freq.MaxHz != 9000 {
		t.Errorf("file value should survive: max=%d", cfg.Freq.MaxHz)
	}
	if cfg.HTTP != ":9090" {
		t.Errorf("HTTP: got %q", cfg.HTTP)
	}
	if cfg.MQTT.Broker != "" {
		t.Errorf("Broker: got %q, want empty", cfg.MQTT.Broker)
	}
	if cfg.HH10D.Address != 0x50 {
		t.Errorf("HH10D.Address: got %#x", cfg.HH10D.Address)
	}
}

func TestParseNoArgs(t *testing.T) {
	cfg, err := Parse("sensord", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if *cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse("sensord", []string{"-freq-capacity", "7"})
	if err == nil || !strings.Contains(err.Error(), "capacity") {
		t.Fatalf("expected capacity error, got %v", err)
	}
}

func TestParseBadAddress(t *testing.T) {
	_, err := Parse("sensord", []string{"-hh10d-addr", "zz"})
	if err == nil {
		t.Fatal("expected error for bad address")
	}
}
