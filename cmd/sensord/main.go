// Command sensord reads GPIO-attached sensors and publishes readings to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/sweeney/edge-sensors/internal/config"
	"github.com/sweeney/edge-sensors/internal/device"
	"github.com/sweeney/edge-sensors/internal/freq"
	"github.com/sweeney/edge-sensors/internal/gpio"
	"github.com/sweeney/edge-sensors/internal/hh10d"
	"github.com/sweeney/edge-sensors/internal/logic"
	"github.com/sweeney/edge-sensors/internal/mqtt"
	"github.com/sweeney/edge-sensors/internal/rht03"
	"github.com/sweeney/edge-sensors/internal/status"
	"github.com/sweeney/edge-sensors/internal/web"
)

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// sensor is one polled device and how often it is read.
type sensor struct {
	name  logic.Sensor
	dev   *device.Device
	every time.Duration
}

func run(cfg *config.Config) error {
	sensors, closeLines, err := openSensors(cfg)
	if err != nil {
		return err
	}
	defer closeLines()

	proc := logic.NewProcessor(time.Now(), sensorNames(sensors)...)
	if cfg.HH10D.Enabled {
		f, err := readCalibration(cfg.HH10D)
		if err != nil {
			// Frequency readings are still useful without humidity.
			log.Printf("hh10d calibration unavailable: %v", err)
		} else {
			log.Printf("hh10d calibration: sens=%d offset=%d", f.Sensitivity, f.Offset)
			proc.SetCalibration(f)
		}
	}

	if cfg.Once {
		return printOnce(os.Stdout, sensors, proc, time.Now)
	}

	// Initialize MQTT
	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if f, ok := proc.Calibration(); ok {
		tracker.SetCalibration(f)
	}
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	for _, s := range sensors {
		log.Printf("started: sensor=%s poll=%v", s.name, s.every)
	}
	log.Printf("started: broker=%q heartbeat=%v", cfg.MQTT.Broker, cfg.Heartbeat)

	tick := make(chan logic.Sensor)
	stop := make(chan struct{})
	defer close(stop)
	for _, s := range sensors {
		go schedule(s.name, s.every, tick, stop)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(sensors, proc, publisher, publisher, tracker, cfg.Heartbeat, time.Now, tick, sigCh)
}

// schedule sends name on tick every interval until stop is closed.
func schedule(name logic.Sensor, every time.Duration, tick chan<- logic.Sensor, stop <-chan struct{}) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			select {
			case tick <- name:
			case <-stop:
				return
			}
		case <-stop:
			return
		}
	}
}

// openSensors requests the GPIO lines of every enabled sensor. On error
// every line opened so far is released.
func openSensors(cfg *config.Config) ([]sensor, func(), error) {
	var lines []gpio.Line
	closeAll := func() {
		for _, l := range lines {
			if err := l.Close(); err != nil {
				log.Printf("gpio close error: %v", err)
			}
		}
	}

	var sensors []sensor
	if cfg.Freq.Enabled {
		line, err := gpio.NewRealLine(cfg.Chip, cfg.Freq.Pin, gpio.EdgeBoth)
		if err != nil {
			return nil, nil, fmt.Errorf("init freq gpio: %w", err)
		}
		lines = append(lines, line)
		c, err := freq.New(line, cfg.Freq.Capture())
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("init freq: %w", err)
		}
		sensors = append(sensors, sensor{name: logic.SensorFreq, dev: device.New("freq", c), every: cfg.Freq.Poll})
	}

	if cfg.RHT03.Enabled {
		line, err := gpio.NewRealLine(cfg.Chip, cfg.RHT03.Pin, gpio.EdgeFalling)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("init rht03 gpio: %w", err)
		}
		lines = append(lines, line)
		d, err := rht03.New(line, cfg.RHT03.Decoder())
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("init rht03: %w", err)
		}
		sensors = append(sensors, sensor{name: logic.SensorRHT03, dev: device.New("rht03", d), every: cfg.RHT03.Poll})
	}

	return sensors, closeAll, nil
}

// readCalibration reads the HH10D factors from its EEPROM.
func readCalibration(c config.HH10DConfig) (hh10d.Factors, error) {
	if _, err := host.Init(); err != nil {
		return hh10d.Factors{}, fmt.Errorf("init host: %w", err)
	}
	bus, err := i2creg.Open(c.Bus)
	if err != nil {
		return hh10d.Factors{}, fmt.Errorf("open i2c bus %q: %w", c.Bus, err)
	}
	defer bus.Close()

	return hh10d.ReadFactors(&i2c.Dev{Addr: c.Address, Bus: bus})
}

func sensorNames(sensors []sensor) []logic.Sensor {
	names := make([]logic.Sensor, len(sensors))
	for i, s := range sensors {
		names[i] = s.name
	}
	return names
}

func statusConfig(cfg *config.Config) status.Config {
	sc := status.Config{
		Chip:        cfg.Chip,
		FreqPin:     -1,
		MinHz:       cfg.Freq.MinHz,
		MaxHz:       cfg.Freq.MaxHz,
		RHT03Pin:    -1,
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP,
	}
	if cfg.Freq.Enabled {
		sc.FreqPin = cfg.Freq.Pin
		sc.FreqPollMs = cfg.Freq.Poll.Milliseconds()
	}
	if cfg.RHT03.Enabled {
		sc.RHT03Pin = cfg.RHT03.Pin
		sc.RHT03PollMs = cfg.RHT03.Poll.Milliseconds()
	}
	return sc
}

// poll reads one sensor and classifies the result.
func poll(s sensor, proc *logic.Processor, t time.Time) logic.Result {
	text, err := s.dev.ReadString()
	return proc.Process(logic.Input{Sensor: s.name, Text: text, Err: err, Time: t})
}

// printOnce reads every sensor once. The RHT03 needs time between reads,
// so an empty result is not retried.
func printOnce(w io.Writer, sensors []sensor, proc *logic.Processor, now func() time.Time) error {
	var faults int
	for _, s := range sensors {
		res := poll(s, proc, now())
		switch res.Outcome {
		case logic.OutcomeReading:
			fmt.Fprintf(w, "%s: %s\n", s.name, describe(res.Reading))
		case logic.OutcomeEmpty:
			fmt.Fprintf(w, "%s: no reading\n", s.name)
		default:
			faults++
			fmt.Fprintf(w, "%s: error: %v\n", s.name, res.Err)
		}
	}
	if faults > 0 {
		return fmt.Errorf("%d of %d sensors failed", faults, len(sensors))
	}
	return nil
}

func describe(r *logic.Reading) string {
	switch {
	case r.HasTemperature:
		return fmt.Sprintf("humidity=%.1f%% temperature=%.1fC", float64(r.HumidityTenths)/10, float64(r.TemperatureTenths)/10)
	case r.HasHumidity:
		return fmt.Sprintf("%d Hz humidity=%.1f%%", r.Hz, float64(r.HumidityTenths)/10)
	}
	return fmt.Sprintf("%d Hz", r.Hz)
}

func runLoop(sensors []sensor, proc *logic.Processor, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan logic.Sensor, sig <-chan os.Signal) error {
	byName := make(map[logic.Sensor]sensor, len(sensors))
	for _, s := range sensors {
		byName[s.name] = s
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case name := <-tick:
			s, ok := byName[name]
			if !ok {
				continue
			}
			t := now()
			res := poll(s, proc, t)

			switch res.Outcome {
			case logic.OutcomeFault:
				log.Printf("%s read error: %v", s.name, res.Err)
			case logic.OutcomeReading:
				if err := publisher.Publish(*res.Reading); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if tracker != nil {
				tracker.Record(s.name, res, t)
			}

			// Check for heartbeat
			if hbData := proc.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v %s", hbData.Uptime, formatCounts(hbData.Counts))

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(proc.IsReady(), proc.EventCountsSnapshot())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(proc.IsReady(), proc.EventCountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

func formatCounts(counts logic.EventCounts) string {
	var out string
	for _, name := range []logic.Sensor{logic.SensorFreq, logic.SensorRHT03} {
		c, ok := counts[name]
		if !ok {
			continue
		}
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%d/%d/%d", name, c.Readings, c.Empty, c.Faults)
	}
	return out
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
