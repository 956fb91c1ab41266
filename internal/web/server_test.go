package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/edge-sensors/internal/hh10d"
	"github.com/sweeney/edge-sensors/internal/logic"
	"github.com/sweeney/edge-sensors/internal/status"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	cfg := status.Config{
		Chip:        "gpiochip0",
		FreqPin:     17,
		MinHz:       5000,
		MaxHz:       10000,
		FreqPollMs:  1000,
		RHT03Pin:    -1,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func recordFreq(tr *status.Tracker, hz int) {
	tr.Record(logic.SensorFreq, logic.Result{
		Outcome: logic.OutcomeReading,
		Reading: &logic.Reading{Sensor: logic.SensorFreq, Timestamp: start, Raw: "7000", Hz: hz},
	}, start)
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	recordFreq(tr, 7000)
	tr.Update(true, logic.EventCounts{logic.SensorFreq: {Readings: 5, Empty: 2}})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	sj := getJSON(t, ts.URL+"/index.json")
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if len(sj.Status.Sensors) != 1 {
		t.Fatalf("sensors: got %d, want 1", len(sj.Status.Sensors))
	}
	f := sj.Status.Sensors[0]
	if f.Hz != 7000 || f.Readings != 5 || f.Empty != 2 {
		t.Errorf("freq sensor: got %+v", f)
	}
	if sj.Status.Config.FreqPin != 17 {
		t.Errorf("Config.FreqPin: got %d, want 17", sj.Status.Config.FreqPin)
	}
	if sj.Status.Config.RHT03Pin != -1 {
		t.Errorf("Config.RHT03Pin: got %d, want -1", sj.Status.Config.RHT03Pin)
	}
}

func TestJSONNoSensorsBeforeFirstPoll(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if len(sj.Status.Sensors) != 0 {
		t.Errorf("sensors before first poll: got %d, want 0", len(sj.Status.Sensors))
	}
	if sj.Status.Ready {
		t.Error("expected Ready=false initially")
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	recordFreq(tr, 7000)
	tr.Record(logic.SensorRHT03, logic.Result{Outcome: logic.OutcomeFault, Err: errors.New("frame fault")}, start)
	tr.SetCalibration(hh10d.Factors{Sensitivity: 394, Offset: 7740})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	for _, want := range []string{"7000 Hz", "frame fault", "sens=394 offset=7740", "disabled"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestSensorEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)

	resp, err := http.Get(ts.URL + "/sensors/freq")
	if err != nil {
		t.Fatalf("GET /sensors/freq: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("unknown sensor status: got %d, want 404", resp.StatusCode)
	}

	tr.Record(logic.SensorFreq, logic.Result{Outcome: logic.OutcomeEmpty}, start)
	resp, err = http.Get(ts.URL + "/sensors/freq")
	if err != nil {
		t.Fatalf("GET /sensors/freq: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("no-reading status: got %d, want 204", resp.StatusCode)
	}

	recordFreq(tr, 7000)
	resp, err = http.Get(ts.URL + "/sensors/freq")
	if err != nil {
		t.Fatalf("GET /sensors/freq: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "7000\n" {
		t.Errorf("body: got %q, want %q", body, "7000\n")
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Ready {
		t.Error("expected Ready=false initially")
	}

	recordFreq(tr, 6500)
	tr.Update(true, logic.EventCounts{logic.SensorFreq: {Readings: 1}})
	tr.SetMQTTConnected(true)

	sj2 := getJSON(t, ts.URL+"/index.json")
	if !sj2.Status.Ready {
		t.Error("expected Ready=true after update")
	}
	if len(sj2.Status.Sensors) != 1 || sj2.Status.Sensors[0].Hz != 6500 {
		t.Errorf("sensors: got %+v", sj2.Status.Sensors)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
