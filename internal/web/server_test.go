package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/x728-supervisor/internal/logic"
	"github.com/sweeney/x728-supervisor/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		IntervalMs:        5000,
		HeartbeatMs:       900000,
		FanEnabled:        true,
		FanOnC:            45,
		FanOffC:           40,
		BatteryLowPercent: 15,
		RebootMinMs:       600,
		RebootMaxMs:       900,
		Broker:            "tcp://192.168.1.200:1883",
		HTTPAddr:          ":8080",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
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
	tr.Update(status.State{
		Power:   logic.ACAbsent,
		Fan:     logic.FanOn,
		TempC:   48,
		Battery: &logic.BatteryReading{Voltage: 3.95, Capacity: 62},
		Counts:  logic.EventCounts{ACLost: 5, ACRestored: 4},
	})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Power != "AC_ABSENT" {
		t.Errorf("Power: got %q, want AC_ABSENT", sj.Status.Power)
	}
	if sj.Status.Fan != "ON" {
		t.Errorf("Fan: got %q, want ON", sj.Status.Fan)
	}
	if sj.Status.Battery == nil || sj.Status.Battery.Capacity != 62 {
		t.Errorf("Battery: got %+v", sj.Status.Battery)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.ACLost != 5 {
		t.Errorf("Counts.ACLost: got %d, want 5", sj.Status.Counts.ACLost)
	}
	if sj.Status.Config.IntervalMs != 5000 {
		t.Errorf("Config.IntervalMs: got %d, want 5000", sj.Status.Config.IntervalMs)
	}
}

func TestJSONUnknownStateBeforeInit(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Power != "UNKNOWN" {
		t.Errorf("Power before init: got %q, want UNKNOWN", sj.Status.Power)
	}
	if sj.Status.Battery != nil {
		t.Errorf("Battery before init: got %+v, want nil", sj.Status.Battery)
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
	tr.Update(status.State{
		Power:   logic.ACPresent,
		Fan:     logic.FanOff,
		TempC:   39,
		Battery: &logic.BatteryReading{Voltage: 4.12, Capacity: 97},
	})

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
	for _, want := range []string{"AC_PRESENT", "4.12V", "97%", "39C"} {
		if !strings.Contains(string(body), want) {
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
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "not read yet") {
		t.Error("expected placeholder for missing battery reading")
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

func TestReadOnly(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Counts.FanOn != 0 {
		t.Errorf("expected no fan events initially, got %d", sj1.Status.Counts.FanOn)
	}

	tr.Update(status.State{Power: logic.ACPresent, Fan: logic.FanOn, Counts: logic.EventCounts{FanOn: 1}})
	tr.SetMQTTConnected(true)

	sj2 := getJSON(t, ts.URL+"/index.json")
	if sj2.Status.Fan != "ON" {
		t.Errorf("Fan: got %q, want ON", sj2.Status.Fan)
	}
	if sj2.Status.Counts.FanOn != 1 {
		t.Errorf("Counts.FanOn: got %d, want 1", sj2.Status.Counts.FanOn)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
