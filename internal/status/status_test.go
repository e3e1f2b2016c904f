package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/x728-supervisor/internal/logic"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{IntervalMs: 5000, FanOnC: 45, FanOffC: 40, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.IntervalMs != 5000 {
		t.Errorf("Config.IntervalMs: got %d, want 5000", snap.Config.IntervalMs)
	}
	if snap.Config.HTTPAddr != ":8080" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":8080")
	}
	if snap.Battery != nil {
		t.Error("expected no battery reading initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(State{
		Power:   logic.ACAbsent,
		Fan:     logic.FanOn,
		TempC:   47,
		Battery: &logic.BatteryReading{Voltage: 4.1, Capacity: 90},
		Counts:  logic.EventCounts{ACLost: 3, FanOn: 1},
	})

	snap := tr.Snapshot()
	if snap.Power != logic.ACAbsent {
		t.Errorf("Power: got %q, want AC_ABSENT", snap.Power)
	}
	if snap.Fan != logic.FanOn {
		t.Errorf("Fan: got %q, want ON", snap.Fan)
	}
	if snap.TempC != 47 {
		t.Errorf("TempC: got %d, want 47", snap.TempC)
	}
	if snap.Battery == nil || snap.Battery.Capacity != 90 {
		t.Errorf("Battery: got %+v, want capacity 90", snap.Battery)
	}
	if snap.Counts.ACLost != 3 {
		t.Errorf("Counts.ACLost: got %d, want 3", snap.Counts.ACLost)
	}
}

func TestUpdateCopiesBattery(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	reading := &logic.BatteryReading{Voltage: 4.1, Capacity: 90}
	tr.Update(State{Battery: reading})

	reading.Capacity = 10
	if got := tr.Snapshot().Battery.Capacity; got != 90 {
		t.Errorf("tracker shares caller's reading: capacity %v", got)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})
	snap := tr.Snapshot()
	if snap.Network == nil || snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network: got %+v", snap.Network)
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(State{Power: logic.ACPresent, Fan: logic.FanOff})

	snap1 := tr.Snapshot()

	tr.Update(State{Power: logic.ACAbsent, Fan: logic.FanOn})

	if snap1.Power != logic.ACPresent {
		t.Error("snapshot should be a copy; Power was modified")
	}
	if snap1.Fan != logic.FanOff {
		t.Error("snapshot should be a copy; Fan was modified")
	}
}

func testSnapshot() Snapshot {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return Snapshot{
		State: State{
			Power:    logic.ACPresent,
			Fan:      logic.FanOn,
			TempC:    46,
			Battery:  &logic.BatteryReading{Voltage: 4.1234, Capacity: 91.456},
			Counts:   logic.EventCounts{ACLost: 5, ACRestored: 5, FanOn: 2, FanOff: 1, ButtonReboot: 1},
			LastPoll: start.Add(14 * time.Minute),
		},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config: Config{
			IntervalMs: 5000, HeartbeatMs: 900000, FanEnabled: true, FanOnC: 45, FanOffC: 40,
			BatteryLowPercent: 15, RebootMinMs: 600, RebootMaxMs: 900, PowerOffHoldMs: 4000,
			Broker: "tcp://localhost:1883", HTTPAddr: ":8080",
		},
	}
}

func TestFormatJSON(t *testing.T) {
	data := FormatJSON(testSnapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.Power != "AC_PRESENT" {
		t.Errorf("Power: got %q, want AC_PRESENT", s.Power)
	}
	if s.Fan != "ON" {
		t.Errorf("Fan: got %q, want ON", s.Fan)
	}
	if s.TempC != 46 {
		t.Errorf("TempC: got %d, want 46", s.TempC)
	}
	if s.Battery == nil || s.Battery.Voltage != 4.12 || s.Battery.Capacity != 91.46 {
		t.Errorf("Battery: got %+v, want rounded reading", s.Battery)
	}
	if s.LastPoll != "2026-01-01T00:14:00Z" {
		t.Errorf("LastPoll: got %q", s.LastPoll)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Counts.ACLost != 5 || s.Counts.ButtonReboot != 1 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if s.Config.FanOnC != 45 || s.Config.RebootMaxMs != 900 || s.Config.PowerOffHoldMs != 4000 {
		t.Errorf("Config: got %+v", s.Config)
	}
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected no event/reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONUnknownState(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	status := raw["status"]
	if status["power"] != "UNKNOWN" {
		t.Errorf("power: got %v, want UNKNOWN", status["power"])
	}
	if status["fan"] != "UNKNOWN" {
		t.Errorf("fan: got %v, want UNKNOWN", status["fan"])
	}
	if _, exists := status["battery"]; exists {
		t.Error("battery should be omitted before the first reading")
	}
	if _, exists := status["last_poll"]; exists {
		t.Error("last_poll should be omitted before the first tick")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.Power != "AC_PRESENT" {
		t.Errorf("Power: got %q, want AC_PRESENT", parsed.Status.Power)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "STARTUP", "")

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, exists := raw["status"]["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if raw["status"]["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", raw["status"]["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := testSnapshot()
	snap.Network = &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(State{Power: logic.ACPresent, TempC: i, Counts: logic.EventCounts{FanOn: i}})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}
