package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/x728-supervisor/internal/battery"
	"github.com/sweeney/x728-supervisor/internal/gpio"
	"github.com/sweeney/x728-supervisor/internal/logic"
	"github.com/sweeney/x728-supervisor/internal/mqtt"
	"github.com/sweeney/x728-supervisor/internal/status"
	"github.com/sweeney/x728-supervisor/internal/supervisor"
	"github.com/sweeney/x728-supervisor/internal/system"
	"github.com/sweeney/x728-supervisor/internal/thermal"
	"github.com/sweeney/x728-supervisor/internal/web"
)

type rig struct {
	clk     *supervisor.FakeClock
	board   *gpio.FakeBoard
	gauge   *battery.FakeReader
	sys     *system.FakeControl
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	intake  *supervisor.Intake
	srv     *httptest.Server
	done    chan error
}

func newRig(t *testing.T, temps ...int) *rig {
	t.Helper()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := &rig{
		clk:     supervisor.NewFakeClock(start),
		board:   gpio.NewFakeBoard(false),
		gauge:   battery.NewFakeReader(logic.BatteryReading{Voltage: 4.15, Capacity: 98}),
		sys:     system.NewFakeControl(),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(start, status.Config{IntervalMs: 5000, FanEnabled: true, FanOnC: 45, FanOffC: 40}),
		intake:  supervisor.NewIntake(),
		done:    make(chan error, 1),
	}

	sup := supervisor.New(supervisor.Options{
		Interval:       5 * time.Second,
		PowerOffHold:   4 * time.Second,
		SampleInterval: 200 * time.Millisecond,
		Thresholds: logic.Thresholds{
			FanEnabled:        true,
			FanOnC:            45,
			FanOffC:           40,
			BatteryLowPercent: 15,
			RebootPulseMin:    600 * time.Millisecond,
			RebootPulseMax:    900 * time.Millisecond,
		},
	}, supervisor.Deps{
		Board:     r.board,
		Battery:   r.gauge,
		Thermal:   thermal.NewFakeReader(temps...),
		System:    r.sys,
		Publisher: r.pub,
		Status:    r.pub,
		Tracker:   r.tracker,
		Clock:     r.clk,
		Logger:    zerolog.Nop(),
	}, r.intake)

	if err := sup.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	r.srv = httptest.NewServer(web.New(":0", r.tracker).Handler())
	t.Cleanup(r.srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { r.done <- sup.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-r.done
	})
	return r
}

// settle waits until the loop has armed its next timer.
func (r *rig) settle(t *testing.T) {
	t.Helper()
	select {
	case <-r.clk.Waits():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not settle")
	}
}

func (r *rig) status(t *testing.T) status.StatusInner {
	t.Helper()
	resp, err := http.Get(r.srv.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return sj.Status
}

// TestIntegrationPowerLossToPowerOff follows a mains outage until the battery
// runs down and the hat is told to cut power.
func TestIntegrationPowerLossToPowerOff(t *testing.T) {
	r := newRig(t, 38)
	r.settle(t)
	r.settle(t)

	if got := r.status(t).Power; got != "AC_PRESENT" {
		t.Fatalf("initial power: got %s, want AC_PRESENT", got)
	}

	r.gauge.Set(logic.BatteryReading{Voltage: 4.0, Capacity: 60})
	r.intake.PushEdge(gpio.Edge{Line: gpio.LineACDetect, Asserted: true})
	r.settle(t)

	st := r.status(t)
	if st.Power != "AC_ABSENT" {
		t.Errorf("power after edge: got %s, want AC_ABSENT", st.Power)
	}
	if st.Counts.ACLost != 1 {
		t.Errorf("ac_lost: got %d, want 1", st.Counts.ACLost)
	}

	// Capacity is only polled on ticks while on battery.
	r.gauge.Set(logic.BatteryReading{Voltage: 3.55, Capacity: 12})
	r.clk.Advance(5 * time.Second)
	r.settle(t)

	_, powerOff := r.board.Writes()
	want := []bool{false, true, false}
	if len(powerOff) != len(want) {
		t.Fatalf("power-off writes: got %v, want %v", powerOff, want)
	}
	for i := range want {
		if powerOff[i] != want[i] {
			t.Errorf("power-off write %d: got %v, want %v", i, powerOff[i], want[i])
		}
	}
	if len(r.sys.Calls()) != 0 {
		t.Errorf("system control must not be called on battery low, got %v", r.sys.Calls())
	}

	types := r.pub.EventTypes()
	if len(types) != 2 || types[0] != logic.EventACLost || types[1] != logic.EventBatteryLow {
		t.Errorf("events: got %v, want [AC_LOST BATTERY_LOW]", types)
	}

	var p mqtt.Payload
	payloads := r.pub.Payloads()
	if err := json.Unmarshal(payloads[1], &p); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if p.X728.Battery == nil || p.X728.Battery.Capacity != 12 {
		t.Errorf("battery in payload: got %+v, want capacity 12", p.X728.Battery)
	}
	if p.X728.Power != "AC_ABSENT" {
		t.Errorf("power in payload: got %s, want AC_ABSENT", p.X728.Power)
	}
}

// TestIntegrationFanAndButton runs the fan up and reboots from the button.
func TestIntegrationFanAndButton(t *testing.T) {
	r := newRig(t, 50)
	r.settle(t)
	r.settle(t)

	st := r.status(t)
	if st.Fan != "ON" || st.TempC != 50 {
		t.Errorf("fan: got %s at %dC, want ON at 50C", st.Fan, st.TempC)
	}

	pressed := r.clk.Now()
	r.board.ButtonFunc = func() bool { return r.clk.Now().Before(pressed.Add(750 * time.Millisecond)) }
	r.intake.PushEdge(gpio.Edge{Line: gpio.LineButton, Asserted: true})

	deadline := time.Now().Add(2 * time.Second)
	for len(r.sys.Calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	calls := r.sys.Calls()
	if len(calls) != 1 || calls[0] != "reboot" {
		t.Fatalf("system calls: got %v, want [reboot]", calls)
	}

	for r.status(t).Counts.ButtonReboot != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := r.status(t).Counts.ButtonReboot; got != 1 {
		t.Errorf("button_reboot: got %d, want 1", got)
	}
}
