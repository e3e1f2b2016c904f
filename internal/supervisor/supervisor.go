// Package supervisor runs the single loop that owns the supervisor state.
// GPIO edges and finished button measurements arrive through an Intake; a
// catch-up tick re-reads temperature and, on battery, capacity.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/x728-supervisor/internal/battery"
	"github.com/sweeney/x728-supervisor/internal/gpio"
	"github.com/sweeney/x728-supervisor/internal/logic"
	"github.com/sweeney/x728-supervisor/internal/mqtt"
	"github.com/sweeney/x728-supervisor/internal/status"
	"github.com/sweeney/x728-supervisor/internal/system"
	"github.com/sweeney/x728-supervisor/internal/thermal"
)

// Options are the timing parameters and validated thresholds.
type Options struct {
	Interval       time.Duration
	Heartbeat      time.Duration // 0 disables
	PowerOffHold   time.Duration
	SampleInterval time.Duration
	Thresholds     logic.Thresholds
}

// Deps are the collaborators. Publisher, Status and Tracker may be nil.
type Deps struct {
	Board     gpio.Board
	Battery   battery.Reader
	Thermal   thermal.Reader
	System    system.Control
	Publisher mqtt.Publisher
	Status    mqtt.ConnectionStatus
	Tracker   *status.Tracker
	Clock     Clock
	Logger    zerolog.Logger
}

// Supervisor owns the state. Only the goroutine running Run touches it.
type Supervisor struct {
	opts   Options
	deps   Deps
	clock  Clock
	log    zerolog.Logger
	intake *Intake

	fan        logic.FanController
	power      logic.PowerSupervisor
	classifier logic.PulseClassifier
	heartbeat  *logic.Heartbeat

	state status.State
}

// New creates a Supervisor reading notifications from intake.
func New(opts Options, deps Deps, intake *Intake) *Supervisor {
	clock := deps.Clock
	if clock == nil {
		clock = RealClock{}
	}
	return &Supervisor{
		opts:       opts,
		deps:       deps,
		clock:      clock,
		log:        deps.Logger,
		intake:     intake,
		fan:        logic.NewFanController(opts.Thresholds),
		power:      logic.NewPowerSupervisor(opts.Thresholds),
		classifier: logic.NewPulseClassifier(opts.Thresholds),
		heartbeat:  logic.NewHeartbeat(clock.Now()),
		state:      status.State{Fan: logic.FanOff},
	}
}

// Init reads the initial AC level, drives both outputs low and logs the
// startup battery reading.
func (s *Supervisor) Init(ctx context.Context) error {
	asserted, err := s.deps.Board.ACDetect()
	if err != nil {
		return err
	}
	s.state.Power = logic.PowerStateFromPin(asserted)

	if s.opts.Thresholds.FanEnabled {
		if err := s.deps.Board.SetFan(false); err != nil {
			return err
		}
	}
	s.state.Fan = logic.FanOff
	if err := s.deps.Board.SetPowerOff(false); err != nil {
		return err
	}

	reading, err := s.deps.Battery.Read(ctx)
	if err != nil {
		return err
	}
	s.state.Battery = &reading

	s.log.Info().
		Str("power", string(s.state.Power)).
		Float64("voltage", reading.Voltage).
		Float64("capacity", reading.Capacity).
		Msgf("service started, battery voltage: %.2fV, capacity: %.0f%%", reading.Voltage, reading.Capacity)
	s.publishState()
	return nil
}

// State returns a copy of the current state. Only safe from the loop
// goroutine or when Run is not running.
func (s *Supervisor) State() status.State {
	st := s.state
	if st.Battery != nil {
		b := *st.Battery
		st.Battery = &b
	}
	return st
}

// Run processes notifications and ticks until ctx is cancelled or a fatal
// error occurs. The first tick fires immediately. Each following tick is due
// Interval after the start of the previous one; an overrun makes it fire at
// once.
func (s *Supervisor) Run(ctx context.Context) error {
	next := s.clock.Now()
	for {
		wait := next.Sub(s.clock.Now())
		if wait < 0 {
			wait = 0
		}
		timer, stop := s.clock.After(wait)

		select {
		case <-ctx.Done():
			stop()
			return nil

		case <-s.intake.Ready():
			stop()
			for _, n := range s.intake.Drain() {
				if err := s.handle(ctx, n); err != nil {
					return err
				}
			}
			s.publishState()

		case <-timer:
			start := s.clock.Now()
			next = start.Add(s.opts.Interval)
			if err := s.tick(ctx, start); err != nil {
				return err
			}
		}
	}
}

func (s *Supervisor) tick(ctx context.Context, now time.Time) error {
	temp, err := s.deps.Thermal.ReadCelsius()
	if err != nil {
		return err
	}
	s.state.TempC = temp

	if s.opts.Thresholds.FanEnabled {
		fan, ev := s.fan.Update(temp, s.state.Fan, now)
		if ev != nil {
			if err := s.deps.Board.SetFan(fan == logic.FanOn); err != nil {
				return err
			}
			s.state.Fan = fan
			s.emit(*ev)
		}
	}

	if s.state.Power == logic.ACAbsent {
		reading, err := s.deps.Battery.Read(ctx)
		if err != nil {
			return err
		}
		s.state.Battery = &reading
		s.log.Debug().Float64("voltage", reading.Voltage).Float64("capacity", reading.Capacity).Msg("battery poll")

		if s.power.Poll(s.state.Power, reading) == logic.TriggerShutdown {
			r := reading
			s.emit(logic.Event{Timestamp: now, Type: logic.EventBatteryLow, Battery: &r})
			if err := s.holdPowerOff(); err != nil {
				return err
			}
		}
	}

	s.state.LastPoll = now
	s.publishState()
	s.checkHeartbeat(now)
	return nil
}

// holdPowerOff asserts the power-off line for the hold period. It blocks the
// loop; the hat cuts power on its own afterwards.
func (s *Supervisor) holdPowerOff() error {
	s.log.Warn().Dur("hold", s.opts.PowerOffHold).Msg("asserting power-off line")
	if err := s.deps.Board.SetPowerOff(true); err != nil {
		return err
	}
	s.clock.Sleep(s.opts.PowerOffHold)
	return s.deps.Board.SetPowerOff(false)
}

func (s *Supervisor) handle(ctx context.Context, n Notification) error {
	switch n.Kind {
	case KindACEdge:
		return s.handleACEdge(ctx, n)
	case KindButton:
		s.handleButton(ctx, n)
	case KindPulse:
		s.handlePulse(n.Pulse)
	}
	return nil
}

func (s *Supervisor) handleACEdge(ctx context.Context, n Notification) error {
	// capacity is reported as of now, not as of the last poll
	reading, err := s.deps.Battery.Read(ctx)
	if err != nil {
		return err
	}
	state, ev := s.power.OnACEdge(n.Asserted, reading, s.clock.Now())
	s.state.Power = state
	s.state.Battery = &reading
	s.emit(ev)
	return nil
}

func (s *Supervisor) handleButton(ctx context.Context, n Notification) {
	if !n.Asserted {
		return
	}
	if s.state.Measuring {
		s.log.Debug().Msg("button edge during measurement, ignored")
		return
	}
	s.state.Measuring = true
	go s.measurePulse(ctx, s.clock.Now())
}

func (s *Supervisor) handlePulse(res PulseResult) {
	s.state.Measuring = false

	if res.Err != nil {
		s.log.Error().Err(res.Err).Msg("button read failed, pulse discarded")
		return
	}

	ev := res.Outcome.Event(res.Elapsed, s.clock.Now())
	if ev == nil {
		s.log.Debug().Dur("elapsed", res.Elapsed).Msg("button pulse too short, ignored")
		return
	}
	s.emit(*ev)

	var err error
	switch res.Outcome {
	case logic.PulseReboot:
		err = s.deps.System.Reboot()
	case logic.PulseShutdown:
		err = s.deps.System.Shutdown()
	}
	if err != nil {
		s.log.Error().Err(err).Str("outcome", string(res.Outcome)).Msg("system control failed")
	}
}

// emit counts, logs and publishes ev after filling in the current state.
func (s *Supervisor) emit(ev logic.Event) {
	if ev.Power == "" {
		ev.Power = s.state.Power
	}
	if ev.Fan == "" {
		ev.Fan = s.state.Fan
	}
	if ev.Type != logic.EventFanOn && ev.Type != logic.EventFanOff {
		ev.TempC = s.state.TempC
	}

	s.state.Counts.Add(ev)

	lvl := zerolog.InfoLevel
	switch ev.Type {
	case logic.EventACLost, logic.EventBatteryLow:
		lvl = zerolog.WarnLevel
	}
	s.log.WithLevel(lvl).Str("event", string(ev.Type)).Msg(ev.Message())

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.Publish(ev); err != nil {
			s.log.Error().Err(err).Str("event", string(ev.Type)).Msg("publish failed")
		}
	}
}

func (s *Supervisor) publishState() {
	if s.deps.Tracker == nil {
		return
	}
	s.deps.Tracker.Update(s.state)
	if s.deps.Status != nil {
		s.deps.Tracker.SetMQTTConnected(s.deps.Status.IsConnected())
	}
}

func (s *Supervisor) checkHeartbeat(now time.Time) {
	hb := s.heartbeat.Check(now, s.opts.Heartbeat)
	if hb == nil {
		return
	}
	s.log.Info().
		Dur("uptime", hb.Uptime).
		Int("ac_lost", s.state.Counts.ACLost).
		Int("fan_on", s.state.Counts.FanOn).
		Msg("heartbeat")

	if s.deps.Publisher == nil {
		return
	}
	ev := mqtt.SystemEvent{Timestamp: hb.Timestamp, Event: "HEARTBEAT"}
	if s.deps.Tracker != nil {
		ev.RawPayload = status.FormatStatusEvent(s.deps.Tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := s.deps.Publisher.PublishSystem(ev); err != nil {
		s.log.Error().Err(err).Msg("heartbeat publish failed")
	}
}
