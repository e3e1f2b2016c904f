package logic

import "time"

// ShutdownDecision is the outcome of a battery poll.
type ShutdownDecision int

const (
	NoAction ShutdownDecision = iota
	TriggerShutdown
)

func (d ShutdownDecision) String() string {
	if d == TriggerShutdown {
		return "TriggerShutdown"
	}
	return "NoAction"
}

// PowerSupervisor tracks mains transitions and decides when the battery is
// too low to keep running.
type PowerSupervisor struct {
	lowPercent float64
}

// NewPowerSupervisor creates a supervisor from validated thresholds.
func NewPowerSupervisor(t Thresholds) PowerSupervisor {
	return PowerSupervisor{lowPercent: t.BatteryLowPercent}
}

// OnACEdge returns the power state implied by the AC detect level and the
// event reporting it. reading must be sampled when the edge is handled.
func (p PowerSupervisor) OnACEdge(asserted bool, reading BatteryReading, now time.Time) (PowerState, Event) {
	state := PowerStateFromPin(asserted)
	typ := EventACRestored
	if state == ACAbsent {
		typ = EventACLost
	}
	r := reading
	return state, Event{Timestamp: now, Type: typ, Power: state, Battery: &r}
}

// Poll decides whether the host must begin the hat's power-off sequence.
func (p PowerSupervisor) Poll(state PowerState, reading BatteryReading) ShutdownDecision {
	if state == ACAbsent && reading.Capacity <= p.lowPercent {
		return TriggerShutdown
	}
	return NoAction
}
