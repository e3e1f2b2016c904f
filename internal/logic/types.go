// Package logic contains the pure decision logic of the supervisor: fan
// hysteresis, AC/battery supervision and button pulse classification.
// This package has NO hardware dependencies (no GPIO, I2C, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// PowerState is the mains power state reported by the hat.
type PowerState string

const (
	ACPresent PowerState = "AC_PRESENT"
	ACAbsent  PowerState = "AC_ABSENT"
)

// PowerStateFromPin maps the AC detect level onto a PowerState.
// The hat drives the detect pin high when mains is disconnected.
func PowerStateFromPin(asserted bool) PowerState {
	if asserted {
		return ACAbsent
	}
	return ACPresent
}

// FanState is the commanded state of the cooling fan.
type FanState string

const (
	FanOff FanState = "OFF"
	FanOn  FanState = "ON"
)

// BatteryReading is a single fuel gauge sample.
type BatteryReading struct {
	Voltage  float64 // volts
	Capacity float64 // percent, clamped to [0, 100]
}

// EventType identifies what the supervisor did or observed.
type EventType string

const (
	EventACLost         EventType = "AC_LOST"
	EventACRestored     EventType = "AC_RESTORED"
	EventFanOn          EventType = "FAN_ON"
	EventFanOff         EventType = "FAN_OFF"
	EventBatteryLow     EventType = "BATTERY_LOW"
	EventButtonReboot   EventType = "BUTTON_REBOOT"
	EventButtonShutdown EventType = "BUTTON_SHUTDOWN"
)

// Event is an effect produced by one of the components. The supervisor
// loop logs and publishes every event and drives the matching actuator.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Power     PowerState
	Fan       FanState
	TempC     int             // set for fan events
	Battery   *BatteryReading // set for power events
	Pulse     time.Duration   // set for button events
}

// Message returns the human readable log line for the event.
func (e Event) Message() string {
	switch e.Type {
	case EventACLost:
		return "AC power loss, " + e.batteryText()
	case EventACRestored:
		return "AC power OK, " + e.batteryText()
	case EventFanOn:
		return fmt.Sprintf("CPU temp %dC, fan ON", e.TempC)
	case EventFanOff:
		return fmt.Sprintf("CPU temp %dC, fan OFF", e.TempC)
	case EventBatteryLow:
		return "Battery capacity below threshold, shutting down, " + e.batteryText()
	case EventButtonReboot:
		return fmt.Sprintf("Button held %dms, rebooting", e.Pulse.Milliseconds())
	case EventButtonShutdown:
		return fmt.Sprintf("Button held %dms, shutting down", e.Pulse.Milliseconds())
	}
	return string(e.Type)
}

func (e Event) batteryText() string {
	if e.Battery == nil {
		return "battery unknown"
	}
	return fmt.Sprintf("battery voltage: %.2fV, capacity: %.0f%%", e.Battery.Voltage, e.Battery.Capacity)
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	ACLost         int
	ACRestored     int
	FanOn          int
	FanOff         int
	BatteryLow     int
	ButtonReboot   int
	ButtonShutdown int
}

// Add counts e.
func (c *EventCounts) Add(e Event) {
	switch e.Type {
	case EventACLost:
		c.ACLost++
	case EventACRestored:
		c.ACRestored++
	case EventFanOn:
		c.FanOn++
	case EventFanOff:
		c.FanOff++
	case EventBatteryLow:
		c.BatteryLow++
	case EventButtonReboot:
		c.ButtonReboot++
	case EventButtonShutdown:
		c.ButtonShutdown++
	}
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}
