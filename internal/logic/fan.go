package logic

import "time"

// FanController applies on/off hysteresis to CPU temperature samples.
type FanController struct {
	onC  int
	offC int
}

// NewFanController creates a controller from validated thresholds.
func NewFanController(t Thresholds) FanController {
	return FanController{onC: t.FanOnC, offC: t.FanOffC}
}

// Update returns the fan state for tempC given the current state, and the
// event to apply when the state changes. Inside the dead band between the
// two thresholds nothing changes and the event is nil.
func (f FanController) Update(tempC int, state FanState, now time.Time) (FanState, *Event) {
	switch {
	case state != FanOn && tempC >= f.onC:
		return FanOn, &Event{Timestamp: now, Type: EventFanOn, Fan: FanOn, TempC: tempC}
	case state == FanOn && tempC <= f.offC:
		return FanOff, &Event{Timestamp: now, Type: EventFanOff, Fan: FanOff, TempC: tempC}
	}
	return state, nil
}
