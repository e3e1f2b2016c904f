package logic

import "time"

// PulseOutcome is the classification of a button press.
type PulseOutcome string

const (
	PulsePending  PulseOutcome = "PENDING"
	PulseIgnored  PulseOutcome = "IGNORED"
	PulseReboot   PulseOutcome = "REBOOT"
	PulseShutdown PulseOutcome = "SHUTDOWN"
)

// PulseClassifier maps how long the hat held the shutdown line high onto
// the requested action.
type PulseClassifier struct {
	rebootMin time.Duration
	rebootMax time.Duration
}

// NewPulseClassifier creates a classifier from validated thresholds.
func NewPulseClassifier(t Thresholds) PulseClassifier {
	return PulseClassifier{rebootMin: t.RebootPulseMin, rebootMax: t.RebootPulseMax}
}

// Classify evaluates a pulse that has lasted elapsed so far. While the line
// is still held the only decision possible is an early shutdown once the
// reboot window is exceeded; otherwise the pulse stays pending. A released
// pulse is a reboot when it outlasted the minimum and is ignored otherwise.
func (c PulseClassifier) Classify(elapsed time.Duration, released bool) PulseOutcome {
	if !released {
		if elapsed > c.rebootMax {
			return PulseShutdown
		}
		return PulsePending
	}
	if elapsed > c.rebootMin {
		return PulseReboot
	}
	return PulseIgnored
}

// Event returns the event for a final outcome, or nil for ignored and
// pending pulses.
func (o PulseOutcome) Event(elapsed time.Duration, now time.Time) *Event {
	switch o {
	case PulseReboot:
		return &Event{Timestamp: now, Type: EventButtonReboot, Pulse: elapsed}
	case PulseShutdown:
		return &Event{Timestamp: now, Type: EventButtonShutdown, Pulse: elapsed}
	}
	return nil
}
