// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/x728-supervisor/internal/logic"
)

// Topic is the MQTT topic for power and thermal events.
const Topic = "power/x728/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "power/x728/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a supervisor event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	X728 EventPayload `json:"x728"`
}

// EventPayload contains the event details.
type EventPayload struct {
	Timestamp string          `json:"timestamp"`
	Event     string          `json:"event"`
	Power     string          `json:"power"`
	Fan       string          `json:"fan"`
	TempC     int             `json:"temp_c"`
	Battery   *BatteryPayload `json:"battery,omitempty"`
	PulseMs   int64           `json:"pulse_ms,omitempty"`
	Message   string          `json:"message"`
}

// BatteryPayload is a battery reading as published.
type BatteryPayload struct {
	Voltage  float64 `json:"voltage"`
	Capacity float64 `json:"capacity"`
}

// FormatPayload creates the JSON payload for a supervisor event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		X728: EventPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Power:     string(event.Power),
			Fan:       string(event.Fan),
			TempC:     event.TempC,
			PulseMs:   event.Pulse.Milliseconds(),
			Message:   event.Message(),
		},
	}
	if event.Battery != nil {
		payload.X728.Battery = &BatteryPayload{
			Voltage:  round2(event.Battery.Voltage),
			Capacity: round2(event.Battery.Capacity),
		}
	}
	return json.Marshal(payload)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
