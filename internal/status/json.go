package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Power         string       `json:"power"`
	Fan           string       `json:"fan"`
	TempC         int          `json:"temp_c"`
	Battery       *BatteryJSON `json:"battery,omitempty"`
	Measuring     bool         `json:"button_measuring"`
	LastPoll      string       `json:"last_poll,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// BatteryJSON is the JSON representation of a battery reading.
type BatteryJSON struct {
	Voltage  float64 `json:"voltage"`
	Capacity float64 `json:"capacity"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	ACLost         int `json:"ac_lost"`
	ACRestored     int `json:"ac_restored"`
	FanOn          int `json:"fan_on"`
	FanOff         int `json:"fan_off"`
	BatteryLow     int `json:"battery_low"`
	ButtonReboot   int `json:"button_reboot"`
	ButtonShutdown int `json:"button_shutdown"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	IntervalMs        int64   `json:"interval_ms"`
	HeartbeatMs       int64   `json:"heartbeat_ms"`
	FanEnabled        bool    `json:"fan_enabled"`
	FanOnC            int     `json:"fan_on_c"`
	FanOffC           int     `json:"fan_off_c"`
	BatteryLowPercent float64 `json:"battery_low_percent"`
	RebootMinMs       int64   `json:"reboot_min_ms"`
	RebootMaxMs       int64   `json:"reboot_max_ms"`
	PowerOffHoldMs    int64   `json:"poweroff_hold_ms"`
	Broker            string  `json:"broker"`
	HTTPAddr          string  `json:"http_addr"`
}

func orUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Power:         orUnknown(string(snap.Power)),
		Fan:           orUnknown(string(snap.Fan)),
		TempC:         snap.TempC,
		Measuring:     snap.Measuring,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			ACLost:         snap.Counts.ACLost,
			ACRestored:     snap.Counts.ACRestored,
			FanOn:          snap.Counts.FanOn,
			FanOff:         snap.Counts.FanOff,
			BatteryLow:     snap.Counts.BatteryLow,
			ButtonReboot:   snap.Counts.ButtonReboot,
			ButtonShutdown: snap.Counts.ButtonShutdown,
		},
		Config: ConfigJSON{
			IntervalMs:        snap.Config.IntervalMs,
			HeartbeatMs:       snap.Config.HeartbeatMs,
			FanEnabled:        snap.Config.FanEnabled,
			FanOnC:            snap.Config.FanOnC,
			FanOffC:           snap.Config.FanOffC,
			BatteryLowPercent: snap.Config.BatteryLowPercent,
			RebootMinMs:       snap.Config.RebootMinMs,
			RebootMaxMs:       snap.Config.RebootMaxMs,
			PowerOffHoldMs:    snap.Config.PowerOffHoldMs,
			Broker:            snap.Config.Broker,
			HTTPAddr:          snap.Config.HTTPAddr,
		},
	}
	if snap.Battery != nil {
		inner.Battery = &BatteryJSON{
			Voltage:  math.Round(snap.Battery.Voltage*100) / 100,
			Capacity: math.Round(snap.Battery.Capacity*100) / 100,
		}
	}
	if !snap.LastPoll.IsZero() {
		inner.LastPoll = snap.LastPoll.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
