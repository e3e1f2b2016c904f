// Package status provides a thread-safe status tracker for the x728d daemon.
// It is read by the HTTP handlers and by heartbeat publishing.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/x728-supervisor/internal/logic"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	IntervalMs        int64
	HeartbeatMs       int64
	FanEnabled        bool
	FanOnC            int
	FanOffC           int
	BatteryLowPercent float64
	RebootMinMs       int64
	RebootMaxMs       int64
	PowerOffHoldMs    int64
	Broker            string
	HTTPAddr          string
}

// State is the supervisor-owned part of a snapshot.
type State struct {
	Power     logic.PowerState
	Fan       logic.FanState
	TempC     int
	Battery   *logic.BatteryReading // last reading, nil until the first read
	Counts    logic.EventCounts
	Measuring bool // a button pulse is being timed
	LastPoll  time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	State
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the supervisor state. Called from the supervisor loop
// after every tick and handled notification.
func (t *Tracker) Update(s State) {
	if s.Battery != nil {
		b := *s.Battery
		s.Battery = &b
	}
	t.mu.Lock()
	t.snap.State = s
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
