// Package status provides a thread-safe status tracker for the climate-can
// daemon. It is read by the HTTP handlers and the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/climate-can/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Interface          string
	Broker             string
	TopicPrefix        string
	HTTPAddr           string
	StatusHeartbeatMs  int64
	CommandHeartbeatMs int64
	InitExpireMs       int64
	PulseMs            int64
	SystemHeartbeatMs  int64
	RearDefrostPin     int
}

// Climate is the controller view copied in by the run loop.
type Climate struct {
	State             logic.OperatingState
	Status            logic.ClimateStatus
	Payload           [8]byte
	Initialized       bool
	HandshakeComplete bool
	Counts            logic.Counts
}

// BusStats mirrors the dispatcher counters. This is a local copy to avoid
// importing internal/canbus from status.
type BusStats struct {
	Accepted   int64
	Rejected   int64
	Overflowed int64
	Sent       int64
	SendErrors int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Climate       Climate
	Version       uint64 // bumped when state or payload changes
	Bus           BusStats
	LastCommand   logic.Action
	LastCommandAt time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
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

// Update copies in the controller view. Called from runLoop on every tick.
func (t *Tracker) Update(c Climate) {
	t.mu.Lock()
	if c.State != t.snap.Climate.State || c.Payload != t.snap.Climate.Payload ||
		c.Initialized != t.snap.Climate.Initialized {
		t.snap.Version++
	}
	t.snap.Climate = c
	t.mu.Unlock()
}

// SetBus sets the dispatcher counters.
func (t *Tracker) SetBus(b BusStats) {
	t.mu.Lock()
	t.snap.Bus = b
	t.mu.Unlock()
}

// RecordCommand notes a button accepted from a remote source.
func (t *Tracker) RecordCommand(a logic.Action, at time.Time) {
	t.mu.Lock()
	t.snap.LastCommand = a
	t.snap.LastCommandAt = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Version returns the change counter without copying the snapshot.
func (t *Tracker) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Version
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
