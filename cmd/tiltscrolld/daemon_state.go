package main

import (
	"sync/atomic"
	"time"

	"tiltscroll/internal/tilt"
)

// DaemonState is the top-level, daemon-owned state container.
//
// Only the daemon goroutine touches it. Everything other goroutines need is
// published as a StateSnapshot or a StateBroadcast.
type DaemonState struct {
	// Offset is the accumulated scroll position in pixels (forward positive).
	// Only decisions taken while tilt scrolling is enabled move it.
	Offset int

	// Rotation is the display rotation last reported to the daemon.
	Rotation tilt.Rotation

	// Ticks counts scroll timer firings; Applied counts those that moved Offset.
	Ticks   uint64
	Applied uint64

	LastDecision tilt.Decision
	LastTickAt   time.Time

	// Sources lists the orientation sources that came up at start-up.
	Sources []string
}

// Preference is the user's "tilt to scroll" setting.
// The estimator reads it on every SetEnabled call; the daemon writes it.
type Preference struct {
	on atomic.Bool
}

// NewPreference returns a preference with the given initial value.
func NewPreference(on bool) *Preference {
	p := &Preference{}
	p.on.Store(on)
	return p
}

func (p *Preference) TiltToScroll() bool { return p.on.Load() }

func (p *Preference) Set(on bool) { p.on.Store(on) }

// StateSnapshot is a coherent, read-only copy of the daemon state for
// IPC/UI consumers (websocket state_init, /api/state).
type StateSnapshot struct {
	Session      string        `json:"session"`
	TiltToScroll bool          `json:"tilt_to_scroll"`
	Estimator    tilt.State    `json:"estimator"`
	Rotation     int           `json:"rotation"`
	Offset       int           `json:"offset"`
	Ticks        uint64        `json:"ticks"`
	Applied      uint64        `json:"applied"`
	LastDecision tilt.Decision `json:"last_decision"`
	LastTickAt   time.Time     `json:"last_tick_at"`
	Sources      []string      `json:"sources"`
	Feed         FeedStats     `json:"feed"`
}

// ==============================
// Broadcasts (state change notifications)
// ==============================

// StateBroadcast is emitted by the reducer when something UI-relevant changed.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastScroll reports the decision taken on a scroll tick.
type BroadcastScroll struct {
	Decision tilt.Decision
	Offset   int
	Applied  bool
	At       time.Time
}

func (BroadcastScroll) broadcastMarker() {}

// BroadcastTiltState reports a change of enabled/preference/calibration/rotation.
type BroadcastTiltState struct {
	Enabled         bool
	TiltToScroll    bool
	SensorAvailable bool
	Calibrated      bool
	Rotation        tilt.Rotation
	At              time.Time
}

func (BroadcastTiltState) broadcastMarker() {}
