package main

import (
	"log/slog"
	"sync/atomic"

	"tiltscroll/internal/orientation"
	"tiltscroll/internal/tilt"
)

// SensorFeed sits between orientation sources and the estimator.
//
// Sources call DeliverPose/DeliverSample from their own goroutines. Samples
// only reach the estimator while the feed is connected, which the daemon
// toggles when tilt scrolling starts or stops. Each sample is paired with the
// display rotation current at delivery time.
type SensorFeed struct {
	est    *tilt.Estimator
	logger *slog.Logger

	rotation  atomic.Int32
	connected atomic.Bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
	rejected  atomic.Uint64
}

// FeedStats are the feed counters.
type FeedStats struct {
	Connected bool   `json:"connected"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`  // arrived while disconnected
	Rejected  uint64 `json:"rejected"` // malformed (non-finite) readings
}

// NewSensorFeed returns a disconnected feed.
func NewSensorFeed(est *tilt.Estimator, rotation tilt.Rotation, logger *slog.Logger) *SensorFeed {
	f := &SensorFeed{est: est, logger: logger}
	f.rotation.Store(int32(rotation))
	return f
}

// Connect starts forwarding. It returns false if already connected.
func (f *SensorFeed) Connect() bool {
	if !f.connected.CompareAndSwap(false, true) {
		return false
	}
	f.logger.Info("sensor feed connected", "rotation", f.Rotation().String())
	return true
}

// Disconnect stops forwarding. It returns false if already disconnected.
func (f *SensorFeed) Disconnect() bool {
	if !f.connected.CompareAndSwap(true, false) {
		return false
	}
	f.logger.Info("sensor feed disconnected", "delivered", f.delivered.Load(), "dropped", f.dropped.Load())
	return true
}

func (f *SensorFeed) Connected() bool {
	return f.connected.Load()
}

// SetRotation records the display rotation paired with subsequent samples.
func (f *SensorFeed) SetRotation(r tilt.Rotation) {
	f.rotation.Store(int32(r))
}

func (f *SensorFeed) Rotation() tilt.Rotation {
	return tilt.Rotation(f.rotation.Load())
}

// DeliverPose converts and forwards one pose. It reports whether the
// estimator received it.
func (f *SensorFeed) DeliverPose(p orientation.Pose) bool {
	s, err := p.Sample()
	if err != nil {
		f.rejected.Add(1)
		f.logger.Debug("orientation reading rejected", "error", err)
		return false
	}
	return f.DeliverSample(s)
}

// DeliverSample forwards one sample. It reports whether the estimator received it.
func (f *SensorFeed) DeliverSample(s tilt.Sample) bool {
	if !f.connected.Load() {
		f.dropped.Add(1)
		return false
	}
	f.est.SetAttitude(f.Rotation(), s)
	f.delivered.Add(1)
	return true
}

// Stats returns the current counters.
func (f *SensorFeed) Stats() FeedStats {
	return FeedStats{
		Connected: f.connected.Load(),
		Delivered: f.delivered.Load(),
		Dropped:   f.dropped.Load(),
		Rejected:  f.rejected.Load(),
	}
}
