// Package tilt turns device attitude into scroll decisions.
//
// The Estimator is fed the latest orientation sample from a sensor goroutine
// (SetAttitude) and polled from a scroll timer (ComputeScroll). The two call
// sites never block each other: the latest sample is published through an
// atomic pointer swap and every other piece of state is a single atomic word.
// A tick may therefore observe a sample that is one delivery older or newer
// than the one current when it started; nothing depends on stricter ordering.
package tilt

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Default tuning. Scrolling is always one pixel per tick; speed is conveyed
// only by shortening the delay to the next tick.
const (
	DefaultDeadZoneDeg         = 3
	DefaultForwardToleranceDeg = 6
	DefaultBaseIntervalMS      = 40
	DefaultSpeedUpStepMS       = 3
	DefaultIdleIntervalMS      = 500

	scrollPixels = 1
)

// Config contains the tunable parameters of the estimator.
type Config struct {
	// DeadZoneDeg is the deviance from the neutral pitch (inclusive) within which
	// no scrolling happens.
	DeadZoneDeg int

	// ForwardToleranceDeg is extra tilt allowed past the dead zone before forward
	// scrolling starts to accelerate. Backward scrolling has no such tolerance.
	ForwardToleranceDeg int

	// BaseIntervalMS is the delay between scroll ticks while enabled and not sped up.
	BaseIntervalMS int

	// SpeedUpStepMS is subtracted from BaseIntervalMS per unit of speed-up.
	SpeedUpStepMS int

	// IdleIntervalMS is the poll delay reported when nothing is scrolling
	// (no sample yet, or tilt scrolling disabled).
	IdleIntervalMS int
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		DeadZoneDeg:         DefaultDeadZoneDeg,
		ForwardToleranceDeg: DefaultForwardToleranceDeg,
		BaseIntervalMS:      DefaultBaseIntervalMS,
		SpeedUpStepMS:       DefaultSpeedUpStepMS,
		IdleIntervalMS:      DefaultIdleIntervalMS,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.DeadZoneDeg == 0 {
		c.DeadZoneDeg = d.DeadZoneDeg
	}
	if c.ForwardToleranceDeg == 0 {
		c.ForwardToleranceDeg = d.ForwardToleranceDeg
	}
	if c.BaseIntervalMS == 0 {
		c.BaseIntervalMS = d.BaseIntervalMS
	}
	if c.SpeedUpStepMS == 0 {
		c.SpeedUpStepMS = d.SpeedUpStepMS
	}
	if c.IdleIntervalMS == 0 {
		c.IdleIntervalMS = d.IdleIntervalMS
	}
	return c
}

// Validate checks the config invariants.
func (c Config) Validate() error {
	if c.DeadZoneDeg < 0 {
		return errors.New("dead zone must be >= 0")
	}
	if c.ForwardToleranceDeg < 0 {
		return errors.New("forward tolerance must be >= 0")
	}
	if c.BaseIntervalMS < 0 {
		return errors.New("base interval must be >= 0")
	}
	if c.SpeedUpStepMS < 0 {
		return errors.New("speed-up step must be >= 0")
	}
	if c.IdleIntervalMS < 0 {
		return errors.New("idle interval must be >= 0")
	}
	if c.BaseIntervalMS > c.IdleIntervalMS {
		return fmt.Errorf("base interval (%dms) must not exceed idle interval (%dms)", c.BaseIntervalMS, c.IdleIntervalMS)
	}
	return nil
}

// Preferences supplies the user's "tilt to scroll" setting.
// It is consulted on every SetEnabled call.
type Preferences interface {
	TiltToScroll() bool
}

// PreferenceFunc adapts a function to Preferences.
type PreferenceFunc func() bool

func (f PreferenceFunc) TiltToScroll() bool { return f() }

// StaticPreference is a fixed preference value.
type StaticPreference bool

func (p StaticPreference) TiltToScroll() bool { return bool(p) }

// Decision is the result of one scroll tick.
type Decision struct {
	PixelStep int  `json:"pixel_step"`
	Forward   bool `json:"forward"`
	DelayMS   int  `json:"delay_ms"`

	// Diagnostics.
	SpeedUp  int `json:"speed_up"`
	Deviance int `json:"deviance"`
}

// Delay returns DelayMS as a duration.
func (d Decision) Delay() time.Duration {
	return time.Duration(d.DelayMS) * time.Millisecond
}

// Scrolling reports whether the decision moves content.
func (d Decision) Scrolling() bool {
	return d.PixelStep > 0
}

// Offset returns the signed pixel delta: positive moves forward through the text.
func (d Decision) Offset() int {
	if d.Forward {
		return d.PixelStep
	}
	return -d.PixelStep
}

// attitude is the latest (rotation, sample) pair handed over by the sensor side.
type attitude struct {
	rotation Rotation
	sample   Sample
}

const (
	sensorUnknown int32 = iota
	sensorAbsent
	sensorPresent
)

// Estimator converts device attitude into scroll decisions.
//
// State machine: {Disabled, Enabled} x {Uncalibrated, Calibrated}; initial state is
// Disabled, Uncalibrated. The first ComputeScroll after a sample arrives while
// Uncalibrated takes the current pitch as the neutral reading pitch.
type Estimator struct {
	cfg   Config
	prefs Preferences

	attitude atomic.Pointer[attitude]

	neutralPitch atomic.Int64
	calibrated   atomic.Bool
	enabled      atomic.Bool
	sensor       atomic.Int32
}

// New creates an estimator. Zero config fields take their defaults; a nil
// prefs is treated as the preference being on.
func New(cfg Config, prefs Preferences) *Estimator {
	if prefs == nil {
		prefs = StaticPreference(true)
	}
	return &Estimator{
		cfg:   cfg.WithDefaults(),
		prefs: prefs,
	}
}

// Config returns the effective configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// SetAttitude stores the latest rotation and sample for the next ComputeScroll.
// It never blocks. A rotation outside the four supported values or a sample
// with non-finite angles is a caller bug and panics.
func (e *Estimator) SetAttitude(rotation Rotation, sample Sample) {
	if !rotation.Valid() {
		panic(fmt.Sprintf("tilt: SetAttitude with invalid rotation %d", int(rotation)))
	}
	if err := sample.check(); err != nil {
		panic("tilt: SetAttitude: " + err.Error())
	}
	e.attitude.Store(&attitude{rotation: rotation, sample: sample})
}

// ComputeScroll produces the scroll decision for the current tick.
func (e *Estimator) ComputeScroll() Decision {
	d := Decision{
		Forward: true,
		DelayMS: e.cfg.IdleIntervalMS,
	}

	a := e.attitude.Load()
	if a == nil {
		return d
	}

	pitch := roundHalfUp(a.rotation.Pitch(a.sample))
	neutral := e.neutral(pitch)
	deviance := abs(pitch - neutral)
	d.Deviance = deviance

	speedUp := 0
	if deviance > e.cfg.DeadZoneDeg {
		// Raising the top edge of the screen lowers the pitch: that reads forward.
		d.Forward = pitch < neutral
		if d.Forward {
			speedUp = max(0, deviance-e.cfg.DeadZoneDeg-e.cfg.ForwardToleranceDeg)
		} else {
			// Nobody reads backwards, so snap back quickly.
			speedUp = max(0, deviance-e.cfg.DeadZoneDeg)
		}
		d.PixelStep = scrollPixels
	}
	d.SpeedUp = speedUp

	// While disabled the idle delay is kept but direction and step still
	// report the live tilt for previews.
	if e.enabled.Load() {
		d.DelayMS = max(0, e.cfg.BaseIntervalMS-e.cfg.SpeedUpStepMS*speedUp)
	}
	return d
}

// neutral returns the calibrated neutral pitch, taking pitch as the new
// baseline when uncalibrated.
func (e *Estimator) neutral(pitch int) int {
	if !e.calibrated.Load() {
		e.neutralPitch.Store(int64(pitch))
		e.calibrated.Store(true)
		return pitch
	}
	return int(e.neutralPitch.Load())
}

// SetEnabled starts or stops tilt scrolling. It returns true only when the
// state changed, which tells the host to connect or disconnect sensor delivery.
// Nothing changes when the user preference is off or no orientation sensor
// has been reported.
func (e *Estimator) SetEnabled(enable bool) bool {
	if !e.prefs.TiltToScroll() || !e.SensorAvailable() {
		return false
	}
	return e.enabled.CompareAndSwap(!enable, enable)
}

// Enabled reports whether tilt scrolling is on.
func (e *Estimator) Enabled() bool {
	return e.enabled.Load()
}

// Recalibrate forgets the neutral pitch; the next ComputeScroll re-baselines
// to whatever pitch is current then.
func (e *Estimator) Recalibrate() {
	e.calibrated.Store(false)
}

// ReportSensorAvailability records whether the device has an orientation
// sensor. Only the first report counts; it returns false for later ones.
func (e *Estimator) ReportSensorAvailability(has bool) bool {
	v := sensorAbsent
	if has {
		v = sensorPresent
	}
	return e.sensor.CompareAndSwap(sensorUnknown, v)
}

// SensorAvailable reports the cached sensor capability. It is false until reported.
func (e *Estimator) SensorAvailable() bool {
	return e.sensor.Load() == sensorPresent
}

// SensorKnown reports whether the sensor capability has been reported.
func (e *Estimator) SensorKnown() bool {
	return e.sensor.Load() != sensorUnknown
}

// State is a point-in-time view of the estimator.
type State struct {
	Enabled         bool     `json:"enabled"`
	SensorKnown     bool     `json:"sensor_known"`
	SensorAvailable bool     `json:"sensor_available"`
	Calibrated      bool     `json:"calibrated"`
	NeutralPitch    int      `json:"neutral_pitch"`
	HaveSample      bool     `json:"have_sample"`
	Rotation        Rotation `json:"rotation"`
	Sample          Sample   `json:"sample"`
}

// Snapshot returns the current state without calibrating.
func (e *Estimator) Snapshot() State {
	st := State{
		Enabled:         e.enabled.Load(),
		SensorKnown:     e.SensorKnown(),
		SensorAvailable: e.SensorAvailable(),
		Calibrated:      e.calibrated.Load(),
	}
	if st.Calibrated {
		st.NeutralPitch = int(e.neutralPitch.Load())
	}
	if a := e.attitude.Load(); a != nil {
		st.HaveSample = true
		st.Rotation = a.rotation
		st.Sample = a.sample
	}
	return st
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
