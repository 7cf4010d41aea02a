package tilt

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShortSample is returned when fewer than three orientation angles are supplied.
	ErrShortSample = errors.New("orientation sample needs 3 values")

	// ErrNonFiniteSample is returned when an orientation angle is NaN or infinite.
	ErrNonFiniteSample = errors.New("orientation sample has non-finite value")

	// ErrInvalidRotation is returned for a display rotation that is not a multiple of 90 degrees.
	ErrInvalidRotation = errors.New("invalid display rotation")
)

// Sample is one orientation sensor reading in degrees.
// Axis order follows the host sensor: [azimuth, pitch, roll].
type Sample [3]float64

// NewSample builds a Sample from raw sensor values.
// Values beyond the third are ignored.
func NewSample(values ...float64) (Sample, error) {
	if len(values) < 3 {
		return Sample{}, fmt.Errorf("%w: got %d", ErrShortSample, len(values))
	}
	var s Sample
	copy(s[:], values[:3])
	if err := s.check(); err != nil {
		return Sample{}, err
	}
	return s, nil
}

// MustSample is like NewSample but panics on malformed input.
func MustSample(values ...float64) Sample {
	s, err := NewSample(values...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Sample) Azimuth() float64 { return s[0] }
func (s Sample) Pitch() float64   { return s[1] }
func (s Sample) Roll() float64    { return s[2] }

func (s Sample) check() error {
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: axis %d is %v", ErrNonFiniteSample, i, v)
		}
	}
	return nil
}

// Rotation is the display rotation relative to the device's natural orientation, in degrees.
type Rotation int

const (
	Rotation0   Rotation = 0
	Rotation90  Rotation = 90
	Rotation180 Rotation = 180
	Rotation270 Rotation = 270
)

// ParseRotation converts degrees into a Rotation.
// Any multiple of 90 is accepted and normalised into [0, 360), so -90 becomes 270.
func ParseRotation(deg int) (Rotation, error) {
	if deg%90 != 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRotation, deg)
	}
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return Rotation(deg), nil
}

// RotationFromSurface maps a 0..3 display surface index (as reported by mobile
// window managers) to a Rotation.
func RotationFromSurface(index int) (Rotation, error) {
	if index < 0 || index > 3 {
		return 0, fmt.Errorf("%w: surface index %d", ErrInvalidRotation, index)
	}
	return Rotation(index * 90), nil
}

// Valid reports whether r is one of the four supported rotations.
func (r Rotation) Valid() bool {
	switch r {
	case Rotation0, Rotation90, Rotation180, Rotation270:
		return true
	}
	return false
}

func (r Rotation) String() string {
	return fmt.Sprintf("%d°", int(r))
}

// Pitch returns the forward/backward tilt as experienced by the reader.
// When the screen is rotated the sensor's roll axis becomes the reading pitch.
func (r Rotation) Pitch(s Sample) float64 {
	switch r {
	case Rotation90:
		return -s[2]
	case Rotation270:
		return s[2]
	case Rotation180:
		return -s[1]
	default:
		return s[1]
	}
}

// roundHalfUp rounds to the nearest integer with halves going toward +Inf,
// so -2.5 becomes -2 and 2.5 becomes 3.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
