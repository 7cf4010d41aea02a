package orientation

import (
	"math"

	"tiltscroll/internal/tilt"
)

// Pose is an orientation reading in degrees, in the axis order the scroll
// estimator expects: azimuth, pitch, roll.
type Pose struct {
	Azimuth float64 `json:"azimuth"`
	Pitch   float64 `json:"pitch"`
	Roll    float64 `json:"roll"`
}

// Source is anything that can provide poses over time.
type Source interface {
	Next() (Pose, error)
}

// Sample converts the pose into an estimator sample.
// It fails for NaN or infinite angles.
func (p Pose) Sample() (tilt.Sample, error) {
	return tilt.NewSample(p.Azimuth, p.Pitch, p.Roll)
}

// FromAccel computes pitch and roll from accelerometer data only (any unit).
// Azimuth is 0 since there is no magnetometer input.
//
// Device axes: x to the right edge, y to the top edge, z out of the screen.
// Signs follow the usual mobile orientation sensor:
//
//	pitch = atan2(-ay, az)             negative when the top edge is raised
//	roll  = atan2(-ax, sqrt(ay² + az²)) positive when the left edge is raised
func FromAccel(ax, ay, az float64) Pose {
	pitchRad := math.Atan2(-ay, az)
	rollRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Azimuth: 0,
		Pitch:   pitchRad * 180.0 / math.Pi,
		Roll:    rollRad * 180.0 / math.Pi,
	}
}
