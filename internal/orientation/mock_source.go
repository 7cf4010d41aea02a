package orientation

import (
	"math"
	"time"
)

// ReadingPitch is a typical pitch for someone reading a handheld screen.
const ReadingPitch = -38.0

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock orientation source that slowly rocks the
// device around a reading posture, tilting far enough to scroll both ways.
func NewMockSource() Source {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) Next() (Pose, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	return Pose{
		Azimuth: math.Mod(elapsed*10, 360),
		Pitch:   ReadingPitch + 15*math.Sin(elapsed*0.5),
		Roll:    3 * math.Cos(elapsed*0.7),
	}, nil
}
