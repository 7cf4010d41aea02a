package orientation

import (
	"math"
	"testing"
	"time"

	"tiltscroll/internal/tilt"
)

const g = 9.81

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}

func TestFromAccel_Flat(t *testing.T) {
	p := FromAccel(0, 0, g)
	if !near(p.Pitch, 0) || !near(p.Roll, 0) || p.Azimuth != 0 {
		t.Fatalf("expected zero pose for a flat device, got %+v", p)
	}
}

func TestFromAccel_TopEdgeRaised(t *testing.T) {
	th := rad(38)
	p := FromAccel(0, g*math.Sin(th), g*math.Cos(th))
	if !near(p.Pitch, -38) {
		t.Fatalf("expected pitch -38, got %v", p.Pitch)
	}
	if !near(p.Roll, 0) {
		t.Fatalf("expected roll 0, got %v", p.Roll)
	}
}

func TestFromAccel_LeftEdgeRaised(t *testing.T) {
	th := rad(20)
	p := FromAccel(-g*math.Sin(th), 0, g*math.Cos(th))
	if !near(p.Roll, 20) {
		t.Fatalf("expected roll 20, got %v", p.Roll)
	}
}

// TestFromAccel_ReaderTopEdgeReadsForwardInEveryRotation checks that raising
// the edge that is "up" for the reader always scrolls forward.
func TestFromAccel_ReaderTopEdgeReadsForwardInEveryRotation(t *testing.T) {
	th := rad(20)
	s, c := g*math.Sin(th), g*math.Cos(th)

	tests := []struct {
		rot      tilt.Rotation
		ax, ay   float64
		readerUp string
	}{
		{tilt.Rotation0, 0, s, "top"},
		{tilt.Rotation90, -s, 0, "left"},
		{tilt.Rotation180, 0, -s, "bottom"},
		{tilt.Rotation270, s, 0, "right"},
	}
	for _, tc := range tests {
		flat, err := FromAccel(0, 0, g).Sample()
		if err != nil {
			t.Fatalf("flat sample: %v", err)
		}
		raised, err := FromAccel(tc.ax, tc.ay, c).Sample()
		if err != nil {
			t.Fatalf("raised sample: %v", err)
		}

		e := tilt.New(tilt.DefaultConfig(), nil)
		e.SetAttitude(tc.rot, flat)
		e.ComputeScroll()
		e.SetAttitude(tc.rot, raised)
		d := e.ComputeScroll()

		if !d.Forward || d.PixelStep != 1 {
			t.Fatalf("rotation %v (%s edge raised): expected forward scroll, got %+v", tc.rot, tc.readerUp, d)
		}
		if d.Deviance != 20 {
			t.Fatalf("rotation %v: expected deviance 20, got %d", tc.rot, d.Deviance)
		}
	}
}

func TestPose_Sample(t *testing.T) {
	s, err := Pose{Azimuth: 1, Pitch: 2, Roll: 3}.Sample()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != (tilt.Sample{1, 2, 3}) {
		t.Fatalf("unexpected sample %v", s)
	}
	if _, err := (Pose{Pitch: math.NaN()}).Sample(); err == nil {
		t.Fatalf("expected error for NaN pitch")
	}
}

func TestMockSource_StaysAroundReadingPitch(t *testing.T) {
	start := time.Unix(0, 0)
	now := start
	m := &mockSource{start: start, now: func() time.Time { return now }}

	for i := 0; i < 200; i++ {
		now = start.Add(time.Duration(i) * 100 * time.Millisecond)
		p, err := m.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Pitch < ReadingPitch-15 || p.Pitch > ReadingPitch+15 {
			t.Fatalf("pitch %v outside reading band", p.Pitch)
		}
		if p.Azimuth < 0 || p.Azimuth >= 360 {
			t.Fatalf("azimuth %v out of range", p.Azimuth)
		}
	}
}
