package tilt

import (
	"errors"
	"math"
	"testing"
)

func nan() float64 { return math.NaN() }

func TestNewSample(t *testing.T) {
	s, err := NewSample(10, -38, 4.5, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Azimuth() != 10 || s.Pitch() != -38 || s.Roll() != 4.5 {
		t.Fatalf("unexpected sample %v", s)
	}

	if _, err := NewSample(1, 2); !errors.Is(err, ErrShortSample) {
		t.Fatalf("expected ErrShortSample, got %v", err)
	}
	if _, err := NewSample(); !errors.Is(err, ErrShortSample) {
		t.Fatalf("expected ErrShortSample for empty input, got %v", err)
	}
	if _, err := NewSample(0, nan(), 0); !errors.Is(err, ErrNonFiniteSample) {
		t.Fatalf("expected ErrNonFiniteSample, got %v", err)
	}
	if _, err := NewSample(0, 0, math.Inf(-1)); !errors.Is(err, ErrNonFiniteSample) {
		t.Fatalf("expected ErrNonFiniteSample for -Inf, got %v", err)
	}
}

func TestMustSample_PanicsOnShortInput(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustSample(1)
}

func TestParseRotation(t *testing.T) {
	tests := []struct {
		in   int
		want Rotation
	}{
		{0, Rotation0},
		{90, Rotation90},
		{180, Rotation180},
		{270, Rotation270},
		{360, Rotation0},
		{-90, Rotation270},
		{450, Rotation90},
	}
	for _, tc := range tests {
		got, err := ParseRotation(tc.in)
		if err != nil {
			t.Fatalf("ParseRotation(%d): unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRotation(%d): expected %v, got %v", tc.in, tc.want, got)
		}
	}

	for _, bad := range []int{45, 1, -10} {
		if _, err := ParseRotation(bad); !errors.Is(err, ErrInvalidRotation) {
			t.Fatalf("ParseRotation(%d): expected ErrInvalidRotation, got %v", bad, err)
		}
	}
}

func TestRotationFromSurface(t *testing.T) {
	for i, want := range []Rotation{Rotation0, Rotation90, Rotation180, Rotation270} {
		got, err := RotationFromSurface(i)
		if err != nil || got != want {
			t.Fatalf("surface %d: expected %v, got %v (err=%v)", i, want, got, err)
		}
	}
	if _, err := RotationFromSurface(4); !errors.Is(err, ErrInvalidRotation) {
		t.Fatalf("expected ErrInvalidRotation for surface 4, got %v", err)
	}
}

func TestRotation_Pitch(t *testing.T) {
	s := Sample{7, 11, 13}
	tests := map[Rotation]float64{
		Rotation0:   11,
		Rotation90:  -13,
		Rotation180: -11,
		Rotation270: 13,
	}
	for rot, want := range tests {
		if got := rot.Pitch(s); got != want {
			t.Fatalf("rotation %v: expected pitch %v, got %v", rot, want, got)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := map[float64]int{
		0.4:   0,
		0.5:   1,
		-0.5:  0,
		-0.51: -1,
		-2.5:  -2,
		37.49: 37,
	}
	for in, want := range tests {
		if got := roundHalfUp(in); got != want {
			t.Fatalf("roundHalfUp(%v): expected %d, got %d", in, want, got)
		}
	}
}
