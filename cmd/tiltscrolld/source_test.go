package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"tiltscroll/internal/orientation"
	"tiltscroll/internal/tilt"
)

type countingSource struct {
	calls atomic.Int32
	fail  bool
}

func (s *countingSource) Next() (orientation.Pose, error) {
	s.calls.Add(1)
	if s.fail {
		return orientation.Pose{}, errors.New("sensor busy")
	}
	return orientation.Pose{Pitch: orientation.ReadingPitch}, nil
}

func TestRunPoseSource_PollsOnlyWhileConnected(t *testing.T) {
	est := tilt.New(tilt.Config{}, nil)
	feed := NewSensorFeed(est, tilt.Rotation0, testLogger())
	src := &countingSource{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runPoseSource(ctx, "test", src, time.Millisecond, feed, testLogger())
	}()

	time.Sleep(30 * time.Millisecond)
	if n := src.calls.Load(); n != 0 {
		t.Fatalf("expected no polling while disconnected, got %d calls", n)
	}

	feed.Connect()
	waitUntil(t, time.Second, func() bool { return feed.Stats().Delivered >= 2 }, "poses not delivered")
	if got := est.Snapshot().Sample.Pitch(); got != orientation.ReadingPitch {
		t.Fatalf("expected pitch %v, got %v", orientation.ReadingPitch, got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("source did not stop")
	}
}

func TestRunPoseSource_SkipsFailedReads(t *testing.T) {
	feed := NewSensorFeed(tilt.New(tilt.Config{}, nil), tilt.Rotation0, testLogger())
	feed.Connect()
	src := &countingSource{fail: true}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = runPoseSource(ctx, "test", src, time.Millisecond, feed, testLogger()) }()

	waitUntil(t, time.Second, func() bool { return src.calls.Load() >= 3 }, "source not polled")
	if st := feed.Stats(); st.Delivered != 0 || st.Rejected != 0 {
		t.Fatalf("expected failed reads to be skipped, got %+v", st)
	}
}
