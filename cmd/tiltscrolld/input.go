package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	"tiltscroll/internal/orientation"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

func decodeInputEvent(buf []byte) (inputEvent, error) {
	var ev inputEvent
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &ev); err != nil {
		return inputEvent{}, err
	}
	return ev, nil
}

const (
	axisX = 1 << iota
	axisY
	axisZ
	allAxes = axisX | axisY | axisZ
)

// accelAssembler turns an evdev accelerometer stream into poses.
//
// The kernel only reports axes that changed within a frame, so the last value
// of each axis is kept and a pose is produced on every SYN_REPORT once all
// three axes have been seen.
type accelAssembler struct {
	x, y, z int32
	seen    int
}

func (a *accelAssembler) add(ev inputEvent) (orientation.Pose, bool) {
	switch ev.Type {
	case EV_ABS:
		switch ev.Code {
		case ABS_X:
			a.x = ev.Value
			a.seen |= axisX
		case ABS_Y:
			a.y = ev.Value
			a.seen |= axisY
		case ABS_Z:
			a.z = ev.Value
			a.seen |= axisZ
		}
	case EV_SYN:
		if ev.Code == SYN_REPORT && a.seen == allAxes {
			return orientation.FromAccel(float64(a.x), float64(a.y), float64(a.z)), true
		}
	}
	return orientation.Pose{}, false
}

// openAccelDevices opens every readable device and skips the rest.
func openAccelDevices(paths []string, logger *slog.Logger) []*os.File {
	var files []*os.File
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			logger.Error("failed to open accelerometer device", "device", p, "error", err, "tip", "run as root or add user to 'input' group")
			continue
		}
		files = append(files, f)
	}
	return files
}

// runAccelDevices reads all devices through one poller and delivers a pose per
// device frame. It closes the files on return.
func runAccelDevices(ctx context.Context, files []*os.File, feed *SensorFeed, logger *slog.Logger) error {
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	asm := make([]accelAssembler, len(files))
	err := readInputEventsEpoll(ctx, files, func(dev int, ev inputEvent) {
		if p, ok := asm[dev].add(ev); ok {
			feed.DeliverPose(p)
		}
	})
	if err != nil {
		return fmt.Errorf("accelerometer input: %w", err)
	}
	return nil
}
