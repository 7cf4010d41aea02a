package main

import (
	"bytes"
	"encoding/binary"
	"testing"

	"tiltscroll/internal/orientation"
)

func encodeInputEvent(t *testing.T, ev inputEvent) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, ev); err != nil {
		t.Fatalf("encode input event: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeInputEvent(t *testing.T) {
	if inputEventSize != 24 {
		t.Fatalf("expected 24-byte input_event, got %d", inputEventSize)
	}

	want := inputEvent{Sec: 12, Usec: 345, Type: EV_ABS, Code: ABS_Y, Value: -981}
	got, err := decodeInputEvent(encodeInputEvent(t, want))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if _, err := decodeInputEvent(make([]byte, 10)); err == nil {
		t.Fatalf("expected error for short buffer")
	}
}

func TestAccelAssembler_WaitsForAllAxes(t *testing.T) {
	var a accelAssembler
	syn := inputEvent{Type: EV_SYN, Code: SYN_REPORT}

	a.add(inputEvent{Type: EV_ABS, Code: ABS_X, Value: 10})
	a.add(inputEvent{Type: EV_ABS, Code: ABS_Y, Value: 300})
	if _, ok := a.add(syn); ok {
		t.Fatalf("expected no pose before Z is seen")
	}

	a.add(inputEvent{Type: EV_ABS, Code: ABS_Z, Value: 900})
	p, ok := a.add(syn)
	if !ok {
		t.Fatalf("expected pose once all axes are seen")
	}
	if want := orientation.FromAccel(10, 300, 900); p != want {
		t.Fatalf("expected %+v, got %+v", want, p)
	}

	// Later frames only carry changed axes.
	a.add(inputEvent{Type: EV_ABS, Code: ABS_Y, Value: 0})
	p, ok = a.add(syn)
	if !ok {
		t.Fatalf("expected pose from partial frame")
	}
	if want := orientation.FromAccel(10, 0, 900); p != want {
		t.Fatalf("expected %+v, got %+v", want, p)
	}

	// SYN_DROPPED does not complete a frame.
	if _, ok := a.add(inputEvent{Type: EV_SYN, Code: 3}); ok {
		t.Fatalf("expected no pose on SYN_DROPPED")
	}
}
