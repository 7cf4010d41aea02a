package main

import (
	"testing"
	"time"

	"tiltscroll/internal/tilt"
)

// newTestControls returns controls for a device that has an orientation sensor.
func newTestControls(t *testing.T) Controls {
	t.Helper()
	pref := NewPreference(true)
	est := tilt.New(tilt.DefaultConfig(), pref)
	if !est.ReportSensorAvailability(true) {
		t.Fatalf("expected first sensor report to be accepted")
	}
	return Controls{Est: est, Pref: pref}
}

func commandsOf[T Command](cmds []Command) []T {
	var out []T
	for _, c := range cmds {
		if v, ok := c.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestReduce_ScrollTick_EnabledAppliesOffset(t *testing.T) {
	c := newTestControls(t)
	c.Est.SetEnabled(true)
	s := &DaemonState{}
	now := time.Unix(1700000000, 0)

	// First tick calibrates at the current pitch: no movement.
	c.Est.SetAttitude(tilt.Rotation0, tilt.Sample{0, -38, 0})
	rr := Reduce(s, ScrollTick{Now: now}, c)
	if len(rr.Commands) != 0 {
		t.Fatalf("expected no commands on calibrating tick, got %v", rr.Commands)
	}
	if s.LastDecision.DelayMS != 40 || s.LastDecision.Scrolling() {
		t.Fatalf("expected still decision with base delay, got %+v", s.LastDecision)
	}

	// Lean back by 10 degrees: backward, speed-up 7, delay 40-21.
	c.Est.SetAttitude(tilt.Rotation0, tilt.Sample{0, -28, 0})
	rr = Reduce(s, ScrollTick{Now: now.Add(40 * time.Millisecond)}, c)

	if s.Offset != -1 || s.Applied != 1 || s.Ticks != 2 {
		t.Fatalf("expected offset=-1 applied=1 ticks=2, got offset=%d applied=%d ticks=%d", s.Offset, s.Applied, s.Ticks)
	}
	if s.LastDecision.DelayMS != 19 || s.LastDecision.Forward {
		t.Fatalf("expected backward decision with delay 19, got %+v", s.LastDecision)
	}

	pubs := commandsOf[CmdPublishDecision](rr.Commands)
	if len(pubs) != 1 || pubs[0].Offset != -1 {
		t.Fatalf("expected one publish with offset -1, got %+v", rr.Commands)
	}
	if len(rr.Broadcasts) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(rr.Broadcasts))
	}
	b, ok := rr.Broadcasts[0].(BroadcastScroll)
	if !ok || !b.Applied || b.Offset != -1 {
		t.Fatalf("expected applied scroll broadcast, got %#v", rr.Broadcasts[0])
	}
}

func TestReduce_ScrollTick_DisabledOnlyPreviews(t *testing.T) {
	c := newTestControls(t)
	s := &DaemonState{}

	c.Est.SetAttitude(tilt.Rotation0, tilt.Sample{0, -38, 0})
	Reduce(s, ScrollTick{}, c)
	c.Est.SetAttitude(tilt.Rotation0, tilt.Sample{0, -28, 0})
	rr := Reduce(s, ScrollTick{}, c)

	if s.Offset != 0 || s.Applied != 0 {
		t.Fatalf("expected nothing applied while disabled, got offset=%d applied=%d", s.Offset, s.Applied)
	}
	if len(rr.Commands) != 0 {
		t.Fatalf("expected no commands while disabled, got %v", rr.Commands)
	}
	if !s.LastDecision.Scrolling() || s.LastDecision.DelayMS != 500 {
		t.Fatalf("expected preview step with idle delay, got %+v", s.LastDecision)
	}
	b := rr.Broadcasts[0].(BroadcastScroll)
	if b.Applied {
		t.Fatalf("expected preview broadcast to be marked not applied")
	}
}

func TestReduce_SetTiltScroll_CommandsOnlyOnChange(t *testing.T) {
	c := newTestControls(t)
	s := &DaemonState{}

	rr := Reduce(s, SetTiltScroll{Enabled: true}, c)
	if len(commandsOf[CmdConnectSensors](rr.Commands)) != 1 || !rr.Reschedule {
		t.Fatalf("expected connect + reschedule, got %+v", rr)
	}
	if len(rr.Broadcasts) != 1 {
		t.Fatalf("expected tilt state broadcast, got %d", len(rr.Broadcasts))
	}

	rr = Reduce(s, SetTiltScroll{Enabled: true}, c)
	if len(rr.Commands) != 0 || rr.Reschedule || len(rr.Broadcasts) != 0 {
		t.Fatalf("expected repeated enable to be a no-op, got %+v", rr)
	}

	rr = Reduce(s, SetTiltScroll{Enabled: false}, c)
	if len(commandsOf[CmdDisconnectSensors](rr.Commands)) != 1 {
		t.Fatalf("expected disconnect, got %v", rr.Commands)
	}
	if c.Est.Enabled() {
		t.Fatalf("expected estimator disabled")
	}
}

func TestReduce_SetTiltScroll_WithoutSensorIsRefused(t *testing.T) {
	pref := NewPreference(true)
	c := Controls{Est: tilt.New(tilt.Config{}, pref), Pref: pref}
	s := &DaemonState{}

	rr := Reduce(s, SetTiltScroll{Enabled: true}, c)
	if len(rr.Commands) != 0 || c.Est.Enabled() {
		t.Fatalf("expected enable to be refused before sensors are reported, got %+v", rr)
	}
}

func TestReduce_SetPreference_OffDisablesActiveSession(t *testing.T) {
	c := newTestControls(t)
	s := &DaemonState{}
	Reduce(s, SetTiltScroll{Enabled: true}, c)

	rr := Reduce(s, SetPreference{TiltToScroll: false}, c)
	if len(commandsOf[CmdDisconnectSensors](rr.Commands)) != 1 || !rr.Reschedule {
		t.Fatalf("expected disconnect + reschedule, got %+v", rr)
	}
	if c.Est.Enabled() || c.Pref.TiltToScroll() {
		t.Fatalf("expected estimator disabled and preference off")
	}
	st := rr.Broadcasts[0].(BroadcastTiltState)
	if st.Enabled || st.TiltToScroll {
		t.Fatalf("expected broadcast to reflect disabled state, got %+v", st)
	}

	rr = Reduce(s, SetTiltScroll{Enabled: true}, c)
	if len(rr.Commands) != 0 || c.Est.Enabled() {
		t.Fatalf("expected enable refused while preference is off")
	}

	// Unchanged preference: nothing to do.
	rr = Reduce(s, SetPreference{TiltToScroll: false}, c)
	if len(rr.Broadcasts) != 0 {
		t.Fatalf("expected no broadcast for unchanged preference")
	}

	Reduce(s, SetPreference{TiltToScroll: true}, c)
	rr = Reduce(s, SetTiltScroll{Enabled: true}, c)
	if len(commandsOf[CmdConnectSensors](rr.Commands)) != 1 {
		t.Fatalf("expected enable to work again once preference is on")
	}
}

func TestReduce_SensorsReported_FirstAnswerWins(t *testing.T) {
	pref := NewPreference(true)
	c := Controls{Est: tilt.New(tilt.Config{}, pref), Pref: pref}
	s := &DaemonState{}

	rr := Reduce(s, SensorsReported{Present: true, Sources: []string{"mock"}}, c)
	if len(rr.Broadcasts) != 1 || len(s.Sources) != 1 || s.Sources[0] != "mock" {
		t.Fatalf("expected first report recorded, got %+v sources=%v", rr, s.Sources)
	}

	rr = Reduce(s, SensorsReported{Present: false}, c)
	if len(rr.Broadcasts) != 0 {
		t.Fatalf("expected second report ignored")
	}
	if !c.Est.SensorAvailable() || len(s.Sources) != 1 {
		t.Fatalf("expected sensor to stay available")
	}
}

func TestReduce_SetRotation(t *testing.T) {
	c := newTestControls(t)
	s := &DaemonState{}

	rr := Reduce(s, SetRotation{Degrees: 180}, c)
	cmds := commandsOf[CmdSetRotation](rr.Commands)
	if len(cmds) != 1 || cmds[0].Rotation != tilt.Rotation180 || s.Rotation != tilt.Rotation180 {
		t.Fatalf("expected rotation 180, got %+v state=%d", rr.Commands, s.Rotation)
	}

	rr = Reduce(s, SetRotation{Degrees: -180}, c)
	if len(rr.Commands) != 0 {
		t.Fatalf("expected equivalent rotation to be a no-op, got %v", rr.Commands)
	}

	rr = Reduce(s, SetRotation{Degrees: 45}, c)
	if len(rr.Commands) != 0 || s.Rotation != tilt.Rotation180 {
		t.Fatalf("expected invalid rotation ignored")
	}
}

func TestReduce_InjectAttitude(t *testing.T) {
	c := newTestControls(t)
	s := &DaemonState{}

	rot := 90
	rr := Reduce(s, InjectAttitude{Values: []float64{1, 2, 3}, Rotation: &rot}, c)
	if len(rr.Commands) != 2 {
		t.Fatalf("expected rotation + sample commands, got %v", rr.Commands)
	}
	if r, ok := rr.Commands[0].(CmdSetRotation); !ok || r.Rotation != tilt.Rotation90 {
		t.Fatalf("expected rotation command first, got %#v", rr.Commands[0])
	}
	d, ok := rr.Commands[1].(CmdDeliverSample)
	if !ok || d.Sample != (tilt.Sample{1, 2, 3}) {
		t.Fatalf("expected sample delivery, got %#v", rr.Commands[1])
	}

	rr = Reduce(s, InjectAttitude{Values: []float64{4, 5, 6}}, c)
	if len(rr.Commands) != 1 || len(rr.Broadcasts) != 0 {
		t.Fatalf("expected only sample delivery, got %+v", rr)
	}

	rr = Reduce(s, InjectAttitude{Values: []float64{4, 5}}, c)
	if len(rr.Commands) != 0 {
		t.Fatalf("expected short sample ignored")
	}
}

func TestReduce_ResetOffsetAndSnapshot(t *testing.T) {
	c := newTestControls(t)
	s := &DaemonState{Offset: 42, Applied: 42, Sources: []string{"evdev"}}

	rr := Reduce(s, ResetOffset{}, c)
	if s.Offset != 0 {
		t.Fatalf("expected offset reset, got %d", s.Offset)
	}
	if b := rr.Broadcasts[0].(BroadcastScroll); b.Offset != 0 || b.Applied {
		t.Fatalf("unexpected reset broadcast %+v", b)
	}

	reply := make(chan StateSnapshot, 1)
	rr = Reduce(s, RequestStateSnapshot{Reply: reply}, c)
	cmds := commandsOf[CmdPublishStateSnapshot](rr.Commands)
	if len(cmds) != 1 {
		t.Fatalf("expected snapshot command, got %v", rr.Commands)
	}
	snap := cmds[0].Snapshot
	if snap.Applied != 42 || !snap.TiltToScroll || !snap.Estimator.SensorAvailable {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	// The snapshot must not alias daemon state.
	snap.Sources[0] = "changed"
	if s.Sources[0] != "evdev" {
		t.Fatalf("expected snapshot sources to be a copy")
	}
}
