package main

import (
	"tiltscroll/internal/tilt"
)

// This file turns daemon Events into state changes, Commands and Broadcasts.
//
// Reduce performs no I/O. It does drive the estimator's control operations
// (enable, recalibrate, capability report, compute), so it must only be
// called from the daemon goroutine. Sample delivery is the one estimator
// entry point that runs elsewhere (sensor goroutines via the feed).

// Controls bundles what the reducer steers besides DaemonState.
type Controls struct {
	Est  *tilt.Estimator
	Pref *Preference
}

// ReduceResult is the output of Reduce().
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast

	// Reschedule asks the daemon loop to fire the scroll timer as soon as
	// allowed instead of waiting out the current (possibly idle) delay.
	Reschedule bool
}

// Reduce applies one event.
func Reduce(s *DaemonState, e Event, c Controls) ReduceResult {
	if s == nil {
		s = &DaemonState{}
	}

	rr := ReduceResult{State: s}

	switch ev := e.(type) {
	case ScrollTick:
		d := c.Est.ComputeScroll()
		s.Ticks++
		s.LastDecision = d
		s.LastTickAt = ev.Now

		applied := c.Est.Enabled() && d.Scrolling()
		if applied {
			s.Offset += d.Offset()
			s.Applied++
			rr.Commands = append(rr.Commands, CmdPublishDecision{Decision: d, Offset: s.Offset, At: ev.Now})
		}
		rr.Broadcasts = append(rr.Broadcasts, BroadcastScroll{
			Decision: d,
			Offset:   s.Offset,
			Applied:  applied,
			At:       ev.Now,
		})

	case SetTiltScroll:
		if c.Est.SetEnabled(ev.Enabled) {
			if ev.Enabled {
				rr.Commands = append(rr.Commands, CmdConnectSensors{})
			} else {
				rr.Commands = append(rr.Commands, CmdDisconnectSensors{})
			}
			rr.Reschedule = true
			rr.Broadcasts = append(rr.Broadcasts, tiltState(s, c))
		}

	case Recalibrate:
		c.Est.Recalibrate()
		rr.Broadcasts = append(rr.Broadcasts, tiltState(s, c))

	case SetRotation:
		r, err := ev.Rotation()
		if err != nil {
			break
		}
		if r != s.Rotation {
			s.Rotation = r
			rr.Commands = append(rr.Commands, CmdSetRotation{Rotation: r})
			rr.Broadcasts = append(rr.Broadcasts, tiltState(s, c))
		}

	case SetPreference:
		if ev.TiltToScroll == c.Pref.TiltToScroll() {
			break
		}
		// Turning the preference off stops an active session first; once it is
		// off the estimator refuses every SetEnabled call.
		if !ev.TiltToScroll && c.Est.Enabled() && c.Est.SetEnabled(false) {
			rr.Commands = append(rr.Commands, CmdDisconnectSensors{})
			rr.Reschedule = true
		}
		c.Pref.Set(ev.TiltToScroll)
		rr.Broadcasts = append(rr.Broadcasts, tiltState(s, c))

	case InjectAttitude:
		sample, err := tilt.NewSample(ev.Values...)
		if err != nil {
			break
		}
		if ev.Rotation != nil {
			r, err := tilt.ParseRotation(*ev.Rotation)
			if err != nil {
				break
			}
			if r != s.Rotation {
				s.Rotation = r
				rr.Commands = append(rr.Commands, CmdSetRotation{Rotation: r})
				rr.Broadcasts = append(rr.Broadcasts, tiltState(s, c))
			}
		}
		rr.Commands = append(rr.Commands, CmdDeliverSample{Sample: sample})

	case ResetOffset:
		s.Offset = 0
		rr.Broadcasts = append(rr.Broadcasts, BroadcastScroll{
			Decision: s.LastDecision,
			Offset:   0,
		})

	case SensorsReported:
		if c.Est.ReportSensorAvailability(ev.Present) {
			s.Sources = append([]string(nil), ev.Sources...)
			rr.Broadcasts = append(rr.Broadcasts, tiltState(s, c))
		}

	case RequestStateSnapshot:
		rr.Commands = append(rr.Commands, CmdPublishStateSnapshot{
			Reply:    ev.Reply,
			Snapshot: snapshotOf(s, c),
		})

	default:
		// Unknown event type: no-op.
	}

	return rr
}

func tiltState(s *DaemonState, c Controls) BroadcastTiltState {
	st := c.Est.Snapshot()
	return BroadcastTiltState{
		Enabled:         st.Enabled,
		TiltToScroll:    c.Pref.TiltToScroll(),
		SensorAvailable: st.SensorAvailable,
		Calibrated:      st.Calibrated,
		Rotation:        s.Rotation,
	}
}

// snapshotOf builds the reducer-side part of a snapshot; the effects layer
// fills in session and feed counters.
func snapshotOf(s *DaemonState, c Controls) StateSnapshot {
	return StateSnapshot{
		TiltToScroll: c.Pref.TiltToScroll(),
		Estimator:    c.Est.Snapshot(),
		Rotation:     int(s.Rotation),
		Offset:       s.Offset,
		Ticks:        s.Ticks,
		Applied:      s.Applied,
		LastDecision: s.LastDecision,
		LastTickAt:   s.LastTickAt,
		Sources:      append([]string(nil), s.Sources...),
	}
}
