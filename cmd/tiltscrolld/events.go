package main

import (
	"encoding/json"
	"fmt"
	"time"

	"tiltscroll/internal/tilt"
)

// ============================================================================
// Events - inputs to the daemon loop
// ============================================================================
// Payload events arrive over IPC as JSON envelopes. Internal events (ticks,
// sensor reports, snapshot requests) are produced inside the process and have
// no wire form.
// ============================================================================

// Event is a marker interface for everything the daemon loop consumes.
type Event interface {
	eventMarker()
}

// SetTiltScroll asks to start or stop tilt scrolling.
type SetTiltScroll struct {
	Enabled bool `json:"enabled"`
}

func (SetTiltScroll) eventMarker() {}

// Recalibrate forgets the neutral reading pitch (user touched the screen).
type Recalibrate struct{}

func (Recalibrate) eventMarker() {}

// SetRotation reports a display rotation change in degrees.
type SetRotation struct {
	Degrees int `json:"degrees"`
}

func (SetRotation) eventMarker() {}

// Rotation returns the validated rotation.
func (a SetRotation) Rotation() (tilt.Rotation, error) {
	return tilt.ParseRotation(a.Degrees)
}

// SetPreference changes the user's "tilt to scroll" preference.
type SetPreference struct {
	TiltToScroll bool `json:"tilt_to_scroll"`
}

func (SetPreference) eventMarker() {}

// InjectAttitude hands one orientation reading to the sensor feed, optionally
// together with the display rotation it was taken under.
type InjectAttitude struct {
	Values   []float64 `json:"values"`
	Rotation *int      `json:"rotation,omitempty"`
}

func (InjectAttitude) eventMarker() {}

// validate checks the payload the same way the sensor feed would.
func (a InjectAttitude) validate() error {
	if _, err := tilt.NewSample(a.Values...); err != nil {
		return err
	}
	if a.Rotation != nil {
		if _, err := tilt.ParseRotation(*a.Rotation); err != nil {
			return err
		}
	}
	return nil
}

// ResetOffset zeroes the accumulated scroll offset.
type ResetOffset struct{}

func (ResetOffset) eventMarker() {}

// ScrollTick is emitted by the daemon loop each time the scroll timer fires.
type ScrollTick struct {
	Now time.Time
}

func (ScrollTick) eventMarker() {}

// SensorsReported carries the one-time orientation capability answer,
// produced once all configured sources had a chance to come up.
type SensorsReported struct {
	Present bool
	Sources []string
}

func (SensorsReported) eventMarker() {}

// RequestStateSnapshot asks the daemon loop for a coherent state snapshot.
// Reply must be buffered; the daemon never blocks on it.
type RequestStateSnapshot struct {
	Reply chan StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event.
// Payloads are validated here so IPC callers get the error back.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "set_tilt_scroll":
		var a SetTiltScroll
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SetTiltScroll: %w", err)
		}
		return a, nil

	case "recalibrate":
		return Recalibrate{}, nil

	case "set_rotation":
		var a SetRotation
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SetRotation: %w", err)
		}
		if _, err := a.Rotation(); err != nil {
			return nil, err
		}
		return a, nil

	case "set_preference":
		var a SetPreference
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SetPreference: %w", err)
		}
		return a, nil

	case "attitude":
		var a InjectAttitude
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal InjectAttitude: %w", err)
		}
		if err := a.validate(); err != nil {
			return nil, err
		}
		return a, nil

	case "reset_offset":
		return ResetOffset{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case SetTiltScroll:
		env.Type = "set_tilt_scroll"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SetTiltScroll: %w", err)
		}
		env.Data = data

	case Recalibrate:
		env.Type = "recalibrate"

	case SetRotation:
		env.Type = "set_rotation"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SetRotation: %w", err)
		}
		env.Data = data

	case SetPreference:
		env.Type = "set_preference"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SetPreference: %w", err)
		}
		env.Data = data

	case InjectAttitude:
		env.Type = "attitude"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal InjectAttitude: %w", err)
		}
		env.Data = data

	case ResetOffset:
		env.Type = "reset_offset"

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
