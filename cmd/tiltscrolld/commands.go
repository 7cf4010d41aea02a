package main

import (
	"fmt"
	"time"

	"tiltscroll/internal/tilt"
)

// ==============================
// Commands (side effects)
// ==============================

// Command represents a side effect to be executed by the daemon loop:
// sensor feed control, MQTT publishing and snapshot delivery.
type Command interface {
	commandMarker()
	String() string
}

// CmdConnectSensors starts forwarding orientation samples to the estimator.
type CmdConnectSensors struct{}

func (CmdConnectSensors) commandMarker() {}
func (CmdConnectSensors) String() string { return "CmdConnectSensors()" }

// CmdDisconnectSensors stops forwarding orientation samples.
type CmdDisconnectSensors struct{}

func (CmdDisconnectSensors) commandMarker() {}
func (CmdDisconnectSensors) String() string { return "CmdDisconnectSensors()" }

// CmdSetRotation updates the rotation the feed pairs with new samples.
type CmdSetRotation struct {
	Rotation tilt.Rotation
}

func (CmdSetRotation) commandMarker() {}
func (c CmdSetRotation) String() string {
	return fmt.Sprintf("CmdSetRotation(rotation=%d)", int(c.Rotation))
}

// CmdDeliverSample pushes an injected sample through the feed.
type CmdDeliverSample struct {
	Sample tilt.Sample
}

func (CmdDeliverSample) commandMarker() {}
func (c CmdDeliverSample) String() string {
	return fmt.Sprintf("CmdDeliverSample(azimuth=%.1f pitch=%.1f roll=%.1f)", c.Sample[0], c.Sample[1], c.Sample[2])
}

// CmdPublishDecision publishes an applied scroll decision.
type CmdPublishDecision struct {
	Decision tilt.Decision
	Offset   int
	At       time.Time
}

func (CmdPublishDecision) commandMarker() {}
func (c CmdPublishDecision) String() string {
	return fmt.Sprintf("CmdPublishDecision(offset=%d forward=%v delay_ms=%d)", c.Offset, c.Decision.Forward, c.Decision.DelayMS)
}

// CmdPublishStateSnapshot delivers a reducer-produced snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
