package main

import (
	"log/slog"
)

// effectDeps are the external systems commands act on.
type effectDeps struct {
	feed *SensorFeed

	// publisher is nil when decision publishing is not configured.
	publisher DecisionPublisher

	session string
}

// runEffect executes a single reducer-emitted Command.
//
// It may perform I/O but must never call Reduce() directly; the daemon loop
// owns sequencing.
func runEffect(deps effectDeps, cmd Command, logger *slog.Logger) {
	switch c := cmd.(type) {
	case CmdConnectSensors:
		deps.feed.Connect()

	case CmdDisconnectSensors:
		deps.feed.Disconnect()

	case CmdSetRotation:
		deps.feed.SetRotation(c.Rotation)
		logger.Debug("display rotation changed", "rotation", c.Rotation.String())

	case CmdDeliverSample:
		if !deps.feed.DeliverSample(c.Sample) {
			logger.Debug("injected attitude dropped (sensor feed disconnected)")
		}

	case CmdPublishDecision:
		if deps.publisher == nil {
			return
		}
		msg := DecisionMessage{
			Session:  deps.session,
			Offset:   c.Offset,
			Decision: c.Decision,
			At:       c.At,
		}
		if err := deps.publisher.PublishDecision(msg); err != nil {
			logger.Warn("decision publish failed", "error", err)
		}

	case CmdPublishStateSnapshot:
		// Keep the reducer pure by moving the channel send into the effects layer.
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}

		snap := c.Snapshot
		snap.Session = deps.session
		snap.Feed = deps.feed.Stats()

		// Never block the daemon loop.
		select {
		case c.Reply <- snap:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
	}
}
