package main

import (
	"context"
	"log/slog"
	"time"

	"tiltscroll/internal/tilt"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// The loop is the only owner of DaemonState and the only caller of the
// estimator's control operations. It:
//   - Receives Events from IPC, HTTP and start-up code
//   - Fires the scroll timer, re-armed after each tick with the decision's delay
//   - Reduces events into (state, commands, broadcasts)
//   - Executes commands and forwards broadcasts to the websocket broadcaster
//
// ============================================================================

// runDaemon runs until ctx is canceled or events is closed.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	ctl Controls,
	deps effectDeps,
	state *DaemonState,
	broadcasts chan<- StateBroadcast,
	minTick time.Duration,
	logger *slog.Logger,
) {
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}
	if minTick <= 0 {
		minTick = time.Duration(defaultMinTickMS) * time.Millisecond
	}

	timer := time.NewTimer(minTick)
	defer timer.Stop()

	apply := func(ev Event) ReduceResult {
		rr := Reduce(state, ev, ctl)
		if rr.State != nil {
			state = rr.State
		}
		for _, cmd := range rr.Commands {
			logger.Debug("running command", "command", cmd.String())
			runEffect(deps, cmd, logger)
		}
		for _, b := range rr.Broadcasts {
			publishBroadcast(broadcasts, b, logger)
		}
		return rr
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			if rr := apply(ev); rr.Reschedule {
				timer.Reset(minTick)
			}

		case now := <-timer.C:
			apply(ScrollTick{Now: now})
			timer.Reset(nextTickDelay(state.LastDecision, minTick))
		}
	}
}

// nextTickDelay returns the decision's delay, floored at minTick.
func nextTickDelay(d tilt.Decision, minTick time.Duration) time.Duration {
	return max(d.Delay(), minTick)
}

// publishBroadcast never blocks the daemon loop; a full queue drops the broadcast.
func publishBroadcast(ch chan<- StateBroadcast, b StateBroadcast, logger *slog.Logger) {
	if ch == nil {
		return
	}
	select {
	case ch <- b:
	default:
		logger.Debug("broadcast queue full, dropping", "type", broadcastType(b))
	}
}
