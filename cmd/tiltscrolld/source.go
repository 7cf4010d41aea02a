package main

import (
	"context"
	"log/slog"
	"time"

	"tiltscroll/internal/orientation"
)

// runPoseSource polls src every interval while the feed is connected.
func runPoseSource(ctx context.Context, name string, src orientation.Source, interval time.Duration, feed *SensorFeed, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("orientation source started", "source", name, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !feed.Connected() {
				continue
			}
			p, err := src.Next()
			if err != nil {
				logger.Warn("orientation source read failed", "source", name, "error", err)
				continue
			}
			feed.DeliverPose(p)
		}
	}
}
