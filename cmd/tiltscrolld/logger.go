package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogLevel is a configured verbosity.
type LogLevel string

const (
	LogLevelError LogLevel = "error"
	LogLevelWarn  LogLevel = "warn"
	LogLevelInfo  LogLevel = "info"
	LogLevelDebug LogLevel = "debug"
)

// parseLogLevel accepts the level names case-insensitively ("warning" too).
func parseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	default:
		return "", fmt.Errorf("invalid log level: %s (must be error, warn, info, or debug)", level)
	}
}

// Slog maps the level onto slog. Unknown values log at info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Log output formats.
const (
	logFormatText = "text"
	logFormatJSON = "json"
)

func validLogFormat(format string) bool {
	return format == logFormatText || format == logFormatJSON
}

// setupLogger builds the process logger. Debug level adds source locations,
// which helps when following a sample from a source to the scroll timer.
func setupLogger(w io.Writer, level LogLevel, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level.Slog(),
		AddSource: level == LogLevelDebug,
	}

	var handler slog.Handler
	if format == logFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
