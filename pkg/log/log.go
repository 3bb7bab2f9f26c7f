// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the default logger for the process. Every record carries the
// service name, keeping API and runner logs distinguishable when both ship to
// the same sink. Unrecognized levels fall back to info.
func Setup(service, logLevel string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	slog.SetDefault(slog.New(handler).With("service", service))
}

// WithModule returns a logger scoped to one module of the service.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
