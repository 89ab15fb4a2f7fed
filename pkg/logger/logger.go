// Package logger builds the process-wide slog logger. Logs always go to
// stderr so CLI output (captured records on stdout) stays machine-readable.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a logger at the given level using the given format ("json" or
// "text"). Unknown values fall back to info and json.
func New(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
