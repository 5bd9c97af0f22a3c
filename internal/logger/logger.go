package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a structured JSON logger tagged with the service name.
func New(level, service string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, service)
}

// NewWithWriter is New with an explicit destination, mainly for tests.
func NewWithWriter(w io.Writer, level, service string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	log := slog.New(slog.NewJSONHandler(w, opts))
	if service != "" {
		log = log.With("service", service)
	}
	return log
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
