// Package logging builds the root slog.Logger every binary starts
// from. Grounded on the teacher's use of log/slog throughout cmd/cmd.go
// and bridged into OpenTelemetry via otelslog, matching webitel's
// go.opentelemetry.io/contrib/bridges/otelslog dependency.
package logging

import (
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// New builds the root logger for serviceName. Records are written as
// JSON to stdout and mirrored into the active OpenTelemetry logs
// pipeline so trace/span ids ride along when a span is active. level
// is consulted on every record, so mutating it (via Set) changes the
// logger's verbosity without rebuilding it.
func New(serviceName string, level *slog.LevelVar) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	otelHandler := otelslog.NewHandler(serviceName)

	logger := slog.New(fanoutHandler{handlers: []slog.Handler{handler, otelHandler}})
	return logger.With(slog.String("service", serviceName))
}

// NewLevelVar builds a LevelVar seeded from the config's log_level
// string, ready to be handed to New and later mutated by a
// config.Reloader's onChange callback.
func NewLevelVar(level string) *slog.LevelVar {
	lv := &slog.LevelVar{}
	lv.Set(ParseLevel(level))
	return lv
}

// ParseLevel maps the config's log_level string onto a slog.Level.
func ParseLevel(level string) slog.Level {
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
