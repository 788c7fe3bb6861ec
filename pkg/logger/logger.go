// Package logger provides the application's slog construction and the
// shared attribute helpers used across services.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
)

// Module provides the root logger.
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
)

// NewLogger creates the root slog.Logger. The level is taken from LOG_LEVEL
// (debug/info/warn/error, case-insensitive, defaulting to info). When GO_ENV
// is "production" a JSON handler is used; otherwise a text handler.
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("GO_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// Scope returns the "scope" attribute identifying the component that emitted
// a log record, e.g. logger.Scope("repository.svc").
func Scope(scope string) slog.Attr {
	return slog.String("scope", scope)
}

// Error returns the standard "error" attribute.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}
