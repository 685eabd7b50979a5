// Package logging provides structured logging configuration using log/slog.
//
// Export and import runs attach an operation logger to their context with
// WithOperation, so every entry written during a run carries the operation
// name and id.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
)

// Setup configures the global slog logger based on level and format and
// writes to stderr, leaving stdout to command output.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json", "color" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stderr, level, format))
}

// New builds a logger without installing it.
func New(w io.Writer, level, format string) *slog.Logger {
	lvl := parseLevel(level)

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	case "color":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(handler)
}

// parseLevel converts a string log level to slog.Level.
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

type ctxKey struct{}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithOperation derives an operation logger from the one in ctx and stores
// it back, tagging entries with op and operation_id.
func WithOperation(ctx context.Context, op string, id uuid.UUID) context.Context {
	return WithLogger(ctx, FromContext(ctx).With("op", op, "operation_id", id.String()))
}

// FromContext returns the logger stored in ctx, or the default logger.
//
// Usage:
//
//	logger := logging.FromContext(ctx)
//	logger.Warn("photo skipped", "file", name, "reason", err)
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	sectionLogger := logging.WithFields(ctx, "file", "inventory.csv")
//	sectionLogger.Debug("section read", "rows", n)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
