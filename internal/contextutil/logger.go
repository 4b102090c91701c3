package contextutil

import (
	"context"
	"log/slog"
)

type contextKey string

const loggerKey contextKey = "logger"

// LoggerFromContext extracts a logger from context if available, otherwise returns the default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctxLogger := ctx.Value(loggerKey); ctxLogger != nil {
		if l, ok := ctxLogger.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerOr returns the logger carried by ctx. Without one it returns l, or
// the default logger when l is nil.
func LoggerOr(ctx context.Context, l *slog.Logger) *slog.Logger {
	if carried, ok := ctx.Value(loggerKey).(*slog.Logger); ok && carried != nil {
		return carried
	}
	if l != nil {
		return l
	}
	return slog.Default()
}
