// Package ctxlog carries a *slog.Logger through context.Context.
package ctxlog

import (
	"context"
	"io"
	"log/slog"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

var loggerKey = key{}

// Discard drops every record.
var Discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Ensure returns ctx unchanged when it already carries a logger, and ctx
// with fallback otherwise.
func Ensure(ctx context.Context, fallback *slog.Logger) context.Context {
	if _, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return ctx
	}

	if fallback == nil {
		fallback = slog.Default()
	}

	return WithLogger(ctx, fallback)
}

// FromContext extracts the logger from ctx. It panics when there is none;
// entry points install one with Ensure.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}

	panic("ctxlog: logger missing from context")
}
