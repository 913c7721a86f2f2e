// Package logging defines the structured-logging interface used across the
// tracker. The default implementation wraps log/slog.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "route synced", "language", lang, "destinations", n)
type Logger interface {
	// Debug logs high-volume diagnostics (cache hits, skipped work).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs state transitions and completed sync cycles.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs recoverable failures such as a failed fetch served from cache.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures that abort an operation.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
