// Package logging defines the structured-logging interface used across the
// project and a log/slog backed implementation.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "user registered", "user_id", id)
//
// Secrets (passwords, access or refresh tokens, request bodies) must never be
// passed as values; use Redact when a token needs to be correlated in logs.
type Logger interface {
	// Debug logs diagnostic detail, disabled in production.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Redact returns a log-safe stand-in for a secret value: the first four
// characters followed by a fixed mask. Short values are fully masked.
func Redact(secret string) string {
	const mask = "[REDACTED]"
	if len(secret) <= 8 {
		return mask
	}
	return secret[:4] + "…" + mask
}
