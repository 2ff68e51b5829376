package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// SweepIDKey is the context key for retention sweep IDs.
	SweepIDKey contextKey = "sweep_id"

	// OperationKey is the context key for the operation being performed,
	// e.g. "retention.sweep" or "legal_hold.place".
	OperationKey contextKey = "operation"

	// ActorKey is the context key for the acting user's ID.
	ActorKey contextKey = "actor"
)

// WithSweepID adds a sweep ID to the context.
func WithSweepID(ctx context.Context, sweepID string) context.Context {
	return context.WithValue(ctx, SweepIDKey, sweepID)
}

// GetSweepID retrieves the sweep ID from the context.
func GetSweepID(ctx context.Context) string {
	return stringValue(ctx, SweepIDKey)
}

// WithOperation adds an operation name to the context.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, OperationKey, op)
}

// GetOperation retrieves the operation name from the context.
func GetOperation(ctx context.Context) string {
	return stringValue(ctx, OperationKey)
}

// WithActor adds an actor ID to the context.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorKey, actorID)
}

// GetActor retrieves the actor ID from the context.
func GetActor(ctx context.Context) string {
	return stringValue(ctx, ActorKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextAttrs extracts the log fields stored in ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if v := GetSweepID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(SweepIDKey), v))
	}
	if v := GetOperation(ctx); v != "" {
		attrs = append(attrs, slog.String(string(OperationKey), v))
	}
	if v := GetActor(ctx); v != "" {
		attrs = append(attrs, slog.String(string(ActorKey), v))
	}
	return attrs
}
