package sink

import (
	"context"
	"log/slog"

	"mercator-hq/custodian/pkg/audit"
)

// Log writes every event to the structured logger at info level.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a sink that logs through slog.Default.
func NewLog() *Log {
	return &Log{logger: slog.Default().With("component", "audit.sink.log")}
}

// Append logs the event.
func (l *Log) Append(ctx context.Context, event *audit.Event) (string, error) {
	l.logger.InfoContext(ctx, "audit event",
		"event_id", event.ID,
		"action", event.Action,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"entity_name", event.EntityName,
		"actor_id", event.ActorID,
		"actor_email", event.ActorEmail,
		"dry_run", event.DryRun,
		"details", event.Details,
	)
	return event.ID, nil
}

// Close is a no-op.
func (l *Log) Close() error {
	return nil
}
