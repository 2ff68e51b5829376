package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names the audited operation.
type Action string

const (
	ActionArchive     Action = "retention.archive"
	ActionPurge       Action = "retention.purge"
	ActionNotify      Action = "retention.notify"
	ActionSweep       Action = "retention.sweep"
	ActionHoldPlace   Action = "legal_hold.place"
	ActionHoldRelease Action = "legal_hold.release"
	ActionHoldExpire  Action = "legal_hold.expire"
)

// Event is one audit trail entry.
type Event struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Action     Action         `json:"action"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	EntityName string         `json:"entity_name,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	ActorEmail string         `json:"actor_email,omitempty"`
	DryRun     bool           `json:"dry_run"`
	Details    map[string]any `json:"details,omitempty"`
}

// NewEvent creates an event with a fresh id and the current time.
func NewEvent(action Action) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Details:   map[string]any{},
	}
}

// Emitter sends audit events without reporting failure to the caller.
type Emitter interface {
	Emit(ctx context.Context, event *Event)
}

// Sink durably appends audit events.
type Sink interface {
	// Append stores the event and returns its id.
	Append(ctx context.Context, event *Event) (string, error)

	// Close releases resources held by the sink.
	Close() error
}

// Querier is implemented by sinks that can read their events back.
type Querier interface {
	Query(ctx context.Context, query *Query) ([]*Event, error)
}

// Query filters audit events. Zero values place no restriction.
type Query struct {
	Actions    []Action
	EntityType string
	EntityID   string
	ActorID    string
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int
}

// Matches reports whether e satisfies the query, ignoring the limit.
func (q *Query) Matches(e *Event) bool {
	if q == nil {
		return true
	}
	if len(q.Actions) > 0 {
		found := false
		for _, a := range q.Actions {
			if a == e.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.EntityType != "" && e.EntityType != q.EntityType {
		return false
	}
	if q.EntityID != "" && e.EntityID != q.EntityID {
		return false
	}
	if q.ActorID != "" && e.ActorID != q.ActorID {
		return false
	}
	if q.StartTime != nil && e.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && e.Timestamp.After(*q.EndTime) {
		return false
	}
	return true
}

// Nop is an Emitter that discards every event.
type Nop struct{}

// Emit discards the event.
func (Nop) Emit(context.Context, *Event) {}
