package sink

import (
	"context"
	"errors"
	"log/slog"

	"mercator-hq/custodian/pkg/audit"
)

// Multi appends every event to each of its sinks. The first sink is the
// primary: its id is returned and its failure fails the append. Failures of
// the other sinks are logged.
type Multi struct {
	sinks  []audit.Sink
	logger *slog.Logger
}

// NewMulti creates a fan-out sink. At least one sink is required.
func NewMulti(sinks ...audit.Sink) *Multi {
	return &Multi{
		sinks:  sinks,
		logger: slog.Default().With("component", "audit.sink.multi"),
	}
}

// Append writes the event to every sink.
func (m *Multi) Append(ctx context.Context, event *audit.Event) (string, error) {
	if len(m.sinks) == 0 {
		return "", audit.NewSinkError("multi", "append", errors.New("no sinks configured"))
	}

	id, err := m.sinks[0].Append(ctx, event)
	if err != nil {
		return "", err
	}

	for _, s := range m.sinks[1:] {
		if _, err := s.Append(ctx, event); err != nil {
			m.logger.Warn("secondary audit sink failed",
				"event_id", event.ID,
				"error", err,
			)
		}
	}
	return id, nil
}

// Query delegates to the first sink that supports queries.
func (m *Multi) Query(ctx context.Context, query *audit.Query) ([]*audit.Event, error) {
	for _, s := range m.sinks {
		if q, ok := s.(audit.Querier); ok {
			return q.Query(ctx, query)
		}
	}
	return nil, audit.NewSinkError("multi", "query", errors.New("no queryable sink configured"))
}

// Close closes every sink and returns the joined errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
