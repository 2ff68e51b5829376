package sink

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"mercator-hq/custodian/pkg/audit"
)

// Memory keeps events in a slice. It is intended for tests and demos.
type Memory struct {
	mu     sync.RWMutex
	events []*audit.Event
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Append stores a copy of the event.
func (m *Memory) Append(ctx context.Context, event *audit.Event) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := copyEvent(event)
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	m.events = append(m.events, c)
	return c.ID, nil
}

// Events returns copies of all events in append order.
func (m *Memory) Events() []*audit.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*audit.Event, len(m.events))
	for i, e := range m.events {
		out[i] = copyEvent(e)
	}
	return out
}

// Query returns matching events, newest first.
func (m *Memory) Query(ctx context.Context, query *audit.Query) ([]*audit.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := []*audit.Event{}
	for _, e := range m.events {
		if query.Matches(e) {
			results = append(results, copyEvent(e))
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	if query != nil && query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// Close discards all events.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
	return nil
}

func copyEvent(e *audit.Event) *audit.Event {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}
