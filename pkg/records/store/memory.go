package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"mercator-hq/custodian/pkg/records"
)

// MemoryStore implements records.Store using in-memory maps.
// It is intended for tests and demos and should not be used in production.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[records.EntityType]map[string]*records.Record
	holds    map[string]*records.LegalHold
	archives []*records.ArchiveRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[records.EntityType]map[string]*records.Record),
		holds:   make(map[string]*records.LegalHold),
	}
}

// Get returns a copy of a single record.
func (s *MemoryStore) Get(ctx context.Context, entityType records.EntityType, id string) (*records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[entityType][id]
	if !ok {
		return nil, records.ErrNotFound
	}
	return r.Clone(), nil
}

// Query returns copies of records matching the filter, ordered by creation time.
func (s *MemoryStore) Query(ctx context.Context, entityType records.EntityType, filter *records.Filter) ([]*records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*records.Record{}
	for _, r := range s.records[entityType] {
		if filter.Matches(r) {
			results = append(results, r.Clone())
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.Before(results[j].CreatedAt)
		}
		return results[i].ID < results[j].ID
	})

	if filter != nil {
		results = paginate(results, filter.Offset, filter.Limit)
	}
	return results, nil
}

// Add inserts a copy of the record.
func (s *MemoryStore) Add(ctx context.Context, record *records.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := record.Clone()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if s.records[c.EntityType] == nil {
		s.records[c.EntityType] = make(map[string]*records.Record)
	}
	s.records[c.EntityType][c.ID] = c
	return c.ID, nil
}

// Update applies a partial update to a record.
func (s *MemoryStore) Update(ctx context.Context, entityType records.EntityType, id string, update *records.RecordUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[entityType][id]
	if !ok {
		return records.ErrNotFound
	}
	update.Apply(r)
	return nil
}

// Delete removes a record.
func (s *MemoryStore) Delete(ctx context.Context, entityType records.EntityType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[entityType][id]; !ok {
		return records.ErrNotFound
	}
	delete(s.records[entityType], id)
	return nil
}

// AddHold inserts a copy of the hold.
func (s *MemoryStore) AddHold(ctx context.Context, hold *records.LegalHold) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := hold.Clone()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.holds[c.ID] = c
	return c.ID, nil
}

// GetHold returns a copy of a hold.
func (s *MemoryStore) GetHold(ctx context.Context, id string) (*records.LegalHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holds[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	return h.Clone(), nil
}

// UpdateHold replaces a stored hold.
func (s *MemoryStore) UpdateHold(ctx context.Context, hold *records.LegalHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.holds[hold.ID]; !ok {
		return records.ErrNotFound
	}
	s.holds[hold.ID] = hold.Clone()
	return nil
}

// QueryHolds returns holds matching the filter, most recent start first.
func (s *MemoryStore) QueryHolds(ctx context.Context, filter *records.HoldFilter) ([]*records.LegalHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*records.LegalHold{}
	for _, h := range s.holds {
		if filter.Matches(h) {
			results = append(results, h.Clone())
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].StartDate.Equal(results[j].StartDate) {
			return results[i].StartDate.After(results[j].StartDate)
		}
		return results[i].ID < results[j].ID
	})

	if filter != nil && filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// AddArchive appends an archive record.
func (s *MemoryStore) AddArchive(ctx context.Context, archive *records.ArchiveRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *archive
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.archives = append(s.archives, &c)
	return c.ID, nil
}

// QueryArchives returns archive records matching the filter in insertion order.
func (s *MemoryStore) QueryArchives(ctx context.Context, filter *records.ArchiveFilter) ([]*records.ArchiveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*records.ArchiveRecord{}
	for _, a := range s.archives {
		if filter.Matches(a) {
			c := *a
			results = append(results, &c)
		}
	}
	if filter != nil && filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// Close releases resources held by the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[records.EntityType]map[string]*records.Record)
	s.holds = make(map[string]*records.LegalHold)
	s.archives = nil
	return nil
}

func paginate(results []*records.Record, offset, limit int) []*records.Record {
	if offset > len(results) {
		return []*records.Record{}
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}
