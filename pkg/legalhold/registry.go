package legalhold

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/custodian/pkg/records"
)

// Registry reads holds from the store. It keeps no state of its own.
type Registry struct {
	store  records.HoldStore
	now    func() time.Time
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryClock overrides the time source used for end-date checks.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a registry over store.
func NewRegistry(store records.HoldStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:  store,
		now:    time.Now,
		logger: slog.Default().With("component", "legalhold.registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Holding reports whether h currently suspends retention on its target.
func Holding(h *records.LegalHold, now time.Time) bool {
	if h.Status != records.HoldActive {
		return false
	}
	return h.EndDate == nil || now.Before(*h.EndDate)
}

// ActiveHolds returns the holds currently in force, most recent start first.
func (r *Registry) ActiveHolds(ctx context.Context) ([]*records.LegalHold, error) {
	holds, err := r.store.QueryHolds(ctx, &records.HoldFilter{Status: records.HoldActive})
	if err != nil {
		return nil, err
	}

	now := r.now()
	active := holds[:0]
	for _, h := range holds {
		if Holding(h, now) {
			active = append(active, h)
		}
	}
	return active, nil
}

// IsHeld reports whether the record has a hold in force.
func (r *Registry) IsHeld(ctx context.Context, entityType records.EntityType, id string) (bool, error) {
	_, held, err := r.Lookup(ctx, entityType, id)
	return held, err
}

// Lookup returns the most recent hold in force on the record.
func (r *Registry) Lookup(ctx context.Context, entityType records.EntityType, id string) (*records.LegalHold, bool, error) {
	holds, err := r.store.QueryHolds(ctx, &records.HoldFilter{
		EntityType: entityType,
		EntityID:   id,
		Status:     records.HoldActive,
	})
	if err != nil {
		return nil, false, err
	}

	now := r.now()
	for _, h := range holds {
		if Holding(h, now) {
			return h, true, nil
		}
	}
	return nil, false, nil
}

// Index snapshots the holds in force for constant-time lookups during a
// schedule build.
func (r *Registry) Index(ctx context.Context) (*Index, error) {
	holds, err := r.ActiveHolds(ctx)
	if err != nil {
		return nil, err
	}
	ix := NewIndex(holds)
	r.logger.Debug("hold index built", "active_holds", ix.Len())
	return ix, nil
}

type holdKey struct {
	entityType records.EntityType
	id         string
}

// Index is an immutable snapshot of holds keyed by target.
type Index struct {
	holds map[holdKey]*records.LegalHold
}

// NewIndex builds an index from holds. When a target has several holds the
// first one wins, so callers pass holds most recent first.
func NewIndex(holds []*records.LegalHold) *Index {
	ix := &Index{holds: make(map[holdKey]*records.LegalHold, len(holds))}
	for _, h := range holds {
		k := holdKey{h.EntityType, h.EntityID}
		if _, ok := ix.holds[k]; !ok {
			ix.holds[k] = h
		}
	}
	return ix
}

// Lookup returns the hold on the record, if any.
func (ix *Index) Lookup(entityType records.EntityType, id string) (*records.LegalHold, bool) {
	if ix == nil {
		return nil, false
	}
	h, ok := ix.holds[holdKey{entityType, id}]
	return h, ok
}

// IsHeld reports whether the record is held.
func (ix *Index) IsHeld(entityType records.EntityType, id string) bool {
	_, ok := ix.Lookup(entityType, id)
	return ok
}

// Len returns the number of held records.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.holds)
}
