package retention

import (
	"context"
	"sync"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/actor"
	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/recorder"
	"mercator-hq/custodian/pkg/audit/sink"
	"mercator-hq/custodian/pkg/legalhold"
	"mercator-hq/custodian/pkg/notify"
	"mercator-hq/custodian/pkg/records"
	"mercator-hq/custodian/pkg/records/store"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func intPtr(v int) *int { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// countingStore records every mutation issued against the wrapped store.
type countingStore struct {
	records.Store

	mu    sync.Mutex
	calls []string
}

func (c *countingStore) record(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, op)
}

func (c *countingStore) mutations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *countingStore) Update(ctx context.Context, t records.EntityType, id string, u *records.RecordUpdate) error {
	c.record("update:" + id)
	return c.Store.Update(ctx, t, id, u)
}

func (c *countingStore) Delete(ctx context.Context, t records.EntityType, id string) error {
	c.record("delete:" + id)
	return c.Store.Delete(ctx, t, id)
}

func (c *countingStore) AddArchive(ctx context.Context, a *records.ArchiveRecord) (string, error) {
	c.record("archive:" + a.OriginalID)
	return c.Store.AddArchive(ctx, a)
}

type engine struct {
	ctx      context.Context
	store    *countingStore
	registry *legalhold.Registry
	holds    *legalhold.Manager
	builder  *Builder
	executor *Executor
	events   *sink.Memory
	notifier *notify.Recording
}

func newEngine(t *testing.T, policies []*Policy, recs []*records.Record) *engine {
	t.Helper()

	ctx := context.Background()
	cs := &countingStore{Store: store.NewMemoryStore()}
	for _, r := range recs {
		if _, err := cs.Store.Add(ctx, r); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}

	events := sink.NewMemory()
	rec := recorder.NewRecorder(events, &recorder.Config{Enabled: true})
	t.Cleanup(func() { rec.Close() })

	calc := NewCalculator(WithClock(fixedClock))
	for _, p := range policies {
		if err := p.Validate(calc); err != nil {
			t.Fatalf("Validate(%s) failed: %v", p.ID, err)
		}
	}
	source := NewStaticPolicies(policies...)

	registry := legalhold.NewRegistry(cs, legalhold.WithRegistryClock(fixedClock))
	builder := NewBuilder(cs, registry, source, calc)
	notifier := &notify.Recording{}
	executor := NewExecutor(cs, builder, registry, source,
		WithEmitter(rec),
		WithNotifier(notifier),
		WithExecutorClock(fixedClock),
	)
	holds := legalhold.NewManager(cs, registry,
		legalhold.WithEmitter(audit.Nop{}),
		legalhold.WithActorResolver(actor.Static{Actor: actor.Actor{ID: "u-legal"}}),
		legalhold.WithClock(fixedClock),
	)

	return &engine{
		ctx:      ctx,
		store:    cs,
		registry: registry,
		holds:    holds,
		builder:  builder,
		executor: executor,
		events:   events,
		notifier: notifier,
	}
}

func (e *engine) hold(t *testing.T, entityType records.EntityType, ids ...string) {
	t.Helper()
	if _, err := e.holds.PlaceHold(e.ctx, &legalhold.PlaceRequest{
		EntityType: entityType,
		EntityIDs:  ids,
		Reason:     "Litigation",
	}); err != nil {
		t.Fatalf("PlaceHold() failed: %v", err)
	}
}

func (e *engine) schedule(t *testing.T) *Schedule {
	t.Helper()
	s, err := e.builder.Generate(e.ctx)
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	return s
}

func policyRecord(id string, created time.Time) *records.Record {
	return &records.Record{
		EntityType: records.EntityPolicy,
		ID:         id,
		Name:       "Policy " + id,
		Status:     records.StatusPublished,
		CreatedAt:  created,
	}
}

func ackRecord(id string, created time.Time) *records.Record {
	return &records.Record{
		EntityType: records.EntityAcknowledgement,
		ID:         id,
		Name:       "Acknowledgement " + id,
		Status:     records.StatusAcknowledged,
		CreatedAt:  created,
	}
}

func basePolicy(id string, scope Scope, action ExpiryAction, days int) *Policy {
	return &Policy{
		ID:                  id,
		Name:                "Policy " + id,
		AppliesTo:           scope,
		RetentionCategory:   CategoryStandard,
		RetentionPeriodDays: intPtr(days),
		RetentionStartEvent: StartCreated,
		ActionOnExpiry:      action,
		ExcludeOnLegalHold:  true,
		IsActive:            true,
	}
}
