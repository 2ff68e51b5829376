package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/custodian/pkg/legalhold"
	"mercator-hq/custodian/pkg/records"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// PolicySource supplies the current retention policies.
type PolicySource interface {
	// Policies returns the active policies ordered by SortPolicies.
	Policies() []*Policy

	// Policy returns a policy by id.
	Policy(id string) (*Policy, bool)
}

// HoldIndexer snapshots the holds in force.
type HoldIndexer interface {
	Index(ctx context.Context) (*legalhold.Index, error)
}

// StaticPolicies is a fixed PolicySource.
type StaticPolicies struct {
	sorted []*Policy
	byID   map[string]*Policy
}

// NewStaticPolicies sorts a copy of policies and indexes them by id.
func NewStaticPolicies(policies ...*Policy) *StaticPolicies {
	s := &StaticPolicies{byID: make(map[string]*Policy, len(policies))}
	for _, p := range policies {
		s.byID[p.ID] = p
		if p.IsActive {
			s.sorted = append(s.sorted, p)
		}
	}
	SortPolicies(s.sorted)
	return s
}

// Policies implements PolicySource.
func (s *StaticPolicies) Policies() []*Policy {
	return s.sorted
}

// Policy implements PolicySource.
func (s *StaticPolicies) Policy(id string) (*Policy, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// Schedule is the result of one build. Errors holds per-type fetch
// failures that did not stop the build.
type Schedule struct {
	Entries     []*ScheduleEntry
	Errors      []error
	GeneratedAt time.Time
}

// ExpiringWithin returns non-held entries expiring in 0 to days days.
func (s *Schedule) ExpiringWithin(days int) []*ScheduleEntry {
	var out []*ScheduleEntry
	for _, e := range s.Entries {
		if e.IsOnLegalHold || e.Indefinite() {
			continue
		}
		if e.DaysUntilExpiry >= 0 && e.DaysUntilExpiry <= days {
			out = append(out, e)
		}
	}
	return out
}

// Expired returns non-held expired entries in schedule order.
func (s *Schedule) Expired() []*ScheduleEntry {
	var out []*ScheduleEntry
	for _, e := range s.Entries {
		if e.IsExpired && !e.IsOnLegalHold {
			out = append(out, e)
		}
	}
	return out
}

// Due returns every expired entry, held or not. Sweeps walk this set so
// held records are counted as skipped.
func (s *Schedule) Due() []*ScheduleEntry {
	var out []*ScheduleEntry
	for _, e := range s.Entries {
		if e.IsExpired {
			out = append(out, e)
		}
	}
	return out
}

// CountByAction tallies entries per ActionRequired label.
func (s *Schedule) CountByAction() map[string]int {
	counts := make(map[string]int)
	for _, e := range s.Entries {
		counts[e.ActionRequired]++
	}
	return counts
}

// Builder assembles retention schedules.
type Builder struct {
	store      records.RecordStore
	holds      HoldIndexer
	policies   PolicySource
	calc       *Calculator
	matcher    *Matcher
	observer   Observer
	fetchLimit int
	logger     *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithFetchConcurrency bounds concurrent store reads during Generate.
// Default: 3
func WithFetchConcurrency(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.fetchLimit = n
		}
	}
}

// WithBuilderObserver reports every generated schedule to o.
func WithBuilderObserver(o Observer) BuilderOption {
	return func(b *Builder) {
		b.observer = o
	}
}

// NewBuilder creates a schedule builder.
func NewBuilder(store records.RecordStore, holds HoldIndexer, policies PolicySource, calc *Calculator, opts ...BuilderOption) *Builder {
	b := &Builder{
		store:      store,
		holds:      holds,
		policies:   policies,
		calc:       calc,
		matcher:    NewMatcher(),
		observer:   nopObserver{},
		fetchLimit: 3,
		logger:     slog.Default().With("component", "retention.builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Generate fetches every governed record and the hold index, then builds
// the schedule. A failed record fetch for one entity type is reported in
// Schedule.Errors; a failed hold fetch fails the whole build.
func (b *Builder) Generate(ctx context.Context) (_ *Schedule, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "retention.schedule")
	defer func() { tracing.End(span, err) }()

	var (
		mu       sync.Mutex
		fetched  []*records.Record
		fetchErr []error
		index    *legalhold.Index
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.fetchLimit)

	g.Go(func() error {
		ix, err := b.holds.Index(gctx)
		if err != nil {
			return fmt.Errorf("fetch legal holds: %w", err)
		}
		index = ix
		return nil
	})

	for _, t := range records.GovernedTypes {
		g.Go(func() error {
			recs, err := b.store.Query(gctx, t, &records.Filter{})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logger.Error("failed to fetch records",
					"entity_type", t,
					"error", err,
				)
				fetchErr = append(fetchErr, fmt.Errorf("fetch %s records: %w", t, err))
				return nil
			}
			fetched = append(fetched, recs...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sched := b.Build(fetched, index)
	sched.Errors = append(sched.Errors, fetchErr...)
	span.SetAttributes(
		tracing.AttrEntries.Int(len(sched.Entries)),
		tracing.AttrFetchError.Int(len(fetchErr)),
	)

	b.logger.Info("retention schedule generated",
		"records", len(fetched),
		"entries", len(sched.Entries),
		"expired", len(sched.Expired()),
		"held", index.Len(),
		"errors", len(sched.Errors),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	b.observer.ScheduleBuilt(sched)
	return sched, nil
}

// Build computes entries for recs against the given hold index. It does
// no I/O.
func (b *Builder) Build(recs []*records.Record, index *legalhold.Index) *Schedule {
	policies := b.policies.Policies()
	sched := &Schedule{
		Entries:     make([]*ScheduleEntry, 0, len(recs)),
		GeneratedAt: b.calc.Now(),
	}

	for _, r := range recs {
		if e := b.entry(r, policies, index); e != nil {
			sched.Entries = append(sched.Entries, e)
		}
	}
	SortEntries(sched.Entries)
	return sched
}

func (b *Builder) entry(r *records.Record, policies []*Policy, index *legalhold.Index) *ScheduleEntry {
	p := b.matcher.Match(r.EntityType, r, policies)
	if p == nil {
		return nil
	}

	period, ok := b.calc.PeriodFor(p)
	if !ok {
		b.logger.Warn("policy has no effective period, skipping record",
			"policy_id", p.ID,
			"entity_type", r.EntityType,
			"entity_id", r.ID,
		)
		return nil
	}

	start := b.calc.ComputeStart(r, p.RetentionStartEvent)
	expiry := b.calc.ComputeExpiry(start, period)
	countdown := b.calc.DaysUntil(expiry)

	var (
		onHold bool
		reason string
	)
	if h, held := index.Lookup(r.EntityType, r.ID); held && p.ExcludeOnLegalHold {
		onHold = true
		reason = h.Reason
	}

	return &ScheduleEntry{
		EntityType:          r.EntityType,
		EntityID:            r.ID,
		EntityName:          r.Name,
		PolicyID:            p.ID,
		PolicyName:          p.Name,
		RetentionCategory:   p.RetentionCategory,
		RetentionPeriodDays: period,
		CreatedAt:           r.CreatedAt,
		RetentionStartDate:  start,
		RetentionExpiryDate: expiry,
		DaysUntilExpiry:     countdown.Reported(),
		IsExpired:           countdown.Expired(),
		IsOnLegalHold:       onHold,
		LegalHoldReason:     reason,
		IsArchived:          r.IsArchived,
		ActionRequired:      Resolve(countdown, onHold, p),
	}
}

// SortEntries orders entries by days remaining with indefinite entries
// last. Ties go to the earlier expiry, then entity type, then id.
func SortEntries(entries []*ScheduleEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Indefinite() != b.Indefinite() {
			return b.Indefinite()
		}
		if !a.Indefinite() {
			if a.DaysUntilExpiry != b.DaysUntilExpiry {
				return a.DaysUntilExpiry < b.DaysUntilExpiry
			}
			if !a.RetentionExpiryDate.Equal(*b.RetentionExpiryDate) {
				return a.RetentionExpiryDate.Before(*b.RetentionExpiryDate)
			}
		}
		if a.EntityType != b.EntityType {
			return a.EntityType < b.EntityType
		}
		return a.EntityID < b.EntityID
	})
}
