package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/legalhold"
	"mercator-hq/custodian/pkg/records"
)

func TestBuilder_NoMatchingPolicyProducesNoEntry(t *testing.T) {
	e := newEngine(t,
		[]*Policy{basePolicy("acks", ScopeAcknowledgement, ActionDelete, 30)},
		[]*records.Record{policyRecord("p1", date(2010, 1, 1))},
	)

	s := e.schedule(t)
	if len(s.Entries) != 0 {
		t.Errorf("got %d entries, want 0", len(s.Entries))
	}
}

// A Regulatory record created 2016-01-01 expired on 2022-12-30.
func TestBuilder_RegulatoryExpired(t *testing.T) {
	p := basePolicy("regulatory-7y", ScopePolicy, ActionArchive, 2555)
	p.RetentionCategory = CategoryRegulatory

	e := newEngine(t, []*Policy{p}, []*records.Record{policyRecord("p1", date(2016, 1, 1))})
	s := e.schedule(t)

	if len(s.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(s.Entries))
	}
	entry := s.Entries[0]
	if !entry.RetentionExpiryDate.Equal(date(2022, 12, 30)) {
		t.Errorf("expiry = %v, want 2022-12-30", entry.RetentionExpiryDate)
	}
	if !entry.IsExpired || entry.ActionRequired != "Archive" {
		t.Errorf("entry = %+v", entry)
	}
	if len(s.Expired()) != 1 {
		t.Errorf("Expired() = %d entries, want 1", len(s.Expired()))
	}
}

// A held record reports the hold and leaves both derived
// sets regardless of its countdown.
func TestBuilder_HoldPrecedence(t *testing.T) {
	p := basePolicy("short", ScopePolicy, ActionArchive, 30)
	p.NotifyBeforeDays = intPtr(400)

	e := newEngine(t, []*Policy{p}, []*records.Record{
		policyRecord("expired", date(2016, 1, 1)),
		policyRecord("expiring", testNow.AddDate(0, 0, -20)),
	})
	e.hold(t, records.EntityPolicy, "expired", "expiring")

	s := e.schedule(t)
	for _, entry := range s.Entries {
		if !entry.IsOnLegalHold || entry.ActionRequired != LabelOnLegalHold || entry.LegalHoldReason != "Litigation" {
			t.Errorf("entry %s = %+v", entry.EntityID, entry)
		}
	}
	if n := len(s.Expired()); n != 0 {
		t.Errorf("Expired() = %d entries, want 0", n)
	}
	for _, days := range []int{0, 10, 365, 100000} {
		if n := len(s.ExpiringWithin(days)); n != 0 {
			t.Errorf("ExpiringWithin(%d) = %d entries, want 0", days, n)
		}
	}
}

func TestBuilder_HoldIgnoredWhenPolicyOptsOut(t *testing.T) {
	p := basePolicy("ignore-holds", ScopePolicy, ActionArchive, 30)
	p.ExcludeOnLegalHold = false

	e := newEngine(t, []*Policy{p}, []*records.Record{policyRecord("p1", date(2016, 1, 1))})
	e.hold(t, records.EntityPolicy, "p1")

	s := e.schedule(t)
	if len(s.Expired()) != 1 || s.Entries[0].IsOnLegalHold {
		t.Errorf("entries = %+v", s.Entries)
	}
}

// Permanent retention never expires.
func TestBuilder_PermanentRetention(t *testing.T) {
	p := basePolicy("forever", ScopePolicy, ActionDelete, 1)
	p.RetentionCategory = CategoryPermanent
	p.RetentionPeriodDays = nil

	e := newEngine(t, []*Policy{p}, []*records.Record{policyRecord("p1", date(1990, 1, 1))})
	s := e.schedule(t)

	entry := s.Entries[0]
	if entry.DaysUntilExpiry != IndefiniteDaysRemaining || entry.RetentionExpiryDate != nil || entry.IsExpired {
		t.Errorf("entry = %+v", entry)
	}
	if entry.ActionRequired != LabelPermanent {
		t.Errorf("ActionRequired = %q", entry.ActionRequired)
	}
	if len(s.Expired()) != 0 || len(s.ExpiringWithin(1<<30)) != 0 {
		t.Error("permanent entry must not appear in derived sets")
	}
}

// Inside the notify window but not expired.
func TestBuilder_NotifyWindow(t *testing.T) {
	p := basePolicy("notify", ScopePolicy, ActionArchive, 100)
	p.NotifyBeforeDays = intPtr(30)

	// Expires exactly ten days from now.
	e := newEngine(t, []*Policy{p}, []*records.Record{policyRecord("p1", testNow.AddDate(0, 0, -90))})
	s := e.schedule(t)

	entry := s.Entries[0]
	if entry.DaysUntilExpiry != 10 || entry.IsExpired || entry.ActionRequired != LabelApproachingExpiry {
		t.Errorf("entry = %+v", entry)
	}
	if len(s.ExpiringWithin(10)) != 1 || len(s.ExpiringWithin(9)) != 0 {
		t.Error("ExpiringWithin boundaries wrong")
	}
}

func TestBuilder_Sorting(t *testing.T) {
	short := basePolicy("short", ScopeAll, ActionReview, 10)
	forever := basePolicy("forever", ScopeAll, ActionReview, IndefinitePeriod)
	forever.Priority = 10
	forever.Classifications = []string{"Permanent"}

	permanentRec := policyRecord("a-permanent", date(2000, 1, 1))
	permanentRec.Classification = "Permanent"

	e := newEngine(t, []*Policy{short, forever}, []*records.Record{
		permanentRec,
		policyRecord("p-later", testNow.AddDate(0, 0, -2)),
		policyRecord("p-old", testNow.AddDate(0, 0, -40)),
		ackRecord("a-later", testNow.AddDate(0, 0, -2)),
		policyRecord("p-older", testNow.AddDate(0, 0, -40).Add(-2 * time.Hour)),
	})
	s := e.schedule(t)

	want := []string{"p-older", "p-old", "a-later", "p-later", "a-permanent"}
	if len(s.Entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(s.Entries), len(want))
	}
	for i, id := range want {
		if s.Entries[i].EntityID != id {
			t.Errorf("Entries[%d] = %s, want %s", i, s.Entries[i].EntityID, id)
		}
	}
}

type failingStore struct {
	records.Store
	failType records.EntityType
}

func (f *failingStore) Query(ctx context.Context, t records.EntityType, filter *records.Filter) ([]*records.Record, error) {
	if t == f.failType {
		return nil, records.NewStoreError("memory", "query", errors.New("unavailable"))
	}
	return f.Store.Query(ctx, t, filter)
}

func (f *failingStore) QueryHolds(ctx context.Context, filter *records.HoldFilter) ([]*records.LegalHold, error) {
	if f.failType == "holds" {
		return nil, records.NewStoreError("memory", "query_holds", errors.New("unavailable"))
	}
	return f.Store.QueryHolds(ctx, filter)
}

func TestBuilder_FetchFailures(t *testing.T) {
	e := newEngine(t,
		[]*Policy{basePolicy("all", ScopeAll, ActionReview, 30)},
		[]*records.Record{policyRecord("p1", date(2016, 1, 1)), ackRecord("a1", date(2016, 1, 1))},
	)
	calc := NewCalculator(WithClock(fixedClock))
	source := NewStaticPolicies(basePolicy("all", ScopeAll, ActionReview, 30))

	partial := &failingStore{Store: e.store.Store, failType: records.EntityAcknowledgement}
	b := NewBuilder(partial, legalhold.NewRegistry(partial), source, calc)
	s, err := b.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if len(s.Entries) != 1 || len(s.Errors) != 1 {
		t.Errorf("entries=%d errors=%v", len(s.Entries), s.Errors)
	}

	noHolds := &failingStore{Store: e.store.Store, failType: "holds"}
	b = NewBuilder(noHolds, legalhold.NewRegistry(noHolds), source, calc)
	if _, err := b.Generate(context.Background()); err == nil {
		t.Error("Generate() expected error when holds cannot be fetched")
	}
}
