package manager

import (
	"errors"
	"testing"

	"mercator-hq/custodian/pkg/retention"
)

func policy(id string, priority int, active bool) *retention.Policy {
	return &retention.Policy{
		ID:                id,
		Name:              id,
		AppliesTo:         retention.ScopeAll,
		RetentionCategory: retention.CategoryStandard,
		ActionOnExpiry:    retention.ActionArchive,
		Priority:          priority,
		IsActive:          active,
	}
}

func TestPolicyRegistry_Replace(t *testing.T) {
	r := NewPolicyRegistry()
	if r.Count() != 0 || len(r.Policies()) != 0 {
		t.Fatal("new registry not empty")
	}
	emptyVersion := r.Version()

	err := r.Replace([]*retention.Policy{
		policy("b", 10, true),
		policy("a", 10, true),
		policy("c", 50, true),
		policy("off", 99, false),
	})
	if err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}

	active := r.Policies()
	want := []string{"c", "a", "b"}
	if len(active) != len(want) {
		t.Fatalf("Policies() = %d, want %d", len(active), len(want))
	}
	for i, id := range want {
		if active[i].ID != id {
			t.Errorf("Policies()[%d] = %s, want %s", i, active[i].ID, id)
		}
	}

	if _, ok := r.Policy("off"); !ok {
		t.Error("Policy(off) not found; inactive policies must stay addressable")
	}
	if r.Count() != 4 || r.Version() == emptyVersion {
		t.Errorf("Count()=%d Version()=%s", r.Count(), r.Version())
	}

	stats := r.Stats()
	if stats.ActiveCount != 3 || stats.ByScope["All"] != 3 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestPolicyRegistry_ReplaceRejectsInvalid(t *testing.T) {
	r := NewPolicyRegistry()
	if err := r.Replace([]*retention.Policy{policy("keep", 0, true)}); err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}
	version := r.Version()

	tests := []struct {
		name     string
		policies []*retention.Policy
	}{
		{name: "nil policy", policies: []*retention.Policy{nil}},
		{name: "empty id", policies: []*retention.Policy{policy("", 0, true)}},
		{name: "duplicate id", policies: []*retention.Policy{policy("x", 0, true), policy("x", 1, true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var re *RegistryError
			if err := r.Replace(tt.policies); !errors.As(err, &re) {
				t.Fatalf("Replace() error = %v, want *RegistryError", err)
			}
			if r.Version() != version {
				t.Error("failed Replace() changed the registry")
			}
		})
	}
}

func TestPolicyRegistry_VersionTracksContent(t *testing.T) {
	r := NewPolicyRegistry()
	_ = r.Replace([]*retention.Policy{policy("a", 1, true), policy("b", 2, true)})
	v1 := r.Version()

	_ = r.Replace([]*retention.Policy{policy("b", 2, true), policy("a", 1, true)})
	if r.Version() != v1 {
		t.Error("Version() changed for the same set in a different order")
	}

	_ = r.Replace([]*retention.Policy{policy("a", 1, true), policy("b", 3, true)})
	if r.Version() == v1 {
		t.Error("Version() unchanged after a priority change")
	}
}

func TestPolicyRegistry_Summaries(t *testing.T) {
	r := NewPolicyRegistry()
	days := 30
	p := policy("short", 0, true)
	p.RetentionPeriodDays = &days
	_ = r.Replace([]*retention.Policy{p, policy("default", 0, true)})

	got := r.Summaries(retention.NewCalculator())
	if len(got) != 2 || got[0].ID != "default" || got[1].ID != "short" {
		t.Fatalf("Summaries() = %+v", got)
	}
	if got[0].RetentionPeriodDays != 1095 || got[1].RetentionPeriodDays != 30 {
		t.Errorf("periods = %d, %d", got[0].RetentionPeriodDays, got[1].RetentionPeriodDays)
	}
}
