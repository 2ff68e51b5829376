package retention

import (
	"log/slog"
	"sort"

	"mercator-hq/custodian/pkg/records"
)

// SortPolicies orders policies by descending priority, breaking ties by
// ascending policy id. The slice is sorted in place.
func SortPolicies(policies []*Policy) {
	sort.SliceStable(policies, func(i, j int) bool {
		if policies[i].Priority != policies[j].Priority {
			return policies[i].Priority > policies[j].Priority
		}
		return policies[i].ID < policies[j].ID
	})
}

// Matcher selects the applicable retention policy for a record.
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher creates a new Matcher.
func NewMatcher() *Matcher {
	return &Matcher{
		logger: slog.Default().With("component", "retention.matcher"),
	}
}

// Match returns the first policy in policies that applies to r, or nil.
// policies must already be ordered with SortPolicies; inactive policies are
// ignored.
func (m *Matcher) Match(entityType records.EntityType, r *records.Record, policies []*Policy) *Policy {
	for _, p := range policies {
		if m.matches(entityType, r, p) {
			return p
		}
	}
	return nil
}

func (m *Matcher) matches(entityType records.EntityType, r *records.Record, p *Policy) bool {
	if !p.IsActive || !p.AppliesTo.Covers(entityType) {
		return false
	}
	if len(p.Classifications) > 0 && !contains(p.Classifications, r.Classification) {
		return false
	}
	if len(p.Categories) > 0 && !contains(p.Categories, r.Category) {
		return false
	}
	if len(p.RegulatoryFrameworks) > 0 && !intersects(p.RegulatoryFrameworks, r.RegulatoryFrameworks) {
		return false
	}
	if p.Condition != nil {
		ok, err := p.Condition.Eval(r)
		if err != nil {
			m.logger.Debug("policy condition evaluation failed",
				"policy_id", p.ID,
				"entity_id", r.ID,
				"error", err,
			)
			return false
		}
		return ok
	}
	return true
}

func contains(set []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func intersects(set, values []string) bool {
	for _, v := range values {
		if contains(set, v) {
			return true
		}
	}
	return false
}
