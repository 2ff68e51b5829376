package manager

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"mercator-hq/custodian/pkg/retention"
)

// registrySnapshot is an immutable view of one loaded policy set.
type registrySnapshot struct {
	byID     map[string]*retention.Policy
	active   []*retention.Policy
	version  string
	loadTime time.Time
}

// PolicyRegistry holds the current policy set. Replace swaps the whole set
// at once so readers always see a consistent snapshot.
type PolicyRegistry struct {
	mu   sync.RWMutex
	snap *registrySnapshot
}

var _ retention.PolicySource = (*PolicyRegistry)(nil)

// NewPolicyRegistry creates an empty registry.
func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{snap: newSnapshot(nil)}
}

func newSnapshot(policies []*retention.Policy) *registrySnapshot {
	s := &registrySnapshot{
		byID:     make(map[string]*retention.Policy, len(policies)),
		loadTime: time.Now(),
	}
	for _, p := range policies {
		s.byID[p.ID] = p
		if p.IsActive {
			s.active = append(s.active, p)
		}
	}
	retention.SortPolicies(s.active)
	s.version = versionOf(policies)
	return s
}

// Replace installs policies as the current set. Ids must be non-empty and
// unique.
func (r *PolicyRegistry) Replace(policies []*retention.Policy) error {
	seen := make(map[string]bool, len(policies))
	for _, p := range policies {
		if p == nil {
			return &RegistryError{Operation: "replace", Message: "policy cannot be nil"}
		}
		if p.ID == "" {
			return &RegistryError{Operation: "replace", Message: "policy id cannot be empty"}
		}
		if seen[p.ID] {
			return &RegistryError{PolicyID: p.ID, Operation: "replace", Message: "duplicate policy id"}
		}
		seen[p.ID] = true
	}

	snap := newSnapshot(policies)

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()
	return nil
}

func (r *PolicyRegistry) current() *registrySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Policies implements retention.PolicySource.
func (r *PolicyRegistry) Policies() []*retention.Policy {
	return r.current().active
}

// Policy implements retention.PolicySource. Inactive policies are found too.
func (r *PolicyRegistry) Policy(id string) (*retention.Policy, bool) {
	p, ok := r.current().byID[id]
	return p, ok
}

// All returns every loaded policy, active or not, sorted by id.
func (r *PolicyRegistry) All() []*retention.Policy {
	snap := r.current()
	all := make([]*retention.Policy, 0, len(snap.byID))
	for _, p := range snap.byID {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// Count returns the number of loaded policies.
func (r *PolicyRegistry) Count() int {
	return len(r.current().byID)
}

// Version is a short content hash of the loaded set. It changes whenever a
// reload changes any policy field that affects decisions.
func (r *PolicyRegistry) Version() string {
	return r.current().version
}

// LoadTime is when the current set was installed.
func (r *PolicyRegistry) LoadTime() time.Time {
	return r.current().loadTime
}

// Summaries lists every policy for display.
func (r *PolicyRegistry) Summaries(calc *retention.Calculator) []PolicySummary {
	all := r.All()
	out := make([]PolicySummary, 0, len(all))
	for _, p := range all {
		period, _ := calc.PeriodFor(p)
		out = append(out, PolicySummary{
			ID:                  p.ID,
			Name:                p.Name,
			AppliesTo:           string(p.AppliesTo),
			RetentionCategory:   string(p.RetentionCategory),
			RetentionPeriodDays: period,
			ActionOnExpiry:      string(p.ActionOnExpiry),
			Priority:            p.Priority,
			IsActive:            p.IsActive,
			SourceFile:          p.SourceFile,
		})
	}
	return out
}

// Stats summarizes the loaded set.
func (r *PolicyRegistry) Stats() RegistryStats {
	snap := r.current()
	stats := RegistryStats{
		PolicyCount: len(snap.byID),
		ActiveCount: len(snap.active),
		ByScope:     make(map[string]int),
		LoadTime:    snap.loadTime,
		Version:     snap.version,
	}
	for _, p := range snap.active {
		stats.ByScope[string(p.AppliesTo)]++
	}
	return stats
}

func versionOf(policies []*retention.Policy) string {
	sorted := make([]*retention.Policy, len(policies))
	copy(sorted, policies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := sha256.New()
	for _, p := range sorted {
		fmt.Fprintf(h, "%s|%s|%s|%v|%v|%v|%s|%s|%s|%s|%s|%v|%v|%t|%d|%t|",
			p.ID, p.Name, p.AppliesTo, p.Classifications, p.Categories, p.RegulatoryFrameworks,
			p.RetentionCategory, intOrNil(p.RetentionPeriodDays), p.RetentionStartEvent, p.ActionOnExpiry,
			intOrNil(p.NotifyBeforeDays), p.NotifyRecipients, conditionExpr(p),
			p.ExcludeOnLegalHold, p.Priority, p.IsActive)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func intOrNil(v *int) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprint(*v)
}

func conditionExpr(p *retention.Policy) string {
	if p.Condition == nil {
		return ""
	}
	return p.Condition.Expr
}
