package retention

import "fmt"

var (
	validScopes      = []Scope{ScopePolicy, ScopeAcknowledgement, ScopeAuditLog, ScopeAll}
	validCategories  = []Category{CategoryStandard, CategoryExtended, CategoryRegulatory, CategoryLegal, CategoryPermanent}
	validStartEvents = []StartEvent{StartCreated, StartModified, StartPublished, StartArchived, StartAcknowledged}
	validActions     = []ExpiryAction{ActionDelete, ActionArchive, ActionReview, ActionNotify}
)

// Validate checks p against calc's default period table and returns a
// *PolicyConfigError describing the first problem found.
func (p *Policy) Validate(calc *Calculator) error {
	if p.ID == "" {
		return NewPolicyConfigError("", "id", "id is required", nil)
	}
	if p.Name == "" {
		return NewPolicyConfigError(p.ID, "name", "name is required", nil)
	}
	if !oneOf(validScopes, p.AppliesTo) {
		return NewPolicyConfigError(p.ID, "applies_to", fmt.Sprintf("unknown scope %q", p.AppliesTo), nil)
	}
	if !oneOf(validCategories, p.RetentionCategory) {
		return NewPolicyConfigError(p.ID, "retention_category", fmt.Sprintf("unknown category %q", p.RetentionCategory), nil)
	}
	if !oneOf(validStartEvents, p.RetentionStartEvent) {
		return NewPolicyConfigError(p.ID, "retention_start_event", fmt.Sprintf("unknown start event %q", p.RetentionStartEvent), nil)
	}
	if !oneOf(validActions, p.ActionOnExpiry) {
		return NewPolicyConfigError(p.ID, "action_on_expiry", fmt.Sprintf("unknown action %q", p.ActionOnExpiry), nil)
	}

	if p.RetentionPeriodDays != nil {
		if d := *p.RetentionPeriodDays; d <= 0 && d != IndefinitePeriod {
			return NewPolicyConfigError(p.ID, "retention_period_days",
				fmt.Sprintf("must be positive or %d, got %d", IndefinitePeriod, d), nil)
		}
	} else if _, ok := calc.PeriodFor(p); !ok {
		return NewPolicyConfigError(p.ID, "retention_period_days",
			fmt.Sprintf("no period set and no default for category %q", p.RetentionCategory), nil)
	}

	if p.NotifyBeforeDays != nil && *p.NotifyBeforeDays < 0 {
		return NewPolicyConfigError(p.ID, "notify_before_days", "must not be negative", nil)
	}
	return nil
}

func oneOf[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
