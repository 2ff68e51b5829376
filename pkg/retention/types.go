package retention

import (
	"time"

	"mercator-hq/custodian/pkg/records"
)

// Scope is the entity type a policy applies to.
type Scope string

const (
	ScopePolicy          Scope = "Policy"
	ScopeAcknowledgement Scope = "Acknowledgement"
	ScopeAuditLog        Scope = "AuditLog"
	ScopeAll             Scope = "All"
)

// Covers reports whether the scope includes the given entity type.
func (s Scope) Covers(t records.EntityType) bool {
	return s == ScopeAll || string(s) == string(t)
}

// Category classifies a policy's retention length.
type Category string

const (
	CategoryStandard   Category = "Standard"
	CategoryExtended   Category = "Extended"
	CategoryRegulatory Category = "Regulatory"
	CategoryLegal      Category = "Legal"
	CategoryPermanent  Category = "Permanent"
)

// StartEvent selects the record timestamp the retention period counts from.
type StartEvent string

const (
	StartCreated      StartEvent = "Created"
	StartModified     StartEvent = "Modified"
	StartPublished    StartEvent = "Published"
	StartArchived     StartEvent = "Archived"
	StartAcknowledged StartEvent = "Acknowledged"
)

// ExpiryAction is what happens to a record once its retention period ends.
type ExpiryAction string

const (
	ActionDelete  ExpiryAction = "Delete"
	ActionArchive ExpiryAction = "Archive"
	ActionReview  ExpiryAction = "Review"
	ActionNotify  ExpiryAction = "Notify"
)

// Action labels reported in ScheduleEntry.ActionRequired. Expired entries
// carry their policy's ExpiryAction verbatim instead.
const (
	LabelOnLegalHold       = "On Legal Hold - No Action"
	LabelPermanent         = "Permanent Retention"
	LabelApproachingExpiry = "Notify - Approaching Expiry"
	LabelNoActionRequired  = "No Action Required"
)

const (
	// IndefinitePeriod is the period sentinel for records kept forever.
	IndefinitePeriod = -1

	// IndefiniteDaysRemaining is reported as DaysUntilExpiry for entries
	// without an expiry date.
	IndefiniteDaysRemaining = -1
)

// Policy is a retention rule. Policies are read-only to the engine.
type Policy struct {
	ID          string
	Name        string
	Description string

	// Scope and filters. An empty filter set places no restriction.
	AppliesTo            Scope
	Classifications      []string
	Categories           []string
	RegulatoryFrameworks []string

	RetentionCategory Category

	// RetentionPeriodDays is positive or IndefinitePeriod. Nil means the
	// calculator's default for RetentionCategory.
	RetentionPeriodDays *int

	RetentionStartEvent StartEvent
	ActionOnExpiry      ExpiryAction

	NotifyBeforeDays *int
	NotifyRecipients []string

	ExcludeOnLegalHold bool
	Priority           int
	IsActive           bool

	// Condition further restricts matching. Nil means always true.
	Condition *Condition

	// SourceFile is the file the policy was loaded from, if any.
	SourceFile string
}

// Countdown is the number of whole days until expiry. Indefinite countdowns
// never expire; Days is meaningless for them.
type Countdown struct {
	Days       int
	Indefinite bool
}

// Expired reports whether the countdown has reached zero.
func (c Countdown) Expired() bool {
	return !c.Indefinite && c.Days <= 0
}

// Reported returns the day count with indefinite mapped to -1.
func (c Countdown) Reported() int {
	if c.Indefinite {
		return IndefiniteDaysRemaining
	}
	return c.Days
}

// ScheduleEntry joins a governed record with its matched policy and hold
// status. Entries are recomputed on every build.
type ScheduleEntry struct {
	EntityType records.EntityType `json:"entity_type"`
	EntityID   string             `json:"entity_id"`
	EntityName string             `json:"entity_name"`

	PolicyID            string   `json:"policy_id"`
	PolicyName          string   `json:"policy_name"`
	RetentionCategory   Category `json:"retention_category"`
	RetentionPeriodDays int      `json:"retention_period_days"`

	CreatedAt           time.Time  `json:"created_at"`
	RetentionStartDate  time.Time  `json:"retention_start_date"`
	RetentionExpiryDate *time.Time `json:"retention_expiry_date,omitempty"`
	DaysUntilExpiry     int        `json:"days_until_expiry"`
	IsExpired           bool       `json:"is_expired"`

	IsOnLegalHold   bool   `json:"is_on_legal_hold"`
	LegalHoldReason string `json:"legal_hold_reason,omitempty"`

	IsArchived     bool   `json:"is_archived"`
	ActionRequired string `json:"action_required"`
}

// Indefinite reports whether the entry never expires.
func (e *ScheduleEntry) Indefinite() bool {
	return e.RetentionExpiryDate == nil
}

// Outcome is the result of processing one schedule entry.
type Outcome string

const (
	OutcomeArchived        Outcome = "archived"
	OutcomeDeleted         Outcome = "deleted"
	OutcomeReviewRequired  Outcome = "review_required"
	OutcomeNotified        Outcome = "notified"
	OutcomeSkippedHold     Outcome = "skipped_legal_hold"
	OutcomeAlreadyArchived Outcome = "already_archived"
	OutcomeFailed          Outcome = "failed"
)

// ItemResult records what happened to one entry during a batch.
type ItemResult struct {
	EntityType records.EntityType `json:"entity_type"`
	EntityID   string             `json:"entity_id"`
	PolicyID   string             `json:"policy_id"`
	Outcome    Outcome            `json:"outcome"`
	ArchiveID  string             `json:"archive_id,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// BatchResult summarizes one ProcessExpired call. Expired records that
// were archived by an earlier sweep count under AlreadyArchived instead of
// Archived or Deleted, so the action counters only reflect new archive copies.
type BatchResult struct {
	SweepID           string        `json:"sweep_id"`
	DryRun            bool          `json:"dry_run"`
	TotalProcessed    int           `json:"total_processed"`
	Archived          int           `json:"archived"`
	Deleted           int           `json:"deleted"`
	ReviewRequired    int           `json:"review_required"`
	NotificationsSent int           `json:"notifications_sent"`
	SkippedLegalHold  int           `json:"skipped_legal_hold"`
	AlreadyArchived   int           `json:"already_archived"`
	Items             []ItemResult  `json:"items"`
	Errors            []string      `json:"errors"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
}
