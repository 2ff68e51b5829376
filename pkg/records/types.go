package records

import (
	"context"
	"time"
)

// EntityType identifies the kind of governed record.
type EntityType string

const (
	EntityPolicy          EntityType = "Policy"
	EntityAcknowledgement EntityType = "Acknowledgement"
	EntityAuditLog        EntityType = "AuditLog"
)

// GovernedTypes lists the entity types swept by retention processing.
var GovernedTypes = []EntityType{EntityPolicy, EntityAcknowledgement}

// ParseEntityType converts a string into an EntityType.
func ParseEntityType(s string) (EntityType, bool) {
	switch EntityType(s) {
	case EntityPolicy, EntityAcknowledgement, EntityAuditLog:
		return EntityType(s), true
	}
	return "", false
}

// SupportsHoldFlags reports whether records of this type carry denormalized
// legal-hold flags.
func (t EntityType) SupportsHoldFlags() bool {
	return t == EntityPolicy
}

// Record status values.
const (
	StatusDraft        = "Draft"
	StatusPublished    = "Published"
	StatusArchived     = "Archived"
	StatusAcknowledged = "Acknowledged"
)

// HoldFlags are the legal-hold fields denormalized onto a governed record.
type HoldFlags struct {
	Held      bool       `json:"held"`
	Reason    string     `json:"reason,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Record is a governed record: a policy document or an acknowledgement.
type Record struct {
	// Identity
	EntityType EntityType `json:"entity_type"`
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`

	// Classification attributes used by policy filters
	Classification       string   `json:"classification,omitempty"`
	Category             string   `json:"category,omitempty"`
	RegulatoryFrameworks []string `json:"regulatory_frameworks,omitempty"`
	Department           string   `json:"department,omitempty"`
	Owner                string   `json:"owner,omitempty"`

	// Acknowledgement fields
	PolicyID       string `json:"policy_id,omitempty"`
	AcknowledgedBy string `json:"acknowledged_by,omitempty"`

	// Lifecycle timestamps
	CreatedAt      time.Time  `json:"created_at"`
	ModifiedAt     *time.Time `json:"modified_at,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	IsArchived bool      `json:"is_archived"`
	LegalHold  HoldFlags `json:"legal_hold"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.RegulatoryFrameworks != nil {
		c.RegulatoryFrameworks = append([]string(nil), r.RegulatoryFrameworks...)
	}
	c.ModifiedAt = cloneTime(r.ModifiedAt)
	c.PublishedAt = cloneTime(r.PublishedAt)
	c.ArchivedAt = cloneTime(r.ArchivedAt)
	c.AcknowledgedAt = cloneTime(r.AcknowledgedAt)
	c.LegalHold.StartDate = cloneTime(r.LegalHold.StartDate)
	c.LegalHold.EndDate = cloneTime(r.LegalHold.EndDate)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// RecordUpdate lists the fields the engine is allowed to change on a record.
// Nil fields are left untouched.
type RecordUpdate struct {
	Status     *string
	IsArchived *bool
	ArchivedAt *time.Time
	LegalHold  *HoldFlags
}

// Apply applies the update to r in place.
func (u *RecordUpdate) Apply(r *Record) {
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.IsArchived != nil {
		r.IsArchived = *u.IsArchived
	}
	if u.ArchivedAt != nil {
		r.ArchivedAt = cloneTime(u.ArchivedAt)
	}
	if u.LegalHold != nil {
		r.LegalHold = *u.LegalHold
		r.LegalHold.StartDate = cloneTime(u.LegalHold.StartDate)
		r.LegalHold.EndDate = cloneTime(u.LegalHold.EndDate)
	}
}

// Filter defines parameters for querying governed records.
type Filter struct {
	IDs             []string   // Restrict to these ids
	Status          string     // Equality on status
	Classification  string     // Equality on classification
	Category        string     // Equality on category
	ExcludeArchived bool       // Skip records already archived
	CreatedAfter    *time.Time // Inclusive lower bound on CreatedAt
	CreatedBefore   *time.Time // Inclusive upper bound on CreatedAt
	Limit           int        // Max records to return (0 = unlimited)
	Offset          int        // Skip N records
}

// Matches reports whether r satisfies the filter, ignoring pagination.
func (f *Filter) Matches(r *Record) bool {
	if f == nil {
		return true
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == r.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Classification != "" && r.Classification != f.Classification {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.ExcludeArchived && r.IsArchived {
		return false
	}
	if f.CreatedAfter != nil && r.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && r.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

// HoldStatus is the lifecycle state of a legal hold.
type HoldStatus string

const (
	HoldActive   HoldStatus = "Active"
	HoldReleased HoldStatus = "Released"
	HoldExpired  HoldStatus = "Expired"
)

// LegalHold records a hold placed on a governed record.
type LegalHold struct {
	ID               string     `json:"id"`
	EntityType       EntityType `json:"entity_type"`
	EntityID         string     `json:"entity_id"`
	EntityName       string     `json:"entity_name"`
	Reason           string     `json:"reason"`
	CaseReference    string     `json:"case_reference,omitempty"`
	RequestedBy      string     `json:"requested_by"`
	RequestedByEmail string     `json:"requested_by_email,omitempty"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	Status           HoldStatus `json:"status"`

	// Release metadata
	ReleasedBy    string     `json:"released_by,omitempty"`
	ReleasedAt    *time.Time `json:"released_at,omitempty"`
	ReleaseReason string     `json:"release_reason,omitempty"`
}

// Clone returns a deep copy of the hold.
func (h *LegalHold) Clone() *LegalHold {
	c := *h
	c.EndDate = cloneTime(h.EndDate)
	c.ReleasedAt = cloneTime(h.ReleasedAt)
	return &c
}

// HoldFilter defines parameters for querying legal holds.
type HoldFilter struct {
	EntityType EntityType
	EntityID   string
	Status     HoldStatus
	Limit      int
}

// Matches reports whether h satisfies the filter, ignoring the limit.
func (f *HoldFilter) Matches(h *LegalHold) bool {
	if f == nil {
		return true
	}
	if f.EntityType != "" && h.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && h.EntityID != f.EntityID {
		return false
	}
	if f.Status != "" && h.Status != f.Status {
		return false
	}
	return true
}

// ArchiveRecord is an immutable snapshot of a record taken before it is
// archived or purged.
type ArchiveRecord struct {
	ID              string     `json:"id"`
	EntityType      EntityType `json:"entity_type"`
	OriginalID      string     `json:"original_id"`
	EntityName      string     `json:"entity_name"`
	Snapshot        string     `json:"snapshot"` // JSON serialization of the Record
	ArchivedBy      string     `json:"archived_by"`
	ArchivedByEmail string     `json:"archived_by_email,omitempty"`
	ArchivedAt      time.Time  `json:"archived_at"`
	PolicyID        string     `json:"policy_id"`
	PolicyName      string     `json:"policy_name,omitempty"`
}

// ArchiveFilter defines parameters for querying archive records.
type ArchiveFilter struct {
	EntityType EntityType
	OriginalID string
	PolicyID   string
	Limit      int
}

// Matches reports whether a satisfies the filter, ignoring the limit.
func (f *ArchiveFilter) Matches(a *ArchiveRecord) bool {
	if f == nil {
		return true
	}
	if f.EntityType != "" && a.EntityType != f.EntityType {
		return false
	}
	if f.OriginalID != "" && a.OriginalID != f.OriginalID {
		return false
	}
	if f.PolicyID != "" && a.PolicyID != f.PolicyID {
		return false
	}
	return true
}

// RecordStore persists governed records.
type RecordStore interface {
	// Get returns a single record. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, entityType EntityType, id string) (*Record, error)

	// Query returns records of one entity type matching the filter.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, entityType EntityType, filter *Filter) ([]*Record, error)

	// Add inserts a record and returns its id. An id is generated when empty.
	Add(ctx context.Context, record *Record) (string, error)

	// Update applies a partial update. Returns ErrNotFound if missing.
	Update(ctx context.Context, entityType EntityType, id string, update *RecordUpdate) error

	// Delete physically removes a record. Returns ErrNotFound if missing.
	Delete(ctx context.Context, entityType EntityType, id string) error
}

// HoldStore persists legal holds. Holds are never deleted.
type HoldStore interface {
	AddHold(ctx context.Context, hold *LegalHold) (string, error)
	GetHold(ctx context.Context, id string) (*LegalHold, error)
	UpdateHold(ctx context.Context, hold *LegalHold) error
	QueryHolds(ctx context.Context, filter *HoldFilter) ([]*LegalHold, error)
}

// ArchiveStore persists archive snapshots.
type ArchiveStore interface {
	AddArchive(ctx context.Context, archive *ArchiveRecord) (string, error)
	QueryArchives(ctx context.Context, filter *ArchiveFilter) ([]*ArchiveRecord, error)
}

// Store is the complete record store contract required by the engine.
// Implementations must be safe for concurrent use.
type Store interface {
	RecordStore
	HoldStore
	ArchiveStore

	// Close releases any resources held by the backend.
	Close() error
}
