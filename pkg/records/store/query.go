package store

import (
	"encoding/json"
	"math"

	"github.com/Masterminds/squirrel"

	"mercator-hq/custodian/pkg/records"
)

// Column lists shared by the SQL backends. Order matters: scan functions
// read columns in this order.
var (
	recordColumns = []string{
		"entity_type", "id", "name", "status",
		"classification", "category", "regulatory_frameworks", "department", "owner",
		"policy_id", "acknowledged_by",
		"created_at", "modified_at", "published_at", "archived_at", "acknowledged_at",
		"is_archived",
		"legal_hold", "legal_hold_reason", "legal_hold_start", "legal_hold_end",
	}

	holdColumns = []string{
		"id", "entity_type", "entity_id", "entity_name", "reason", "case_reference",
		"requested_by", "requested_by_email", "start_date", "end_date", "status",
		"released_by", "released_at", "release_reason",
	}

	archiveColumns = []string{
		"id", "entity_type", "original_id", "entity_name", "snapshot",
		"archived_by", "archived_by_email", "archived_at", "policy_id", "policy_name",
	}
)

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// sqlBuilder builds the statements used by both SQL backends. The only
// dialect difference is the placeholder format.
type sqlBuilder struct {
	sb squirrel.StatementBuilderType
}

func newSQLBuilder(format squirrel.PlaceholderFormat) sqlBuilder {
	return sqlBuilder{sb: squirrel.StatementBuilder.PlaceholderFormat(format)}
}

func (b sqlBuilder) getRecord(entityType records.EntityType, id string) (string, []any, error) {
	return b.sb.Select(recordColumns...).
		From("records").
		Where(squirrel.Eq{"entity_type": string(entityType), "id": id}).
		ToSql()
}

func (b sqlBuilder) queryRecords(entityType records.EntityType, filter *records.Filter) (string, []any, error) {
	q := b.sb.Select(recordColumns...).
		From("records").
		Where(squirrel.Eq{"entity_type": string(entityType)})

	if filter != nil {
		if len(filter.IDs) > 0 {
			q = q.Where(squirrel.Eq{"id": filter.IDs})
		}
		if filter.Status != "" {
			q = q.Where(squirrel.Eq{"status": filter.Status})
		}
		if filter.Classification != "" {
			q = q.Where(squirrel.Eq{"classification": filter.Classification})
		}
		if filter.Category != "" {
			q = q.Where(squirrel.Eq{"category": filter.Category})
		}
		if filter.ExcludeArchived {
			q = q.Where(squirrel.Eq{"is_archived": false})
		}
		if filter.CreatedAfter != nil {
			q = q.Where(squirrel.GtOrEq{"created_at": *filter.CreatedAfter})
		}
		if filter.CreatedBefore != nil {
			q = q.Where(squirrel.LtOrEq{"created_at": *filter.CreatedBefore})
		}
		switch {
		case filter.Limit > 0:
			q = q.Limit(uint64(filter.Limit))
		case filter.Offset > 0:
			// SQLite rejects OFFSET without LIMIT.
			q = q.Limit(math.MaxInt64)
		}
		if filter.Offset > 0 {
			q = q.Offset(uint64(filter.Offset))
		}
	}

	return q.OrderBy("created_at ASC", "id ASC").ToSql()
}

func (b sqlBuilder) insertRecord(r *records.Record) (string, []any, error) {
	frameworks, err := json.Marshal(r.RegulatoryFrameworks)
	if err != nil {
		return "", nil, err
	}
	return b.sb.Insert("records").
		Columns(recordColumns...).
		Values(
			string(r.EntityType), r.ID, r.Name, r.Status,
			r.Classification, r.Category, string(frameworks), r.Department, r.Owner,
			r.PolicyID, r.AcknowledgedBy,
			r.CreatedAt, r.ModifiedAt, r.PublishedAt, r.ArchivedAt, r.AcknowledgedAt,
			r.IsArchived,
			r.LegalHold.Held, r.LegalHold.Reason, r.LegalHold.StartDate, r.LegalHold.EndDate,
		).
		ToSql()
}

func (b sqlBuilder) updateRecord(entityType records.EntityType, id string, u *records.RecordUpdate) (string, []any, error) {
	q := b.sb.Update("records").
		Where(squirrel.Eq{"entity_type": string(entityType), "id": id})

	touched := false
	if u.Status != nil {
		q = q.Set("status", *u.Status)
		touched = true
	}
	if u.IsArchived != nil {
		q = q.Set("is_archived", *u.IsArchived)
		touched = true
	}
	if u.ArchivedAt != nil {
		q = q.Set("archived_at", *u.ArchivedAt)
		touched = true
	}
	if u.LegalHold != nil {
		q = q.Set("legal_hold", u.LegalHold.Held).
			Set("legal_hold_reason", u.LegalHold.Reason).
			Set("legal_hold_start", u.LegalHold.StartDate).
			Set("legal_hold_end", u.LegalHold.EndDate)
		touched = true
	}
	if !touched {
		// No-op update still has to report a missing row.
		q = q.Set("status", squirrel.Expr("status"))
	}

	return q.ToSql()
}

func (b sqlBuilder) deleteRecord(entityType records.EntityType, id string) (string, []any, error) {
	return b.sb.Delete("records").
		Where(squirrel.Eq{"entity_type": string(entityType), "id": id}).
		ToSql()
}

func (b sqlBuilder) insertHold(h *records.LegalHold) (string, []any, error) {
	return b.sb.Insert("legal_holds").
		Columns(holdColumns...).
		Values(
			h.ID, string(h.EntityType), h.EntityID, h.EntityName, h.Reason, h.CaseReference,
			h.RequestedBy, h.RequestedByEmail, h.StartDate, h.EndDate, string(h.Status),
			h.ReleasedBy, h.ReleasedAt, h.ReleaseReason,
		).
		ToSql()
}

func (b sqlBuilder) getHold(id string) (string, []any, error) {
	return b.sb.Select(holdColumns...).
		From("legal_holds").
		Where(squirrel.Eq{"id": id}).
		ToSql()
}

func (b sqlBuilder) updateHold(h *records.LegalHold) (string, []any, error) {
	return b.sb.Update("legal_holds").
		Set("entity_name", h.EntityName).
		Set("reason", h.Reason).
		Set("case_reference", h.CaseReference).
		Set("end_date", h.EndDate).
		Set("status", string(h.Status)).
		Set("released_by", h.ReleasedBy).
		Set("released_at", h.ReleasedAt).
		Set("release_reason", h.ReleaseReason).
		Where(squirrel.Eq{"id": h.ID}).
		ToSql()
}

func (b sqlBuilder) queryHolds(filter *records.HoldFilter) (string, []any, error) {
	q := b.sb.Select(holdColumns...).From("legal_holds")
	if filter != nil {
		if filter.EntityType != "" {
			q = q.Where(squirrel.Eq{"entity_type": string(filter.EntityType)})
		}
		if filter.EntityID != "" {
			q = q.Where(squirrel.Eq{"entity_id": filter.EntityID})
		}
		if filter.Status != "" {
			q = q.Where(squirrel.Eq{"status": string(filter.Status)})
		}
		if filter.Limit > 0 {
			q = q.Limit(uint64(filter.Limit))
		}
	}
	return q.OrderBy("start_date DESC", "id ASC").ToSql()
}

func (b sqlBuilder) insertArchive(a *records.ArchiveRecord) (string, []any, error) {
	return b.sb.Insert("archives").
		Columns(archiveColumns...).
		Values(
			a.ID, string(a.EntityType), a.OriginalID, a.EntityName, a.Snapshot,
			a.ArchivedBy, a.ArchivedByEmail, a.ArchivedAt, a.PolicyID, a.PolicyName,
		).
		ToSql()
}

func (b sqlBuilder) queryArchives(filter *records.ArchiveFilter) (string, []any, error) {
	q := b.sb.Select(archiveColumns...).From("archives")
	if filter != nil {
		if filter.EntityType != "" {
			q = q.Where(squirrel.Eq{"entity_type": string(filter.EntityType)})
		}
		if filter.OriginalID != "" {
			q = q.Where(squirrel.Eq{"original_id": filter.OriginalID})
		}
		if filter.PolicyID != "" {
			q = q.Where(squirrel.Eq{"policy_id": filter.PolicyID})
		}
		if filter.Limit > 0 {
			q = q.Limit(uint64(filter.Limit))
		}
	}
	return q.OrderBy("archived_at ASC", "id ASC").ToSql()
}

func scanRecord(row rowScanner) (*records.Record, error) {
	var (
		r                                           records.Record
		entityType                                  string
		classification, category, frameworks        *string
		department, owner, policyID, acknowledgedBy *string
		holdReason                                  *string
	)

	err := row.Scan(
		&entityType, &r.ID, &r.Name, &r.Status,
		&classification, &category, &frameworks, &department, &owner,
		&policyID, &acknowledgedBy,
		&r.CreatedAt, &r.ModifiedAt, &r.PublishedAt, &r.ArchivedAt, &r.AcknowledgedAt,
		&r.IsArchived,
		&r.LegalHold.Held, &holdReason, &r.LegalHold.StartDate, &r.LegalHold.EndDate,
	)
	if err != nil {
		return nil, err
	}

	r.EntityType = records.EntityType(entityType)
	r.Classification = deref(classification)
	r.Category = deref(category)
	r.Department = deref(department)
	r.Owner = deref(owner)
	r.PolicyID = deref(policyID)
	r.AcknowledgedBy = deref(acknowledgedBy)
	r.LegalHold.Reason = deref(holdReason)

	if fw := deref(frameworks); fw != "" && fw != "null" {
		if err := json.Unmarshal([]byte(fw), &r.RegulatoryFrameworks); err != nil {
			return nil, err
		}
	}

	return &r, nil
}

func scanHold(row rowScanner) (*records.LegalHold, error) {
	var (
		h                                                  records.LegalHold
		entityType, status                                 string
		entityName, caseRef, email, releasedBy, releaseWhy *string
	)

	err := row.Scan(
		&h.ID, &entityType, &h.EntityID, &entityName, &h.Reason, &caseRef,
		&h.RequestedBy, &email, &h.StartDate, &h.EndDate, &status,
		&releasedBy, &h.ReleasedAt, &releaseWhy,
	)
	if err != nil {
		return nil, err
	}

	h.EntityType = records.EntityType(entityType)
	h.Status = records.HoldStatus(status)
	h.EntityName = deref(entityName)
	h.CaseReference = deref(caseRef)
	h.RequestedByEmail = deref(email)
	h.ReleasedBy = deref(releasedBy)
	h.ReleaseReason = deref(releaseWhy)
	return &h, nil
}

func scanArchive(row rowScanner) (*records.ArchiveRecord, error) {
	var (
		a                          records.ArchiveRecord
		entityType                 string
		entityName, email, polName *string
	)

	err := row.Scan(
		&a.ID, &entityType, &a.OriginalID, &entityName, &a.Snapshot,
		&a.ArchivedBy, &email, &a.ArchivedAt, &a.PolicyID, &polName,
	)
	if err != nil {
		return nil, err
	}

	a.EntityType = records.EntityType(entityType)
	a.EntityName = deref(entityName)
	a.ArchivedByEmail = deref(email)
	a.PolicyName = deref(polName)
	return &a, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
