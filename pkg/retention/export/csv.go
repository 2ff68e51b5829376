package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"mercator-hq/custodian/pkg/retention"
)

// CSVExporter exports schedule entries to CSV.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

var csvHeader = []string{
	"entity_type", "entity_id", "entity_name",
	"policy_id", "policy_name", "retention_category", "retention_period_days",
	"created_at", "retention_start_date", "retention_expiry_date",
	"days_until_expiry", "is_expired",
	"is_on_legal_hold", "legal_hold_reason",
	"is_archived", "action_required",
}

// Export implements Exporter. Indefinite entries have an empty expiry date.
func (e *CSVExporter) Export(ctx context.Context, entries []*retention.ScheduleEntry, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return &ExportError{Format: "csv", Count: len(entries), Cause: err}
		}
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write(entryToRow(entry)); err != nil {
			return &ExportError{Format: "csv", Count: len(entries), Cause: err}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return &ExportError{Format: "csv", Count: len(entries), Cause: err}
	}
	return nil
}

func entryToRow(e *retention.ScheduleEntry) []string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	}

	expiry := ""
	if e.RetentionExpiryDate != nil {
		expiry = formatTime(*e.RetentionExpiryDate)
	}

	return []string{
		string(e.EntityType),
		e.EntityID,
		e.EntityName,
		e.PolicyID,
		e.PolicyName,
		string(e.RetentionCategory),
		strconv.Itoa(e.RetentionPeriodDays),
		formatTime(e.CreatedAt),
		formatTime(e.RetentionStartDate),
		expiry,
		strconv.Itoa(e.DaysUntilExpiry),
		strconv.FormatBool(e.IsExpired),
		strconv.FormatBool(e.IsOnLegalHold),
		e.LegalHoldReason,
		strconv.FormatBool(e.IsArchived),
		e.ActionRequired,
	}
}
