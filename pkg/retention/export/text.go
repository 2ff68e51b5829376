package export

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"mercator-hq/custodian/pkg/retention"
)

// TextExporter renders an aligned table for terminals.
type TextExporter struct{}

// NewTextExporter creates a new text exporter.
func NewTextExporter() *TextExporter {
	return &TextExporter{}
}

// Export implements Exporter.
func (e *TextExporter) Export(ctx context.Context, entries []*retention.ScheduleEntry, w io.Writer) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No schedule entries.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tID\tNAME\tPOLICY\tEXPIRES\tDAYS\tACTION")
	for _, entry := range entries {
		expires, days := "never", "-"
		if entry.RetentionExpiryDate != nil {
			expires = entry.RetentionExpiryDate.Format(time.DateOnly)
			days = fmt.Sprintf("%d", entry.DaysUntilExpiry)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.EntityType, entry.EntityID, entry.EntityName,
			entry.PolicyID, expires, days, entry.ActionRequired)
	}
	if err := tw.Flush(); err != nil {
		return &ExportError{Format: "text", Count: len(entries), Cause: err}
	}
	return nil
}
