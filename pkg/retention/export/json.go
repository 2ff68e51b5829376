package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/custodian/pkg/retention"
)

// JSONExporter exports schedule entries as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export implements Exporter. An empty schedule is written as [].
func (e *JSONExporter) Export(ctx context.Context, entries []*retention.ScheduleEntry, w io.Writer) error {
	if entries == nil {
		entries = []*retention.ScheduleEntry{}
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(entries); err != nil {
		return &ExportError{Format: "json", Count: len(entries), Cause: err}
	}
	return nil
}
