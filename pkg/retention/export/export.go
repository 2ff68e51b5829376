// Package export renders retention schedules as text, JSON or CSV.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"mercator-hq/custodian/pkg/retention"
)

// Exporter writes schedule entries to w.
type Exporter interface {
	Export(ctx context.Context, entries []*retention.ScheduleEntry, w io.Writer) error
}

// ExportError wraps a failure to render entries.
type ExportError struct {
	Format string
	Count  int
	Cause  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export failed [format=%s, entries=%d]: %v", e.Format, e.Count, e.Cause)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// New returns the exporter for format: "text", "json" or "csv".
func New(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "text", "table":
		return NewTextExporter(), nil
	case "json":
		return NewJSONExporter(true), nil
	case "csv":
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (expected text, json or csv)", format)
	}
}
