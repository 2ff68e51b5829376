package manager

import (
	"os"
	"path/filepath"
	"testing"
)

const regulatoryYAML = `policies:
  - id: regulatory-7y
    name: Regulatory records
    applies_to: Policy
    classifications: [Confidential]
    regulatory_frameworks: [SOX]
    retention_category: Regulatory
    retention_period_days: 2555
    retention_start_event: Published
    action_on_expiry: Archive
    notify_before_days: 30
    notify_recipients: [records@example.com]
    priority: 100
    condition: 'record.department == "Finance"'
`

const acknowledgementYAML = `policies:
  - id: ack-standard
    name: Acknowledgement receipts
    applies_to: Acknowledgement
    retention_category: Standard
    retention_start_event: Acknowledged
    action_on_expiry: Delete
  - id: ack-legacy
    name: Legacy receipts
    applies_to: Acknowledgement
    retention_category: Extended
    action_on_expiry: Review
    is_active: false
    exclude_on_legal_hold: false
`

// writeFile writes content under dir and returns the full path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}
