//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/records"
	"mercator-hq/custodian/pkg/records/store"
)

const standardPolicy = `policies:
  - id: standard-1y
    name: Standard policies
    applies_to: Policy
    retention_category: Standard
    retention_period_days: 365
    action_on_expiry: Archive
`

// workspace is a config, policy directory and SQLite record store in a
// temp directory.
type workspace struct {
	dir        string
	configFile string
	storePath  string
}

func newWorkspace(t *testing.T, metricsAddr string) *workspace {
	t.Helper()

	dir := t.TempDir()
	policyDir := filepath.Join(dir, "policies")
	if err := os.MkdirAll(policyDir, 0755); err != nil {
		t.Fatalf("failed to create policy dir: %v", err)
	}
	createFile(t, filepath.Join(policyDir, "standard.yaml"), standardPolicy)

	metricsEnabled := metricsAddr != ""
	if !metricsEnabled {
		metricsAddr = "127.0.0.1:0"
	}

	w := &workspace{
		dir:        dir,
		configFile: filepath.Join(dir, "custodian.yaml"),
		storePath:  filepath.Join(dir, "records.db"),
	}
	createFile(t, w.configFile, fmt.Sprintf(`
store:
  backend: sqlite
  sqlite:
    path: %q
policy:
  mode: file
  path: %q
audit:
  sinks: [sqlite]
  sqlite:
    path: %q
notify:
  sender: log
telemetry:
  logging:
    level: warn
  metrics:
    enabled: %t
    listen_address: %q
`, w.storePath, policyDir, filepath.Join(dir, "audit.db"), metricsEnabled, metricsAddr))
	return w
}

// seed adds one expired and one current policy record to the store.
func (w *workspace) seed(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	s, err := store.Open(ctx, store.Options{
		Backend: "sqlite",
		SQLite:  &store.SQLiteConfig{Path: w.storePath, WALMode: true},
	})
	if err != nil {
		t.Fatalf("failed to open record store: %v", err)
	}
	defer s.Close()

	now := time.Now().UTC()
	for _, r := range []*records.Record{
		{EntityType: records.EntityPolicy, ID: "old-1", Name: "Expense Policy", Status: records.StatusPublished, CreatedAt: now.AddDate(-3, 0, 0)},
		{EntityType: records.EntityPolicy, ID: "old-2", Name: "Travel Policy", Status: records.StatusPublished, CreatedAt: now.AddDate(-3, 0, 0)},
		{EntityType: records.EntityPolicy, ID: "new-1", Name: "Remote Work Policy", Status: records.StatusPublished, CreatedAt: now.AddDate(0, 0, -10)},
	} {
		if _, err := s.Add(ctx, r); err != nil {
			t.Fatalf("failed to seed record %s: %v", r.ID, err)
		}
	}
}

// run executes the custodian binary against the workspace config.
func (w *workspace) run(t *testing.T, args ...string) (string, int) {
	t.Helper()

	args = append(args, "--config", w.configFile)
	cmd := exec.Command(buildCustodianBinary(t), args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return out.String(), 0
	case errors.As(err, &exitErr):
		return out.String(), exitErr.ExitCode()
	default:
		t.Fatalf("failed to run custodian %v: %v", args, err)
		return "", -1
	}
}

func TestCommandVersionOutput(t *testing.T) {
	out, code := newWorkspace(t, "").run(t, "version")
	if code != 0 {
		t.Fatalf("version exited %d: %s", code, out)
	}
	if !strings.Contains(out, "Custodian") {
		t.Errorf("version output missing product name: %s", out)
	}
}

func TestPolicyValidationPipeline(t *testing.T) {
	w := newWorkspace(t, "")

	out, code := w.run(t, "policy", "validate")
	if code != 0 {
		t.Fatalf("policy validate exited %d: %s", code, out)
	}

	badDir := filepath.Join(w.dir, "bad")
	if err := os.MkdirAll(badDir, 0755); err != nil {
		t.Fatalf("failed to create bad policy dir: %v", err)
	}
	createFile(t, filepath.Join(badDir, "bad.yaml"), `policies:
  - id: broken
    applies_to: Policy
    retention_category: Standard
    retention_period_days: 0
    action_on_expiry: Shred
`)

	out, code = w.run(t, "policy", "validate", badDir, "--format", "json")
	if code != 1 {
		t.Fatalf("policy validate on bad dir exited %d, want 1: %s", code, out)
	}
	if !strings.Contains(out, `"valid": false`) {
		t.Errorf("validation report missing valid=false: %s", out)
	}
}

func TestHoldAndSweepPipeline(t *testing.T) {
	w := newWorkspace(t, "")
	w.seed(t)

	out, code := w.run(t, "schedule", "--expired", "--format", "json")
	if code != 0 {
		t.Fatalf("schedule exited %d: %s", code, out)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("schedule output is not a JSON array: %v\n%s", err, out)
	}
	if len(entries) != 2 {
		t.Fatalf("expired entries = %d, want 2", len(entries))
	}

	out, code = w.run(t, "hold", "place", "--type", "Policy", "--id", "old-1", "--reason", "Litigation", "--case", "CASE-42")
	if code != 0 {
		t.Fatalf("hold place exited %d: %s", code, out)
	}
	if !strings.Contains(out, "Placed hold") {
		t.Errorf("hold place output: %s", out)
	}

	out, code = w.run(t, "sweep", "--format", "json")
	if code != 0 {
		t.Fatalf("sweep exited %d: %s", code, out)
	}
	var result struct {
		Archived         int `json:"archived"`
		SkippedLegalHold int `json:"skipped_legal_hold"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("sweep output is not JSON: %v\n%s", err, out)
	}
	if result.Archived != 1 || result.SkippedLegalHold != 1 {
		t.Errorf("sweep archived=%d skipped=%d, want 1 and 1", result.Archived, result.SkippedLegalHold)
	}

	out, code = w.run(t, "audit", "query", "--action", "legal_hold.place", "--format", "json")
	if code != 0 {
		t.Fatalf("audit query exited %d: %s", code, out)
	}
	if !strings.Contains(out, "CASE-42") {
		t.Errorf("audit query missing hold placement: %s", out)
	}

	_, code = w.run(t, "hold", "release", "no-such-hold")
	if code != 4 {
		t.Errorf("hold release of unknown hold exited %d, want 4", code)
	}
}

func TestServerStartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	addr := "127.0.0.1:19091"
	w := newWorkspace(t, addr)
	w.seed(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, buildCustodianBinary(t), "run", "--config", w.configFile, "--dry-run")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start custodian: %v", err)
	}

	if !waitForHealthy(fmt.Sprintf("http://%s/healthz", addr), 10*time.Second) {
		cmd.Process.Kill()
		t.Fatalf("custodian did not become healthy:\n%s", out.String())
	}
	if !waitForHealthy(fmt.Sprintf("http://%s/readyz", addr), 5*time.Second) {
		t.Errorf("custodian did not become ready:\n%s", out.String())
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("failed to signal custodian: %v", err)
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("custodian exited with error: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Scheduler stopped") {
		t.Errorf("missing shutdown banner:\n%s", out.String())
	}
}

// buildCustodianBinary builds the custodian binary for testing.
func buildCustodianBinary(t *testing.T) string {
	t.Helper()

	binaryPath := "../bin/custodian"
	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath
	}

	t.Log("Building custodian binary...")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/custodian")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build custodian: %v\nOutput: %s", err, output)
	}
	return binaryPath
}

// waitForHealthy waits for url to return 200.
func waitForHealthy(url string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return true
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

func createFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}
