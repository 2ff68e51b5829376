package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"mercator-hq/custodian/pkg/policy/git"
)

func TestNewManager_Config(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "file without path", cfg: &Config{Mode: ModeFile}, wantErr: true},
		{name: "unknown mode", cfg: &Config{Mode: "s3", Path: "x"}, wantErr: true},
		{name: "git without repository", cfg: &Config{Mode: ModeGit}, wantErr: true},
		{name: "file", cfg: &Config{Mode: ModeFile, Path: "policies"}},
		{name: "default mode is file", cfg: &Config{Path: "policies"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(context.Background(), tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewManager() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestManager_LoadAndReloadKeepsLastGood(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "policies.yaml", regulatoryYAML)

	var results []ReloadResult
	m, err := NewManager(context.Background(), &Config{Path: path}, nil,
		WithReloadHook(func(r ReloadResult) { results = append(results, r) }))
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}

	if err := m.LoadPolicies(); err != nil {
		t.Fatalf("LoadPolicies() failed: %v", err)
	}
	if _, ok := m.Policy("regulatory-7y"); !ok {
		t.Fatal("Policy(regulatory-7y) not found after load")
	}
	version := m.Version()

	writeFile(t, dir, "policies.yaml", "policies:\n  - id: broken\n    retention_period_days: 0\n")
	if err := m.ReloadPolicies(); err == nil {
		t.Fatal("ReloadPolicies() expected error for malformed file")
	}
	if m.Version() != version || len(m.Policies()) != 1 {
		t.Error("failed reload replaced the active policies")
	}
	if m.LastLoadError() == nil {
		t.Error("LastLoadError() = nil after failed reload")
	}

	writeFile(t, dir, "policies.yaml", acknowledgementYAML)
	if err := m.ReloadPolicies(); err != nil {
		t.Fatalf("ReloadPolicies() failed: %v", err)
	}
	if len(m.Policies()) != 1 || m.Policies()[0].ID != "ack-standard" {
		t.Errorf("Policies() after reload = %v", m.Policies())
	}
	if m.LastLoadError() != nil || m.LastLoadTime().IsZero() {
		t.Errorf("load state not reset: err=%v time=%v", m.LastLoadError(), m.LastLoadTime())
	}

	if len(results) != 3 || results[1].Err == nil || results[2].Count != 2 {
		t.Errorf("reload hook results = %+v", results)
	}
}

func TestManager_ValidatePoliciesDryRun(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good/p.yaml", regulatoryYAML)
	bad := writeFile(t, dir, "bad/p.yaml", "policies:\n  - id: x\n")

	m, err := NewManager(context.Background(), &Config{Path: good}, nil)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}

	policies, err := m.ValidatePoliciesDryRun("")
	if err != nil || len(policies) != 1 {
		t.Fatalf("ValidatePoliciesDryRun() = %d, %v", len(policies), err)
	}
	if m.Registry().Count() != 0 {
		t.Error("dry run installed policies")
	}

	var ve *ValidationError
	if _, err := m.ValidatePoliciesDryRun(bad); !errors.As(err, &ve) {
		t.Errorf("ValidatePoliciesDryRun(bad) error = %v, want *ValidationError", err)
	}
}

func TestManager_WatchFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "regulatory.yaml", regulatoryYAML)

	reloaded := make(chan ReloadResult, 10)
	m, err := NewManager(context.Background(), &Config{
		Path:             dir,
		Watch:            true,
		DebounceInterval: 20 * time.Millisecond,
	}, nil, WithReloadHook(func(r ReloadResult) { reloaded <- r }))
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	if err := m.LoadPolicies(); err != nil {
		t.Fatalf("LoadPolicies() failed: %v", err)
	}
	<-reloaded

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Watch(ctx); err != nil {
			t.Errorf("Watch() failed: %v", err)
		}
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "ack.yaml", acknowledgementYAML)

	// Create and write may land in separate reloads; wait for the full set.
	deadline := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case r := <-reloaded:
			if r.Err != nil {
				t.Fatalf("reload failed: %v", r.Err)
			}
			done = r.Count == 3
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}

	cancel()
	wg.Wait()
}

func TestManager_WatchDisabled(t *testing.T) {
	m, err := NewManager(context.Background(), &Config{Path: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	if err := m.Watch(context.Background()); !errors.Is(err, ErrWatchDisabled) {
		t.Errorf("Watch() error = %v, want ErrWatchDisabled", err)
	}
}

func TestManager_GitMode(t *testing.T) {
	sourceDir := t.TempDir()
	src, err := gogit.PlainInit(sourceDir, false)
	if err != nil {
		t.Fatalf("PlainInit() failed: %v", err)
	}
	commit := func(name, content string) {
		t.Helper()
		writeFile(t, sourceDir, name, content)
		wt, err := src.Worktree()
		if err != nil {
			t.Fatalf("Worktree() failed: %v", err)
		}
		if _, err := wt.Add(filepath.ToSlash(name)); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
		_, err = wt.Commit("update "+name, &gogit.CommitOptions{
			Author: &object.Signature{Name: "Records", Email: "records@example.com", When: time.Now()},
		})
		if err != nil {
			t.Fatalf("Commit() failed: %v", err)
		}
	}
	commit("policies/regulatory.yaml", regulatoryYAML)

	m, err := NewManager(context.Background(), &Config{
		Mode: ModeGit,
		Git: git.Config{
			Repository: sourceDir,
			Branch:     "master",
			Path:       "policies",
			LocalPath:  filepath.Join(t.TempDir(), "clone"),
			Timeout:    10 * time.Second,
		},
	}, nil)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	if err := m.LoadPolicies(); err != nil {
		t.Fatalf("LoadPolicies() failed: %v", err)
	}
	first, err := m.CurrentCommit()
	if err != nil {
		t.Fatalf("CurrentCommit() failed: %v", err)
	}

	// A malformed push is rolled back and the old policies stay active.
	commit("policies/broken.yaml", "policies:\n  - id: broken\n")
	if err := m.ForceSync(context.Background()); err == nil {
		t.Fatal("ForceSync() expected error for malformed policies")
	}
	head, err := m.CurrentCommit()
	if err != nil {
		t.Fatalf("CurrentCommit() failed: %v", err)
	}
	if head.SHA != first.SHA {
		t.Errorf("HEAD = %s, want rollback to %s", head.ShortSHA(), first.ShortSHA())
	}
	if _, err := os.Stat(filepath.Join(m.sourcePath(), "broken.yaml")); !os.IsNotExist(err) {
		t.Errorf("broken.yaml still present after rollback: %v", err)
	}
	if len(m.Policies()) != 1 {
		t.Errorf("Policies() = %d, want 1", len(m.Policies()))
	}
}
