package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// createTestRepo initializes a repository in dir with one policy commit.
func createTestRepo(t *testing.T, dir string) *gogit.Repository {
	t.Helper()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() failed: %v", err)
	}
	commitFile(t, repo, dir, "policies/standard.yaml", "policies: []\n", "initial commit")
	return repo
}

// commitFile writes content to name and commits it, returning the new SHA.
func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content, msg string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() failed: %v", err)
	}
	if _, err := worktree.Add(filepath.ToSlash(name)); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	hash, err := worktree.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Records Team",
			Email: "records@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	return hash.String()
}

// clonedRepo clones sourceDir into a fresh temp dir.
func clonedRepo(t *testing.T, sourceDir string) *Repository {
	t.Helper()

	r, err := NewRepository(&Config{
		Repository: sourceDir,
		Branch:     "master",
		Path:       "policies",
		LocalPath:  t.TempDir(),
		Timeout:    10 * time.Second,
		Auth:       AuthConfig{Type: "none"},
	})
	if err != nil {
		t.Fatalf("NewRepository() failed: %v", err)
	}
	if err := r.Clone(context.Background()); err != nil {
		t.Fatalf("Clone() failed: %v", err)
	}
	return r
}
