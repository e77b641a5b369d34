package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

func TestRevision_OutsideRepository(t *testing.T) {
	if rev := Revision(t.TempDir()); rev != "" {
		t.Errorf("expected empty revision outside a repository, got %q", rev)
	}
}

func TestRevision_HeadHash(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}

	sub := filepath.Join(dir, "manuscript")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "ch01.md"), []byte("# Chapter One\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add("manuscript/ch01.md"); err != nil {
		t.Fatalf("add: %v", err)
	}
	hash, err := wt.Commit("initial draft", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if rev := Revision(dir); rev != hash.String() {
		t.Errorf("Revision(root) = %q, want %q", rev, hash.String())
	}
	// A nested manuscript directory resolves to the same repository.
	if rev := Revision(sub); rev != hash.String() {
		t.Errorf("Revision(subdir) = %q, want %q", rev, hash.String())
	}
}
