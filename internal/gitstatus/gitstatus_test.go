package gitstatus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
)

func TestOpenNonRepo(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("Open() should fail on a directory without a repository")
	}
}

func TestUntrackedFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	status, err := repo.StatusByPath()
	if err != nil {
		t.Fatalf("StatusByPath() error = %v", err)
	}
	if status["new.txt"] != "untracked" {
		t.Errorf("status[new.txt] = %q, want untracked", status["new.txt"])
	}
}

func TestBranchUnbornHead(t *testing.T) {
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if branch := repo.Branch(); branch != "" {
		t.Errorf("Branch() = %q on unborn HEAD, want empty", branch)
	}
}
