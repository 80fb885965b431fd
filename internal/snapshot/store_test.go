package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"codepad/internal/statestore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	kv, err := statestore.Open(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("statestore.Open() error = %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return NewStore(filepath.Join(dir, "snapshots"), kv)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	in := Snapshot{Filename: "a.py", Language: "python", Content: "print(1)\n"}
	if err := s.Save("active", in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := s.Load("active")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out == nil {
		t.Fatal("Load() returned nil after Save()")
	}
	if out.Content != in.Content {
		t.Errorf("Content = %q, want %q", out.Content, in.Content)
	}
	if out.Filename != "a.py" || out.Language != "python" {
		t.Errorf("metadata = %q/%q, want a.py/python", out.Filename, out.Language)
	}
	if out.SavedAt.IsZero() {
		t.Error("SavedAt should be stamped")
	}
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)

	out, err := s.Load("never-saved")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out != nil {
		t.Errorf("Load() = %+v, want nil", out)
	}
}

func TestSaveReplacesContent(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save("active", Snapshot{Filename: "a.txt", Content: "first"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save("active", Snapshot{Filename: "a.txt", Content: "second"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := s.Load("active")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.Content != "second" {
		t.Errorf("Content = %q, want the last write", out.Content)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save("active", Snapshot{Filename: "a.txt", Content: "x"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s.Clear("active")

	out, err := s.Load("active")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out != nil {
		t.Errorf("Load() = %+v after Clear(), want nil", out)
	}

	// Content file should be gone too
	entries, err := os.ReadDir(s.baseDir)
	if err == nil && len(entries) != 0 {
		t.Errorf("snapshot dir still holds %d files after Clear()", len(entries))
	}
}

func TestSharedContentSurvivesClear(t *testing.T) {
	s := newTestStore(t)

	// Two keys with identical content share one content file
	if err := s.Save("a", Snapshot{Filename: "a.txt", Content: "same"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save("b", Snapshot{Filename: "b.txt", Content: "same"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	s.Clear("a")

	out, err := s.Load("b")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out == nil || out.Content != "same" {
		t.Errorf("Load(b) = %+v, want surviving shared content", out)
	}
}

func TestListKeys(t *testing.T) {
	s := newTestStore(t)

	for _, k := range []string{"one", "two"} {
		if err := s.Save(k, Snapshot{Filename: k + ".txt", Content: k}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	keys, err := s.ListKeys()
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("ListKeys() = %v, want 2 keys", keys)
	}
}
