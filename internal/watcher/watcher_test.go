package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) record(c Change) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

func TestNewInvalidRoot(t *testing.T) {
	_, err := New("/nonexistent/workspace/path", 50*time.Millisecond, func(Change) {})
	if err == nil {
		t.Fatal("New() should fail for a missing root")
	}
}

func TestCreateChange(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}

	w, err := New(dir, 50*time.Millisecond, rec.record)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(dir, "external.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	found := false
	for _, c := range rec.snapshot() {
		if c.Kind == ChangeCreate && c.Path == target {
			found = true
		}
	}
	if !found {
		t.Errorf("no create change for %s in %v", target, rec.snapshot())
	}
}

func TestCreateSurvivesFollowingWrites(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}

	w, err := New(dir, 100*time.Millisecond, rec.record)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	time.Sleep(100 * time.Millisecond)

	// Create plus writes inside one debounce window: the coalesced
	// delivery must still say the file appeared
	target := filepath.Join(dir, "fresh.txt")
	if err := os.WriteFile(target, []byte("v1"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(target, []byte("v2"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	changes := rec.snapshot()
	if len(changes) != 1 {
		t.Fatalf("got %d deliveries %v, want 1 coalesced change", len(changes), changes)
	}
	if changes[0].Kind != ChangeCreate || changes[0].Path != target {
		t.Errorf("delivered %+v, want a create for %s", changes[0], target)
	}
}

func TestDeleteChange(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doomed.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := &recorder{}
	w, err := New(dir, 50*time.Millisecond, rec.record)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	time.Sleep(100 * time.Millisecond)

	if err := os.Remove(target); err != nil {
		t.Fatalf("remove: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	found := false
	for _, c := range rec.snapshot() {
		if c.Kind == ChangeDelete && c.Path == target {
			found = true
		}
	}
	if !found {
		t.Errorf("no delete change for %s in %v", target, rec.snapshot())
	}
}

func TestBurstDebounced(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "busy.txt")

	rec := &recorder{}
	w, err := New(dir, 100*time.Millisecond, rec.record)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 10; i++ {
		if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(300 * time.Millisecond)

	if got := len(rec.snapshot()); got >= 10 {
		t.Errorf("%d changes delivered for a 10-write burst; debounce should coalesce", got)
	}
}

func TestAddDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	rec := &recorder{}
	w, err := New(dir, 50*time.Millisecond, rec.record)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.AddDir(sub); err != nil {
		t.Fatalf("AddDir() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(sub, "inner.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	found := false
	for _, c := range rec.snapshot() {
		if c.Path == target {
			found = true
		}
	}
	if !found {
		t.Errorf("no change observed under the added directory: %v", rec.snapshot())
	}
}

func TestCloseTwice(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond, func(Change) {})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := w.AddDir(dir); err == nil {
		t.Error("AddDir() after Close should fail")
	}
}
