// internal/storage/handle.go
package storage

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Kind tags a handle as a file or a directory. Every consumer switches on
// it exhaustively; there are no field-presence checks.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Handle is an opaque capability-scoped reference to a file or directory.
// The adapter owns every handle; other components hold only the ID.
type Handle struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
	Path string `json:"path"` // absolute path on the host filesystem
}

// HandleTable is the id-keyed side table mapping opaque handle IDs to
// filesystem locations.
type HandleTable struct {
	mu      sync.RWMutex
	handles map[string]Handle
	byPath  map[string]string // path -> id
}

// NewHandleTable creates an empty table
func NewHandleTable() *HandleTable {
	return &HandleTable{
		handles: make(map[string]Handle),
		byPath:  make(map[string]string),
	}
}

// Mint returns the handle for path, creating one if none exists
func (t *HandleTable) Mint(kind Kind, name, path string) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.byPath[path]; ok {
		return t.handles[id]
	}

	h := Handle{
		ID:   uuid.New().String(),
		Kind: kind,
		Name: name,
		Path: path,
	}
	t.handles[h.ID] = h
	t.byPath[path] = h.ID
	return h
}

// Get returns the handle for id
func (t *HandleTable) Get(id string) (Handle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.handles[id]
	return h, ok
}

// Invalidate removes a single handle
func (t *HandleTable) Invalidate(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.handles[id]; ok {
		delete(t.byPath, h.Path)
		delete(t.handles, id)
	}
}

// InvalidateUnder removes the handle at path and every handle below it,
// returning the dropped ids. Used when a subtree is deleted or renamed.
func (t *HandleTable) InvalidateUnder(path string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	prefix := strings.TrimSuffix(path, "/") + "/"
	var dropped []string
	for id, h := range t.handles {
		if h.Path == path || strings.HasPrefix(h.Path, prefix) {
			delete(t.byPath, h.Path)
			delete(t.handles, id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// IDsUnder returns the ids of all handles at or below path
func (t *HandleTable) IDsUnder(path string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	prefix := strings.TrimSuffix(path, "/") + "/"
	var ids []string
	for id, h := range t.handles {
		if h.Path == path || strings.HasPrefix(h.Path, prefix) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of live handles
func (t *HandleTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handles)
}
