// internal/watcher/watcher.go
package watcher

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind classifies an external filesystem change
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeModify ChangeKind = "modify"
	ChangeDelete ChangeKind = "delete"
	ChangeRename ChangeKind = "rename"
)

// Change is one debounced external change inside the workspace
type Change struct {
	Path string
	Kind ChangeKind
}

// WorkspaceWatcher watches the workspace root plus every expanded
// directory and reports external changes, per-path debounced so editor
// saves and bulk operations collapse into one notification.
type WorkspaceWatcher struct {
	debounce time.Duration
	onChange func(Change)

	fs      *fsnotify.Watcher
	done    chan struct{}
	mu      sync.Mutex
	pending map[string]*pendingChange
	closed  bool
}

// pendingChange is one armed debounce slot per path
type pendingChange struct {
	timer *time.Timer
	kind  ChangeKind
}

// New creates a watcher over root. Additional directories join via
// AddDir as the tree expands.
func New(root string, debounce time.Duration, onChange func(Change)) (*WorkspaceWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fs.Add(root); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	w := &WorkspaceWatcher{
		debounce: debounce,
		onChange: onChange,
		fs:       fs,
		done:     make(chan struct{}),
		pending:  make(map[string]*pendingChange),
	}
	go w.loop()
	return w, nil
}

// AddDir starts watching an expanded directory
func (w *WorkspaceWatcher) AddDir(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("watcher is closed")
	}
	return w.fs.Add(path)
}

// Close stops the watcher and cancels pending debounce timers
func (w *WorkspaceWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	for _, p := range w.pending {
		p.timer.Stop()
	}
	w.pending = make(map[string]*pendingChange)

	return w.fs.Close()
}

func (w *WorkspaceWatcher) loop() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if kind, relevant := classify(event.Op); relevant {
				w.schedule(Change{Path: event.Name, Kind: kind})
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: %v", err)

		case <-w.done:
			return
		}
	}
}

// classify maps fsnotify ops onto change kinds, dropping chmod noise
func classify(op fsnotify.Op) (ChangeKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return ChangeCreate, true
	case op.Has(fsnotify.Write):
		return ChangeModify, true
	case op.Has(fsnotify.Remove):
		return ChangeDelete, true
	case op.Has(fsnotify.Rename):
		return ChangeRename, true
	default:
		return "", false
	}
}

// schedule arms the per-path debounce timer, replacing any pending one
// so only one change per burst is delivered. A create followed by writes
// in the same burst stays a create: os.WriteFile on a new file emits
// Create then Write, and consumers need to see the file appear.
func (w *WorkspaceWatcher) schedule(c Change) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if p, ok := w.pending[c.Path]; ok {
		p.timer.Stop()
		if p.kind == ChangeCreate && c.Kind == ChangeModify {
			c.Kind = ChangeCreate
		}
	}

	p := &pendingChange{kind: c.Kind}
	p.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, c.Path)
		w.mu.Unlock()

		w.onChange(c)
	})
	w.pending[c.Path] = p
}
