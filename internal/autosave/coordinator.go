// internal/autosave/coordinator.go
package autosave

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"codepad/internal/eventhub"
	"codepad/internal/registry"
	"codepad/internal/snapshot"
	"codepad/internal/storage"
)

// activeSnapshotKey is the crash-recovery slot for the active document
const activeSnapshotKey = "active"

// Syncer is the slice of the storage adapter the coordinator writes
// through
type Syncer interface {
	WriteFile(ctx context.Context, fileID, text string) error
	CreateFile(ctx context.Context, dirID, name, initialText string) (storage.Handle, error)
}

// Coordinator debounces edit notifications into two independent persist
// paths: a short-interval crash-recovery snapshot and a longer-interval
// disk sync. Both timers reset on every qualifying edit, so only the last
// state of a burst is ever persisted.
type Coordinator struct {
	docs      *registry.Registry
	syncer    Syncer
	snapshots *snapshot.Store
	hub       *eventhub.EventHub

	snapshotDelay time.Duration
	syncDelay     time.Duration

	mu             sync.Mutex
	snapshotTimer  *time.Timer
	syncTimer      *time.Timer
	pendingID      registry.DocumentID // document the armed timers cover
	workspaceDirID string
	stopped        bool
}

// New creates a Coordinator. Timers start on the first NoteEdit.
func New(docs *registry.Registry, syncer Syncer, snapshots *snapshot.Store, hub *eventhub.EventHub, snapshotDelay, syncDelay time.Duration) *Coordinator {
	return &Coordinator{
		docs:          docs,
		syncer:        syncer,
		snapshots:     snapshots,
		hub:           hub,
		snapshotDelay: snapshotDelay,
		syncDelay:     syncDelay,
	}
}

// SetWorkspace tells the coordinator which directory handle virtual
// documents should be created under. Empty clears it.
func (c *Coordinator) SetWorkspace(dirID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workspaceDirID = dirID
}

// NoteEdit registers a qualifying edit on the given document. Both
// debounce timers reset; each fires once after its own quiet period.
func (c *Coordinator) NoteEdit(id registry.DocumentID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.pendingID = id

	if c.snapshotTimer != nil {
		c.snapshotTimer.Stop()
	}
	c.snapshotTimer = time.AfterFunc(c.snapshotDelay, func() {
		c.captureSnapshot(id)
	})

	if c.syncTimer != nil {
		c.syncTimer.Stop()
	}
	c.syncTimer = time.AfterFunc(c.syncDelay, func() {
		c.syncDocument(context.Background(), id, false)
	})
}

// Flush runs any pending persists immediately. Used at shutdown. The
// flushed document is the one the timers were armed for; the user may
// have switched tabs since the last edit.
func (c *Coordinator) Flush(ctx context.Context) {
	c.mu.Lock()
	snapshotPending := c.snapshotTimer != nil && c.snapshotTimer.Stop()
	syncPending := c.syncTimer != nil && c.syncTimer.Stop()
	id := c.pendingID
	c.mu.Unlock()

	if snapshotPending {
		c.captureSnapshot(id)
	}
	if syncPending {
		c.syncDocument(ctx, id, false)
	}
}

// Stop cancels pending timers
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	if c.snapshotTimer != nil {
		c.snapshotTimer.Stop()
	}
	if c.syncTimer != nil {
		c.syncTimer.Stop()
	}
}

// SaveAll performs an immediate, un-debounced disk sync of every open
// document, not just the active one. Pending sync timers are cancelled:
// the explicit save supersedes them.
func (c *Coordinator) SaveAll(ctx context.Context) error {
	c.mu.Lock()
	if c.syncTimer != nil {
		c.syncTimer.Stop()
	}
	c.mu.Unlock()

	var firstErr error
	for _, doc := range c.docs.List() {
		if err := c.syncDocument(ctx, doc.ID, true); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// captureSnapshot writes the crash-recovery snapshot for the document.
// Never fails fatally: quota and storage errors are swallowed and logged.
func (c *Coordinator) captureSnapshot(id registry.DocumentID) {
	doc, ok := c.docs.Get(id)
	if !ok {
		// Closed while the timer was pending; nothing to capture
		return
	}

	err := c.snapshots.Save(activeSnapshotKey, snapshot.Snapshot{
		Filename: doc.Filename,
		Language: doc.Language,
		Content:  doc.Content,
	})
	if err != nil {
		log.Printf("autosave: snapshot of %s failed: %v", doc.Filename, err)
	}
}

// syncDocument writes one document to disk. Bound documents write through
// their handle; virtual documents are created under the open workspace
// folder and bound to the resulting handle; with neither, the cycle is a
// no-op and the content stays recoverable only via the snapshot.
//
// Every completion re-checks the registry before mutating it: a document
// closed while the write was in flight must not be resurrected.
func (c *Coordinator) syncDocument(ctx context.Context, id registry.DocumentID, forced bool) error {
	doc, ok := c.docs.Get(id)
	if !ok {
		return nil
	}
	if !doc.Dirty() && doc.HandleID != "" && !forced {
		return nil
	}

	content := doc.Content

	switch {
	case doc.HandleID != "":
		if err := c.syncer.WriteFile(ctx, doc.HandleID, content); err != nil {
			c.reportFailure(doc, "save", err)
			return err
		}
		if _, still := c.docs.Get(id); !still {
			return nil // closed mid-write; do not resurrect
		}
		c.docs.MarkSaved(id, content)

	case c.workspaceID() != "":
		handle, err := c.syncer.CreateFile(ctx, c.workspaceID(), doc.Filename, content)
		if err != nil {
			c.reportFailure(doc, "save", err)
			return err
		}
		if _, still := c.docs.Get(id); !still {
			return nil
		}
		c.docs.BindHandle(id, handle.ID)
		c.docs.MarkSaved(id, content)

	default:
		return nil
	}

	if c.hub != nil {
		c.hub.EmitSaveResult(eventhub.SaveResultEvent{
			DocumentID: int64(doc.ID),
			Filename:   doc.Filename,
			Saved:      true,
		})
	}
	return nil
}

func (c *Coordinator) workspaceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workspaceDirID
}

// reportFailure surfaces a failed save without touching document state:
// the dirty flag stays set and no partial mutation occurs.
func (c *Coordinator) reportFailure(doc registry.Document, action string, err error) {
	log.Printf("autosave: %s %s failed: %v", action, doc.Filename, err)
	if c.hub == nil {
		return
	}
	c.hub.EmitSaveResult(eventhub.SaveResultEvent{
		DocumentID: int64(doc.ID),
		Filename:   doc.Filename,
		Saved:      false,
		Cause:      err.Error(),
	})
	c.hub.EmitNotification(eventhub.Notification{
		Action: fmt.Sprintf("%s %s", action, doc.Filename),
		Cause:  err.Error(),
		Level:  "error",
	})
}
