// internal/registry/registry.go
package registry

import (
	"errors"
	"sync"
)

// ErrUnsavedChanges is returned by Close when the document is dirty and
// force is false. The caller must obtain user confirmation and retry with
// force=true.
var ErrUnsavedChanges = errors.New("document has unsaved changes")

// EventEmitter interface for emitting events to the frontend
type EventEmitter interface {
	Emit(eventName string, data interface{})
}

// Registry owns the set of open documents and the active-document pointer.
// It never touches storage handles beyond holding their opaque IDs; the
// storage adapter owns handle lifecycles.
type Registry struct {
	mu      sync.RWMutex
	nextID  DocumentID
	docs    map[DocumentID]*Document
	order   []DocumentID // open order, oldest first
	active  DocumentID   // 0 = none
	emitter EventEmitter
}

// New creates an empty Registry
func New(emitter EventEmitter) *Registry {
	return &Registry{
		docs:    make(map[DocumentID]*Document),
		emitter: emitter,
	}
}

// Open creates a document, appends it to the tab sequence, and makes it
// active. The new document starts clean: OriginalContent == Content.
// An empty language means "infer from the filename".
func (r *Registry) Open(filename, content, language, handleID string) DocumentID {
	r.mu.Lock()
	defer r.mu.Unlock()

	pinned := language != ""
	if language == "" {
		language = InferLanguage(filename)
		pinned = false
	}

	r.nextID++
	doc := &Document{
		ID:              r.nextID,
		Filename:        filename,
		Content:         content,
		OriginalContent: content,
		Language:        language,
		LanguagePinned:  pinned,
		HandleID:        handleID,
	}

	r.docs[doc.ID] = doc
	r.order = append(r.order, doc.ID)
	r.active = doc.ID

	r.emit("document:opened", *doc)
	return doc.ID
}

// Activate flushes the outgoing document's live editing-surface content,
// then switches to id. Unknown ids are a silent no-op: nothing is flushed
// and the active pointer does not move.
func (r *Registry) Activate(id DocumentID, liveContent string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return
	}

	// Flush-before-switch: both steps happen under one lock, so no edit
	// can interleave between them.
	if outgoing, ok := r.docs[r.active]; ok {
		outgoing.Content = liveContent
	}

	r.active = id
	r.emit("document:activated", *r.docs[id])
}

// UpdateContent records the live editing-surface content for a document.
// Called on every change notification from the editor.
func (r *Registry) UpdateContent(id DocumentID, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return
	}
	doc.Content = content
	r.emit("document:changed", *doc)
}

// Close removes a document. A dirty document needs force=true; the caller
// is responsible for having confirmed the discard with the user. Closing
// the active document activates the most-recently-opened survivor, or
// empties the registry.
func (r *Registry) Close(id DocumentID, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil
	}
	if doc.Dirty() && !force {
		return ErrUnsavedChanges
	}

	delete(r.docs, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if r.active == id {
		if len(r.order) > 0 {
			r.active = r.order[len(r.order)-1]
			r.emit("document:activated", *r.docs[r.active])
		} else {
			r.active = 0
		}
	}

	r.emit("document:closed", *doc)
	return nil
}

// Rename updates the filename. Renaming to the current name is a complete
// no-op. A real name change re-infers the language (clearing any manual
// pin) and invalidates the storage handle so the next save retargets
// storage by name.
func (r *Registry) Rename(id DocumentID, newName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok || doc.Filename == newName {
		return
	}

	doc.Filename = newName
	doc.Language = InferLanguage(newName)
	doc.LanguagePinned = false
	doc.HandleID = ""
	r.emit("document:changed", *doc)
}

// MarkSaved records a successful persist of the given content
func (r *Registry) MarkSaved(id DocumentID, persistedContent string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return
	}
	doc.OriginalContent = persistedContent
	r.emit("document:saved", *doc)
}

// SetLanguage pins a manual language choice. The pin survives until the
// next filename change.
func (r *Registry) SetLanguage(id DocumentID, language string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return
	}
	doc.Language = language
	doc.LanguagePinned = true
	r.emit("document:changed", *doc)
}

// BindHandle attaches a storage handle to a virtual document, typically
// after autosave created the backing file.
func (r *Registry) BindHandle(id DocumentID, handleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc, ok := r.docs[id]; ok {
		doc.HandleID = handleID
	}
}

// OrphanHandle detaches every document bound to handleID, returning the
// affected ids. Must run before a delete of the underlying entry is
// reported successful, so no later write targets the dead handle.
func (r *Registry) OrphanHandle(handleID string) []DocumentID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var orphaned []DocumentID
	for _, id := range r.order {
		doc := r.docs[id]
		if doc.HandleID == handleID {
			doc.HandleID = ""
			orphaned = append(orphaned, id)
			r.emit("document:changed", *doc)
		}
	}
	return orphaned
}

// Get returns a copy of the document
func (r *Registry) Get(id DocumentID) (Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// Active returns a copy of the active document
func (r *Registry) Active() (Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[r.active]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// ActiveID returns the active document id, or 0 when the registry is empty
func (r *Registry) ActiveID() DocumentID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// List returns copies of all open documents in tab order
func (r *Registry) List() []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]Document, 0, len(r.order))
	for _, id := range r.order {
		docs = append(docs, *r.docs[id])
	}
	return docs
}

// Len returns the number of open documents
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func (r *Registry) emit(eventName string, data interface{}) {
	if r.emitter != nil {
		r.emitter.Emit(eventName, data)
	}
}
