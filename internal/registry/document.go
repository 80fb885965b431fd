// internal/registry/document.go
package registry

// DocumentID identifies an open document. IDs are assigned monotonically
// per session and never reused.
type DocumentID int64

// Document is one open tab. A document with an empty HandleID is virtual:
// it has never been saved to disk (or its handle was invalidated by a
// rename or an external delete).
type Document struct {
	ID              DocumentID `json:"id"`
	Filename        string     `json:"filename"`
	Content         string     `json:"content"`
	OriginalContent string     `json:"original_content"`
	Language        string     `json:"language"`
	LanguagePinned  bool       `json:"language_pinned"`
	HandleID        string     `json:"handle_id,omitempty"`
}

// Dirty reports whether the in-memory content differs from the last
// persisted snapshot. Always derived, never stored.
func (d *Document) Dirty() bool {
	return d.Content != d.OriginalContent
}

// Virtual reports whether the document has no bound storage handle
func (d *Document) Virtual() bool {
	return d.HandleID == ""
}
