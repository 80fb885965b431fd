// internal/folderstate/folderstate.go
package folderstate

import (
	"log"
	"time"

	"codepad/internal/statestore"
)

const stateKey = "folder.state"

// Record is the persisted workspace metadata. It is advisory only: the
// directory handle itself cannot survive a restart, so reopening a folder
// always needs a fresh picker gesture.
type Record struct {
	HasFolder     bool      `json:"has_folder"`
	FolderName    string    `json:"folder_name"`
	ExpandedPaths []string  `json:"expanded_paths"`
	Timestamp     time.Time `json:"timestamp"`
}

// Cache persists the folder-state record in the key-value store.
// All failures are swallowed and logged: this data is a UI convenience,
// never authoritative.
type Cache struct {
	store *statestore.Store
}

// New creates a Cache backed by the given store
func New(store *statestore.Store) *Cache {
	return &Cache{store: store}
}

// Save writes the record, stamping it with the current time
func (c *Cache) Save(record Record) {
	record.Timestamp = time.Now()
	if err := c.store.SetJSON(stateKey, record); err != nil {
		log.Printf("folderstate: save failed: %v", err)
	}
}

// Load returns the persisted record, or nil when none exists
func (c *Cache) Load() *Record {
	var record Record
	ok, err := c.store.GetJSON(stateKey, &record)
	if err != nil {
		log.Printf("folderstate: load failed: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &record
}

// Clear removes the record. Called when the user detaches from a folder.
func (c *Cache) Clear() {
	if err := c.store.RemoveItem(stateKey); err != nil {
		log.Printf("folderstate: clear failed: %v", err)
	}
}
