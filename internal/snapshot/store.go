// internal/snapshot/store.go
package snapshot

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"codepad/internal/statestore"
	"codepad/internal/xerrors"
)

const indexPrefix = "snapshot."

// Snapshot is one crash-recovery capture of a document
type Snapshot struct {
	Filename string    `json:"filename"`
	Language string    `json:"language"`
	Content  string    `json:"content"`
	SavedAt  time.Time `json:"saved_at"`
}

// indexEntry is what lives in the key-value store; content is kept on
// disk, compressed and content-addressed.
type indexEntry struct {
	Filename string    `json:"filename"`
	Language string    `json:"language"`
	Hash     string    `json:"hash"`
	SavedAt  time.Time `json:"saved_at"`
}

// Store persists crash-recovery snapshots: zstd-compressed content files
// named by content hash, with a JSON index in the key-value store.
type Store struct {
	baseDir string
	kv      *statestore.Store
	mu      sync.Mutex
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewStore creates a snapshot store rooted at baseDir
func NewStore(baseDir string, kv *statestore.Store) *Store {
	encoder, _ := zstd.NewWriter(nil)
	decoder, _ := zstd.NewReader(nil)

	return &Store{
		baseDir: baseDir,
		kv:      kv,
		encoder: encoder,
		decoder: decoder,
	}
}

// Save captures a snapshot under the given key. Identical content is not
// rewritten. Failures come back as QUOTA errors; callers treat the whole
// path as best-effort.
func (s *Store) Save(key string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	hash := contentHash(snap.Content)

	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return xerrors.NewQuota(err)
	}

	contentFile := filepath.Join(s.baseDir, hash+".zst")
	if _, err := os.Stat(contentFile); os.IsNotExist(err) {
		compressed := s.encoder.EncodeAll([]byte(snap.Content), nil)
		if err := os.WriteFile(contentFile, compressed, 0644); err != nil {
			return xerrors.NewQuota(err)
		}
	}

	var previous indexEntry
	hadPrevious, _ := s.kv.GetJSON(indexPrefix+key, &previous)

	entry := indexEntry{
		Filename: snap.Filename,
		Language: snap.Language,
		Hash:     hash,
		SavedAt:  snap.SavedAt,
	}
	if err := s.kv.SetJSON(indexPrefix+key, entry); err != nil {
		return xerrors.NewQuota(err)
	}

	// Drop the superseded content file unless another key still points at it
	if hadPrevious && previous.Hash != hash && !s.hashReferenced(previous.Hash) {
		os.Remove(filepath.Join(s.baseDir, previous.Hash+".zst"))
	}

	return nil
}

// Load returns the snapshot for key, or nil when none exists
func (s *Store) Load(key string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entry indexEntry
	ok, err := s.kv.GetJSON(indexPrefix+key, &entry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	compressed, err := os.ReadFile(filepath.Join(s.baseDir, entry.Hash+".zst"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, xerrors.NewNotFound("snapshot content for " + key)
		}
		return nil, err
	}

	content, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot %s: %w", key, err)
	}

	return &Snapshot{
		Filename: entry.Filename,
		Language: entry.Language,
		Content:  string(content),
		SavedAt:  entry.SavedAt,
	}, nil
}

// Clear removes the snapshot for key, best effort
func (s *Store) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entry indexEntry
	ok, _ := s.kv.GetJSON(indexPrefix+key, &entry)
	s.kv.RemoveItem(indexPrefix + key)
	if ok && !s.hashReferenced(entry.Hash) {
		os.Remove(filepath.Join(s.baseDir, entry.Hash+".zst"))
	}
}

// ListKeys returns the keys of all stored snapshots
func (s *Store) ListKeys() ([]string, error) {
	keys, err := s.kv.Keys(indexPrefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, indexPrefix)
	}
	return keys, nil
}

// hashReferenced reports whether any index entry still points at hash.
// Caller holds s.mu.
func (s *Store) hashReferenced(hash string) bool {
	keys, err := s.kv.Keys(indexPrefix)
	if err != nil {
		return true // be conservative, keep the file
	}
	for _, k := range keys {
		var entry indexEntry
		if ok, _ := s.kv.GetJSON(k, &entry); ok && entry.Hash == hash {
			return true
		}
	}
	return false
}

// contentHash returns the SHA256 hex digest of content
func contentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", h)
}
