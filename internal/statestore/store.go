// internal/statestore/store.go
package statestore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is the persistent key-value slot backing folder state, the
// snapshot index, the assist API key, and setting overrides.
// Semantics are last-write-wins string payloads, nothing transactional.
type Store struct {
	db *sql.DB
}

// Open creates or opens the state database at the given path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// init creates the schema
func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetItem returns the value for key, or ("", false) when absent
func (s *Store) GetItem(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetItem stores value under key, replacing any previous value
func (s *Store) SetItem(key, value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO kv (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)`, key, value)
	return err
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (s *Store) RemoveItem(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

// GetJSON unmarshals the value stored under key into out
func (s *Store) GetJSON(key string, out interface{}) (bool, error) {
	value, ok, err := s.GetItem(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals v and stores it under key
func (s *Store) SetJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.SetItem(key, string(data))
}

// Keys returns all keys with the given prefix
func (s *Store) Keys(prefix string) ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv WHERE key LIKE ? ORDER BY key`, prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
