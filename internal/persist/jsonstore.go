package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore persists a single JSON-encodable value to a file, serializing
// concurrent writers and durable against a crash mid-write via
// write-to-temp-then-rename — the same write-ahead-durability concern the
// economic WAL solves for Postgres rows, applied to a standalone JSON blob
// instead of a database transaction.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONStore returns a store bound to path. The containing directory is
// created if missing.
func NewJSONStore(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("persist: create directory for %s: %w", path, err)
	}
	return &JSONStore{path: path}, nil
}

// Save marshals v as indented JSON and writes it atomically: a temp file in
// the same directory is written and fsynced, then renamed over the target.
func (s *JSONStore) Save(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal %s: %w", s.path, err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("persist: open temp file for %s: %w", s.path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("persist: write temp file for %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("persist: sync temp file for %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("persist: close temp file for %s: %w", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("persist: rename into %s: %w", s.path, err)
	}
	return nil
}

// Load unmarshals the file's contents into v. A missing file is not an
// error: v is left untouched, matching the "start empty" behavior every
// JSON-persisted subsystem (tasks, locations, thinking log) wants on first
// run.
func (s *JSONStore) Load(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("persist: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("persist: unmarshal %s: %w", s.path, err)
	}
	return nil
}
