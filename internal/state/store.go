// Package state owns the durable run artifacts: the resumable key->path
// mapping and the append-only failure log.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/afero"
)

const (
	// StateFileName is the resumable mapping inside the output directory.
	StateFileName = "download_state.json"
	// FailedLogName is the append-only failure log inside the output directory.
	FailedLogName = "failed_downloads.log"
)

// Store is the durable dedup_key -> local_path mapping shared by all workers.
// Record flushes the whole mapping under one mutex, so concurrent writers
// never interleave a torn file. Entries are never removed.
type Store struct {
	fs   afero.Fs
	path string

	mu      sync.Mutex
	entries map[string]string
}

func NewStore(fs afero.Fs, path string) *Store {
	return &Store{
		fs:      fs,
		path:    path,
		entries: make(map[string]string),
	}
}

// Load reads prior state from disk. A missing file is a clean first run.
// An unreadable or corrupt file leaves the store empty and returns the
// error so the caller can log a warning; it is never fatal.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]string)

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not read state file: %w", err)
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("could not parse state file: %w", err)
	}

	s.entries = entries
	return nil
}

// Contains reports whether the dedup key has a recorded download.
func (s *Store) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Record inserts the entry and persists the full mapping. Callers only
// invoke this after the file at path exists with content.
func (s *Store) Record(key, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = path
	return s.persist()
}

// Len returns the number of recorded downloads.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// persist writes the mapping to a temp sibling and renames it into place.
// Caller must hold s.mu.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("could not write state file: %w", err)
	}

	if err := s.fs.Rename(tmp, s.path); err != nil {
		// Some backends refuse to rename onto an existing file.
		if rmErr := s.fs.Remove(s.path); rmErr != nil {
			return fmt.Errorf("could not replace state file: %w", err)
		}
		if err := s.fs.Rename(tmp, s.path); err != nil {
			return fmt.Errorf("could not replace state file: %w", err)
		}
	}
	return nil
}
