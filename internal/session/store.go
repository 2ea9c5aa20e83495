// Package session persists the driver's current scan-session key so an
// interrupted run resumes instead of forking a new session.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrEmptyKey = errors.New("session: empty session key")

// Store holds the session key for an in-progress scanning run.
//
// Get reports the stored key and whether one is present; a non-nil error
// means the store could not be read at all, which callers must not confuse
// with absence. Set overwrites any prior key. Clear returns the store to the
// absent state; clearing an absent store is not an error.
type Store interface {
	Get() (string, bool, error)
	Set(key string) error
	Clear() error
}

// FileStore keeps the key in a single file on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath places the session file under the user config directory.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("session: resolve config dir: %w", err)
	}
	return filepath.Join(base, "pantrack", "session"), nil
}

// Get treats a missing file as an absent key. Any other read failure is
// surfaced so a transient I/O error mid-run does not silently fork a new
// session.
func (s *FileStore) Get() (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: read state: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", false, nil
	}
	return key, true, nil
}

func (s *FileStore) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: create state dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("session: write state: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: clear state: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests and embedded callers.
type MemStore struct {
	mu  sync.Mutex
	key string
	set bool
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Get() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, s.set, nil
}

func (s *MemStore) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	s.set = true
	return nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = ""
	s.set = false
	return nil
}
