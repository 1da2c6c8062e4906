package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PersistedUser is the durable form of one user's state.
type PersistedUser struct {
	Messages   []Message `json:"messages"`
	LastActive int64     `json:"last_active"` // epoch seconds
}

// Persistence handles saving and loading the full user map.
type Persistence interface {
	Save(users map[string]PersistedUser) error
	Load() (map[string]PersistedUser, error)
}

// FilePersistence stores the user map as a single JSON document.
type FilePersistence struct {
	path string
}

// NewFilePersistence creates a file-backed persistence handler.
func NewFilePersistence(path string) *FilePersistence {
	return &FilePersistence{path: path}
}

// Save writes the user map atomically (temp file + rename).
func (f *FilePersistence) Save(users map[string]PersistedUser) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal histories: %w", err)
	}

	tempFile := f.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}

	if err := os.Rename(tempFile, f.path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to save histories: %w", err)
	}

	return nil
}

// Load reads the user map. A missing file is not an error; it returns an
// empty map so a fresh deployment starts clean.
func (f *FilePersistence) Load() (map[string]PersistedUser, error) {
	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		return make(map[string]PersistedUser), nil
	}

	data, err := os.ReadFile(f.path) // #nosec G304 - path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var users map[string]PersistedUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal histories: %w", err)
	}
	if users == nil {
		users = make(map[string]PersistedUser)
	}

	return users, nil
}

// NoopPersistence discards saves and loads nothing. It keeps persistence
// optional for tests and dry runs.
type NoopPersistence struct{}

// NewNoopPersistence creates a no-op persistence handler.
func NewNoopPersistence() *NoopPersistence {
	return &NoopPersistence{}
}

// Save does nothing.
func (n *NoopPersistence) Save(_ map[string]PersistedUser) error {
	return nil
}

// Load returns an empty map.
func (n *NoopPersistence) Load() (map[string]PersistedUser, error) {
	return make(map[string]PersistedUser), nil
}

// Save sweeps stale entries and writes the remaining user map through the
// configured persistence. Safe to call after every mutation.
func (s *Store) Save() error {
	s.mu.Lock()
	s.sweepLocked(s.opts.Clock())
	persisted := s.persistedLocked()
	s.mu.Unlock()

	if err := s.opts.Persistence.Save(persisted); err != nil {
		return fmt.Errorf("failed to save histories: %w", err)
	}
	return nil
}

// Load replaces the in-memory map with the persisted one. On failure the
// store is left empty and the error is returned for logging; startup should
// treat it as non-fatal.
func (s *Store) Load() error {
	users, err := s.opts.Persistence.Load()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[string]*userState)
	if err != nil {
		return fmt.Errorf("failed to load histories: %w", err)
	}

	for id, p := range users {
		msgs := make([]Message, len(p.Messages))
		copy(msgs, p.Messages)
		s.users[id] = &userState{
			messages:   msgs,
			lastActive: time.Unix(p.LastActive, 0),
		}
	}
	return nil
}

// persistedLocked converts the in-memory map to its durable form.
// Caller must hold s.mu.
func (s *Store) persistedLocked() map[string]PersistedUser {
	persisted := make(map[string]PersistedUser, len(s.users))
	for id, state := range s.users {
		msgs := make([]Message, len(state.messages))
		copy(msgs, state.messages)
		persisted[id] = PersistedUser{
			Messages:   msgs,
			LastActive: state.lastActive.Unix(),
		}
	}
	return persisted
}
