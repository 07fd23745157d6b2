// Package state keeps the update cursor between runs so a restarted bot
// does not receive updates it already handled.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is the persisted structure of the state file.
type State struct {
	Bot     string    `json:"bot"` // bot id, the token prefix
	Offset  int64     `json:"offset"`
	SavedAt time.Time `json:"saved_at"`
}

// OffsetFor returns the saved offset if it was written for bot. Offsets
// of another bot are meaningless and yield 0.
func (s State) OffsetFor(bot string) int64 {
	if s.Bot != bot || s.Offset < 0 {
		return 0
	}
	return s.Offset
}

// Store persists State in a single JSON file.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore returns a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// WithClock overrides the time source (for testing).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. A missing or empty file yields the zero State.
func (s *Store) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("read state file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return State{}, nil
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse state file: %w", err)
	}
	return st, nil
}

// Save records offset for bot. The file is replaced atomically.
func (s *Store) Save(bot string, offset int64) (retErr error) {
	st := State{Bot: bot, Offset: offset, SavedAt: s.now().UTC()}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmp)
		}
	}()

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open temp state file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("fsync temp state file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename temp state file: %w", err)
	}
	return nil
}
