// Package tracker persists the "last ledger row written" pointer between runs.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoState is returned by Read when no tracker file exists yet. The caller
// falls back to scanning the ledger's key column for the last row.
var ErrNoState = errors.New("tracker: no prior state")

// State is the persisted tracker content.
type State struct {
	LastUpdatedRow int `json:"lastUpdatedRow"`
}

// Store reads and writes the tracker file. The design assumes a single
// writer: runs must not overlap. There is no fencing against concurrent
// processes mutating the same file.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Read returns the persisted last updated row. ErrNoState when the file does
// not exist or holds no usable row number.
func (s *Store) Read() (int, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNoState
		}
		return 0, fmt.Errorf("tracker: reading %q: %w", s.path, err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return 0, fmt.Errorf("tracker: parsing %q: %w", s.path, err)
	}
	if state.LastUpdatedRow <= 0 {
		return 0, ErrNoState
	}
	return state.LastUpdatedRow, nil
}

// Commit persists the new row pointer. It must only be called after the
// ledger write has been accepted by the backend. The write goes through a
// temp file and rename so the previous state survives a crash mid-write.
func (s *Store) Commit(row int) error {
	if row <= 0 {
		return fmt.Errorf("tracker: refusing to commit row %d", row)
	}

	raw, err := json.MarshalIndent(State{LastUpdatedRow: row}, "", "  ")
	if err != nil {
		return fmt.Errorf("tracker: encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".row_tracker-*")
	if err != nil {
		return fmt.Errorf("tracker: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("tracker: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("tracker: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("tracker: replacing %q: %w", s.path, err)
	}
	return nil
}
