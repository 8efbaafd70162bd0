// Package persist handles the optional on-disk round-trip of TimingState
// (drift_seed, last_session_end) across restarts, per §6: "may be written
// to a single JSON file at shutdown and reloaded on startup; absence is
// recovered by re-randomising drift_seed."
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coverdrift/coverdrift/internal/planner"
)

const stateFileName = "timing-state.json"

// Store reads and writes a planner.TimingState to a single JSON file,
// grounded directly on the teacher's gamification.Store: atomic
// temp-file-then-rename writes, tolerant loads when the file is absent.
type Store struct {
	dir string
}

// NewStore builds a Store rooted at dir. The directory is created on first
// Save if it does not already exist.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the full path to the state file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, stateFileName)
}

// Load reads the persisted TimingState. If the file does not exist, ok is
// false and the caller should fall back to a freshly randomised drift seed
// rather than treating this as an error.
func (s *Store) Load() (state planner.TimingState, ok bool, err error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return planner.TimingState{}, false, nil
		}
		return planner.TimingState{}, false, fmt.Errorf("reading timing state: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return planner.TimingState{}, false, fmt.Errorf("parsing timing state: %w", err)
	}
	return state, true, nil
}

// Save writes state to disk using an atomic temp-file-then-rename write.
func (s *Store) Save(state planner.TimingState) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling timing state: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, ".timing-state-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		return fmt.Errorf("renaming timing state file: %w", err)
	}
	committed = true

	return nil
}
