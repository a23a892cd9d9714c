// Package agent implements the collection side: the sync orchestrator, the
// local checkpoint, and the HTTP client for the evidence store.
package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is the agent's locally persisted state. The checkpoint is advanced
// only after a fully successful transmission, so a failed cycle naturally
// retries the same window.
type State struct {
	LastSyncAt    *time.Time `json:"lastSyncAt"`
	ConfigVersion string     `json:"configVersion,omitempty"`
	APIToken      string     `json:"apiToken,omitempty"`
}

// StateStore reads and writes the state file under the agent's state dir.
type StateStore struct {
	path string
}

// NewStateStore returns a StateStore rooted at dir.
func NewStateStore(dir string) *StateStore {
	return &StateStore{path: filepath.Join(dir, "state.json")}
}

// Load reads the persisted state. A missing file yields a zero state.
func (s *StateStore) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("agent: read state %s: %w", s.path, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("agent: parse state %s: %w", s.path, err)
	}
	return &state, nil
}

// Save writes the state file with owner-only permissions (it may hold the
// API token).
func (s *StateStore) Save(state *State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("agent: create state dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("agent: marshal state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("agent: write state %s: %w", s.path, err)
	}
	return nil
}
