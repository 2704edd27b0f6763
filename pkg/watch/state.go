package watch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// SiteState contains the last run information for a site
type SiteState struct {
	LastRunTime    time.Time `json:"last_run_time"`
	LastRunSuccess bool      `json:"last_run_success"`
	PagesFetched   int       `json:"pages_fetched"`
	ContentHash    string    `json:"content_hash,omitempty"`     // Hash of the llms.txt last written
	LastChangeTime time.Time `json:"last_change_time,omitempty"` // When ContentHash last changed
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// WatchState contains the persistent state for the watch scheduler
type WatchState struct {
	Sites     map[string]SiteState `json:"sites"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// StateManager handles persisting and loading watch state as a JSON file
type StateManager struct {
	statePath string
	state     WatchState
	mu        sync.RWMutex
}

// NewStateManager creates a state manager backed by statePath
func NewStateManager(statePath string) *StateManager {
	return &StateManager{
		statePath: statePath,
		state: WatchState{
			Sites: make(map[string]SiteState),
		},
	}
}

// Load loads the state from disk. A missing file is an empty state.
func (m *StateManager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.state = WatchState{Sites: make(map[string]SiteState)}
			return nil
		}
		return fmt.Errorf("%w: failed to read state file: %w", utils.ErrFilesystem, err)
	}

	if err := json.Unmarshal(data, &m.state); err != nil {
		return fmt.Errorf("%w: failed to parse state file: %w", utils.ErrParsing, err)
	}
	if m.state.Sites == nil {
		m.state.Sites = make(map[string]SiteState)
	}
	return nil
}

// Save writes the state to disk through a temp file and rename
func (m *StateManager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.UpdatedAt = time.Now()

	if err := os.MkdirAll(filepath.Dir(m.statePath), 0755); err != nil {
		return fmt.Errorf("%w: failed to create state directory: %w", utils.ErrFilesystem, err)
	}

	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := m.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write state file: %w", utils.ErrFilesystem, err)
	}
	if err := os.Rename(tmp, m.statePath); err != nil {
		return fmt.Errorf("%w: failed to replace state file: %w", utils.ErrFilesystem, err)
	}
	return nil
}

// GetSiteState returns the state for a specific site
func (m *StateManager) GetSiteState(siteKey string) (SiteState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.state.Sites[siteKey]
	return state, ok
}

// Unchanged reports whether contentHash is what was last written for siteKey
func (m *StateManager) Unchanged(siteKey, contentHash string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.state.Sites[siteKey]
	return ok && contentHash != "" && state.ContentHash == contentHash
}

// RecordRun stores the outcome of a run at now. A failed run keeps the previous hash so
// the next successful run is compared against what is on disk.
func (m *StateManager) RecordRun(siteKey string, now time.Time, success bool, pagesFetched int, contentHash, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state.Sites[siteKey]
	next := SiteState{
		LastRunTime:    now,
		LastRunSuccess: success,
		PagesFetched:   pagesFetched,
		ContentHash:    prev.ContentHash,
		LastChangeTime: prev.LastChangeTime,
		ErrorMessage:   errorMsg,
	}
	if success && contentHash != "" && contentHash != prev.ContentHash {
		next.ContentHash = contentHash
		next.LastChangeTime = now
	}
	m.state.Sites[siteKey] = next
}

// ShouldRun reports whether a site is due at now
func (m *StateManager) ShouldRun(siteKey string, interval time.Duration, now time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.state.Sites[siteKey]
	if !ok {
		return true
	}
	return now.Sub(state.LastRunTime) >= interval
}

// GetNextRunTime returns when the site should next run; now for a site never run
func (m *StateManager) GetNextRunTime(siteKey string, interval time.Duration, now time.Time) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.state.Sites[siteKey]
	if !ok {
		return now
	}
	return state.LastRunTime.Add(interval)
}

// GetAllSiteStates returns a copy of all site states
func (m *StateManager) GetAllSiteStates() map[string]SiteState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]SiteState, len(m.state.Sites))
	for k, v := range m.state.Sites {
		result[k] = v
	}
	return result
}
