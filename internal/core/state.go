package core

import (
	"sync"
	"time"
)

// State holds the single source of truth for the agent. Snapshots of it are
// sent to control clients, so the fields carry JSON tags.
type State struct {
	mu             sync.RWMutex
	HookInstalled  bool      `json:"hookInstalled"`
	HookReinstalls int       `json:"hookReinstalls"`
	AdapterCount   int       `json:"adapterCount"`
	EnabledCount   int       `json:"enabledCount"`
	LastHotkey     string    `json:"lastHotkey"`
	LastHotkeyAt   time.Time `json:"lastHotkeyAt"`
	LastAction     string    `json:"lastAction"`
	LastActionOK   bool      `json:"lastActionOk"`
}

// NewState creates a new State instance.
func NewState() *State {
	return &State{}
}

// Clone returns a snapshot of the current state for safe reading.
func (s *State) Clone() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		HookInstalled:  s.HookInstalled,
		HookReinstalls: s.HookReinstalls,
		AdapterCount:   s.AdapterCount,
		EnabledCount:   s.EnabledCount,
		LastHotkey:     s.LastHotkey,
		LastHotkeyAt:   s.LastHotkeyAt,
		LastAction:     s.LastAction,
		LastActionOK:   s.LastActionOK,
	}
}

// SetHook updates the hook installation state.
func (s *State) SetHook(installed bool, reinstalls int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HookInstalled = installed
	s.HookReinstalls = reinstalls
}

// SetAdapterCounts updates the adapter totals from the last refresh.
func (s *State) SetAdapterCounts(total, enabled int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AdapterCount = total
	s.EnabledCount = enabled
}

// SetLastHotkey records the most recently fired hotkey combination.
func (s *State) SetLastHotkey(combo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastHotkey = combo
	s.LastHotkeyAt = time.Now()
}

// SetLastAction records the outcome of the most recent adapter action.
func (s *State) SetLastAction(summary string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastAction = summary
	s.LastActionOK = ok
}
