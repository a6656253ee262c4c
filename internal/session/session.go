// Package session holds the mutable per-session state: the single
// current-result slot. Everything else in the pipeline is immutable after
// construction.
package session

import (
	"sync"

	"drtnav/internal/domain"
)

// State guards the current ResolvedPath. Resolves are tagged with a
// monotonic request id at start; a result only commits if no newer resolve
// (or clear) happened in the meantime, so a slow stale resolve can never
// overwrite fresher state.
type State struct {
	mu      sync.RWMutex
	nextID  uint64
	latest  uint64
	current *domain.ResolvedPath
}

func NewState() *State {
	return &State{}
}

// Begin allocates a request id for a new resolve and marks it the latest
// outstanding one.
func (s *State) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.latest = s.nextID
	return s.nextID
}

// Commit stores the result if its request is still the latest. Returns
// false when a newer resolve or a clear superseded it.
func (s *State) Commit(path *domain.ResolvedPath) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path.RequestID != s.latest {
		return false
	}
	s.current = path
	return true
}

// Current returns the stored result, or nil when the slot is empty. The
// returned path is shared and must be treated as read-only.
func (s *State) Current() *domain.ResolvedPath {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Clear empties the slot. It also supersedes any in-flight resolve, which
// will then fail to commit.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.latest = s.nextID
	s.current = nil
}
