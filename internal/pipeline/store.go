package pipeline

import "sync"

// Store holds the most recent BuildResult for serving. Results are replaced
// wholesale; readers always see a complete, immutable bundle.
type Store struct {
	mu     sync.RWMutex
	result *BuildResult
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the stored result.
func (s *Store) Set(result *BuildResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
}

// Latest returns the stored result, or false when no build has completed.
func (s *Store) Latest() (*BuildResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil, false
	}
	return s.result, true
}
