package store

import (
	"sync"

	"gatebook/internal/util"
)

// MemorySessionStore keeps token -> user id mappings in-process.
// It backs the local deployment mode, where the process lifetime bounds
// session lifetime anyway.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]int64
}

// NewMemorySessionStore initializes an empty session map.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]int64)}
}

// NewSession mints an opaque token bound to the user id.
func (s *MemorySessionStore) NewSession(userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := util.NewToken()
	s.sessions[token] = userID
	return token, nil
}

// GetUserIDByToken resolves a token to its user id.
func (s *MemorySessionStore) GetUserIDByToken(token string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sessions[token]
	return id, ok, nil
}

// DeleteSession removes a token mapping. Missing tokens are a no-op.
func (s *MemorySessionStore) DeleteSession(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
