package credential

import "sync"

// Store holds the agent's current bearer token. It is shared by every
// component at construction time (request auth, heartbeat, rotation) and
// guarded by a read/write lock: many concurrent readers, one writer.
//
// The lock is held only for the string swap itself, never across network
// I/O, so a rotation can never deadlock against request handling.
type Store struct {
	mu    sync.RWMutex
	token string
}

// NewStore creates a store initialized with the persisted token.
func NewStore(token string) *Store {
	return &Store{token: token}
}

// Get returns the current token.
func (s *Store) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set replaces the current token.
func (s *Store) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Matches reports whether the presented token equals the current one.
func (s *Store) Matches(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return token != "" && token == s.token
}
