package credential

import (
	"sync"
	"time"
)

// DefaultPendingTTL bounds how long a proposed token stays valid while a
// rotation is in flight.
const DefaultPendingTTL = 60 * time.Second

// pendingToken is a credential candidate recorded during rotation. It is
// a tagged value with an explicit expiry rather than a bare string, so
// expiry is checked in exactly one place.
type pendingToken struct {
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (p pendingToken) expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// PendingStore records per-node pending tokens on the controller side of a
// rotation. It is consulted as an authorization fallback during the
// rotation window, covering the race between the controller's own checks
// and the agent's confirmation.
type PendingStore struct {
	mu      sync.RWMutex
	pending map[string]pendingToken // nodeID -> candidate
	now     func() time.Time
}

// NewPendingStore creates an empty pending-token store.
func NewPendingStore() *PendingStore {
	return &PendingStore{
		pending: make(map[string]pendingToken),
		now:     time.Now,
	}
}

// Put records a pending token for a node, replacing any previous one.
func (s *PendingStore) Put(nodeID, token string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}

	now := s.now()
	s.mu.Lock()
	s.pending[nodeID] = pendingToken{
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	s.mu.Unlock()
}

// Match reports whether token is the unexpired pending token for nodeID.
func (s *PendingStore) Match(nodeID, token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pending[nodeID]
	if !ok || p.expired(s.now()) {
		return false
	}
	return token != "" && token == p.Token
}

// Delete discards the pending token for a node, if any.
func (s *PendingStore) Delete(nodeID string) {
	s.mu.Lock()
	delete(s.pending, nodeID)
	s.mu.Unlock()
}

// Sweep removes expired entries. Long-running controllers call this
// periodically; correctness does not depend on it, since Match never
// honors an expired entry.
func (s *PendingStore) Sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for nodeID, p := range s.pending {
		if p.expired(now) {
			delete(s.pending, nodeID)
		}
	}
}
