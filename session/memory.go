package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	login     string
	expiresAt time.Time
}

// MemoryStore is a process-local credential store. Tokens do not survive restarts and
// are not shared between processes.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]memoryEntry
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions("", opts)
	return &MemoryStore{
		tokens: make(map[string]memoryEntry),
		ttl:    o.ttl,
		now:    o.now,
	}
}

func (s *MemoryStore) Login(_ context.Context, login string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}

	for i := 0; i < maxMintAttempts; i++ {
		token := newToken()
		if _, exists := s.tokens[token]; exists {
			continue
		}
		s.tokens[token] = memoryEntry{login: login, expiresAt: expiresAt}
		return token, nil
	}
	return "", ErrTokenCollision
}

func (s *MemoryStore) Logout(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LoginFor(_ context.Context, token string) (string, bool, error) {
	s.mu.RLock()
	entry, ok := s.tokens[token]
	s.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if s.expired(entry, s.now()) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Login cannot reuse the token but a
		// Logout may already have removed it.
		if current, still := s.tokens[token]; still && s.expired(current, s.now()) {
			delete(s.tokens, token)
		}
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.login, true, nil
}

// Sweep removes expired tokens and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, entry := range s.tokens {
		if s.expired(entry, now) {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored tokens, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

func (s *MemoryStore) expired(entry memoryEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}
