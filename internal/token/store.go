// Package token owns the shared ERP credential: an expiring bearer
// token cached per provider key and read by every job execution that
// needs shared auth.
package token

import (
	"sync"
	"time"

	"github.com/olmedhq/erp-gateway/internal/domain"
)

// Store is a mutex-guarded cache of TokenInfo per provider key.
// Expired entries are treated as absent and evicted on read; writes
// are whole-value swaps, never partial mutation.
type Store struct {
	mu     sync.Mutex
	tokens map[string]domain.TokenInfo
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{
		tokens: make(map[string]domain.TokenInfo),
		now:    time.Now,
	}
}

// Get returns a snapshot of the current token for the provider, or nil
// when absent or already expired.
func (s *Store) Get(provider string) *domain.TokenInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[provider]
	if !ok {
		return nil
	}
	if !tok.Valid(s.now()) {
		delete(s.tokens, provider)
		return nil
	}
	c := tok
	return &c
}

func (s *Store) Set(provider string, tok domain.TokenInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[provider] = tok
}

// Remove drops the provider's token and reports whether one was cached.
func (s *Store) Remove(provider string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tokens[provider]
	delete(s.tokens, provider)
	return ok
}
