// Package store buffers translatable attribute sets between the moment a
// primary save begins and the moment the translation row is written.
package store

import (
	"fmt"
	"sync"
)

// Store holds pending attribute sets keyed by the owning instance's token.
// Disjoint tokens keep concurrent saves of distinct instances isolated;
// concurrent saves of the same instance are unsupported.
type Store struct {
	mu      sync.Mutex
	pending map[uint64]map[string]any
}

// New creates an empty buffer.
func New() *Store {
	return &Store{pending: make(map[uint64]map[string]any)}
}

// Remember captures attrs for the save cycle identified by token. A second
// Remember for the same token replaces the previous capture.
func (s *Store) Remember(token uint64, attrs map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]any, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	s.pending[token] = copied
}

// Pull removes and returns the attributes remembered for token. Every
// Remember must be paired with exactly one Pull in the same save cycle;
// pulling a token that was never remembered is a broken pairing and panics.
func (s *Store) Pull(token uint64) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	attrs, ok := s.pending[token]
	if !ok {
		panic(fmt.Sprintf("translatable: pending translation pulled without a matching remember (token %d)", token))
	}
	delete(s.pending, token)
	return attrs
}

// Len reports the number of buffered save cycles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
