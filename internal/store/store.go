// Package store persists player entities. The store offers single-key
// get/save only; it never serializes concurrent writers, so every caller
// must hold the corresponding lease before saving.
package store

import (
	"context"
	"sync"
)

// Store abstracts the primary storage for player entities.
type Store interface {
	// Get retrieves the player for an id.
	// The boolean return indicates whether the id was found.
	Get(ctx context.Context, id string) (*Player, bool, error)
	// Save stores the player for an id, overwriting any previous value.
	Save(ctx context.Context, id string, p *Player) error
	// Keys returns the list of player ids available in the store. It is a
	// best-effort enumeration used only by the index rebuild path.
	Keys(ctx context.Context) ([]string, error)
}

// InMemoryStore is a Store implementation backed by a map. Values are
// deep-copied on both get and save so callers observe the same isolation
// a remote store would give them.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Player
}

// NewInMemoryStore returns a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{items: make(map[string]*Player)}
}

// Get implements Store.Get.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*Player, bool, error) {
	s.mu.RLock()
	p, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

// Save implements Store.Save.
func (s *InMemoryStore) Save(ctx context.Context, id string, p *Player) error {
	s.mu.Lock()
	s.items[id] = p.Clone()
	s.mu.Unlock()
	return nil
}

// Keys implements Store.Keys.
func (s *InMemoryStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	return keys, nil
}
