package challenge

import (
	"context"
	"sync"
)

// HandleStore keeps the handles of pending challenges between Perform and
// Cleanup. Entries are keyed by validation token only, so challenges for
// different domains in the same zone never see each other's records.
type HandleStore interface {
	Put(ctx context.Context, token string, h Handle) error
	// Take returns the handle for token and removes it from the store.
	Take(ctx context.Context, token string) (Handle, bool, error)
}

// MemoryStore is a HandleStore living for one issuance run. The zero value
// is ready to use.
type MemoryStore struct {
	mu      sync.Mutex
	handles map[string]Handle
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{handles: make(map[string]Handle)}
}

func (s *MemoryStore) Put(_ context.Context, token string, h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles == nil {
		s.handles = make(map[string]Handle)
	}
	s.handles[token] = h
	return nil
}

func (s *MemoryStore) Take(_ context.Context, token string) (Handle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[token]
	delete(s.handles, token)
	return h, ok, nil
}

// Len reports how many handles are pending.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}
