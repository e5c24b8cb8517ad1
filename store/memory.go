package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is the in-process Store used by tests and by ephemeral
// sessions that opt out of durability.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]string{}}
}

func (s *MemoryStore) Get(_ context.Context, keys []string) (map[string]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store: memory store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := s.entries[key]; ok {
			out[key] = value
		}
	}
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, values map[string]string) error {
	if s == nil {
		return fmt.Errorf("store: memory store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range values {
		s.entries[key] = value
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	if s == nil {
		return fmt.Errorf("store: memory store is not configured")
	}
	s.mu.Lock()
	s.entries = map[string]string{}
	s.mu.Unlock()
	return nil
}
