package store

import (
	"context"
	"sync"

	"mterelay/internal/domain"
)

// MemoryMedium is a session-scoped medium held in process memory.
type MemoryMedium struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryMedium() *MemoryMedium { return &MemoryMedium{m: make(map[string][]byte)} }

func (s *MemoryMedium) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryMedium) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryMedium) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// Len reports the number of stored entries.
func (s *MemoryMedium) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

var _ domain.StorageMedium = (*MemoryMedium)(nil)
