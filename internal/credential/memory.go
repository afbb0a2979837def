package credential

import (
	"context"
	"sync"
)

// MemorySink backs the persistent surface in tests and single-node dev runs
// without Redis.
type MemorySink struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemorySink() *MemorySink {
	return &MemorySink{values: map[string]string{}}
}

func (s *MemorySink) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemorySink) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *MemorySink) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = map[string]string{}
	return nil
}
