package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is the in-process Backend. It is the default; every pipeline
// stage shares one instance per TTL class.
type Memory struct {
	mu sync.RWMutex
	m  map[string]memoryEntry
}

// NewMemory creates an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]memoryEntry)}
}

// Get implements Backend. Entries past their retention read as absent.
func (s *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	ent, ok := s.m[key]
	s.mu.RUnlock()
	if !ok || time.Now().After(ent.expiresAt) {
		return nil, false, nil
	}
	return ent.data, true, nil
}

// Set implements Backend.
func (s *Memory) Set(_ context.Context, key string, data []byte, retention time.Duration) error {
	s.mu.Lock()
	s.m[key] = memoryEntry{data: data, expiresAt: time.Now().Add(retention)}
	s.mu.Unlock()
	return nil
}

// Delete implements Backend.
func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

// Cleanup drops entries past their retention.
func (s *Memory) Cleanup() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ent := range s.m {
		if now.After(ent.expiresAt) {
			delete(s.m, k)
		}
	}
}

// StartJanitor cleans expired entries periodically until ctx is done.
func (s *Memory) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
