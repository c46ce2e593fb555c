package cache

import (
	"context"
	"sync"
	"time"
)

// Store defines the caching contract consumed by the catalog service.
type Store interface {
	// Get retrieves a cached value by key. The boolean result indicates presence.
	Get(ctx context.Context, key string) (any, bool, error)
	// Set associates a value with the provided key.
	Set(ctx context.Context, key string, value any) error
	// Delete removes the value for the provided key.
	Delete(ctx context.Context, key string) error
}

// nopStore is a Store implementation that never caches values.
type nopStore struct{}

// Nop returns a Store that disables caching while preserving the interface
// contracts.
func Nop() Store {
	return nopStore{}
}

func (nopStore) Get(context.Context, string) (any, bool, error) { return nil, false, nil }

func (nopStore) Set(context.Context, string, any) error { return nil }

func (nopStore) Delete(context.Context, string) error { return nil }

type memoryEntry struct {
	value   any
	expires time.Time
}

// MemoryStore is a process-local Store with per-entry TTL expiry. Safe for
// concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory builds a MemoryStore. A non-positive ttl disables expiry.
func NewMemory(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && s.now().After(entry.expires) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	entry := memoryEntry{value: value}
	if s.ttl > 0 {
		entry.expires = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}
