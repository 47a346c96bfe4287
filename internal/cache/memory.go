package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is the in-process fallback used when no Redis URL is
// configured. Entries expire lazily on read.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	ttl     time.Duration
}

// NewMemoryCache builds an empty in-memory cache. A zero ttl means
// entries never expire.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: map[string]time.Time{}, ttl: ttl}
}

func (m *MemoryCache) IsProcessed(_ context.Context, url string) (bool, error) {
	key := hashURL(url)

	m.mu.RLock()
	stored, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if m.ttl > 0 && time.Since(stored) > m.ttl {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (m *MemoryCache) MarkProcessed(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[hashURL(url)] = time.Now()
	return nil
}

func (m *MemoryCache) Close() error { return nil }
