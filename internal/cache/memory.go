package cache

import (
	"context"
	"sync"
	"time"

	"github.com/docforge/pdfmd/internal/domain"
)

// MemoryBackend is an in-process map backend, the default for library use
// and for tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[domain.Fingerprint]domain.CacheEntry
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[domain.Fingerprint]domain.CacheEntry)}
}

func (m *MemoryBackend) Get(_ context.Context, fp domain.Fingerprint) (*domain.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[fp]
	if !ok {
		return nil, ErrMiss
	}
	return &entry, nil
}

func (m *MemoryBackend) Set(_ context.Context, fp domain.Fingerprint, entry domain.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[fp] = entry
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, fp domain.Fingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, fp)
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[domain.Fingerprint]domain.CacheEntry)
	return nil
}

func (m *MemoryBackend) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *MemoryBackend) Prune(_ context.Context, maxEntries int, maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	if maxAge > 0 {
		cutoff := time.Now().UTC().Add(-maxAge)
		for fp, entry := range m.entries {
			if entry.CreatedAt.Before(cutoff) {
				delete(m.entries, fp)
				removed++
			}
		}
	}

	for maxEntries > 0 && len(m.entries) > maxEntries {
		var oldest domain.Fingerprint
		var oldestAt time.Time
		first := true
		for fp, entry := range m.entries {
			if first || entry.CreatedAt.Before(oldestAt) {
				oldest = fp
				oldestAt = entry.CreatedAt
				first = false
			}
		}
		delete(m.entries, oldest)
		removed++
	}
	return removed, nil
}

func (m *MemoryBackend) Close() error { return nil }
