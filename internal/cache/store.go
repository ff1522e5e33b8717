// Package cache provides the content-addressed result store. A Store wraps a
// pluggable Backend (memory, sqlite, redis) with per-fingerprint store
// serialization and process-local hit statistics.
package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/docforge/pdfmd/internal/domain"
)

// ErrMiss is returned by backends when no entry exists for a fingerprint.
var ErrMiss = errors.New("cache: entry not found")

// Backend is the persistence contract behind a Store.
type Backend interface {
	Get(ctx context.Context, fp domain.Fingerprint) (*domain.CacheEntry, error)
	Set(ctx context.Context, fp domain.Fingerprint, entry domain.CacheEntry) error
	Delete(ctx context.Context, fp domain.Fingerprint) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)

	// Prune removes entries beyond maxEntries (oldest first) and entries
	// older than maxAge, returning the number removed. Backends with native
	// expiry may treat maxAge as already enforced.
	Prune(ctx context.Context, maxEntries int, maxAge time.Duration) (int, error)

	Close() error
}

// Store is the cache component used by the pipeline.
type Store struct {
	backend    Backend
	logger     zerolog.Logger
	maxEntries int
	maxAge     time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	// leases serializes concurrent Put calls for the same fingerprint.
	leaseMu sync.Mutex
	leases  map[domain.Fingerprint]*sync.Mutex
}

// NewStore wraps a backend with retention limits. maxEntries <= 0 and
// maxAge <= 0 disable the respective bound.
func NewStore(backend Backend, maxEntries int, maxAge time.Duration, logger zerolog.Logger) *Store {
	return &Store{
		backend:    backend,
		logger:     logger,
		maxEntries: maxEntries,
		maxAge:     maxAge,
		leases:     make(map[domain.Fingerprint]*sync.Mutex),
	}
}

func (s *Store) lease(fp domain.Fingerprint) *sync.Mutex {
	s.leaseMu.Lock()
	defer s.leaseMu.Unlock()
	mu, ok := s.leases[fp]
	if !ok {
		mu = &sync.Mutex{}
		s.leases[fp] = mu
	}
	return mu
}

// Lookup fetches the stored result for fp. A hit returns a copy marked
// FromCache with ReusedAt set; the stored record itself is never modified.
func (s *Store) Lookup(ctx context.Context, fp domain.Fingerprint) (*domain.ConversionResult, bool, error) {
	entry, err := s.backend.Get(ctx, fp)
	if errors.Is(err, ErrMiss) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.IOError("cache lookup", err)
	}

	s.hits.Add(1)

	// Best-effort access-metadata update; a failure here must not turn a
	// hit into an error.
	entry.HitCount++
	entry.LastHit = time.Now().UTC()
	if err := s.backend.Set(ctx, fp, *entry); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", fp.String()).Msg("cache hit metadata update failed")
	}

	result := entry.Result
	result.FromCache = true
	result.ReusedAt = time.Now().UTC()
	return &result, true, nil
}

// Put stores a completed result. The first store for a fingerprint wins:
// storing an identical result again is a no-op, storing a divergent result
// returns a ConsistencyError.
func (s *Store) Put(ctx context.Context, fp domain.Fingerprint, result domain.ConversionResult) error {
	mu := s.lease(fp)
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.backend.Get(ctx, fp)
	if err != nil && !errors.Is(err, ErrMiss) {
		return domain.IOError("cache store", err)
	}
	if existing != nil {
		if existing.Result.Markdown == result.Markdown {
			return nil
		}
		return domain.ConsistencyError(
			"fingerprint already stored with different content: "+fp.String(), nil)
	}

	now := time.Now().UTC()
	entry := domain.CacheEntry{Result: result, CreatedAt: now}
	if err := s.backend.Set(ctx, fp, entry); err != nil {
		return domain.IOError("cache store", err)
	}

	if s.maxEntries > 0 || s.maxAge > 0 {
		if removed, err := s.backend.Prune(ctx, s.maxEntries, s.maxAge); err != nil {
			s.logger.Warn().Err(err).Msg("cache prune failed")
		} else if removed > 0 {
			s.logger.Debug().Int("removed", removed).Msg("cache pruned")
		}
	}
	return nil
}

// Clear drops every entry.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Clear(ctx); err != nil {
		return domain.IOError("cache clear", err)
	}
	return nil
}

// Stats reports process-local hit counters plus the backend's entry count.
func (s *Store) Stats(ctx context.Context) domain.CacheStats {
	entries, err := s.backend.Len(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache entry count failed")
	}
	return domain.CacheStats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: entries,
	}
}

// Close releases the backend.
func (s *Store) Close() error { return s.backend.Close() }
