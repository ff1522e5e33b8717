package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docforge/pdfmd/internal/domain"
)

const redisKeyPrefix = "pdfmd:conversion:"

// RedisBackend stores entries in a shared Redis instance so multiple
// processes can reuse each other's conversions. Age-based retention is
// delegated to Redis key TTLs; entry-count pruning is not supported and
// Prune only reports the TTL-expired entries as already handled.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend connects to addr and verifies the connection. ttl <= 0
// stores entries without expiry.
func NewRedisBackend(ctx context.Context, addr string, db int, ttl time.Duration) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, domain.IOError("connecting to redis cache", err)
	}
	return &RedisBackend{client: client, ttl: ttl}, nil
}

func (r *RedisBackend) Get(ctx context.Context, fp domain.Fingerprint) (*domain.CacheEntry, error) {
	payload, err := r.client.Get(ctx, redisKeyPrefix+fp.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *RedisBackend) Set(ctx context.Context, fp domain.Fingerprint, entry domain.CacheEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+fp.String(), payload, r.ttl).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, fp domain.Fingerprint) error {
	return r.client.Del(ctx, redisKeyPrefix+fp.String()).Err()
}

func (r *RedisBackend) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *RedisBackend) Len(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

func (r *RedisBackend) Prune(context.Context, int, time.Duration) (int, error) {
	// Expiry is enforced by per-key TTL.
	return 0, nil
}

func (r *RedisBackend) Close() error { return r.client.Close() }
