package localstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Backend is the key/value store behind every client's local state.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisBackend keeps local state in Redis so every instance sees the same
// values. Each write refreshes the key's idle TTL.
type RedisBackend struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisBackend(rdb *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{rdb: rdb, ttl: ttl}
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := b.rdb.Set(ctx, key, value, b.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := b.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// MemoryBackend is the single-instance fallback used when Redis is down.
type MemoryBackend struct {
	cache *cache.Cache
}

func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{cache: cache.New(ttl, 10*time.Minute)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	x, found := b.cache.Get(key)
	if !found {
		return "", false, nil
	}
	return x.(string), true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key, value string) error {
	b.cache.SetDefault(key, value)
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		b.cache.Delete(k)
	}
	return nil
}
