package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisChecksumPrefix namespaces change-tracker keys in a shared Redis
// instance.
const redisChecksumPrefix = "docsmcp:checksum:"

// RedisChangeTracker is an alternate ChangeTracker backed by Redis,
// selected via config.ChangeTrackerBackend == "redis" for deployments
// that run the indexer from multiple hosts against one Redis instance.
// Unlike JSONChangeTracker, every Record is durable immediately: Flush
// and Close are no-ops.
type RedisChangeTracker struct {
	client *redis.Client
}

// NewRedisChangeTracker wraps an existing client (tests substitute a
// miniredis-backed client; production wires a real one from config).
func NewRedisChangeTracker(client *redis.Client) *RedisChangeTracker {
	return &RedisChangeTracker{client: client}
}

// HasChanged reports whether content's checksum differs from the one
// stored in Redis for path.
func (t *RedisChangeTracker) HasChanged(ctx context.Context, path string, content []byte) (bool, error) {
	existing, err := t.client.Get(ctx, redisChecksumPrefix+path).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get checksum for %s: %w", path, err)
	}
	return existing != HashContent(content), nil
}

// Record stores content's checksum for path.
func (t *RedisChangeTracker) Record(ctx context.Context, path string, content []byte) error {
	if err := t.client.Set(ctx, redisChecksumPrefix+path, HashContent(content), 0).Err(); err != nil {
		return fmt.Errorf("set checksum for %s: %w", path, err)
	}
	return nil
}

// Remove forgets path's checksum.
func (t *RedisChangeTracker) Remove(ctx context.Context, path string) error {
	if err := t.client.Del(ctx, redisChecksumPrefix+path).Err(); err != nil {
		return fmt.Errorf("delete checksum for %s: %w", path, err)
	}
	return nil
}

// Flush is a no-op: every Record call already wrote through to Redis.
func (t *RedisChangeTracker) Flush(_ context.Context) error { return nil }

// Reset deletes every key under redisChecksumPrefix, used by clear_all.
func (t *RedisChangeTracker) Reset(ctx context.Context) error {
	iter := t.client.Scan(ctx, 0, redisChecksumPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan checksum keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := t.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete checksum keys: %w", err)
	}
	return nil
}

// Close is a no-op; the caller owns the *redis.Client's lifecycle.
func (t *RedisChangeTracker) Close() error { return nil }

var _ ChangeTracker = (*RedisChangeTracker)(nil)
