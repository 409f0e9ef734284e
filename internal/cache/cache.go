// Package cache provides Redis-backed caching for derived consolidation
// views, plus a no-op fallback for deployments without Redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"vendor-pipeline/internal/core"
)

// RedisGroupCache caches consolidation group summaries in Redis. It
// satisfies core.GroupCache; failures are reported to the caller, which
// treats them as misses.
type RedisGroupCache struct {
	client *redis.Client
}

// NewRedisGroupCache connects a group cache to the given Redis instance.
func NewRedisGroupCache(addr, password string, db int) *RedisGroupCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisGroupCache{client: client}
}

func (c *RedisGroupCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisGroupCache) Close() error {
	return c.client.Close()
}

func (c *RedisGroupCache) GetGroups(ctx context.Context, key string) ([]core.GroupSummary, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var groups []core.GroupSummary
	if err := json.Unmarshal([]byte(val), &groups); err != nil {
		return nil, false, err
	}
	return groups, true, nil
}

func (c *RedisGroupCache) SetGroups(ctx context.Context, key string, groups []core.GroupSummary, ttl time.Duration) error {
	payload, err := json.Marshal(groups)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

// NoopGroupCache never hits and never stores. Used when no Redis address
// is configured; consolidation then recomputes on every request.
type NoopGroupCache struct{}

func (NoopGroupCache) GetGroups(ctx context.Context, key string) ([]core.GroupSummary, bool, error) {
	return nil, false, nil
}

func (NoopGroupCache) SetGroups(ctx context.Context, key string, groups []core.GroupSummary, ttl time.Duration) error {
	return nil
}
