package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the subset of *redis.Client the cache needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SnapshotCache stores the encoded reference document shared by all replicas.
type SnapshotCache struct {
	client Client
	ttl    time.Duration
	name   string
}

// NewSnapshotCache returns redis-backed cache. A zero ttl keeps the entry until it is replaced.
func NewSnapshotCache(client Client, name string, ttl time.Duration) *SnapshotCache {
	if name == "" {
		name = "default"
	}
	return &SnapshotCache{client: client, ttl: ttl, name: name}
}

func (c *SnapshotCache) key() string {
	return fmt.Sprintf("quotes:refdata:%s", c.name)
}

// Get returns the cached document; ok is false on a miss.
func (c *SnapshotCache) Get(ctx context.Context) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Save caches the document.
func (c *SnapshotCache) Save(ctx context.Context, data []byte) error {
	return c.client.Set(ctx, c.key(), data, c.ttl).Err()
}

// Invalidate removes the cached document.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key()).Err()
}
