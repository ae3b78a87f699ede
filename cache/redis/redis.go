// Package redis implements cache.Cache on top of go-redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/mikependon/repodb/cache"
)

// DefaultPrefix is prepended to every key unless WithPrefix says otherwise.
const DefaultPrefix = "repodb:"

// Cache stores query results in Redis.
type Cache struct {
	client    redis.UniversalClient
	prefix    string
	scanCount int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithPrefix sets the namespace of the keys.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// WithScanCount sets the batch size used when scanning keys by prefix.
func WithScanCount(n int64) Option {
	return func(c *Cache) { c.scanCount = n }
}

// New wraps an existing client.
func New(client redis.UniversalClient, opts ...Option) *Cache {
	c := &Cache{client: client, prefix: DefaultPrefix, scanCount: 100}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to the server at addr and checks the connection.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		PoolTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache/redis: connect %s: %w", addr, err)
	}
	return New(client, opts...), nil
}

// Key returns the Redis key used for key.
func (c *Cache) Key(key string) string {
	return c.prefix + key
}

// Get implements cache.Cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := c.client.Get(ctx, c.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache/redis: get %q: %w", key, err)
	}
	return v, nil
}

// Set implements cache.Cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.Key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache/redis: set %q: %w", key, err)
	}
	return nil
}

// Delete implements cache.Cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.Key(key)).Err(); err != nil {
		return fmt.Errorf("cache/redis: delete %q: %w", key, err)
	}
	return nil
}

// DeletePrefix implements cache.Cache.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, c.Key(prefix)+"*", c.scanCount).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache/redis: scan %q: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache/redis: delete prefix %q: %w", prefix, err)
	}
	return nil
}

// Clear implements cache.Cache. Only keys under the prefix are removed.
func (c *Cache) Clear(ctx context.Context) error {
	return c.DeletePrefix(ctx, "")
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

var _ cache.Cache = (*Cache)(nil)
