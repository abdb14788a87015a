// Package cache provides a read-through cache for resolved task views.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService defines the caching operations used by consumers.
type CacheService interface {
	// Get unmarshals the cached value into dest.
	// Returns true on a cache hit, false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores a JSON encoded value with the default TTL.
	Set(ctx context.Context, key string, value any) error

	// Delete removes a single key.
	Delete(ctx context.Context, key string) error

	// Ping checks the backing store.
	Ping(ctx context.Context) error

	Close() error
}

// redisCache implements CacheService on top of go-redis.
type redisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps a go-redis client. Keys are namespaced with prefix.
func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) CacheService {
	return &redisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

// noopCache always misses. It is used when no Redis address is configured.
type noopCache struct{}

// NewNoopCache returns a CacheService that stores nothing.
func NewNoopCache() CacheService {
	return noopCache{}
}

func (noopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, string, any) error         { return nil }
func (noopCache) Delete(context.Context, string) error           { return nil }
func (noopCache) Ping(context.Context) error                     { return nil }
func (noopCache) Close() error                                   { return nil }
