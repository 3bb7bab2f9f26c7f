// Package sessioncache provides a Redis-backed read-through cache for
// authentication sessions, keeping hot session lookups off the primary
// store. The cache is optional: a nil cache is a no-op.
package sessioncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dukex/leadion/pkg/models"
)

const keyPrefix = "leadion:session:"

// Cache caches sessions in Redis keyed by token, with TTLs matching the
// session expiry.
type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis using a redis:// URL.
func NewCache(redisURL string) (*Cache, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Cache{client: redis.NewClient(options)}, nil
}

// Get returns the cached session for a token, or nil on a miss.
func (c *Cache) Get(ctx context.Context, token string) (*models.Session, error) {
	if c == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read session from cache: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse cached session: %w", err)
	}

	return &session, nil
}

// Set caches a session until its expiry. Already-expired sessions are not
// cached.
func (c *Cache) Set(ctx context.Context, session *models.Session) error {
	if c == nil {
		return nil
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+session.Token, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache session: %w", err)
	}

	return nil
}

// Delete evicts a session from the cache.
func (c *Cache) Delete(ctx context.Context, token string) error {
	if c == nil {
		return nil
	}

	if err := c.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to evict session: %w", err)
	}

	return nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}

	return c.client.Close()
}
