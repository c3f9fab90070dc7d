// Package cache holds the Redis-backed pieces of the service: the shared
// Dashboard rate-limit bucket, the short-TTL Dashboard response cache,
// and the auth-context cache. Everything here degrades gracefully when
// Redis is down; only the rate limiter is on the request hot path.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pool sizing: the API handlers, the audit worker, and the Dashboard
// limiter all share this client. The limiter issues one EVALSHA per
// outbound Dashboard call, which at ~10 req/s org-wide is the heaviest
// single consumer, so a small pool with a couple of warm connections is
// plenty.
const (
	poolSize        = 8
	minIdleConns    = 2
	poolTimeout     = 4 * time.Second
	connMaxIdleTime = 5 * time.Minute
	connectTimeout  = 5 * time.Second
)

// Cache wraps the Redis client shared by the limiter and caches.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection before returning.
// A service that cannot reach Redis at startup should fail fast rather
// than silently run without the shared Dashboard budget.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse Redis URL: %w", err)
	}

	opt.PoolSize = poolSize
	opt.MinIdleConns = minIdleConns
	opt.PoolTimeout = poolTimeout
	opt.ConnMaxIdleTime = connMaxIdleTime

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping checks Redis connectivity, for the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client and its pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the underlying Redis client for test helpers.
func (c *Cache) Client() *redis.Client {
	return c.client
}
