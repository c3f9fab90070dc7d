package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// rateLimitKeyPrefix is the Redis key prefix for service key rate limits.
	rateLimitKeyPrefix = "ratelimit:servicekey:"
	// rateLimitDashboardKey is the Redis key for the shared outbound Dashboard budget.
	rateLimitDashboardKey = "ratelimit:dashboard"
	// rateLimitKeyTTL is the TTL for service key rate limit state.
	rateLimitKeyTTL = 120 * time.Second
	// rateLimitDashboardTTL is the TTL for the Dashboard bucket state.
	rateLimitDashboardTTL = 10 * time.Second
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript is a Lua script implementing the token bucket algorithm.
// It's atomic and handles token refill and consumption in a single operation.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- max tokens (bucket capacity)
	local now = tonumber(ARGV[3])       -- current time in seconds
	local ttl = tonumber(ARGV[4])       -- TTL in seconds

	-- Get current state
	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	-- Refill tokens based on elapsed time
	local elapsed = now - last_update
	tokens = math.min(burst, tokens + (elapsed * rate))

	-- Check if request is allowed
	local allowed = 0
	local retry_after = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		-- Calculate when 1 token will be available
		retry_after = math.ceil((1 - tokens) / rate)
	end

	-- Update state
	redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// CheckServiceKeyRateLimit checks and updates the rate limit for a service key.
// Returns whether the request is allowed and rate limit metadata.
func (c *Cache) CheckServiceKeyRateLimit(ctx context.Context, keyID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	// Unlimited
	if ratePerMinute == 0 {
		return &RateLimitResult{
			Allowed:   true,
			Remaining: int64(burst),
			ResetAt:   time.Now().Add(time.Minute),
		}, nil
	}

	key := rateLimitKeyPrefix + hashKeyID(keyID)
	ratePerSecond := float64(ratePerMinute) / 60.0

	return c.checkRateLimit(ctx, key, ratePerSecond, burst, int(rateLimitKeyTTL.Seconds()))
}

// CheckDashboardRateLimit checks and updates the shared token budget for
// outbound Meraki Dashboard calls. All toolkit instances pointing at the same
// Redis share one bucket, so the org-wide Dashboard limit holds across
// processes.
func (c *Cache) CheckDashboardRateLimit(ctx context.Context, ratePerSecond, burst int) (*RateLimitResult, error) {
	return c.checkRateLimit(ctx, rateLimitDashboardKey, float64(ratePerSecond), burst, int(rateLimitDashboardTTL.Seconds()))
}

// checkRateLimit is the common rate limit implementation.
func (c *Cache) checkRateLimit(ctx context.Context, key string, rate float64, burst, ttl int) (*RateLimitResult, error) {
	now := time.Now().Unix()

	result, err := tokenBucketScript.Run(ctx, c.client,
		[]string{key},
		rate, burst, now, ttl,
	).Int64Slice()

	if err != nil {
		// Fail open on Redis errors - allow the request
		return &RateLimitResult{
			Allowed:   true,
			Remaining: int64(burst),
			ResetAt:   time.Now().Add(time.Minute),
		}, nil
	}

	allowed := result[0] == 1
	retryAfterSec := result[1]
	remaining := result[2]

	return &RateLimitResult{
		Allowed:    allowed,
		Remaining:  remaining,
		ResetAt:    time.Now().Add(time.Duration(float64(time.Second) / rate)),
		RetryAfter: time.Duration(retryAfterSec) * time.Second,
	}, nil
}

// DashboardLimiter gates outbound Dashboard requests on the shared Redis
// bucket. It satisfies the Meraki client's Limiter interface.
type DashboardLimiter struct {
	cache         *Cache
	ratePerSecond int
	burst         int
}

// NewDashboardLimiter creates a Redis-backed limiter for Dashboard calls.
func NewDashboardLimiter(cache *Cache, ratePerSecond, burst int) *DashboardLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = ratePerSecond
	}
	return &DashboardLimiter{cache: cache, ratePerSecond: ratePerSecond, burst: burst}
}

// Wait blocks until a token is available or the context is done.
func (l *DashboardLimiter) Wait(ctx context.Context) error {
	for {
		result, err := l.cache.CheckDashboardRateLimit(ctx, l.ratePerSecond, l.burst)
		if err != nil || result.Allowed {
			return nil
		}

		delay := result.RetryAfter
		if delay <= 0 {
			delay = time.Second / time.Duration(l.ratePerSecond)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// hashKeyID creates a truncated SHA256 hash of a key ID.
// Keeps raw identifiers out of Redis key names.
func hashKeyID(keyID string) string {
	hash := sha256.Sum256([]byte(keyID))
	return hex.EncodeToString(hash[:8]) // 16 hex chars
}
