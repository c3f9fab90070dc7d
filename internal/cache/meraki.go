package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	// dashboardCachePrefix is the Redis key prefix for Dashboard response bodies.
	dashboardCachePrefix = "meraki:resp:"
	// dashboardCacheTTL keeps Dashboard responses briefly. Inventory data is
	// slow-moving, so a short window cuts duplicate reads during an audit
	// without serving stale results between runs.
	dashboardCacheTTL = 2 * time.Minute
)

// DashboardResponseCache stores Dashboard GET response bodies in Redis.
// It satisfies the Meraki client's ResponseCache interface.
type DashboardResponseCache struct {
	cache *Cache
}

// NewDashboardResponseCache wraps a Cache for Dashboard response storage.
func NewDashboardResponseCache(cache *Cache) *DashboardResponseCache {
	return &DashboardResponseCache{cache: cache}
}

// GetResponse returns a cached response body for a request URL.
// Misses and Redis errors both report a miss.
func (d *DashboardResponseCache) GetResponse(ctx context.Context, requestURL string) ([]byte, bool) {
	key := dashboardCachePrefix + hashRequestURL(requestURL)

	data, err := d.cache.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetResponse caches a response body for a request URL.
func (d *DashboardResponseCache) SetResponse(ctx context.Context, requestURL string, body []byte) error {
	key := dashboardCachePrefix + hashRequestURL(requestURL)
	return d.cache.client.Set(ctx, key, body, dashboardCacheTTL).Err()
}

// hashRequestURL hashes the full request URL for the cache key.
// URLs carry the Dashboard API key's org IDs and query filters; hashing keeps
// them out of Redis key names and bounds key length.
func hashRequestURL(requestURL string) string {
	hash := sha256.Sum256([]byte(requestURL))
	return hex.EncodeToString(hash[:16]) // 32 hex chars
}
