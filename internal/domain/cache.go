package domain

import (
	"context"
	"time"
)

// Cache defines the interface for read-through caching of registry
// lookups and dashboard snapshots. A cache failure must degrade to a
// direct repository read, never fail the request.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Cache key prefixes. Keys are prefix + identifier.
const (
	CacheKeyCitizen   = "citizen:"
	CacheKeyBills     = "bills:"
	CacheKeySupplier  = "supplier:"
	CacheKeyDashboard = "dashboard"
)

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
