package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations in front of the
// reporting read path. Supports two-phase caching: local LRU (Community)
// + Redis (Pro).
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetProfile retrieves a cached risk profile.
	GetProfile(ctx context.Context, operatorID string) (*RiskProfile, error)

	// SetProfile caches a risk profile for reporting reads.
	SetProfile(ctx context.Context, operatorID string, p *RiskProfile, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// SummaryCacheKey is the cache key for the unfiltered risk summary.
const SummaryCacheKey = "summary"

// ProfileCacheKey returns the cache key for one operator's profile.
func ProfileCacheKey(operatorID string) string {
	return "profile:" + operatorID
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
