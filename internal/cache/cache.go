package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldsight/sentinel/internal/domain"
)

// New creates a new cache based on configuration.
// For Community tier: returns LRU cache.
// For Pro tier with two-phase: returns TwoPhaseCache wrapping LRU + Redis.
// For Pro tier without two-phase: returns Redis cache.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache implements the two-phase caching strategy.
// L1: Local LRU cache for fast reads
// L2: Redis for distributed caching and persistence
type TwoPhaseCache struct {
	local  *LRUCache
	remote *RedisCache
	l1TTL  time.Duration
}

// NewTwoPhaseCache creates a two-phase cache with LRU + Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	local := NewLRUCache(cfg.LocalMaxSize)

	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}

	l1TTL := cfg.LocalTTL
	if l1TTL == 0 {
		l1TTL = 5 * time.Minute
	}

	return &TwoPhaseCache{
		local:  local,
		remote: remote,
		l1TTL:  l1TTL,
	}, nil
}

// Get checks the local cache first, then Redis, back-filling the local
// cache on a remote hit.
func (c *TwoPhaseCache) Get(ctx context.Context, key string) ([]byte, error) {
	if val, err := c.local.Get(ctx, key); err == nil && val != nil {
		return val, nil
	}

	val, err := c.remote.Get(ctx, key)
	if err != nil || val == nil {
		return val, err
	}

	_ = c.local.Set(ctx, key, val, c.l1TTL)
	return val, nil
}

// Set writes to both tiers.
func (c *TwoPhaseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = c.local.Set(ctx, key, value, c.l1TTL)
	return c.remote.Set(ctx, key, value, ttl)
}

// Delete removes the key from both tiers.
func (c *TwoPhaseCache) Delete(ctx context.Context, key string) error {
	_ = c.local.Delete(ctx, key)
	return c.remote.Delete(ctx, key)
}

// GetProfile retrieves a cached risk profile.
func (c *TwoPhaseCache) GetProfile(ctx context.Context, operatorID string) (*domain.RiskProfile, error) {
	data, err := c.Get(ctx, domain.ProfileCacheKey(operatorID))
	if err != nil || data == nil {
		return nil, err
	}

	var p domain.RiskProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetProfile caches a risk profile in both tiers.
func (c *TwoPhaseCache) SetProfile(ctx context.Context, operatorID string, p *domain.RiskProfile, ttl time.Duration) error {
	bytes, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.Set(ctx, domain.ProfileCacheKey(operatorID), bytes, ttl)
}

// Ping checks both tiers.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	return c.remote.Ping(ctx)
}

// Close closes both tiers.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}
