package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tradeledger/backend/internal/application/billing"
	"github.com/tradeledger/backend/internal/infrastructure/config"
)

// BalanceCacheFactory creates balance caches based on configuration
type BalanceCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// BalanceCacheFactoryOption is a functional option for configuring the factory
type BalanceCacheFactoryOption func(*BalanceCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) BalanceCacheFactoryOption {
	return func(f *BalanceCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true (allow fallback).
func WithInMemoryFallback(allow bool) BalanceCacheFactoryOption {
	return func(f *BalanceCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewBalanceCacheFactory creates a new factory
func NewBalanceCacheFactory(cfg config.RedisConfig, opts ...BalanceCacheFactoryOption) *BalanceCacheFactory {
	f := &BalanceCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed balance cache
func (f *BalanceCacheFactory) CreateRedisCache() (billing.BalanceCache, error) {
	cache, err := NewRedisBalanceCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis balance cache: %w", err)
	}
	return cache, nil
}

// CreateInMemoryCache creates an in-memory balance cache.
// WARNING: In-memory caches do not share invalidations across process
// instances, which can serve stale balances in distributed deployments.
func (f *BalanceCacheFactory) CreateInMemoryCache() billing.BalanceCache {
	return NewInMemoryBalanceCache(DefaultBalanceTTL)
}

// CreateCache creates a balance cache based on whether Redis is available.
// It tries Redis first and falls back to in-memory if Redis is not available
// and fallback is allowed.
func (f *BalanceCacheFactory) CreateCache() (billing.BalanceCache, error) {
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis balance cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for balance cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory balance cache. "+
		"Stale balances may be served in distributed deployments.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
