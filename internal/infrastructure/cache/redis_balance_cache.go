package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tradeledger/backend/internal/application/billing"
)

// DefaultBalanceTTL bounds how stale a cached balance can get if an
// invalidation is lost. Recompute always invalidates explicitly; the TTL is
// only the backstop.
const DefaultBalanceTTL = 5 * time.Minute

// RedisBalanceCache implements billing.BalanceCache using Redis.
// This is suitable for distributed deployments where multiple instances
// serve balance reads for the same tenants.
type RedisBalanceCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisBalanceCache creates a new Redis-backed balance cache
func NewRedisBalanceCache(cfg RedisConfig) (*RedisBalanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBalanceCache{
		client:    client,
		keyPrefix: "billing:balance:",
		ttl:       DefaultBalanceTTL,
	}, nil
}

// NewRedisBalanceCacheWithClient creates a cache with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisBalanceCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisBalanceCache {
	if keyPrefix == "" {
		keyPrefix = "billing:balance:"
	}
	if ttl <= 0 {
		ttl = DefaultBalanceTTL
	}
	return &RedisBalanceCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (c *RedisBalanceCache) key(tenantID, customerID uuid.UUID) string {
	return c.keyPrefix + tenantID.String() + ":" + customerID.String()
}

// Get returns the cached balance for the customer, or nil on a cache miss
func (c *RedisBalanceCache) Get(ctx context.Context, tenantID, customerID uuid.UUID) (*billing.CustomerBalanceResult, error) {
	payload, err := c.client.Get(ctx, c.key(tenantID, customerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached balance: %w", err)
	}

	var result billing.CustomerBalanceResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached balance: %w", err)
	}
	return &result, nil
}

// Set stores the balance for the customer with the configured TTL
func (c *RedisBalanceCache) Set(ctx context.Context, tenantID uuid.UUID, result *billing.CustomerBalanceResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode balance for cache: %w", err)
	}

	if err := c.client.Set(ctx, c.key(tenantID, result.CustomerID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cached balance: %w", err)
	}
	return nil
}

// Invalidate removes the cached balance for the customer
func (c *RedisBalanceCache) Invalidate(ctx context.Context, tenantID, customerID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(tenantID, customerID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached balance: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisBalanceCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisBalanceCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisBalanceCache implements billing.BalanceCache
var _ billing.BalanceCache = (*RedisBalanceCache)(nil)
