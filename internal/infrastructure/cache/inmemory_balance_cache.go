package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tradeledger/backend/internal/application/billing"
)

// balanceEntry is a cached balance with expiration
type balanceEntry struct {
	result    billing.CustomerBalanceResult
	expiresAt time.Time
}

// InMemoryBalanceCache implements billing.BalanceCache using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryBalanceCache struct {
	mu      sync.RWMutex
	entries map[string]balanceEntry
	ttl     time.Duration
}

// NewInMemoryBalanceCache creates a new in-memory balance cache
func NewInMemoryBalanceCache(ttl time.Duration) *InMemoryBalanceCache {
	if ttl <= 0 {
		ttl = DefaultBalanceTTL
	}
	return &InMemoryBalanceCache{
		entries: make(map[string]balanceEntry),
		ttl:     ttl,
	}
}

func balanceKey(tenantID, customerID uuid.UUID) string {
	return tenantID.String() + ":" + customerID.String()
}

// Get returns the cached balance for the customer, or nil on a miss.
// Expired entries are treated as misses and dropped lazily.
func (c *InMemoryBalanceCache) Get(ctx context.Context, tenantID, customerID uuid.UUID) (*billing.CustomerBalanceResult, error) {
	key := balanceKey(tenantID, customerID)

	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}

	result := e.result
	return &result, nil
}

// Set stores the balance for the customer with the configured TTL
func (c *InMemoryBalanceCache) Set(ctx context.Context, tenantID uuid.UUID, result *billing.CustomerBalanceResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[balanceKey(tenantID, result.CustomerID)] = balanceEntry{
		result:    *result,
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

// Invalidate removes the cached balance for the customer
func (c *InMemoryBalanceCache) Invalidate(ctx context.Context, tenantID, customerID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, balanceKey(tenantID, customerID))
	return nil
}

// Len returns the number of live entries (for testing/monitoring)
func (c *InMemoryBalanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryBalanceCache implements billing.BalanceCache
var _ billing.BalanceCache = (*InMemoryBalanceCache)(nil)
