package exchange

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
)

// DefaultTTL is the default lifetime of a cached rate
const DefaultTTL = 60 * time.Second

// RateCache stores fetched rates for a short time, keyed per
// tenant+currency-pair.
type RateCache interface {
	Get(ctx context.Context, key string) (*valueobject.ExchangeRate, error)
	Set(ctx context.Context, key string, rate valueobject.ExchangeRate) error
}

// cacheEntry wraps a cached rate with its expiration time
type cacheEntry struct {
	rate      valueobject.ExchangeRate
	expiresAt time.Time
}

// InMemoryRateCache is the default single-process rate cache. The clock
// is injected so TTL behavior is testable.
type InMemoryRateCache struct {
	entries sync.Map // map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// InMemoryRateCacheOption is a functional option for configuring the cache
type InMemoryRateCacheOption func(*InMemoryRateCache)

// WithTTL sets the entry lifetime
func WithTTL(ttl time.Duration) InMemoryRateCacheOption {
	return func(c *InMemoryRateCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects the time source
func WithClock(now func() time.Time) InMemoryRateCacheOption {
	return func(c *InMemoryRateCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) InMemoryRateCacheOption {
	return func(c *InMemoryRateCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewInMemoryRateCache creates an in-memory rate cache
func NewInMemoryRateCache(opts ...InMemoryRateCacheOption) *InMemoryRateCache {
	cache := &InMemoryRateCache{
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Get returns the cached rate for the key, or nil when absent or expired
func (c *InMemoryRateCache) Get(_ context.Context, key string) (*valueobject.ExchangeRate, error) {
	value, ok := c.entries.Load(key)
	if !ok {
		return nil, nil
	}
	entry := value.(cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.entries.Delete(key)
		return nil, nil
	}
	rate := entry.rate
	return &rate, nil
}

// Set stores the rate under the key for the configured TTL
func (c *InMemoryRateCache) Set(_ context.Context, key string, rate valueobject.ExchangeRate) error {
	c.entries.Store(key, cacheEntry{
		rate:      rate,
		expiresAt: c.now().Add(c.ttl),
	})
	c.logger.Debug("exchange rate cached",
		zap.String("key", key),
		zap.String("rate", rate.String()))
	return nil
}
