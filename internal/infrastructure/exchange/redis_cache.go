package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
)

// RedisRateCache implements RateCache on Redis. This is suitable for
// distributed deployments where multiple instances should share fetched
// rates instead of each getting a cold cache.
type RedisRateCache struct {
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

// NewRedisRateCache creates a Redis-backed rate cache and verifies the
// connection.
func NewRedisRateCache(cfg RedisConfig, ttl time.Duration) (*RedisRateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRateCacheWithClient(client, "", ttl), nil
}

// NewRedisRateCacheWithClient creates a cache over an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisRateCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisRateCache {
	if keyPrefix == "" {
		keyPrefix = "exchange:rate:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRateCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Get returns the cached rate for the key, or nil when absent
func (c *RedisRateCache) Get(ctx context.Context, key string) (*valueobject.ExchangeRate, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached rate: %w", err)
	}
	var rate valueobject.ExchangeRate
	if err := json.Unmarshal(data, &rate); err != nil {
		return nil, fmt.Errorf("failed to decode cached rate: %w", err)
	}
	return &rate, nil
}

// Set stores the rate under the key with the configured TTL
func (c *RedisRateCache) Set(ctx context.Context, key string, rate valueobject.ExchangeRate) error {
	data, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("failed to encode rate: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache rate: %w", err)
	}
	return nil
}
