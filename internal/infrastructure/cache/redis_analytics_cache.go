package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledgerapp "github.com/debtflow/backend/internal/application/ledger"
	"github.com/redis/go-redis/v9"
)

// RedisAnalyticsCache implements AnalyticsCache using Redis. Suitable for
// deployments running several instances, where a dashboard recomputed on one
// instance should serve reads on the others.
type RedisAnalyticsCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisAnalyticsCache creates a new Redis-based analytics cache
func NewRedisAnalyticsCache(cfg RedisConfig) (*RedisAnalyticsCache, error) {
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

	return &RedisAnalyticsCache{
		client:    client,
		keyPrefix: "analytics:",
	}, nil
}

// NewRedisAnalyticsCacheWithClient creates a cache with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisAnalyticsCacheWithClient(client *redis.Client, keyPrefix string) *RedisAnalyticsCache {
	if keyPrefix == "" {
		keyPrefix = "analytics:"
	}
	return &RedisAnalyticsCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get retrieves cached bytes for a key; nil on a miss
func (c *RedisAnalyticsCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get analytics cache entry: %w", err)
	}
	return data, nil
}

// Set stores bytes under a key with a TTL
func (c *RedisAnalyticsCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if data == nil {
		return nil
	}
	if ttl == 0 {
		ttl = defaultAnalyticsTTL
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set analytics cache entry: %w", err)
	}
	return nil
}

// Delete removes a key
func (c *RedisAnalyticsCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete analytics cache entry: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisAnalyticsCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisAnalyticsCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisAnalyticsCache implements AnalyticsCache
var _ ledgerapp.AnalyticsCache = (*RedisAnalyticsCache)(nil)
