package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	ledgerapp "github.com/debtflow/backend/internal/application/ledger"
	"go.uber.org/zap"
)

// Constants for in-memory cache configuration
const (
	defaultCleanupInterval = 30 * time.Second
	defaultAnalyticsTTL    = 5 * time.Minute
)

// InMemoryAnalyticsCache implements AnalyticsCache using in-memory storage.
// Suitable for single-instance deployments; dashboard entries do not need to
// be shared across processes because every instance can recompute them.
type InMemoryAnalyticsCache struct {
	entries sync.Map // map[string]*cacheEntry
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	// Stats for monitoring
	hits   int64
	misses int64
}

// cacheEntry wraps cached bytes with expiration time
type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// isExpired checks if the cache entry has expired
func (e *cacheEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryAnalyticsCacheOption is a functional option for configuring the cache
type InMemoryAnalyticsCacheOption func(*InMemoryAnalyticsCache)

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryAnalyticsCacheOption {
	return func(c *InMemoryAnalyticsCache) {
		c.logger = logger
	}
}

// NewInMemoryAnalyticsCache creates a new in-memory analytics cache
func NewInMemoryAnalyticsCache(opts ...InMemoryAnalyticsCacheOption) *InMemoryAnalyticsCache {
	cache := &InMemoryAnalyticsCache{
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	// Start background cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// Get retrieves cached bytes for a key; nil on a miss
func (c *InMemoryAnalyticsCache) Get(ctx context.Context, key string) ([]byte, error) {
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*cacheEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			c.logger.Debug("analytics cache hit", zap.String("key", key))
			return entry.data, nil
		}
		// Expired, remove from cache
		c.entries.Delete(key)
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("analytics cache miss", zap.String("key", key))
	return nil, nil
}

// Set stores bytes under a key with a TTL
func (c *InMemoryAnalyticsCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if data == nil {
		return nil
	}

	if ttl == 0 {
		ttl = defaultAnalyticsTTL
	}

	c.entries.Store(key, &cacheEntry{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	})
	c.logger.Debug("cached analytics entry",
		zap.String("key", key),
		zap.Duration("ttl", ttl))
	return nil
}

// Delete removes a key
func (c *InMemoryAnalyticsCache) Delete(ctx context.Context, key string) error {
	c.entries.Delete(key)
	c.logger.Debug("deleted analytics cache entry", zap.String("key", key))
	return nil
}

// Close releases any resources held by the cache
func (c *InMemoryAnalyticsCache) Close() error {
	// Only close once
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryAnalyticsCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Count returns the number of entries in the cache
func (c *InMemoryAnalyticsCache) Count() (n int) {
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// cleanupExpired periodically removes expired entries from the cache
func (c *InMemoryAnalyticsCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.doCleanup()
		}
	}
}

// doCleanup removes expired entries
func (c *InMemoryAnalyticsCache) doCleanup() {
	var removed int
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry).isExpired() {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("cleaned up expired analytics cache entries",
			zap.Int("removed", removed))
	}
}

// Ensure InMemoryAnalyticsCache implements AnalyticsCache
var _ ledgerapp.AnalyticsCache = (*InMemoryAnalyticsCache)(nil)
