package cache

import (
	"fmt"

	ledgerapp "github.com/debtflow/backend/internal/application/ledger"
	"github.com/debtflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// AnalyticsCacheFactory creates analytics caches based on configuration
type AnalyticsCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// AnalyticsCacheFactoryOption is a functional option for configuring the factory
type AnalyticsCacheFactoryOption func(*AnalyticsCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) AnalyticsCacheFactoryOption {
	return func(f *AnalyticsCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true (allow fallback).
func WithInMemoryFallback(allow bool) AnalyticsCacheFactoryOption {
	return func(f *AnalyticsCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewAnalyticsCacheFactory creates a new factory
func NewAnalyticsCacheFactory(cfg config.RedisConfig, opts ...AnalyticsCacheFactoryOption) *AnalyticsCacheFactory {
	f := &AnalyticsCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed analytics cache
func (f *AnalyticsCacheFactory) CreateRedisCache() (ledgerapp.AnalyticsCache, error) {
	cache, err := NewRedisAnalyticsCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis analytics cache: %w", err)
	}
	return cache, nil
}

// CreateInMemoryCache creates an in-memory analytics cache
func (f *AnalyticsCacheFactory) CreateInMemoryCache() ledgerapp.AnalyticsCache {
	return NewInMemoryAnalyticsCache(WithInMemoryLogger(f.logger))
}

// CreateCache creates an analytics cache based on the Redis configuration.
// When Redis is disabled it returns the in-memory cache directly; when Redis
// is enabled but unreachable it falls back to in-memory if allowed.
func (f *AnalyticsCacheFactory) CreateCache() (ledgerapp.AnalyticsCache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory analytics cache")
		return f.CreateInMemoryCache(), nil
	}

	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis analytics cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for analytics cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory analytics cache. "+
		"Dashboard entries will not be shared across instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
