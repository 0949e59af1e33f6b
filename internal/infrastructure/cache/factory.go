package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/erp/stockrecon/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis and pings it
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// StoreFactory builds the key-value stores from configuration
type StoreFactory struct {
	client                redis.UniversalClient
	logger                *zap.Logger
	allowInMemoryFallback bool
	breaker               BreakerConfig
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores
// when no Redis client is available. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithBreakerConfig overrides the circuit breaker settings of Redis stores
func WithBreakerConfig(cfg BreakerConfig) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.breaker = cfg
	}
}

// NewStoreFactory creates a new factory. client may be nil when Redis is
// not reachable.
func NewStoreFactory(client redis.UniversalClient, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		client:                client,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		breaker:               DefaultBreakerConfig(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IdempotencyStore returns the Redis store, or the in-memory one when Redis
// is unavailable and fallback is allowed
func (f *StoreFactory) IdempotencyStore(keyPrefix string) (shared.IdempotencyStore, error) {
	if f.client != nil {
		f.logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(f.client, keyPrefix), nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable")
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. " +
		"Events may be handled twice when several instances run.")
	return NewInMemoryIdempotencyStore(), nil
}

// CountSessionStore returns the store selected by cfg.Backend
func (f *StoreFactory) CountSessionStore(cfg config.CountSessionConfig) (inventory.CountSessionStore, error) {
	switch cfg.Backend {
	case config.CountSessionBackendMemory:
		return NewInMemoryCountSessionStore(), nil
	case config.CountSessionBackendRedis, "":
		if f.client != nil {
			return NewRedisCountSessionStore(f.client, cfg.KeyPrefix, f.breaker, f.logger), nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required for count sessions but unavailable")
		}
		f.logger.Warn("Redis unavailable, keeping count sessions in memory")
		return NewInMemoryCountSessionStore(), nil
	default:
		return nil, fmt.Errorf("unknown count session backend %q", cfg.Backend)
	}
}
