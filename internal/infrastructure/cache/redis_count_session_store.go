package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const defaultCountSessionPrefix = "recon:count_session:"

// ErrCountSessionStoreUnavailable is returned while the breaker is open
var ErrCountSessionStoreUnavailable = shared.NewDomainError("SERVICE_UNAVAILABLE", "Count session store is unavailable")

// BreakerConfig configures the circuit breaker around Redis calls
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
	// HalfOpenRequests is how many probes are let through while half-open
	HalfOpenRequests uint32
}

// DefaultBreakerConfig returns the default breaker configuration
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// RedisCountSessionStore keeps count sessions as JSON values keyed by store
// and session. Every call goes through a circuit breaker so a Redis outage
// fails count-capture requests fast instead of stalling them.
type RedisCountSessionStore struct {
	client    redis.UniversalClient
	keyPrefix string
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// NewRedisCountSessionStore creates a new RedisCountSessionStore
func NewRedisCountSessionStore(client redis.UniversalClient, keyPrefix string, cfg BreakerConfig, logger *zap.Logger) *RedisCountSessionStore {
	if keyPrefix == "" {
		keyPrefix = defaultCountSessionPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg = DefaultBreakerConfig()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "count_session_store",
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// A missing session is an answer, not a Redis failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &RedisCountSessionStore{
		client:    client,
		keyPrefix: keyPrefix,
		breaker:   breaker,
		logger:    logger,
	}
}

func (s *RedisCountSessionStore) key(storeID, sessionID uuid.UUID) string {
	return s.keyPrefix + storeID.String() + ":" + sessionID.String()
}

// Get returns shared.ErrNotFound when the key is absent or expired
func (s *RedisCountSessionStore) Get(ctx context.Context, storeID, sessionID uuid.UUID) (inventory.CountSession, error) {
	raw, err := s.execute(func() (any, error) {
		return s.client.Get(ctx, s.key(storeID, sessionID)).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return inventory.CountSession{}, shared.ErrNotFound
	}
	if err != nil {
		return inventory.CountSession{}, err
	}

	var session inventory.CountSession
	if err := json.Unmarshal(raw.([]byte), &session); err != nil {
		return inventory.CountSession{}, fmt.Errorf("decode count session %s: %w", sessionID, err)
	}
	if session.Items == nil {
		session.Items = make(map[uuid.UUID]inventory.CountSessionItem)
	}
	return session, nil
}

// Put writes the session and resets its TTL
func (s *RedisCountSessionStore) Put(ctx context.Context, session inventory.CountSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode count session %s: %w", session.ID, err)
	}
	_, err = s.execute(func() (any, error) {
		return nil, s.client.Set(ctx, s.key(session.StoreID, session.ID), payload, ttl).Err()
	})
	return err
}

// Delete removes the session; deleting an absent key is not an error
func (s *RedisCountSessionStore) Delete(ctx context.Context, storeID, sessionID uuid.UUID) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.client.Del(ctx, s.key(storeID, sessionID)).Err()
	})
	return err
}

// State returns the breaker state
func (s *RedisCountSessionStore) State() gobreaker.State {
	return s.breaker.State()
}

func (s *RedisCountSessionStore) execute(fn func() (any, error)) (any, error) {
	result, err := s.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCountSessionStoreUnavailable.WithCause(err)
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("count session store: %w", err)
	}
	return result, err
}

var _ inventory.CountSessionStore = (*RedisCountSessionStore)(nil)
