package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL bounds how long a handled event key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore is a set of keys with per-key expiry. Event handlers use
// it to drop outbox redeliveries; keys are "<handler>:<event id>".
type IdempotencyStore interface {
	// MarkProcessed adds key unless present. It reports whether this call
	// added it, so exactly one of several concurrent callers wins.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Remove lets the next delivery of key through again
	Remove(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig switches deduplication for one handler
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}
