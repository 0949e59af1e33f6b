package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/stockrecon/internal/domain/shared"
)

const idempotencySweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore remembers handled event keys for one process.
// Used when Redis is not configured.
type InMemoryIdempotencyStore struct {
	keys *ttlMap[string, struct{}]
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts a background sweep
// of expired keys
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		keys: newTTLMap[string, struct{}](),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.sweepLoop(idempotencySweepInterval)
	return s
}

func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return s.keys.setIfAbsent(key, struct{}{}, ttl), nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	_, ok := s.keys.get(key)
	return ok, nil
}

func (s *InMemoryIdempotencyStore) Remove(_ context.Context, key string) error {
	s.keys.deleteIf(key, func(struct{}) bool { return true })
	return nil
}

// Close stops the sweep. Further calls are no-ops.
func (s *InMemoryIdempotencyStore) Close() error {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}

// Size counts stored keys, including expired ones not yet swept
func (s *InMemoryIdempotencyStore) Size() int {
	return s.keys.len()
}

func (s *InMemoryIdempotencyStore) sweepLoop(every time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.keys.sweep()
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
