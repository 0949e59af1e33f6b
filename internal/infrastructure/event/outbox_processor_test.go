package event

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryOutbox is an in-process shared.OutboxRepository
type memoryOutbox struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]*shared.OutboxEntry
	claimErr error
	released int64
	purgedAt time.Time
}

func newMemoryOutbox() *memoryOutbox {
	return &memoryOutbox{rows: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *memoryOutbox) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.rows[e.ID] = e
	}
	return nil
}

func (r *memoryOutbox) ClaimDue(_ context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	var due []*shared.OutboxEntry
	for _, e := range r.rows {
		retryDue := e.Status == shared.OutboxStatusFailed && e.NextRetryAt != nil && !e.NextRetryAt.After(now)
		if e.Status == shared.OutboxStatusPending || retryDue {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	for _, e := range due {
		if err := e.MarkProcessing(); err != nil {
			return nil, err
		}
	}
	return due, nil
}

func (r *memoryOutbox) Update(_ context.Context, entry *shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[entry.ID] = entry
	return nil
}

func (r *memoryOutbox) PurgeSent(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgedAt = before
	var n int64
	for id, e := range r.rows {
		if e.Status == shared.OutboxStatusSent && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryOutbox) ReleaseStale(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.rows {
		if e.Status == shared.OutboxStatusProcessing && e.UpdatedAt.Before(before) {
			e.Status = shared.OutboxStatusPending
			n++
		}
	}
	r.released += n
	return n, nil
}

func (r *memoryOutbox) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.rows {
		counts[e.Status]++
	}
	return counts, nil
}

func (r *memoryOutbox) get(id uuid.UUID) shared.OutboxEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.rows[id]
}

func newTestSerializer() *EventSerializer {
	return NewEventSerializer(EventOf[testEvent]("TestEvent"))
}

func enqueue(t *testing.T, repo *memoryOutbox, serializer *EventSerializer) *shared.OutboxEntry {
	t.Helper()
	event := newTestEvent("TestEvent", uuid.New())
	payload, err := serializer.Serialize(event)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(event, payload)
	require.NoError(t, repo.Save(context.Background(), entry))
	return entry
}

type processorFixture struct {
	repo       *memoryOutbox
	serializer *EventSerializer
	handler    *testHandler
	processor  *OutboxProcessor
	clock      time.Time
}

func newProcessorFixture(t *testing.T, cfg OutboxProcessorConfig) *processorFixture {
	f := &processorFixture{
		repo:       newMemoryOutbox(),
		serializer: newTestSerializer(),
		handler:    newTestHandler("TestEvent"),
		clock:      time.Now(),
	}
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(f.handler)
	f.processor = NewOutboxProcessor(f.repo, bus, f.serializer, cfg, zap.NewNop())
	f.processor.now = func() time.Time { return f.clock }
	return f
}

func TestOutboxProcessor_DeliversInCreationOrder(t *testing.T) {
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	first := enqueue(t, f.repo, f.serializer)
	second := enqueue(t, f.repo, f.serializer)
	second.CreatedAt = first.CreatedAt.Add(time.Millisecond)

	n, err := f.processor.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	handled := f.handler.getHandled()
	require.Len(t, handled, 2)
	assert.Equal(t, first.EventID, handled[0].EventID())
	assert.Equal(t, "test data", handled[1].(*testEvent).Data)

	stored := f.repo.get(first.ID)
	assert.Equal(t, shared.OutboxStatusSent, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)

	n, err = f.processor.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxProcessor_FailureIsRetriedWhenDue(t *testing.T) {
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	f.handler.setError(errors.New("downstream unavailable"))
	entry := enqueue(t, f.repo, f.serializer)

	_, err := f.processor.ProcessOnce(context.Background())
	require.NoError(t, err)

	stored := f.repo.get(entry.ID)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Contains(t, stored.LastError, "downstream unavailable")
	require.NotNil(t, stored.NextRetryAt)

	n, err := f.processor.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "retry not yet due")

	f.handler.setError(nil)
	f.clock = stored.NextRetryAt.Add(time.Millisecond)
	n, err = f.processor.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, shared.OutboxStatusSent, f.repo.get(entry.ID).Status)
}

func TestOutboxProcessor_DeadLettersAfterMaxRetries(t *testing.T) {
	cfg := DefaultOutboxProcessorConfig()
	cfg.MaxRetries = 2
	f := newProcessorFixture(t, cfg)
	f.handler.setError(errors.New("always fails"))
	entry := enqueue(t, f.repo, f.serializer)

	for i := 0; i < 2; i++ {
		n, err := f.processor.ProcessOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		f.clock = f.clock.Add(time.Hour)
	}

	stored := f.repo.get(entry.ID)
	assert.True(t, stored.IsDead())
	assert.Equal(t, 2, stored.RetryCount)
	assert.Nil(t, stored.NextRetryAt)

	n, err := f.processor.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "dead rows are never claimed")
}

func TestOutboxProcessor_UnknownEventTypeFails(t *testing.T) {
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	entry := shared.NewOutboxEntry(newTestEvent("UnregisteredEvent", uuid.New()), []byte(`{}`))
	require.NoError(t, f.repo.Save(context.Background(), entry))

	_, err := f.processor.ProcessOnce(context.Background())
	require.NoError(t, err)

	stored := f.repo.get(entry.ID)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "unknown event type")
	assert.Empty(t, f.handler.getHandled())
}

func TestOutboxProcessor_ClaimError(t *testing.T) {
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	f.repo.claimErr = errors.New("connection refused")

	_, err := f.processor.ProcessOnce(context.Background())
	assert.EqualError(t, err, "connection refused")
}

func TestOutboxProcessor_DrainsFullBatches(t *testing.T) {
	cfg := DefaultOutboxProcessorConfig()
	cfg.BatchSize = 2
	f := newProcessorFixture(t, cfg)
	for i := 0; i < 5; i++ {
		enqueue(t, f.repo, f.serializer)
	}

	f.processor.drain(context.Background())

	assert.Len(t, f.handler.getHandled(), 5)
	counts, err := f.repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts[shared.OutboxStatusSent])
}

func TestOutboxProcessor_Cleanup(t *testing.T) {
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())

	stale := enqueue(t, f.repo, f.serializer)
	stale.Status = shared.OutboxStatusProcessing
	stale.UpdatedAt = f.clock.Add(-time.Hour)

	sent := enqueue(t, f.repo, f.serializer)
	sent.MarkSent()
	old := f.clock.Add(-30 * 24 * time.Hour)
	sent.ProcessedAt = &old

	f.processor.cleanup(context.Background())

	assert.Equal(t, int64(1), f.repo.released)
	assert.Equal(t, shared.OutboxStatusPending, f.repo.get(stale.ID).Status)
	counts, err := f.repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts[shared.OutboxStatusSent])
	assert.Equal(t, f.clock.Add(-7*24*time.Hour), f.repo.purgedAt)
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	cfg := DefaultOutboxProcessorConfig()
	cfg.PollInterval = 20 * time.Millisecond
	f := newProcessorFixture(t, cfg)
	f.processor.now = time.Now
	enqueue(t, f.repo, f.serializer)

	require.NoError(t, f.processor.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(f.handler.getHandled()) == 1 }, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.processor.Stop(stopCtx))
}

func TestNewOutboxProcessor_FillsDefaults(t *testing.T) {
	p := NewOutboxProcessor(newMemoryOutbox(), NewInMemoryEventBus(nil), newTestSerializer(), OutboxProcessorConfig{}, nil)

	assert.Equal(t, 100, p.cfg.BatchSize)
	assert.Equal(t, 5*time.Second, p.cfg.PollInterval)
	assert.Equal(t, time.Hour, p.cfg.CleanupInterval)
	assert.False(t, p.cfg.CleanupEnabled)
}
