package event

import (
	"context"
	"sync"
	"time"

	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/erp/stockrecon/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OutboxProcessorConfig tunes delivery and housekeeping
type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// MaxRetries overrides the per-row limit when positive
	MaxRetries int

	CleanupEnabled   bool
	CleanupInterval  time.Duration
	CleanupRetention time.Duration
	// StaleAfter is how long a row may stay PROCESSING before housekeeping
	// assumes its processor died. Zero disables the release.
	StaleAfter time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		MaxRetries:       shared.DefaultMaxRetries,
		CleanupEnabled:   true,
		CleanupInterval:  time.Hour,
		CleanupRetention: 7 * 24 * time.Hour,
		StaleAfter:       5 * time.Minute,
	}
}

// OutboxProcessor relays committed outbox rows to the event bus. Delivery is
// at least once: a row is marked SENT only after every handler accepted it.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	cfg        OutboxProcessorConfig
	log        *zap.Logger
	metrics    *telemetry.OutboxMetrics
	now        func() time.Time

	stop context.CancelFunc
	done sync.WaitGroup
}

func NewOutboxProcessor(repo shared.OutboxRepository, bus shared.EventPublisher, serializer *EventSerializer, cfg OutboxProcessorConfig, log *zap.Logger) *OutboxProcessor {
	if log == nil {
		log = zap.NewNop()
	}
	defaults := DefaultOutboxProcessorConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		cfg:        cfg,
		log:        log.Named("outbox"),
		now:        time.Now,
	}
}

// SetMetrics attaches delivery counters
func (p *OutboxProcessor) SetMetrics(m *telemetry.OutboxMetrics) {
	p.metrics = m
}

// Start launches the polling loop. It returns immediately.
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.stop = context.WithCancel(ctx)
	p.done.Add(1)
	go p.run(ctx)
	return nil
}

// Stop cancels the loop and waits for the batch in flight, or for ctx
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.stop != nil {
		p.stop()
	}
	finished := make(chan struct{})
	go func() {
		p.done.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) run(ctx context.Context) {
	defer p.done.Done()

	poll := time.NewTicker(p.cfg.PollInterval)
	defer poll.Stop()

	var housekeeping <-chan time.Time
	if p.cfg.CleanupEnabled {
		t := time.NewTicker(p.cfg.CleanupInterval)
		defer t.Stop()
		housekeeping = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			p.drain(ctx)
		case <-housekeeping:
			p.cleanup(ctx)
		}
	}
}

// drain keeps claiming while batches come back full
func (p *OutboxProcessor) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := p.ProcessOnce(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.log.Error("outbox claim failed", zap.Error(err))
			}
			return
		}
		if n < p.cfg.BatchSize {
			return
		}
	}
}

// ProcessOnce claims one batch of due rows and delivers it in creation
// order. It returns how many rows were claimed.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) (int, error) {
	entries, err := p.repo.ClaimDue(ctx, p.now(), p.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		p.deliver(ctx, entry)
	}
	return len(entries), nil
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) {
	if p.cfg.MaxRetries > 0 {
		entry.MaxRetries = p.cfg.MaxRetries
	}

	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.bus.Publish(ctx, event)
	}

	outcome := "sent"
	if err == nil {
		entry.MarkSent()
	} else {
		entry.MarkFailed(err.Error())
		outcome = p.logFailure(entry, err)
	}

	if uerr := p.repo.Update(ctx, entry); uerr != nil {
		// The row stays PROCESSING until housekeeping releases it
		p.log.Error("outbox row not updated",
			zap.String("event_id", entry.EventID.String()),
			zap.String("status", string(entry.Status)),
			zap.Error(uerr))
		return
	}
	p.metrics.RecordDelivery(ctx, entry.EventType, outcome)
}

func (p *OutboxProcessor) logFailure(entry *shared.OutboxEntry, cause error) string {
	fields := []zap.Field{
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("store_id", entry.StoreID.String()),
		zap.Int("attempt", entry.RetryCount),
		zap.Error(cause),
	}
	if entry.IsDead() {
		p.log.Warn("outbox row dead-lettered", append(fields,
			zap.String("aggregate_type", entry.AggregateType),
			zap.String("aggregate_id", entry.AggregateID.String()))...)
		return "dead"
	}
	p.log.Error("outbox delivery failed", append(fields, zap.Timep("next_retry_at", entry.NextRetryAt))...)
	return "failed"
}

// cleanup releases abandoned claims, purges delivered rows past retention
// and reports dead letters
func (p *OutboxProcessor) cleanup(ctx context.Context) {
	now := p.now()

	if p.cfg.StaleAfter > 0 {
		released, err := p.repo.ReleaseStale(ctx, now.Add(-p.cfg.StaleAfter))
		switch {
		case err != nil:
			p.log.Error("stale outbox rows not released", zap.Error(err))
		case released > 0:
			p.metrics.RecordReleased(ctx, released)
			p.log.Warn("released stale outbox rows", zap.Int64("released", released))
		}
	}

	cutoff := now.Add(-p.cfg.CleanupRetention)
	if purged, err := p.repo.PurgeSent(ctx, cutoff); err != nil {
		p.log.Error("sent outbox rows not purged", zap.Error(err))
	} else if purged > 0 {
		p.log.Info("purged sent outbox rows", zap.Int64("purged", purged), zap.Time("cutoff", cutoff))
	}

	if counts, err := p.repo.CountByStatus(ctx); err == nil && counts[shared.OutboxStatusDead] > 0 {
		p.log.Warn("outbox has dead letters", zap.Int64("dead", counts[shared.OutboxStatusDead]))
	}
}
