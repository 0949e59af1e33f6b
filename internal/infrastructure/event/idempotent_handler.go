package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/erp/stockrecon/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Outcome of one delivery through an IdempotentHandler
type Outcome int

const (
	OutcomeHandled Outcome = iota
	OutcomeDuplicate
	OutcomeFailed
	// OutcomeUnchecked: the store was unreachable and the event was handled
	// without a duplicate check
	OutcomeUnchecked
	outcomeCount
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHandled:
		return "handled"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFailed:
		return "failed"
	case OutcomeUnchecked:
		return "unchecked"
	}
	return "unknown"
}

// NamedHandler lets a handler choose the name its idempotency keys are scoped by
type NamedHandler interface {
	HandlerName() string
}

// IdempotentHandler drops outbox redeliveries of events the wrapped handler
// already accepted. Keys are "<handler name>:<event id>", so handlers on the
// same event type never suppress each other. A failed delivery releases its
// key so the outbox retry is handled.
type IdempotentHandler struct {
	inner    shared.EventHandler
	name     string
	store    shared.IdempotencyStore
	cfg      shared.IdempotencyConfig
	log      *zap.Logger
	counts   [outcomeCount]atomic.Int64
	exported *telemetry.Counter
}

// NewIdempotentHandler wraps inner. A zero cfg.TTL uses the default TTL.
func NewIdempotentHandler(inner shared.EventHandler, store shared.IdempotencyStore, cfg shared.IdempotencyConfig, log *zap.Logger) *IdempotentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = shared.DefaultIdempotencyTTL
	}
	name := fmt.Sprintf("%T", inner)
	if named, ok := inner.(NamedHandler); ok {
		name = named.HandlerName()
	}
	return &IdempotentHandler{inner: inner, name: name, store: store, cfg: cfg, log: log}
}

// WithOutcomeCounter also exports outcomes on counter, tagged with the
// handler name and outcome
func (h *IdempotentHandler) WithOutcomeCounter(counter *telemetry.Counter) *IdempotentHandler {
	h.exported = counter
	return h
}

func (h *IdempotentHandler) EventTypes() []string { return h.inner.EventTypes() }

func (h *IdempotentHandler) HandlerName() string { return h.name }

// Count returns how many deliveries ended with outcome
func (h *IdempotentHandler) Count(outcome Outcome) int64 {
	if outcome < 0 || outcome >= outcomeCount {
		return 0
	}
	return h.counts[outcome].Load()
}

func (h *IdempotentHandler) key(event shared.DomainEvent) string {
	return h.name + ":" + event.EventID().String()
}

func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.cfg.Enabled {
		return h.inner.Handle(ctx, event)
	}

	key := h.key(event)
	checked := true
	isNew, err := h.store.MarkProcessed(ctx, key, h.cfg.TTL)
	switch {
	case err != nil:
		// Handlers tolerate duplicates; losing the event is worse
		checked = false
		h.log.Warn("idempotency store unavailable, handling unchecked",
			zap.String("key", key), zap.Error(err))
	case !isNew:
		h.record(ctx, OutcomeDuplicate)
		h.log.Debug("duplicate delivery skipped",
			zap.String("key", key), zap.String("event_type", event.EventType()))
		return nil
	}

	if err := h.inner.Handle(ctx, event); err != nil {
		h.record(ctx, OutcomeFailed)
		if checked {
			if rmErr := h.store.Remove(ctx, key); rmErr != nil {
				h.log.Warn("idempotency key not released", zap.String("key", key), zap.Error(rmErr))
			}
		}
		return err
	}

	if checked {
		h.record(ctx, OutcomeHandled)
	} else {
		h.record(ctx, OutcomeUnchecked)
	}
	return nil
}

func (h *IdempotentHandler) record(ctx context.Context, outcome Outcome) {
	h.counts[outcome].Add(1)
	if h.exported != nil {
		h.exported.Inc(ctx,
			attribute.String("handler", h.name),
			attribute.String("outcome", outcome.String()))
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
