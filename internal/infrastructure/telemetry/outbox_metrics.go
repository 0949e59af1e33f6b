package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// OutboxMetrics counts outbox deliveries by outcome.
type OutboxMetrics struct {
	deliveries *Counter
	released   *Counter
}

// NewOutboxMetrics registers the outbox instruments on meter.
func NewOutboxMetrics(meter metric.Meter) (*OutboxMetrics, error) {
	deliveries, err := NewCounter(meter, "recon_outbox_deliveries_total",
		"Outbox entries processed, by outcome", "{entries}")
	if err != nil {
		return nil, err
	}
	released, err := NewCounter(meter, "recon_outbox_released_total",
		"Entries released back to pending after a processor stalled", "{entries}")
	if err != nil {
		return nil, err
	}
	return &OutboxMetrics{deliveries: deliveries, released: released}, nil
}

// RecordDelivery counts one entry with outcome sent, failed or dead.
func (m *OutboxMetrics) RecordDelivery(ctx context.Context, eventType, outcome string) {
	if m == nil {
		return
	}
	m.deliveries.Inc(ctx, AttrEventType.String(eventType), AttrStatus.String(outcome))
}

// RecordReleased counts entries moved from PROCESSING back to PENDING.
func (m *OutboxMetrics) RecordReleased(ctx context.Context, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.released.Add(ctx, n)
}
