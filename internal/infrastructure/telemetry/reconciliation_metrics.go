package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = &MetricsError{Op: "NewReconciliationMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// ReconciliationMetricsConfig configures NewReconciliationMetrics.
type ReconciliationMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// ReconciliationMetrics holds the instruments of the reconciliation engine,
// the movement ledger and the consistency checker. All methods are safe on a
// nil receiver so services can run without metrics.
type ReconciliationMetrics struct {
	logger *zap.Logger

	itemsTotal          *Counter
	conflictRetries     *Counter
	negativeStockTotal  *Counter
	negativeStockAlerts *Counter
	movementsTotal      *Counter
	batchDuration       *Histogram
	batchSize           *Histogram
	discrepancies       *Gauge
}

// NewReconciliationMetrics creates the instruments on cfg.Meter.
func NewReconciliationMetrics(cfg ReconciliationMetricsConfig) (*ReconciliationMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &ReconciliationMetrics{logger: logger}

	var err error
	if m.itemsTotal, err = NewCounter(cfg.Meter, "recon_items_total",
		"Count items processed by reconciliation, by outcome", "{items}"); err != nil {
		return nil, err
	}
	if m.conflictRetries, err = NewCounter(cfg.Meter, "recon_conflict_retries_total",
		"Reconciliation attempts retried after a concurrency conflict", "{retries}"); err != nil {
		return nil, err
	}
	if m.negativeStockTotal, err = NewCounter(cfg.Meter, "recon_negative_stock_total",
		"Writes that left current stock below zero", "{events}"); err != nil {
		return nil, err
	}
	if m.negativeStockAlerts, err = NewCounter(cfg.Meter, "recon_negative_stock_alerts_total",
		"Negative stock alerts handled from the event bus", "{alerts}"); err != nil {
		return nil, err
	}
	if m.movementsTotal, err = NewCounter(cfg.Meter, "recon_movements_total",
		"Movements appended to the ledger by upstream systems", "{movements}"); err != nil {
		return nil, err
	}
	if m.batchDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "recon_batch_duration_seconds",
		Description: "Wall time of one reconciliation batch",
		Unit:        "s",
		Boundaries:  BatchDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.batchSize, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "recon_batch_size",
		Description: "Count items per reconciliation batch",
		Unit:        "{items}",
		Boundaries:  []float64{1, 5, 10, 25, 50, 100, 250, 500},
	}); err != nil {
		return nil, err
	}
	if m.discrepancies, err = NewGauge(cfg.Meter, "recon_ledger_discrepancies",
		"Pairs whose current stock disagrees with the ledger at the last check", "{pairs}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordItem counts one processed count item.
func (m *ReconciliationMetrics) RecordItem(ctx context.Context, storeID uuid.UUID, status string) {
	if m == nil {
		return
	}
	m.itemsTotal.Inc(ctx, AttrStoreID.String(storeID.String()), AttrStatus.String(status))
}

// RecordConflictRetry counts one retried attempt.
func (m *ReconciliationMetrics) RecordConflictRetry(ctx context.Context, storeID uuid.UUID) {
	if m == nil {
		return
	}
	m.conflictRetries.Inc(ctx, AttrStoreID.String(storeID.String()))
}

// RecordNegativeStock counts a write that left stock negative.
func (m *ReconciliationMetrics) RecordNegativeStock(ctx context.Context, storeID uuid.UUID) {
	if m == nil {
		return
	}
	m.negativeStockTotal.Inc(ctx, AttrStoreID.String(storeID.String()))
}

// RecordNegativeStockAlert counts a handled NegativeStockDetected event.
func (m *ReconciliationMetrics) RecordNegativeStockAlert(ctx context.Context, storeID uuid.UUID) {
	if m == nil {
		return
	}
	m.negativeStockAlerts.Inc(ctx, AttrStoreID.String(storeID.String()))
}

// RecordMovement counts an appended upstream movement.
func (m *ReconciliationMetrics) RecordMovement(ctx context.Context, storeID uuid.UUID, movementType string) {
	if m == nil {
		return
	}
	m.movementsTotal.Inc(ctx, AttrStoreID.String(storeID.String()), AttrMovementType.String(movementType))
}

// RecordBatch records the size and duration of a reconciliation batch.
func (m *ReconciliationMetrics) RecordBatch(ctx context.Context, storeID uuid.UUID, size int, d time.Duration) {
	if m == nil {
		return
	}
	attr := AttrStoreID.String(storeID.String())
	m.batchDuration.RecordDuration(ctx, d, attr)
	m.batchSize.Record(ctx, float64(size), attr)
}

// RecordDiscrepancies sets the discrepancy gauge for a store.
func (m *ReconciliationMetrics) RecordDiscrepancies(ctx context.Context, storeID uuid.UUID, n int64) {
	if m == nil {
		return
	}
	m.discrepancies.Record(ctx, n, AttrStoreID.String(storeID.String()))
	if n > 0 {
		m.logger.Debug("Ledger discrepancies recorded",
			zap.String("store_id", storeID.String()),
			zap.Int64("pairs", n),
		)
	}
}
