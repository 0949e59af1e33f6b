package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/erp/stockrecon/internal/application/batch"
	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/erp/stockrecon/internal/infrastructure/logger"
	"github.com/erp/stockrecon/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciliation defaults
const (
	DefaultConcurrency  = 4
	DefaultMaxBatchSize = 500
)

// ReconciliationConfig configures ReconciliationService
type ReconciliationConfig struct {
	Retry        RetryPolicy
	Concurrency  int
	MaxBatchSize int
}

// DefaultReconciliationConfig returns the default configuration
func DefaultReconciliationConfig() ReconciliationConfig {
	return ReconciliationConfig{
		Retry:        DefaultRetryPolicy(),
		Concurrency:  DefaultConcurrency,
		MaxBatchSize: DefaultMaxBatchSize,
	}
}

// ReconciliationService turns physical counts into ledger corrections.
// Each item is independent: one item failing never blocks the others, and
// only infrastructure errors abort the batch.
type ReconciliationService struct {
	engine  *Engine
	applier *Applier
	results inventory.ReconciliationResultRepository
	catalog inventory.CatalogReader
	config  ReconciliationConfig
	logger  *zap.Logger
	metrics *telemetry.ReconciliationMetrics
	now     func() time.Time
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	engine *Engine,
	applier *Applier,
	results inventory.ReconciliationResultRepository,
	catalog inventory.CatalogReader,
	config ReconciliationConfig,
	logger *zap.Logger,
) *ReconciliationService {
	if config.Concurrency < 1 {
		config.Concurrency = DefaultConcurrency
	}
	if config.MaxBatchSize < 1 {
		config.MaxBatchSize = DefaultMaxBatchSize
	}
	config.Retry = config.Retry.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		engine:  engine,
		applier: applier,
		results: results,
		catalog: catalog,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// SetMetrics sets the reconciliation metrics collector
func (s *ReconciliationService) SetMetrics(m *telemetry.ReconciliationMetrics) {
	s.metrics = m
}

// Reconcile processes a batch of counts. Results are returned in input order.
func (s *ReconciliationService) Reconcile(ctx context.Context, cmd ReconcileCommand) (*ReconcileResponse, error) {
	if cmd.StoreID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Store ID is required")
	}
	if len(cmd.Items) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "At least one count item is required")
	}
	if len(cmd.Items) > s.config.MaxBatchSize {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("A batch cannot contain more than %d items", s.config.MaxBatchSize))
	}

	started := time.Now()
	entries := make([]inventory.CountEntry, len(cmd.Items))
	for i, item := range cmd.Items {
		entries[i] = item.ToEntry(cmd.StoreID)
	}
	results, err := s.ReconcileEntries(ctx, cmd.StoreID, cmd.Reference, cmd.CountedBy, entries)
	if err != nil {
		return nil, err
	}

	resp := newReconcileResponse(results)
	logger.Ctx(ctx, s.logger).Info("Reconciliation batch completed",
		zap.String("store_id", cmd.StoreID.String()),
		zap.String("reference", cmd.Reference),
		zap.Int("items", len(cmd.Items)),
		zap.Int("applied", resp.AppliedCount),
		zap.Int("no_op", resp.NoOpCount),
		zap.Int("skipped", resp.SkippedCount),
		zap.Int("failed", resp.FailedCount),
		zap.Int("negative_stock", resp.NegativeStockCount),
		zap.Duration("duration", time.Since(started)),
	)
	return resp, nil
}

// ReconcileEntries reconciles count entries of one store and returns one
// result per entry in input order. Only the first occurrence of an
// idempotency key is processed; later ones are skipped when they carry the
// same payload and failed otherwise.
func (s *ReconciliationService) ReconcileEntries(ctx context.Context, storeID uuid.UUID, reference, countedBy string, entries []inventory.CountEntry) ([]*inventory.ReconciliationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "reconcile_entries",
		telemetry.SpanAttrStoreID, storeID.String(),
		telemetry.SpanAttrBatchSize, len(entries),
	)
	defer span.End()

	started := time.Now()
	results := make([]*inventory.ReconciliationResult, len(entries))
	catalog := newCatalogCache(s.catalog, storeID)

	entries, err := s.withDefaultWarehouse(ctx, catalog, entries)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("reconcile batch: %w", err)
	}

	pending := make([]int, 0, len(entries))
	firstByKey := make(map[string]int, len(entries))
	for i, entry := range entries {
		first, seen := firstByKey[entry.IdempotencyKey]
		if !seen || entry.IdempotencyKey == "" {
			firstByKey[entry.IdempotencyKey] = i
			pending = append(pending, i)
			continue
		}
		if entries[first].Fingerprint() == entry.Fingerprint() {
			results[i] = inventory.NewUnprocessedResult(entry, inventory.ResultStatusSkipped, inventory.ErrDuplicateInBatch)
		} else {
			results[i] = inventory.NewUnprocessedResult(entry, inventory.ResultStatusFailed, inventory.ErrIdempotencyKeyReused)
		}
	}

	cmd := ReconcileCommand{StoreID: storeID, Reference: reference, CountedBy: countedBy}
	processed, err := batch.Process(ctx, pending, batch.Options{
		Concurrency: s.config.Concurrency,
		StopOnError: func(err error) bool { return !shared.IsDomainError(err) },
	}, func(ctx context.Context, _ int, idx int) (*inventory.ReconciliationResult, error) {
		return s.reconcileItem(ctx, catalog, cmd, entries[idx])
	})
	if err != nil {
		logger.Ctx(ctx, s.logger).Error("Reconciliation batch aborted",
			zap.String("store_id", storeID.String()),
			zap.String("reference", reference),
			zap.Error(err),
		)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("reconcile batch: %w", err)
	}

	for j, r := range processed {
		idx := pending[j]
		switch {
		case r.Err == nil:
			results[idx] = r.Value
		case errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded):
			results[idx] = inventory.NewUnprocessedResult(entries[idx], inventory.ResultStatusSkipped, inventory.ErrCancelled)
		default:
			results[idx] = inventory.NewUnprocessedResult(entries[idx], inventory.ResultStatusFailed, r.Err)
		}
	}

	if err := s.recordUnprocessed(ctx, reference, countedBy, results); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	for _, r := range results {
		s.metrics.RecordItem(ctx, storeID, string(r.Status))
		if r.NegativeStock && !r.Replayed {
			s.metrics.RecordNegativeStock(ctx, storeID)
		}
	}
	s.metrics.RecordBatch(ctx, storeID, len(entries), time.Since(started))
	telemetry.SetOK(span)
	return results, nil
}

// withDefaultWarehouse fills in the store's default warehouse on entries
// that name none, so that equal payloads fingerprint equally. When the store
// has no default the entries are left as they are and fail one by one later.
func (s *ReconciliationService) withDefaultWarehouse(ctx context.Context, catalog *catalogCache, entries []inventory.CountEntry) ([]inventory.CountEntry, error) {
	if !slices.ContainsFunc(entries, func(e inventory.CountEntry) bool { return e.WarehouseID == uuid.Nil }) {
		return entries, nil
	}
	if ctx.Err() != nil {
		return entries, nil
	}
	id, err := catalog.defaultWarehouseID(ctx)
	if err != nil {
		if shared.IsDomainError(err) || ctx.Err() != nil {
			return entries, nil
		}
		return nil, fmt.Errorf("resolve default warehouse: %w", err)
	}
	resolved := slices.Clone(entries)
	for i := range resolved {
		if resolved[i].WarehouseID == uuid.Nil {
			resolved[i].WarehouseID = id
		}
	}
	return resolved, nil
}

// recordUnprocessed keeps skipped and failed outcomes in the audit trail.
// The write outlives a cancelled request so that cancelled items are recorded too.
func (s *ReconciliationService) recordUnprocessed(ctx context.Context, reference, countedBy string, results []*inventory.ReconciliationResult) error {
	ctx = context.WithoutCancel(ctx)
	for _, r := range results {
		if r.Status.IsTerminalSuccess() {
			continue
		}
		r.Reference = reference
		r.CountedBy = countedBy
		if err := s.results.Create(ctx, r); err != nil {
			return fmt.Errorf("record %s result for %q: %w", r.Status, r.IdempotencyKey, err)
		}
	}
	return nil
}

// reconcileItem runs validation, the idempotency check and the bounded
// evaluate-apply loop for one entry. Domain failures are returned as failed
// results; a returned error is an infrastructure failure.
func (s *ReconciliationService) reconcileItem(ctx context.Context, catalog *catalogCache, cmd ReconcileCommand, entry inventory.CountEntry) (*inventory.ReconciliationResult, error) {
	result, err := s.reconcileEntry(ctx, catalog, cmd, entry)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return inventory.NewUnprocessedResult(entry, inventory.ResultStatusSkipped, inventory.ErrCancelled), nil
	}
	if shared.IsDomainError(err) {
		return inventory.NewUnprocessedResult(entry, inventory.ResultStatusFailed, err), nil
	}
	return nil, err
}

func (s *ReconciliationService) reconcileEntry(ctx context.Context, catalog *catalogCache, cmd ReconcileCommand, entry inventory.CountEntry) (*inventory.ReconciliationResult, error) {
	if err := entry.Validate(s.now()); err != nil {
		return nil, err
	}
	entry, err := catalog.resolve(ctx, entry)
	if err != nil {
		return nil, err
	}
	fingerprint := entry.Fingerprint()

	policy := s.config.Retry
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		existing, err := s.results.FindByIdempotencyKey(ctx, entry.StoreID, entry.IdempotencyKey)
		switch {
		case err == nil:
			if !existing.MatchesFingerprint(fingerprint) {
				return nil, inventory.ErrIdempotencyKeyReused
			}
			existing.Replayed = true
			return existing, nil
		case !errors.Is(err, shared.ErrNotFound):
			return nil, fmt.Errorf("lookup idempotency key: %w", err)
		}

		eval, err := s.engine.Evaluate(ctx, entry)
		if err != nil {
			return nil, err
		}

		result, err := s.applier.Apply(ctx, ApplyCommand{
			Entry:      entry,
			Evaluation: eval,
			Reference:  cmd.Reference,
			CountedBy:  cmd.CountedBy,
			Attempt:    attempt,
		})
		if err == nil {
			if result.NegativeStock {
				s.logger.Warn("Count correction left stock negative",
					zap.String("store_id", entry.StoreID.String()),
					zap.String("product_id", entry.ProductID.String()),
					zap.String("warehouse_id", entry.WarehouseID.String()),
					zap.String("resulting_qty", result.ResultingQty.String()),
				)
			}
			return result, nil
		}
		if !inventory.IsConcurrencyConflict(err) {
			return nil, err
		}

		s.metrics.RecordConflictRetry(ctx, entry.StoreID)
		s.logger.Debug("Reconciliation conflict, retrying",
			zap.String("key", entry.Key().String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < policy.MaxAttempts {
			if err := wait(ctx, policy.Backoff(attempt)); err != nil {
				return nil, err
			}
		}
	}

	logger.Ctx(ctx, s.logger).Warn("Reconciliation gave up after repeated conflicts",
		zap.String("key", entry.Key().String()),
		zap.String("idempotency_key", entry.IdempotencyKey),
		zap.Int("attempts", policy.MaxAttempts),
	)
	return nil, shared.ErrConcurrencyConflict
}

// ListResults lists the reconciliation audit trail of a store
func (s *ReconciliationService) ListResults(ctx context.Context, storeID uuid.UUID, filter inventory.ResultFilter) (shared.Paginated[ReconciliationResultDTO], error) {
	filter.Filter = filter.Filter.Normalize()
	rows, total, err := s.results.List(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[ReconciliationResultDTO]{}, err
	}
	items := make([]ReconciliationResultDTO, 0, len(rows))
	for i := range rows {
		items = append(items, ToReconciliationResultDTO(&rows[i]))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}
