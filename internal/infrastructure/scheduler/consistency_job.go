package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	appinventory "github.com/erp/stockrecon/internal/application/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoreLister returns every store that has ledger history
type StoreLister interface {
	StoreIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ConsistencyVerifier compares current stock against the ledger for one store
type ConsistencyVerifier interface {
	Verify(ctx context.Context, storeID uuid.UUID) (*appinventory.ConsistencyReport, error)
}

// ConsistencyJobConfig holds configuration for the consistency job
type ConsistencyJobConfig struct {
	Enabled bool

	// Interval between two verification sweeps
	Interval time.Duration

	// StoreTimeout bounds the verification of a single store
	StoreTimeout time.Duration

	// RunOnStart triggers a sweep right after Start instead of waiting one interval
	RunOnStart bool
}

// DefaultConsistencyJobConfig returns default configuration
func DefaultConsistencyJobConfig() ConsistencyJobConfig {
	return ConsistencyJobConfig{
		Enabled:      true,
		Interval:     time.Hour,
		StoreTimeout: 5 * time.Minute,
		RunOnStart:   false,
	}
}

// SweepSummary is the outcome of one verification sweep
type SweepSummary struct {
	StoresChecked      int
	StoresFailed       int
	InconsistentStores int
	Discrepancies      int
}

// ConsistencyJob periodically verifies every store's current stock against
// its movement ledger. It only reports; repairs go through the rebuild endpoint.
type ConsistencyJob struct {
	stores    StoreLister
	verifier  ConsistencyVerifier
	logger    *zap.Logger
	config    ConsistencyJobConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewConsistencyJob creates a new consistency job
func NewConsistencyJob(
	stores StoreLister,
	verifier ConsistencyVerifier,
	logger *zap.Logger,
	config ConsistencyJobConfig,
) (*ConsistencyJob, error) {
	if config.Enabled && config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidConfig, config.Interval)
	}
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = DefaultConsistencyJobConfig().StoreTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsistencyJob{
		stores:   stores,
		verifier: verifier,
		logger:   logger.Named("consistency_job"),
		config:   config,
	}, nil
}

// Start starts the periodic sweep
func (j *ConsistencyJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.isRunning {
		j.mu.Unlock()
		return nil
	}
	if !j.config.Enabled {
		j.mu.Unlock()
		j.logger.Info("Consistency job is disabled")
		return nil
	}
	j.isRunning = true
	j.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel

	j.wg.Add(1)
	go j.run(ctx)

	j.logger.Info("Consistency job started",
		zap.Duration("interval", j.config.Interval),
		zap.Bool("run_on_start", j.config.RunOnStart),
	)
	return nil
}

// Stop gracefully stops the job, waiting for an in-flight sweep until ctx expires
func (j *ConsistencyJob) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return nil
	}
	j.isRunning = false
	j.mu.Unlock()

	if j.cancel != nil {
		j.cancel()
	}

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("Consistency job stopped gracefully")
		return nil
	case <-ctx.Done():
		j.logger.Warn("Consistency job stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the sweep loop is active
func (j *ConsistencyJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.isRunning
}

func (j *ConsistencyJob) run(ctx context.Context) {
	defer j.wg.Done()

	if j.config.RunOnStart {
		j.logSweep(ctx)
	}

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.logSweep(ctx)
		}
	}
}

func (j *ConsistencyJob) logSweep(ctx context.Context) {
	summary, err := j.RunOnce(ctx)
	if err != nil {
		j.logger.Error("Consistency sweep failed", zap.Error(err))
		return
	}
	j.logger.Info("Consistency sweep completed",
		zap.Int("stores_checked", summary.StoresChecked),
		zap.Int("stores_failed", summary.StoresFailed),
		zap.Int("inconsistent_stores", summary.InconsistentStores),
		zap.Int("discrepancies", summary.Discrepancies),
	)
}

// RunOnce verifies every store once. A failure for one store is logged and
// counted, and does not stop the sweep.
func (j *ConsistencyJob) RunOnce(ctx context.Context) (SweepSummary, error) {
	var summary SweepSummary

	storeIDs, err := j.stores.StoreIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("list stores: %w", err)
	}

	for _, storeID := range storeIDs {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		report, err := j.verifyStore(ctx, storeID)
		summary.StoresChecked++
		if err != nil {
			summary.StoresFailed++
			j.logger.Error("Consistency verification failed",
				zap.String("store_id", storeID.String()),
				zap.Error(err),
			)
			continue
		}
		if report.Consistent {
			continue
		}

		summary.InconsistentStores++
		summary.Discrepancies += len(report.Discrepancies)
		for _, d := range report.Discrepancies {
			j.logger.Warn("Stock drift detected",
				zap.String("store_id", storeID.String()),
				zap.String("product_id", d.ProductID.String()),
				zap.String("warehouse_id", d.WarehouseID.String()),
				zap.String("ledger_qty", d.LedgerQty.String()),
				zap.String("aggregate_qty", d.AggregateQty.String()),
				zap.String("diff", d.Diff.String()),
			)
		}
	}
	return summary, nil
}

func (j *ConsistencyJob) verifyStore(ctx context.Context, storeID uuid.UUID) (*appinventory.ConsistencyReport, error) {
	ctx, cancel := context.WithTimeout(ctx, j.config.StoreTimeout)
	defer cancel()
	return j.verifier.Verify(ctx, storeID)
}
