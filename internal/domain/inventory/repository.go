package inventory

import (
	"context"
	"time"

	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementLedger is the append-only source of truth for stock changes.
// There is no update or delete.
type MovementLedger interface {
	// Append inserts the movement and returns the sequence the database assigned.
	// The sequence is also written back to m.Sequence.
	Append(ctx context.Context, m *StockMovement) (int64, error)

	// SumDeltasSince sums qty_delta of the pair's movements with sequence > afterSequence
	SumDeltasSince(ctx context.Context, key StockKey, afterSequence int64) (decimal.Decimal, error)

	// SumDeltasBetween sums qty_delta of the pair's movements with
	// afterSequence < sequence <= throughSequence
	SumDeltasBetween(ctx context.Context, key StockKey, afterSequence, throughSequence int64) (decimal.Decimal, error)

	// SequenceAt returns the highest sequence <= ceiling among the pair's movements
	// with occurred_at <= at, or 0 when there is none
	SequenceAt(ctx context.Context, key StockKey, at time.Time, ceiling int64) (int64, error)

	// FindByID finds a movement within a store
	FindByID(ctx context.Context, storeID, id uuid.UUID) (*StockMovement, error)

	// List returns a page of movements, newest sequence first, and the total count
	List(ctx context.Context, storeID uuid.UUID, filter MovementFilter) ([]StockMovement, int64, error)

	// SumByKey aggregates the whole ledger of a store per product/warehouse pair
	SumByKey(ctx context.Context, storeID uuid.UUID) ([]LedgerTotal, error)

	// StoreIDs lists every store that has at least one movement
	StoreIDs(ctx context.Context) ([]uuid.UUID, error)
}

// LedgerTotal is the ledger-side total of one pair
type LedgerTotal struct {
	Key         StockKey
	Qty         decimal.Decimal
	MaxSequence int64
}

// CurrentStockRepository persists the CurrentStock aggregate
type CurrentStockRepository interface {
	// Find reads without locking. Returns shared.ErrNotFound when no row exists.
	Find(ctx context.Context, key StockKey) (*CurrentStock, error)

	// FindForUpdate takes a blocking row lock. Must run inside a transaction.
	FindForUpdate(ctx context.Context, key StockKey) (*CurrentStock, error)

	// TryLockForUpdate takes the row lock without waiting when the repository is
	// configured for it, failing with ErrLockNotAvailable on contention
	TryLockForUpdate(ctx context.Context, key StockKey) (*CurrentStock, error)

	// GetOrCreate inserts an empty row if none exists and returns the stored row
	GetOrCreate(ctx context.Context, key StockKey) (*CurrentStock, error)

	// Save writes qty, last sequence and version, checking the previous version
	Save(ctx context.Context, stock *CurrentStock) error

	// Overwrite replaces the row unconditionally; used only by ledger rebuilds
	Overwrite(ctx context.Context, stock *CurrentStock) error

	// List returns a page of current stock rows of a store
	List(ctx context.Context, storeID uuid.UUID, filter StockFilter) ([]CurrentStock, int64, error)

	// ListAll returns every current stock row of a store
	ListAll(ctx context.Context, storeID uuid.UUID) ([]CurrentStock, error)
}

// ReconciliationResultRepository stores the audit trail of reconciliations
type ReconciliationResultRepository interface {
	// FindByIdempotencyKey returns the applied or no-op result that owns the
	// key, or shared.ErrNotFound. Skipped and failed rows are ignored.
	FindByIdempotencyKey(ctx context.Context, storeID uuid.UUID, key string) (*ReconciliationResult, error)

	// Create inserts a result. A second applied or no-op row for the same
	// (store_id, idempotency_key) is reported as shared.ErrConcurrencyConflict.
	Create(ctx context.Context, result *ReconciliationResult) error

	// List returns a page of results, newest first, and the total count
	List(ctx context.Context, storeID uuid.UUID, filter ResultFilter) ([]ReconciliationResult, int64, error)
}

// CatalogReader resolves products and warehouses owned by the catalog service
type CatalogReader interface {
	ProductExists(ctx context.Context, storeID, productID uuid.UUID) (bool, error)
	WarehouseBelongsTo(ctx context.Context, storeID, warehouseID uuid.UUID) (bool, error)
	// DefaultWarehouse returns ErrUnknownWarehouse when the store has no default
	DefaultWarehouse(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error)
}

// MovementFilter extends shared.Filter with ledger-specific filters
type MovementFilter struct {
	shared.Filter
	ProductID     *uuid.UUID
	WarehouseID   *uuid.UUID
	Type          *MovementType
	ReferenceID   string
	From          *time.Time
	To            *time.Time
	AfterSequence int64
}

// StockFilter extends shared.Filter with current-stock filters
type StockFilter struct {
	shared.Filter
	ProductID    *uuid.UUID
	WarehouseID  *uuid.UUID
	NegativeOnly bool
	// Below keeps rows whose qty is strictly less than the threshold
	Below *decimal.Decimal
}

// ResultFilter extends shared.Filter with reconciliation-result filters
type ResultFilter struct {
	shared.Filter
	Reference string
	ProductID *uuid.UUID
	Status    *ResultStatus
	From      *time.Time
	To        *time.Time
}
