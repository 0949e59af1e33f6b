package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormMovementLedger implements MovementLedger on the stock_movements table.
// Sequences come from the table's identity column; they are global, so a
// pair's movements are selected by key and compared by sequence.
type GormMovementLedger struct {
	db *gorm.DB
}

// NewGormMovementLedger creates a new GormMovementLedger
func NewGormMovementLedger(db *gorm.DB) *GormMovementLedger {
	return &GormMovementLedger{db: db}
}

// Append inserts the movement
func (r *GormMovementLedger) Append(ctx context.Context, m *inventory.StockMovement) (int64, error) {
	if m.IsAppended() {
		return 0, errors.New("movement already has a sequence")
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return 0, translateError(err)
	}
	return m.Sequence, nil
}

// SumDeltasSince sums the pair's deltas after a sequence
func (r *GormMovementLedger) SumDeltasSince(ctx context.Context, key inventory.StockKey, afterSequence int64) (decimal.Decimal, error) {
	return r.sum(r.forKey(ctx, key).Where("sequence > ?", afterSequence))
}

// SumDeltasBetween sums the pair's deltas in (afterSequence, throughSequence]
func (r *GormMovementLedger) SumDeltasBetween(ctx context.Context, key inventory.StockKey, afterSequence, throughSequence int64) (decimal.Decimal, error) {
	if throughSequence <= afterSequence {
		return decimal.Zero, nil
	}
	return r.sum(r.forKey(ctx, key).Where("sequence > ? AND sequence <= ?", afterSequence, throughSequence))
}

// SequenceAt returns the last sequence of the pair that occurred at or before at
func (r *GormMovementLedger) SequenceAt(ctx context.Context, key inventory.StockKey, at time.Time, ceiling int64) (int64, error) {
	var seq int64
	row := r.forKey(ctx, key).
		Select("COALESCE(MAX(sequence), 0)").
		Where("occurred_at <= ? AND sequence <= ?", at.UTC(), ceiling).
		Row()
	if err := row.Scan(&seq); err != nil {
		return 0, translateError(err)
	}
	return seq, nil
}

// FindByID finds a movement within a store
func (r *GormMovementLedger) FindByID(ctx context.Context, storeID, id uuid.UUID) (*inventory.StockMovement, error) {
	var m inventory.StockMovement
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND id = ?", storeID, id).
		First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

// List returns a page of movements and the total count
func (r *GormMovementLedger) List(ctx context.Context, storeID uuid.UUID, filter inventory.MovementFilter) ([]inventory.StockMovement, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.StockMovement{}).Where("store_id = ?", storeID)
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.Type != nil {
		query = query.Where("movement_type = ?", *filter.Type)
	}
	if filter.ReferenceID != "" {
		query = query.Where("reference_id = ?", filter.ReferenceID)
	}
	if filter.From != nil {
		query = query.Where("occurred_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("occurred_at <= ?", filter.To.UTC())
	}
	if filter.AfterSequence > 0 {
		query = query.Where("sequence > ?", filter.AfterSequence)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Normalize()
	var movements []inventory.StockMovement
	if err := query.
		Order(orderClause(ValidateSortField(page.OrderBy, MovementSortFields, "sequence"), page.OrderDir)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

type ledgerTotalRow struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Qty         decimal.Decimal
	MaxSequence int64
}

// SumByKey aggregates a store's ledger per pair
func (r *GormMovementLedger) SumByKey(ctx context.Context, storeID uuid.UUID) ([]inventory.LedgerTotal, error) {
	var rows []ledgerTotalRow
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockMovement{}).
		Select("product_id, warehouse_id, COALESCE(SUM(qty_delta), 0) AS qty, MAX(sequence) AS max_sequence").
		Where("store_id = ?", storeID).
		Group("product_id, warehouse_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := make([]inventory.LedgerTotal, len(rows))
	for i, row := range rows {
		totals[i] = inventory.LedgerTotal{
			Key:         inventory.NewStockKey(storeID, row.ProductID, row.WarehouseID),
			Qty:         inventory.NormalizeQuantity(row.Qty),
			MaxSequence: row.MaxSequence,
		}
	}
	return totals, nil
}

// StoreIDs lists every store with ledger history
func (r *GormMovementLedger) StoreIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockMovement{}).
		Distinct("store_id").
		Pluck("store_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormMovementLedger) forKey(ctx context.Context, key inventory.StockKey) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&inventory.StockMovement{}).
		Where("store_id = ? AND product_id = ? AND warehouse_id = ?", key.StoreID, key.ProductID, key.WarehouseID)
}

func (r *GormMovementLedger) sum(query *gorm.DB) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := query.Select("COALESCE(SUM(qty_delta), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, translateError(err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return inventory.NormalizeQuantity(total.Decimal), nil
}

var _ inventory.MovementLedger = (*GormMovementLedger)(nil)
