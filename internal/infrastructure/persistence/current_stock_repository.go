package persistence

import (
	"context"
	"time"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCurrentStockRepository implements CurrentStockRepository on the
// current_stock table. Row locks are SELECT ... FOR UPDATE and are held until
// the surrounding transaction ends.
type GormCurrentStockRepository struct {
	db         *gorm.DB
	lockNoWait bool
}

// NewGormCurrentStockRepository creates a new GormCurrentStockRepository.
// With lockNoWait, TryLockForUpdate fails fast with ErrLockNotAvailable
// instead of queueing behind another transaction.
func NewGormCurrentStockRepository(db *gorm.DB, lockNoWait bool) *GormCurrentStockRepository {
	return &GormCurrentStockRepository{db: db, lockNoWait: lockNoWait}
}

// Find reads the row without locking
func (r *GormCurrentStockRepository) Find(ctx context.Context, key inventory.StockKey) (*inventory.CurrentStock, error) {
	return r.find(r.byKey(ctx, key))
}

// FindForUpdate reads the row under a blocking row lock
func (r *GormCurrentStockRepository) FindForUpdate(ctx context.Context, key inventory.StockKey) (*inventory.CurrentStock, error) {
	return r.find(r.byKey(ctx, key).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}))
}

// TryLockForUpdate reads the row under a row lock, without waiting when the
// repository is configured for NOWAIT
func (r *GormCurrentStockRepository) TryLockForUpdate(ctx context.Context, key inventory.StockKey) (*inventory.CurrentStock, error) {
	if !r.lockNoWait {
		return r.FindForUpdate(ctx, key)
	}
	return r.find(r.byKey(ctx, key).Clauses(clause.Locking{
		Strength: clause.LockingStrengthUpdate,
		Options:  clause.LockingOptionsNoWait,
	}))
}

// GetOrCreate inserts an empty row unless one exists, then returns the stored row
func (r *GormCurrentStockRepository) GetOrCreate(ctx context.Context, key inventory.StockKey) (*inventory.CurrentStock, error) {
	stock, err := inventory.NewCurrentStock(key)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "product_id"}, {Name: "warehouse_id"}},
			DoNothing: true,
		}).
		Create(stock).Error; err != nil {
		return nil, translateError(err)
	}
	return r.Find(ctx, key)
}

// Save writes the folded state, requiring the stored version to be the one
// the aggregate was loaded with
func (r *GormCurrentStockRepository) Save(ctx context.Context, stock *inventory.CurrentStock) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.CurrentStock{}).
		Where("id = ? AND version = ?", stock.ID, stock.Version-1).
		Updates(map[string]any{
			"qty":           stock.Qty,
			"last_sequence": stock.LastSequence,
			"version":       stock.Version,
			"updated_at":    stock.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Overwrite replaces the row's state regardless of its version
func (r *GormCurrentStockRepository) Overwrite(ctx context.Context, stock *inventory.CurrentStock) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.CurrentStock{}).
		Where("id = ?", stock.ID).
		Updates(map[string]any{
			"qty":           stock.Qty,
			"last_sequence": stock.LastSequence,
			"version":       stock.Version,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns a page of a store's rows and the total count
func (r *GormCurrentStockRepository) List(ctx context.Context, storeID uuid.UUID, filter inventory.StockFilter) ([]inventory.CurrentStock, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.CurrentStock{}).Where("store_id = ?", storeID)
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.NegativeOnly {
		query = query.Where("qty < 0")
	}
	if filter.Below != nil {
		query = query.Where("qty < ?", *filter.Below)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Normalize()
	var rows []inventory.CurrentStock
	if err := query.
		Order(orderClause(ValidateSortField(page.OrderBy, StockSortFields, "updated_at"), page.OrderDir)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListAll returns every row of a store
func (r *GormCurrentStockRepository) ListAll(ctx context.Context, storeID uuid.UUID) ([]inventory.CurrentStock, error) {
	var rows []inventory.CurrentStock
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("product_id, warehouse_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormCurrentStockRepository) byKey(ctx context.Context, key inventory.StockKey) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("store_id = ? AND product_id = ? AND warehouse_id = ?", key.StoreID, key.ProductID, key.WarehouseID)
}

func (r *GormCurrentStockRepository) find(query *gorm.DB) (*inventory.CurrentStock, error) {
	var stock inventory.CurrentStock
	if err := query.First(&stock).Error; err != nil {
		return nil, translateError(err)
	}
	return &stock, nil
}

var _ inventory.CurrentStockRepository = (*GormCurrentStockRepository)(nil)
