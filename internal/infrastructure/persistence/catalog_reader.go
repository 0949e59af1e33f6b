package persistence

import (
	"context"
	"errors"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCatalogReader answers catalog lookups from the products and
// warehouses tables. Inactive records count as missing.
type GormCatalogReader struct {
	db *gorm.DB
}

// NewGormCatalogReader creates a new GormCatalogReader
func NewGormCatalogReader(db *gorm.DB) *GormCatalogReader {
	return &GormCatalogReader{db: db}
}

// ProductExists reports whether the product is active in the store
func (r *GormCatalogReader) ProductExists(ctx context.Context, storeID, productID uuid.UUID) (bool, error) {
	return r.exists(ctx, &models.ProductModel{}, storeID, productID)
}

// WarehouseBelongsTo reports whether the warehouse is active in the store
func (r *GormCatalogReader) WarehouseBelongsTo(ctx context.Context, storeID, warehouseID uuid.UUID) (bool, error) {
	return r.exists(ctx, &models.WarehouseModel{}, storeID, warehouseID)
}

// DefaultWarehouse returns the store's default warehouse
func (r *GormCatalogReader) DefaultWarehouse(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error) {
	var warehouse models.WarehouseModel
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND is_default = ? AND status = ?", storeID, true, models.StatusActive).
		Order("created_at").
		First(&warehouse).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, inventory.ErrUnknownWarehouse
	}
	if err != nil {
		return uuid.Nil, err
	}
	return warehouse.ID, nil
}

func (r *GormCatalogReader) exists(ctx context.Context, model any, storeID, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(model).
		Where("store_id = ? AND id = ? AND status = ?", storeID, id, models.StatusActive).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ inventory.CatalogReader = (*GormCatalogReader)(nil)
