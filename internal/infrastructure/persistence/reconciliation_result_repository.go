package persistence

import (
	"context"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReconciliationResultRepository stores reconciliation results. The
// partial unique (store_id, idempotency_key) index over applied and no-op
// rows is what makes retries replay instead of applying twice; skipped and
// failed rows are audit history and never hold the key.
type GormReconciliationResultRepository struct {
	db *gorm.DB
}

// NewGormReconciliationResultRepository creates a new GormReconciliationResultRepository
func NewGormReconciliationResultRepository(db *gorm.DB) *GormReconciliationResultRepository {
	return &GormReconciliationResultRepository{db: db}
}

// FindByIdempotencyKey finds the applied or no-op result that owns a key
func (r *GormReconciliationResultRepository) FindByIdempotencyKey(ctx context.Context, storeID uuid.UUID, key string) (*inventory.ReconciliationResult, error) {
	var result inventory.ReconciliationResult
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND idempotency_key = ? AND status IN ?", storeID, key, ownerStatuses).
		First(&result).Error; err != nil {
		return nil, translateError(err)
	}
	return &result, nil
}

var ownerStatuses = []inventory.ResultStatus{inventory.ResultStatusApplied, inventory.ResultStatusNoOp}

// Create inserts a result
func (r *GormReconciliationResultRepository) Create(ctx context.Context, result *inventory.ReconciliationResult) error {
	if err := r.db.WithContext(ctx).Create(result).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrConcurrencyConflict
		}
		return translateError(err)
	}
	return nil
}

// List returns a page of results and the total count
func (r *GormReconciliationResultRepository) List(ctx context.Context, storeID uuid.UUID, filter inventory.ResultFilter) ([]inventory.ReconciliationResult, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.ReconciliationResult{}).Where("store_id = ?", storeID)
	if filter.Reference != "" {
		query = query.Where("reference = ?", filter.Reference)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", filter.To.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Normalize()
	var results []inventory.ReconciliationResult
	if err := query.
		Order(orderClause(ValidateSortField(page.OrderBy, ResultSortFields, "created_at"), page.OrderDir)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

var _ inventory.ReconciliationResultRepository = (*GormReconciliationResultRepository)(nil)
