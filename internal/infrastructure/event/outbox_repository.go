package event

import (
	"context"
	"time"

	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOutboxRepository implements shared.OutboxRepository on the
// outbox_entries table
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a repository on db, which may be a transaction
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(entries).Error
}

// ClaimDue selects and claims in one transaction. SKIP LOCKED lets several
// processors poll the same table without delivering a row twice.
func (r *GormOutboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	var entries []*shared.OutboxEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked}).
			Where("status = ?", shared.OutboxStatusPending).
			Or("status = ? AND next_retry_at <= ?", shared.OutboxStatusFailed, now.UTC()).
			Order("created_at ASC").
			Limit(limit).
			Find(&entries).Error
		if err != nil || len(entries) == 0 {
			return err
		}

		ids := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			if err := e.MarkProcessing(); err != nil {
				return err
			}
			ids = append(ids, e.ID)
		}
		return tx.Model(&shared.OutboxEntry{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":     shared.OutboxStatusProcessing,
				"updated_at": entries[0].UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	return r.db.WithContext(ctx).
		Model(&shared.OutboxEntry{}).
		Where("id = ?", entry.ID).
		Updates(map[string]any{
			"status":        entry.Status,
			"retry_count":   entry.RetryCount,
			"last_error":    entry.LastError,
			"next_retry_at": entry.NextRetryAt,
			"processed_at":  entry.ProcessedAt,
			"updated_at":    time.Now().UTC(),
		}).Error
}

func (r *GormOutboxRepository) PurgeSent(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before.UTC()).
		Delete(&shared.OutboxEntry{})
	return res.RowsAffected, res.Error
}

func (r *GormOutboxRepository) ReleaseStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&shared.OutboxEntry{}).
		Where("status = ? AND updated_at < ?", shared.OutboxStatusProcessing, before.UTC()).
		Updates(map[string]any{
			"status":     shared.OutboxStatusPending,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	var rows []struct {
		Status shared.OutboxStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&shared.OutboxEntry{}).
		Select("status, count(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[shared.OutboxStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// ListByStatus returns up to limit rows in status, oldest first
func (r *GormOutboxRepository) ListByStatus(ctx context.Context, status shared.OutboxStatus, limit int) ([]*shared.OutboxEntry, error) {
	var entries []*shared.OutboxEntry
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
