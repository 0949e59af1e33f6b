package persistence

import (
	"context"

	appinv "github.com/erp/stockrecon/internal/application/inventory"
	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxBinder hands out an outbox publisher bound to an open transaction
type OutboxBinder interface {
	Bind(tx *gorm.DB) shared.EventPublisher
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// Events published through Outbox() are written to the outbox table inside
// the same transaction.
type GormTransactionScope struct {
	db         *gorm.DB
	outbox     OutboxBinder
	lockNoWait bool
}

// NewGormTransactionScope creates a new GormTransactionScope. A nil outbox
// drops published events.
func NewGormTransactionScope(db *gorm.DB, outbox OutboxBinder, lockNoWait bool) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox, lockNoWait: lockNoWait}
}

// Execute runs fn in one transaction, committing when it returns nil.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox, lockNoWait: s.lockNoWait})
	})
	return translateError(err)
}

type gormTransactionalRepositories struct {
	tx         *gorm.DB
	outbox     OutboxBinder
	lockNoWait bool
}

func (r *gormTransactionalRepositories) Ledger() inventory.MovementLedger {
	return NewGormMovementLedger(r.tx)
}

func (r *gormTransactionalRepositories) Stock() inventory.CurrentStockRepository {
	return NewGormCurrentStockRepository(r.tx, r.lockNoWait)
}

func (r *gormTransactionalRepositories) Results() inventory.ReconciliationResultRepository {
	return NewGormReconciliationResultRepository(r.tx)
}

func (r *gormTransactionalRepositories) Outbox() shared.EventPublisher {
	if r.outbox == nil {
		return discardPublisher{}
	}
	return r.outbox.Bind(r.tx)
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }

var (
	_ appinv.TransactionScope          = (*GormTransactionScope)(nil)
	_ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
