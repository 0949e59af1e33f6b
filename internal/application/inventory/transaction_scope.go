package inventory

import (
	"context"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
)

// TransactionScope runs fn in one database transaction, committing when fn
// returns nil and rolling back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are bound to the transaction of one Execute call.
// Stock row locks are held until it ends, and events given to Outbox are
// only delivered if it commits.
type TransactionalRepositories interface {
	Ledger() inventory.MovementLedger
	Stock() inventory.CurrentStockRepository
	Results() inventory.ReconciliationResultRepository
	Outbox() shared.EventPublisher
}
