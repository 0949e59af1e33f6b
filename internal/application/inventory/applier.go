package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
)

// ApplyCommand carries one evaluated count entry to the applier
type ApplyCommand struct {
	Entry      inventory.CountEntry
	Evaluation *inventory.Evaluation
	Reference  string
	CountedBy  string
	Attempt    int
}

// Applier writes count corrections. Each call is one short transaction that
// locks only the affected CurrentStock row.
type Applier struct {
	txScope TransactionScope
}

// NewApplier creates a new Applier
func NewApplier(txScope TransactionScope) *Applier {
	return &Applier{txScope: txScope}
}

// Apply persists the outcome of an evaluation. A no-op evaluation stores the
// result without touching the ledger; otherwise the correction movement is
// appended and folded under the row lock, after checking that no movement
// landed on the row since the evaluation read it.
//
// Conflicts are returned as concurrency-conflict domain errors; the caller
// re-evaluates and retries.
func (a *Applier) Apply(ctx context.Context, cmd ApplyCommand) (*inventory.ReconciliationResult, error) {
	if cmd.Evaluation == nil {
		return nil, fmt.Errorf("apply %s: missing evaluation", cmd.Entry.IdempotencyKey)
	}
	result := inventory.NewEvaluatedResult(cmd.Entry, cmd.Evaluation, cmd.Reference)
	result.CountedBy = cmd.CountedBy
	if cmd.Attempt > 0 {
		result.Attempts = cmd.Attempt
	}

	if cmd.Evaluation.IsNoOp() {
		return a.recordNoOp(ctx, result)
	}

	key := cmd.Entry.Key()
	err := a.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		stock, err := lockStock(ctx, repos.Stock(), key, true)
		if err != nil {
			return err
		}
		if !stock.HasObserved(cmd.Evaluation.ObservedSequence) {
			return inventory.ErrStaleSequence
		}

		movement, err := inventory.NewStockMovement(key, inventory.MovementTypeCountCorrection, cmd.Evaluation.Delta, time.Now(), cmd.Reference)
		if err != nil {
			return err
		}
		movement.WithMetadata(cmd.Evaluation.CorrectionMetadata(cmd.Entry))

		if _, err := repos.Ledger().Append(ctx, movement); err != nil {
			return fmt.Errorf("append count correction: %w", err)
		}
		if err := stock.Fold(movement); err != nil {
			return err
		}
		if err := repos.Stock().Save(ctx, stock); err != nil {
			return err
		}

		result.MarkApplied(movement, stock)
		if err := repos.Results().Create(ctx, result); err != nil {
			return err
		}

		events := []shared.DomainEvent{inventory.NewStockAdjustedEvent(stock, movement, result)}
		if stock.IsNegative() {
			events = append(events, inventory.NewNegativeStockDetectedEvent(stock, movement.Type))
		}
		if err := repos.Outbox().Publish(ctx, events...); err != nil {
			return fmt.Errorf("save events to outbox: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recordNoOp stores an agreeing count so a retry with the same key replays it
func (a *Applier) recordNoOp(ctx context.Context, result *inventory.ReconciliationResult) (*inventory.ReconciliationResult, error) {
	err := a.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.Results().Create(ctx, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockStock locks the pair's row, creating an empty row first when the pair
// has never moved. With tryLock the lock attempt fails fast on contention.
func lockStock(ctx context.Context, repo inventory.CurrentStockRepository, key inventory.StockKey, tryLock bool) (*inventory.CurrentStock, error) {
	lock := repo.FindForUpdate
	if tryLock {
		lock = repo.TryLockForUpdate
	}

	stock, err := lock(ctx, key)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if _, err := repo.GetOrCreate(ctx, key); err != nil {
		return nil, fmt.Errorf("create current stock %s: %w", key, err)
	}
	return lock(ctx, key)
}
