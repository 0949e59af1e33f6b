package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Engine computes what a physical count means against a ledger that keeps
// moving while the count is in progress. It only reads and takes no locks.
type Engine struct {
	ledger inventory.MovementLedger
	stock  inventory.CurrentStockRepository
}

// NewEngine creates a new reconciliation engine
func NewEngine(ledger inventory.MovementLedger, stock inventory.CurrentStockRepository) *Engine {
	return &Engine{
		ledger: ledger,
		stock:  stock,
	}
}

// Evaluate reads the current stock, resolves the ledger position of the count
// and backs out every movement recorded after it.
//
// The movement sum is bounded by the sequence observed on the stock row, so
// Q_now and M always describe the same prefix of the ledger even when
// movements are appended between the two reads.
func (e *Engine) Evaluate(ctx context.Context, entry inventory.CountEntry) (*inventory.Evaluation, error) {
	key := entry.Key()

	qNow := decimal.Zero
	var observed int64
	stock, err := e.stock.Find(ctx, key)
	switch {
	case err == nil:
		qNow = stock.Qty
		observed = stock.LastSequence
	case errors.Is(err, shared.ErrNotFound):
	default:
		return nil, fmt.Errorf("read current stock %s: %w", key, err)
	}

	countSequence, err := e.ledger.SequenceAt(ctx, key, entry.CountedAt, observed)
	if err != nil {
		return nil, fmt.Errorf("resolve sequence at %s: %w", entry.CountedAt, err)
	}

	movementsSince := decimal.Zero
	if countSequence < observed {
		movementsSince, err = e.ledger.SumDeltasBetween(ctx, key, countSequence, observed)
		if err != nil {
			return nil, fmt.Errorf("sum movements since count: %w", err)
		}
	}

	return inventory.Evaluate(key, entry.CountedQty, qNow, observed, countSequence, movementsSince), nil
}
