package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetadataReasonPhysicalCount is the reason stored on count_correction movements
const MetadataReasonPhysicalCount = "physical_count_reconciliation"

// Evaluation is the reconciliation engine's view of one count entry.
//
// QNow and ObservedSequence come from the same read of CurrentStock.
// MovementsSinceCount is the sum of ledger deltas in (CountSequence, ObservedSequence],
// so Expected = QNow - MovementsSinceCount is what the system held at the moment
// of the count, and Delta = counted - Expected is the correction to write.
type Evaluation struct {
	Key                 StockKey
	CountedQty          decimal.Decimal
	QNow                decimal.Decimal
	ObservedSequence    int64
	CountSequence       int64
	MovementsSinceCount decimal.Decimal
	Expected            decimal.Decimal
	Delta               decimal.Decimal
}

// Evaluate computes expected quantity and correction delta from the ledger reads.
// It has no side effects; the engine performs the reads and calls it.
func Evaluate(key StockKey, countedQty, qNow decimal.Decimal, observedSequence, countSequence int64, movementsSinceCount decimal.Decimal) *Evaluation {
	qNow = NormalizeQuantity(qNow)
	movementsSinceCount = NormalizeQuantity(movementsSinceCount)
	countedQty = NormalizeQuantity(countedQty)
	expected := qNow.Sub(movementsSinceCount)
	return &Evaluation{
		Key:                 key,
		CountedQty:          countedQty,
		QNow:                qNow,
		ObservedSequence:    observedSequence,
		CountSequence:       countSequence,
		MovementsSinceCount: movementsSinceCount,
		Expected:            expected,
		Delta:               NormalizeQuantity(countedQty.Sub(expected)),
	}
}

// IsNoOp reports whether the count agrees with the ledger at count time
func (e *Evaluation) IsNoOp() bool {
	return IsZeroQuantity(e.Delta)
}

// ResultingQty is the stock after the correction is folded, assuming no
// movement lands between evaluation and apply
func (e *Evaluation) ResultingQty() decimal.Decimal {
	return NormalizeQuantity(e.QNow.Add(e.Delta))
}

// CorrectionMetadata is the audit payload stored on the count_correction movement
func (e *Evaluation) CorrectionMetadata(entry CountEntry) map[string]any {
	return map[string]any{
		"reason":           MetadataReasonPhysicalCount,
		"counted_qty":      e.CountedQty.StringFixed(QuantityScale),
		"counted_at":       entry.CountedAt.UTC().Format(time.RFC3339Nano),
		"delta_since":      e.MovementsSinceCount.StringFixed(QuantityScale),
		"system_stock_was": e.QNow.StringFixed(QuantityScale),
		"count_sequence":   e.CountSequence,
		"idempotency_key":  entry.IdempotencyKey,
	}
}
