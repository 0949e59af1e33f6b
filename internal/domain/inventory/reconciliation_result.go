package inventory

import (
	"time"

	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResultStatus is the outcome of reconciling one count entry
type ResultStatus string

const (
	// ResultStatusApplied means a count_correction movement was written
	ResultStatusApplied ResultStatus = "applied"
	// ResultStatusNoOp means the count agreed with the ledger; nothing was written
	ResultStatusNoOp ResultStatus = "no_op"
	// ResultStatusSkipped means the entry was not processed (duplicate in batch, cancelled)
	ResultStatusSkipped ResultStatus = "skipped"
	// ResultStatusFailed means validation failed or conflicts were not resolved
	ResultStatusFailed ResultStatus = "failed"
)

// IsValid returns true if the status is known
func (s ResultStatus) IsValid() bool {
	switch s {
	case ResultStatusApplied, ResultStatusNoOp, ResultStatusSkipped, ResultStatusFailed:
		return true
	}
	return false
}

// IsTerminalSuccess reports whether the result is persisted and replayed on retry
func (s ResultStatus) IsTerminalSuccess() bool {
	return s == ResultStatusApplied || s == ResultStatusNoOp
}

// ReconciliationResult is the audited outcome of one count entry. Every
// outcome is persisted; only applied and no-op rows own their idempotency
// key and are what a retry with the same key returns.
type ReconciliationResult struct {
	shared.BaseEntity
	StoreID                uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_recon_result_key,priority:1,where:status <> 'failed' AND status <> 'skipped';index:idx_recon_result_reference,priority:1"`
	IdempotencyKey         string          `gorm:"type:varchar(200);not null;uniqueIndex:idx_recon_result_key,priority:2"`
	Fingerprint            string          `gorm:"type:char(64);not null"`
	Reference              string          `gorm:"type:varchar(100);index:idx_recon_result_reference,priority:2"`
	ProductID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseID            uuid.UUID       `gorm:"type:uuid;not null"`
	CountedQty             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CountedAt              time.Time       `gorm:"not null"`
	QtyBefore              decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	MovementsSinceCount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ExpectedQtyAtCountTime decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DeltaApplied           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ResultingQty           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CountSequence          int64           `gorm:"not null"`
	ObservedSequence       int64           `gorm:"not null"`
	Status                 ResultStatus    `gorm:"type:varchar(20);not null;index"`
	CorrectionMovementID   *uuid.UUID      `gorm:"type:uuid"`
	NegativeStock          bool            `gorm:"not null;default:false"`
	Attempts               int             `gorm:"not null;default:1"`
	CountedBy              string          `gorm:"type:varchar(100)"`

	// Replayed is set when the result was returned from an earlier submission
	Replayed bool `gorm:"-"`
	// ErrorCode and ErrorMessage describe skipped and failed results
	ErrorCode    string `gorm:"type:varchar(50)"`
	ErrorMessage string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ReconciliationResult) TableName() string {
	return "reconciliation_results"
}

// NewEvaluatedResult builds the result of an evaluation. The status is
// no_op when the evaluation found no discrepancy and applied otherwise;
// the correction movement is attached by MarkApplied.
func NewEvaluatedResult(entry CountEntry, eval *Evaluation, reference string) *ReconciliationResult {
	status := ResultStatusApplied
	if eval.IsNoOp() {
		status = ResultStatusNoOp
	}
	return &ReconciliationResult{
		BaseEntity:             shared.NewBaseEntity(),
		StoreID:                entry.StoreID,
		IdempotencyKey:         entry.IdempotencyKey,
		Fingerprint:            entry.Fingerprint(),
		Reference:              reference,
		ProductID:              entry.ProductID,
		WarehouseID:            entry.WarehouseID,
		CountedQty:             NormalizeQuantity(entry.CountedQty),
		CountedAt:              entry.CountedAt.UTC(),
		QtyBefore:              eval.QNow,
		MovementsSinceCount:    eval.MovementsSinceCount,
		ExpectedQtyAtCountTime: eval.Expected,
		DeltaApplied:           decimal.Zero,
		ResultingQty:           eval.QNow,
		CountSequence:          eval.CountSequence,
		ObservedSequence:       eval.ObservedSequence,
		Status:                 status,
		Attempts:               1,
	}
}

// MarkApplied records the correction movement and the stock it produced
func (r *ReconciliationResult) MarkApplied(movement *StockMovement, stock *CurrentStock) {
	id := movement.ID
	r.Status = ResultStatusApplied
	r.CorrectionMovementID = &id
	r.DeltaApplied = movement.QtyDelta
	r.ResultingQty = stock.Qty
	r.NegativeStock = stock.IsNegative()
}

// NewUnprocessedResult builds a skipped or failed result. It is kept for
// audit but does not claim the idempotency key.
func NewUnprocessedResult(entry CountEntry, status ResultStatus, err error) *ReconciliationResult {
	r := &ReconciliationResult{
		BaseEntity:     shared.NewBaseEntity(),
		StoreID:        entry.StoreID,
		IdempotencyKey: entry.IdempotencyKey,
		Fingerprint:    entry.Fingerprint(),
		ProductID:      entry.ProductID,
		WarehouseID:    entry.WarehouseID,
		CountedQty:     NormalizeQuantity(entry.CountedQty),
		CountedAt:      entry.CountedAt.UTC(),
		Status:         status,
		Attempts:       1,
	}
	if err != nil {
		r.ErrorMessage = err.Error()
		if domainErr, ok := shared.AsDomainError(err); ok {
			r.ErrorCode = domainErr.Code
		}
	}
	return r
}

// Retryable reports whether resubmitting the entry may still change the
// outcome: it was never processed, or it lost every attempt to a concurrent writer
func (r *ReconciliationResult) Retryable() bool {
	switch r.Status {
	case ResultStatusSkipped:
		return r.ErrorCode != CodeDuplicateInBatch
	case ResultStatusFailed:
		return r.ErrorCode == shared.ErrConcurrencyConflict.Code
	}
	return false
}

// MatchesFingerprint reports whether a replayed key carries the same payload
func (r *ReconciliationResult) MatchesFingerprint(fingerprint string) bool {
	return r.Fingerprint == fingerprint
}
