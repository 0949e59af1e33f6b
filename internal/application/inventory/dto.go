package inventory

import (
	"time"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CountItemInput is one product's count in a reconciliation request
type CountItemInput struct {
	ProductID      uuid.UUID       `json:"product_id"`
	WarehouseID    *uuid.UUID      `json:"warehouse_id,omitempty"`
	CountedQty     decimal.Decimal `json:"counted_qty"`
	CountedAt      time.Time       `json:"counted_at"`
	IdempotencyKey string          `json:"idempotency_key"`
	// Malformed fails the item instead of the batch
	Malformed error `json:"-"`
}

// ToEntry converts the input to a count entry of the store
func (i CountItemInput) ToEntry(storeID uuid.UUID) inventory.CountEntry {
	entry := inventory.CountEntry{
		StoreID:        storeID,
		ProductID:      i.ProductID,
		CountedQty:     i.CountedQty,
		CountedAt:      i.CountedAt,
		IdempotencyKey: i.IdempotencyKey,
		Malformed:      i.Malformed,
	}
	if i.WarehouseID != nil {
		entry.WarehouseID = *i.WarehouseID
	}
	return entry
}

// ReconcileCommand is a batch of counts submitted together
type ReconcileCommand struct {
	StoreID   uuid.UUID
	Reference string
	CountedBy string
	Items     []CountItemInput
}

// ReconciliationResultDTO is the per-item outcome returned to the client
type ReconciliationResultDTO struct {
	IdempotencyKey         string           `json:"idempotency_key"`
	ProductID              uuid.UUID        `json:"product_id"`
	WarehouseID            uuid.UUID        `json:"warehouse_id"`
	Status                 string           `json:"status"`
	CountedQty             decimal.Decimal  `json:"counted_qty"`
	CountedAt              time.Time        `json:"counted_at"`
	QtyBefore              *decimal.Decimal `json:"qty_before,omitempty"`
	MovementsSinceCount    *decimal.Decimal `json:"movements_since_count,omitempty"`
	ExpectedQtyAtCountTime *decimal.Decimal `json:"expected_qty_at_count_time,omitempty"`
	DeltaApplied           *decimal.Decimal `json:"delta_applied,omitempty"`
	ResultingQty           *decimal.Decimal `json:"resulting_qty,omitempty"`
	CountSequence          int64            `json:"count_sequence,omitempty"`
	ObservedSequence       int64            `json:"observed_sequence,omitempty"`
	CorrectionMovementID   *uuid.UUID       `json:"correction_movement_id,omitempty"`
	NegativeStock          bool             `json:"negative_stock"`
	Replayed               bool             `json:"replayed"`
	Attempts               int              `json:"attempts,omitempty"`
	Reference              string           `json:"reference,omitempty"`
	ErrorCode              string           `json:"error_code,omitempty"`
	ErrorMessage           string           `json:"error_message,omitempty"`
	CreatedAt              *time.Time       `json:"created_at,omitempty"`
}

// ToReconciliationResultDTO converts a result; ledger figures are only
// present for applied and no-op results
func ToReconciliationResultDTO(r *inventory.ReconciliationResult) ReconciliationResultDTO {
	dto := ReconciliationResultDTO{
		IdempotencyKey: r.IdempotencyKey,
		ProductID:      r.ProductID,
		WarehouseID:    r.WarehouseID,
		Status:         string(r.Status),
		CountedQty:     r.CountedQty,
		CountedAt:      r.CountedAt,
		NegativeStock:  r.NegativeStock,
		Replayed:       r.Replayed,
		Reference:      r.Reference,
		ErrorCode:      r.ErrorCode,
		ErrorMessage:   r.ErrorMessage,
	}
	if r.Status.IsTerminalSuccess() {
		qtyBefore := r.QtyBefore
		since := r.MovementsSinceCount
		expected := r.ExpectedQtyAtCountTime
		delta := r.DeltaApplied
		resulting := r.ResultingQty
		createdAt := r.CreatedAt
		dto.QtyBefore = &qtyBefore
		dto.MovementsSinceCount = &since
		dto.ExpectedQtyAtCountTime = &expected
		dto.DeltaApplied = &delta
		dto.ResultingQty = &resulting
		dto.CountSequence = r.CountSequence
		dto.ObservedSequence = r.ObservedSequence
		dto.CorrectionMovementID = r.CorrectionMovementID
		dto.Attempts = r.Attempts
		dto.CreatedAt = &createdAt
	}
	return dto
}

// ReconcileResponse lists every item's outcome in input order
type ReconcileResponse struct {
	Results            []ReconciliationResultDTO `json:"results"`
	AppliedCount       int                       `json:"applied_count"`
	NoOpCount          int                       `json:"no_op_count"`
	SkippedCount       int                       `json:"skipped_count"`
	FailedCount        int                       `json:"failed_count"`
	NegativeStockCount int                       `json:"negative_stock_count"`
}

// newReconcileResponse tallies the results
func newReconcileResponse(results []*inventory.ReconciliationResult) *ReconcileResponse {
	resp := &ReconcileResponse{Results: make([]ReconciliationResultDTO, 0, len(results))}
	for _, r := range results {
		resp.Results = append(resp.Results, ToReconciliationResultDTO(r))
		switch r.Status {
		case inventory.ResultStatusApplied:
			resp.AppliedCount++
		case inventory.ResultStatusNoOp:
			resp.NoOpCount++
		case inventory.ResultStatusSkipped:
			resp.SkippedCount++
		case inventory.ResultStatusFailed:
			resp.FailedCount++
		}
		if r.NegativeStock {
			resp.NegativeStockCount++
		}
	}
	return resp
}

// RecordMovementCommand appends an upstream movement (sale, receipt, return, manual adjustment)
type RecordMovementCommand struct {
	StoreID     uuid.UUID
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Type        inventory.MovementType
	QtyDelta    decimal.Decimal
	OccurredAt  time.Time
	ReferenceID string
	Note        string
	Metadata    map[string]any
}

// MovementDTO represents a ledger movement in API responses
type MovementDTO struct {
	ID          uuid.UUID       `json:"id"`
	Sequence    int64           `json:"sequence"`
	ProductID   uuid.UUID       `json:"product_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	Type        string          `json:"type"`
	QtyDelta    decimal.Decimal `json:"qty_delta"`
	OccurredAt  time.Time       `json:"occurred_at"`
	RecordedAt  time.Time       `json:"recorded_at"`
	ReferenceID string          `json:"reference_id,omitempty"`
	Note        string          `json:"note,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

// ToMovementDTO converts a movement
func ToMovementDTO(m *inventory.StockMovement) MovementDTO {
	return MovementDTO{
		ID:          m.ID,
		Sequence:    m.Sequence,
		ProductID:   m.ProductID,
		WarehouseID: m.WarehouseID,
		Type:        m.Type.String(),
		QtyDelta:    m.QtyDelta,
		OccurredAt:  m.OccurredAt,
		RecordedAt:  m.RecordedAt,
		ReferenceID: m.ReferenceID,
		Note:        m.Note,
		Metadata:    m.Metadata,
	}
}

// RecordMovementResponse is the appended movement and the stock it produced
type RecordMovementResponse struct {
	Movement      MovementDTO     `json:"movement"`
	ResultingQty  decimal.Decimal `json:"resulting_qty"`
	NegativeStock bool            `json:"negative_stock"`
}

// CurrentStockDTO represents a current stock row in API responses
type CurrentStockDTO struct {
	ProductID    uuid.UUID       `json:"product_id"`
	WarehouseID  uuid.UUID       `json:"warehouse_id"`
	Qty          decimal.Decimal `json:"qty"`
	LastSequence int64           `json:"last_sequence"`
	IsNegative   bool            `json:"is_negative"`
	Version      int             `json:"version"`
	UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
}

// ToCurrentStockDTO converts a current stock row
func ToCurrentStockDTO(s *inventory.CurrentStock) CurrentStockDTO {
	updatedAt := s.UpdatedAt
	return CurrentStockDTO{
		ProductID:    s.ProductID,
		WarehouseID:  s.WarehouseID,
		Qty:          s.Qty,
		LastSequence: s.LastSequence,
		IsNegative:   s.IsNegative(),
		Version:      s.GetVersion(),
		UpdatedAt:    &updatedAt,
	}
}

// zeroStockDTO describes a pair that has no stock row yet
func zeroStockDTO(key inventory.StockKey) CurrentStockDTO {
	return CurrentStockDTO{
		ProductID:   key.ProductID,
		WarehouseID: key.WarehouseID,
		Qty:         decimal.Zero,
	}
}

// DiscrepancyDTO is one pair whose current stock disagrees with the ledger
type DiscrepancyDTO struct {
	ProductID             uuid.UUID       `json:"product_id"`
	WarehouseID           uuid.UUID       `json:"warehouse_id"`
	LedgerQty             decimal.Decimal `json:"ledger_qty"`
	AggregateQty          decimal.Decimal `json:"aggregate_qty"`
	Diff                  decimal.Decimal `json:"diff"`
	LedgerMaxSequence     int64           `json:"ledger_max_sequence"`
	AggregateLastSequence int64           `json:"aggregate_last_sequence"`
}

// ConsistencyReport is the outcome of one verification run
type ConsistencyReport struct {
	StoreID       uuid.UUID        `json:"store_id"`
	CheckedAt     time.Time        `json:"checked_at"`
	PairsChecked  int              `json:"pairs_checked"`
	Consistent    bool             `json:"consistent"`
	Discrepancies []DiscrepancyDTO `json:"discrepancies"`
}

// RebuildResponse reports how many pairs were rewritten from the ledger
type RebuildResponse struct {
	StoreID      uuid.UUID `json:"store_id"`
	PairsRebuilt int       `json:"pairs_rebuilt"`
}
