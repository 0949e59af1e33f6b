package inventory

import (
	"time"

	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeStockMovementRecorded = "StockMovementRecorded"
	EventTypeStockAdjusted         = "StockAdjusted"
	EventTypeNegativeStockDetected = "NegativeStockDetected"
)

// StockMovementRecordedEvent is raised when an upstream movement is appended and folded
type StockMovementRecordedEvent struct {
	shared.BaseDomainEvent
	MovementID         uuid.UUID       `json:"movement_id"`
	Sequence           int64           `json:"sequence"`
	ProductID          uuid.UUID       `json:"product_id"`
	WarehouseID        uuid.UUID       `json:"warehouse_id"`
	MovementType       MovementType    `json:"movement_type"`
	QtyDelta           decimal.Decimal `json:"qty_delta"`
	ResultingQty       decimal.Decimal `json:"resulting_qty"`
	ReferenceID        string          `json:"reference_id,omitempty"`
	MovementOccurredAt time.Time       `json:"movement_occurred_at"`
}

// NewStockMovementRecordedEvent creates a new StockMovementRecordedEvent
func NewStockMovementRecordedEvent(stock *CurrentStock, m *StockMovement) *StockMovementRecordedEvent {
	return &StockMovementRecordedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeStockMovementRecorded, AggregateTypeCurrentStock, stock.ID, stock.StoreID),
		MovementID:         m.ID,
		Sequence:           m.Sequence,
		ProductID:          m.ProductID,
		WarehouseID:        m.WarehouseID,
		MovementType:       m.Type,
		QtyDelta:           m.QtyDelta,
		ResultingQty:       stock.Qty,
		ReferenceID:        m.ReferenceID,
		MovementOccurredAt: m.OccurredAt,
	}
}

// StockAdjustedEvent is raised when a count_correction movement is applied
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	MovementID     uuid.UUID       `json:"movement_id"`
	ProductID      uuid.UUID       `json:"product_id"`
	WarehouseID    uuid.UUID       `json:"warehouse_id"`
	QtyDelta       decimal.Decimal `json:"qty_delta"`
	CountedQty     decimal.Decimal `json:"counted_qty"`
	Expected       decimal.Decimal `json:"expected_qty"`
	ResultingQty   decimal.Decimal `json:"resulting_qty"`
	Reference      string          `json:"reference,omitempty"`
	CountedAt      time.Time       `json:"counted_at"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(stock *CurrentStock, m *StockMovement, result *ReconciliationResult) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeCurrentStock, stock.ID, stock.StoreID),
		MovementID:      m.ID,
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID,
		QtyDelta:        m.QtyDelta,
		CountedQty:      result.CountedQty,
		Expected:        result.ExpectedQtyAtCountTime,
		ResultingQty:    stock.Qty,
		Reference:       result.Reference,
		CountedAt:       result.CountedAt,
		IdempotencyKey:  result.IdempotencyKey,
	}
}

// NegativeStockDetectedEvent is raised when a write leaves current stock below zero.
// Negative stock is accepted and surfaced, never clamped.
type NegativeStockDetectedEvent struct {
	shared.BaseDomainEvent
	ProductID    uuid.UUID       `json:"product_id"`
	WarehouseID  uuid.UUID       `json:"warehouse_id"`
	Qty          decimal.Decimal `json:"qty"`
	LastSequence int64           `json:"last_sequence"`
	Source       MovementType    `json:"source"`
}

// NewNegativeStockDetectedEvent creates a new NegativeStockDetectedEvent
func NewNegativeStockDetectedEvent(stock *CurrentStock, source MovementType) *NegativeStockDetectedEvent {
	return &NegativeStockDetectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeNegativeStockDetected, AggregateTypeCurrentStock, stock.ID, stock.StoreID),
		ProductID:       stock.ProductID,
		WarehouseID:     stock.WarehouseID,
		Qty:             stock.Qty,
		LastSequence:    stock.LastSequence,
		Source:          source,
	}
}
