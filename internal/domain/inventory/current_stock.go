package inventory

import (
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeCurrentStock is the aggregate type recorded on events
const AggregateTypeCurrentStock = "CurrentStock"

// CurrentStock is the materialized running total of the ledger for one
// product in one warehouse. After every completed write Qty equals the sum
// of QtyDelta over all movements of the key, and LastSequence is the
// sequence of the last movement folded into Qty.
type CurrentStock struct {
	shared.BaseAggregateRoot
	StoreID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_current_stock_key,priority:1"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_current_stock_key,priority:2"`
	WarehouseID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_current_stock_key,priority:3;index"`
	Qty          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastSequence int64           `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (CurrentStock) TableName() string {
	return "current_stock"
}

// NewCurrentStock creates an empty aggregate for key (qty 0, nothing folded)
func NewCurrentStock(key StockKey) (*CurrentStock, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return &CurrentStock{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		StoreID:           key.StoreID,
		ProductID:         key.ProductID,
		WarehouseID:       key.WarehouseID,
		Qty:               decimal.Zero,
	}, nil
}

// Key returns the stock key of the aggregate
func (s *CurrentStock) Key() StockKey {
	return NewStockKey(s.StoreID, s.ProductID, s.WarehouseID)
}

// Fold applies an appended movement to the running total.
// Movements of another key, movements without a sequence and movements at
// or below LastSequence (already folded) are rejected.
func (s *CurrentStock) Fold(m *StockMovement) error {
	if m.Key() != s.Key() {
		return shared.NewDomainError("STOCK_KEY_MISMATCH", "Movement belongs to a different product or warehouse")
	}
	if !m.IsAppended() {
		return shared.NewDomainError("MOVEMENT_NOT_APPENDED", "Movement has no ledger sequence")
	}
	if m.Sequence <= s.LastSequence {
		return shared.NewDomainError("DUPLICATE_FOLD", "Movement was already folded into current stock")
	}

	s.Qty = NormalizeQuantity(s.Qty.Add(m.QtyDelta))
	s.LastSequence = m.Sequence
	s.IncrementVersion()
	return nil
}

// Reset overwrites the running total with a value recomputed from the ledger
func (s *CurrentStock) Reset(qty decimal.Decimal, lastSequence int64) {
	s.Qty = NormalizeQuantity(qty)
	s.LastSequence = lastSequence
	s.IncrementVersion()
}

// IsNegative reports whether the running total dropped below zero
func (s *CurrentStock) IsNegative() bool {
	return s.Qty.IsNegative()
}

// HasObserved reports whether the aggregate is still at the sequence a reader saw
func (s *CurrentStock) HasObserved(sequence int64) bool {
	return s.LastSequence == sequence
}
