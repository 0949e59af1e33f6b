package inventory

import (
	"time"

	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MovementType classifies a stock-affecting event
type MovementType string

const (
	// MovementTypeSale removes stock sold to a customer
	MovementTypeSale MovementType = "sale"
	// MovementTypePurchaseReceipt adds stock received from a supplier
	MovementTypePurchaseReceipt MovementType = "purchase_receipt"
	// MovementTypeReturn adds stock returned by a customer
	MovementTypeReturn MovementType = "return"
	// MovementTypeManualAdjustment is an operator correction of either sign
	MovementTypeManualAdjustment MovementType = "manual_adjustment"
	// MovementTypeCountCorrection is written only by the reconciliation applier
	MovementTypeCountCorrection MovementType = "count_correction"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is known
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeSale,
		MovementTypePurchaseReceipt,
		MovementTypeReturn,
		MovementTypeManualAdjustment,
		MovementTypeCountCorrection:
		return true
	}
	return false
}

// acceptsDelta checks that the sign of delta is coherent with the type.
func (t MovementType) acceptsDelta(delta decimal.Decimal) bool {
	switch t {
	case MovementTypeSale:
		return delta.IsNegative()
	case MovementTypePurchaseReceipt, MovementTypeReturn:
		return delta.IsPositive()
	}
	return true
}

// StockKey identifies one CurrentStock row and its slice of the ledger
type StockKey struct {
	StoreID     uuid.UUID `json:"store_id"`
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
}

// NewStockKey builds a StockKey
func NewStockKey(storeID, productID, warehouseID uuid.UUID) StockKey {
	return StockKey{StoreID: storeID, ProductID: productID, WarehouseID: warehouseID}
}

// Validate ensures every component of the key is set
func (k StockKey) Validate() error {
	if k.StoreID == uuid.Nil {
		return shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if k.ProductID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if k.WarehouseID == uuid.Nil {
		return shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	return nil
}

// String renders the key for logs and lock names
func (k StockKey) String() string {
	return k.StoreID.String() + "/" + k.ProductID.String() + "/" + k.WarehouseID.String()
}

// StockMovement is one immutable entry of the movement ledger.
// Sequence is assigned by the database at insert time and is the only
// ordering used for correctness; OccurredAt is descriptive.
type StockMovement struct {
	Sequence    int64             `gorm:"primaryKey;autoIncrement"`
	ID          uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex"`
	StoreID     uuid.UUID         `gorm:"type:uuid;not null;index:idx_movement_key_seq,priority:1;index:idx_movement_key_time,priority:1"`
	ProductID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_movement_key_seq,priority:2;index:idx_movement_key_time,priority:2"`
	WarehouseID uuid.UUID         `gorm:"type:uuid;not null;index:idx_movement_key_seq,priority:3;index:idx_movement_key_time,priority:3"`
	QtyDelta    decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Type        MovementType      `gorm:"column:movement_type;type:varchar(30);not null"`
	OccurredAt  time.Time         `gorm:"not null;index:idx_movement_key_time,priority:4"`
	RecordedAt  time.Time         `gorm:"not null"`
	ReferenceID string            `gorm:"type:varchar(100);index"`
	Note        string            `gorm:"type:varchar(255)"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a movement ready to be appended to the ledger.
// The sequence stays zero until the ledger assigns it.
func NewStockMovement(key StockKey, movementType MovementType, qtyDelta decimal.Decimal, occurredAt time.Time, referenceID string) (*StockMovement, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Invalid movement type")
	}
	qtyDelta = NormalizeQuantity(qtyDelta)
	if qtyDelta.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Movement quantity cannot be zero")
	}
	if !movementType.acceptsDelta(qtyDelta) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity sign does not match movement type "+movementType.String())
	}
	if len(referenceID) > 100 {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Reference ID cannot exceed 100 characters")
	}

	now := time.Now().UTC()
	if occurredAt.IsZero() {
		occurredAt = now
	}

	return &StockMovement{
		ID:          uuid.New(),
		StoreID:     key.StoreID,
		ProductID:   key.ProductID,
		WarehouseID: key.WarehouseID,
		QtyDelta:    qtyDelta,
		Type:        movementType,
		OccurredAt:  occurredAt.UTC(),
		RecordedAt:  now,
		ReferenceID: referenceID,
	}, nil
}

// WithNote sets a free-form note
func (m *StockMovement) WithNote(note string) *StockMovement {
	if len(note) > 255 {
		note = note[:255]
	}
	m.Note = note
	return m
}

// WithMetadata attaches structured audit data
func (m *StockMovement) WithMetadata(metadata map[string]any) *StockMovement {
	m.Metadata = datatypes.JSONMap(metadata)
	return m
}

// Key returns the stock key the movement belongs to
func (m *StockMovement) Key() StockKey {
	return NewStockKey(m.StoreID, m.ProductID, m.WarehouseID)
}

// IsAppended reports whether the ledger has assigned a sequence
func (m *StockMovement) IsAppended() bool {
	return m.Sequence > 0
}
