package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CountSessionStatus represents the lifecycle state of a count session
type CountSessionStatus string

const (
	CountSessionStatusOpen      CountSessionStatus = "open"
	CountSessionStatusSubmitted CountSessionStatus = "submitted"
	CountSessionStatusDiscarded CountSessionStatus = "discarded"

	// CountSessionStatusIncomplete is a submitted session with items left to
	// retry. Its counts are frozen; it can only be submitted again or discarded.
	CountSessionStatusIncomplete CountSessionStatus = "incomplete"
)

// ErrCountSessionNotOpen is returned when a submitted or discarded session is modified
var ErrCountSessionNotOpen = shared.NewDomainError("INVALID_STATE", "Count session is no longer open")

// CountSessionItem is the running count of one product within a session
type CountSessionItem struct {
	ProductID      uuid.UUID       `json:"product_id"`
	WarehouseID    uuid.UUID       `json:"warehouse_id"`
	CountedQty     decimal.Decimal `json:"counted_qty"`
	FirstScannedAt time.Time       `json:"first_scanned_at"`
	LastScannedAt  time.Time       `json:"last_scanned_at"`
	Scans          int             `json:"scans"`
}

// CountSessionResult is the per-item outcome kept on a submitted session
type CountSessionResult struct {
	ProductID      uuid.UUID       `json:"product_id"`
	WarehouseID    uuid.UUID       `json:"warehouse_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Status         ResultStatus    `json:"status"`
	DeltaApplied   decimal.Decimal `json:"delta_applied"`
	ResultingQty   decimal.Decimal `json:"resulting_qty"`
	ErrorCode      string          `json:"error_code,omitempty"`
}

// CountSession is the in-progress physical count on a device. It lives in a
// key-value store, not in the database, until it is submitted for reconciliation.
//
// Every operation returns a modified copy; the receiver is never mutated.
type CountSession struct {
	ID          uuid.UUID                      `json:"id"`
	StoreID     uuid.UUID                      `json:"store_id"`
	WarehouseID uuid.UUID                      `json:"warehouse_id"`
	CountedBy   string                         `json:"counted_by,omitempty"`
	StartedAt   time.Time                      `json:"started_at"`
	Status      CountSessionStatus             `json:"status"`
	Items       map[uuid.UUID]CountSessionItem `json:"items"`
	SubmittedAt *time.Time                     `json:"submitted_at,omitempty"`
	Results     []CountSessionResult           `json:"results,omitempty"`
}

// NewCountSession opens a session. warehouseID may be uuid.Nil, in which case
// the store's default warehouse is used at reconciliation time.
func NewCountSession(storeID, warehouseID uuid.UUID, countedBy string, startedAt time.Time) (CountSession, error) {
	if storeID == uuid.Nil {
		return CountSession{}, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	return CountSession{
		ID:          uuid.New(),
		StoreID:     storeID,
		WarehouseID: warehouseID,
		CountedBy:   countedBy,
		StartedAt:   startedAt.UTC(),
		Status:      CountSessionStatusOpen,
		Items:       make(map[uuid.UUID]CountSessionItem),
	}, nil
}

// IsOpen reports whether the session still accepts scans
func (s CountSession) IsOpen() bool {
	return s.Status == CountSessionStatusOpen
}

// CanSubmit reports whether the session may be submitted for reconciliation
func (s CountSession) CanSubmit() bool {
	return s.Status == CountSessionStatusOpen || s.Status == CountSessionStatusIncomplete
}

func (s CountSession) clone() CountSession {
	c := s
	c.Items = make(map[uuid.UUID]CountSessionItem, len(s.Items))
	for k, v := range s.Items {
		c.Items[k] = v
	}
	if s.Results != nil {
		c.Results = append([]CountSessionResult(nil), s.Results...)
	}
	return c
}

// RecordScan adds qty to the product's running count. The first scan time of
// an item is the earliest scan seen, even when scans arrive out of order.
func (s CountSession) RecordScan(productID, warehouseID uuid.UUID, qty decimal.Decimal, scannedAt time.Time) (CountSession, error) {
	if !s.IsOpen() {
		return s, ErrCountSessionNotOpen
	}
	if productID == uuid.Nil {
		return s, ErrUnknownProduct
	}
	qty = NormalizeQuantity(qty)
	if !qty.IsPositive() {
		return s, shared.NewDomainError("INVALID_QUANTITY", "Scanned quantity must be positive")
	}
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}
	scannedAt = scannedAt.UTC()

	c := s.clone()
	item, ok := c.Items[productID]
	if !ok {
		item = CountSessionItem{
			ProductID:      productID,
			WarehouseID:    c.WarehouseID,
			CountedQty:     decimal.Zero,
			FirstScannedAt: scannedAt,
			LastScannedAt:  scannedAt,
		}
	}
	if warehouseID != uuid.Nil {
		item.WarehouseID = warehouseID
	}
	if scannedAt.Before(item.FirstScannedAt) {
		item.FirstScannedAt = scannedAt
	}
	if scannedAt.After(item.LastScannedAt) {
		item.LastScannedAt = scannedAt
	}
	item.CountedQty = NormalizeQuantity(item.CountedQty.Add(qty))
	item.Scans++
	c.Items[productID] = item
	return c, nil
}

// SetCount overwrites the product's count. An item that was never scanned
// takes at as its first scan time; an existing item keeps its first scan time.
func (s CountSession) SetCount(productID uuid.UUID, qty decimal.Decimal, at time.Time) (CountSession, error) {
	if !s.IsOpen() {
		return s, ErrCountSessionNotOpen
	}
	if productID == uuid.Nil {
		return s, ErrUnknownProduct
	}
	qty = NormalizeQuantity(qty)
	if qty.IsNegative() {
		return s, ErrNegativeCountedQty
	}
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	c := s.clone()
	item, ok := c.Items[productID]
	if !ok {
		item = CountSessionItem{
			ProductID:      productID,
			WarehouseID:    c.WarehouseID,
			FirstScannedAt: at,
		}
	}
	item.CountedQty = qty
	if at.After(item.LastScannedAt) {
		item.LastScannedAt = at
	}
	c.Items[productID] = item
	return c, nil
}

// RemoveItem drops a product from the session
func (s CountSession) RemoveItem(productID uuid.UUID) (CountSession, error) {
	if !s.IsOpen() {
		return s, ErrCountSessionNotOpen
	}
	if _, ok := s.Items[productID]; !ok {
		return s, shared.ErrNotFound
	}
	c := s.clone()
	delete(c.Items, productID)
	return c, nil
}

// EntryKey returns the idempotency key used for one product of the session
func (s CountSession) EntryKey(productID, warehouseID uuid.UUID) string {
	return s.ID.String() + ":" + productID.String() + ":" + warehouseID.String()
}

// Entries returns the count entries to reconcile, ordered by product ID.
// CountedAt is the first scan of each item.
func (s CountSession) Entries() []CountEntry {
	ids := make([]uuid.UUID, 0, len(s.Items))
	for id := range s.Items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	entries := make([]CountEntry, 0, len(ids))
	for _, id := range ids {
		item := s.Items[id]
		entries = append(entries, CountEntry{
			StoreID:        s.StoreID,
			ProductID:      item.ProductID,
			WarehouseID:    item.WarehouseID,
			CountedQty:     item.CountedQty,
			CountedAt:      item.FirstScannedAt,
			IdempotencyKey: s.EntryKey(item.ProductID, item.WarehouseID),
		})
	}
	return entries
}

// MarkSubmitted keeps a summary of the reconciliation. The session closes
// unless an item was cancelled or lost to concurrent writers; then it becomes
// incomplete and the same entries can be submitted again.
func (s CountSession) MarkSubmitted(results []*ReconciliationResult, at time.Time) (CountSession, error) {
	if !s.CanSubmit() {
		return s, ErrCountSessionNotOpen
	}
	c := s.clone()
	at = at.UTC()
	c.Status = CountSessionStatusSubmitted
	c.SubmittedAt = &at
	c.Results = make([]CountSessionResult, 0, len(results))
	for _, r := range results {
		if r.Retryable() {
			c.Status = CountSessionStatusIncomplete
		}
		c.Results = append(c.Results, CountSessionResult{
			ProductID:      r.ProductID,
			WarehouseID:    r.WarehouseID,
			IdempotencyKey: r.IdempotencyKey,
			Status:         r.Status,
			DeltaApplied:   r.DeltaApplied,
			ResultingQty:   r.ResultingQty,
			ErrorCode:      r.ErrorCode,
		})
	}
	return c, nil
}

// MarkDiscarded closes the session without reconciling what is left of it
func (s CountSession) MarkDiscarded() (CountSession, error) {
	if !s.CanSubmit() {
		return s, ErrCountSessionNotOpen
	}
	c := s.clone()
	c.Status = CountSessionStatusDiscarded
	return c, nil
}

// CountSessionStore keeps count sessions between device requests
type CountSessionStore interface {
	// Get returns shared.ErrNotFound when the session is unknown or expired
	Get(ctx context.Context, storeID, sessionID uuid.UUID) (CountSession, error)
	Put(ctx context.Context, session CountSession, ttl time.Duration) error
	Delete(ctx context.Context, storeID, sessionID uuid.UUID) error
}
