package inventory

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxClockSkew is how far in the future a client counted_at may be before it
// is rejected. Devices are allowed small drift relative to the server.
const MaxClockSkew = 5 * time.Minute

// CountEntry is one product's physical count submitted by count capture.
// CountedAt is the instant the product was first observed during the count.
type CountEntry struct {
	StoreID        uuid.UUID
	ProductID      uuid.UUID
	WarehouseID    uuid.UUID
	CountedQty     decimal.Decimal
	CountedAt      time.Time
	IdempotencyKey string

	// Malformed is set when the line could not be decoded into the fields above
	Malformed error
}

// Key returns the stock key the entry reconciles
func (e CountEntry) Key() StockKey {
	return NewStockKey(e.StoreID, e.ProductID, e.WarehouseID)
}

// Validate checks the fields that do not need the catalog.
// The warehouse may still be unset here; it is resolved to the store default later.
func (e CountEntry) Validate(now time.Time) error {
	if strings.TrimSpace(e.IdempotencyKey) == "" {
		return ErrMissingIdempotencyKey
	}
	if e.Malformed != nil {
		return e.Malformed
	}
	if e.ProductID == uuid.Nil {
		return ErrUnknownProduct
	}
	if e.CountedQty.IsNegative() {
		return ErrNegativeCountedQty
	}
	if e.CountedAt.IsZero() || e.CountedAt.After(now.Add(MaxClockSkew)) {
		return ErrInvalidCountedAt
	}
	return nil
}

// Fingerprint identifies the payload behind an idempotency key. Two
// submissions with the same key must carry the same fingerprint.
func (e CountEntry) Fingerprint() string {
	var b strings.Builder
	b.WriteString(e.ProductID.String())
	b.WriteByte('|')
	b.WriteString(e.WarehouseID.String())
	b.WriteByte('|')
	b.WriteString(NormalizeQuantity(e.CountedQty).StringFixed(QuantityScale))
	b.WriteByte('|')
	b.WriteString(e.CountedAt.UTC().Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
