package inventory

import "github.com/erp/stockrecon/internal/domain/shared"

// Validation error codes reported per count entry
const (
	CodeUnknownProduct        = "UNKNOWN_PRODUCT"
	CodeUnknownWarehouse      = "UNKNOWN_WAREHOUSE"
	CodeNegativeCountedQty    = "NEGATIVE_COUNTED_QTY"
	CodeInvalidCountedQty     = "INVALID_COUNTED_QTY"
	CodeIdempotencyKeyReused  = "IDEMPOTENCY_KEY_REUSED"
	CodeMissingIdempotencyKey = "MISSING_IDEMPOTENCY_KEY"
	CodeInvalidCountedAt      = "INVALID_COUNTED_AT"
	CodeStaleSequence         = "STALE_SEQUENCE"
	CodeLockNotAvailable      = "LOCK_NOT_AVAILABLE"
	CodeCancelled             = "CANCELLED"
	CodeDuplicateInBatch      = "DUPLICATE_IN_BATCH"
)

var (
	ErrUnknownProduct        = shared.NewDomainError(CodeUnknownProduct, "Product does not exist in this store")
	ErrUnknownWarehouse      = shared.NewDomainError(CodeUnknownWarehouse, "Warehouse does not exist in this store")
	ErrNegativeCountedQty    = shared.NewDomainError(CodeNegativeCountedQty, "Counted quantity cannot be negative")
	ErrInvalidCountedQty     = shared.NewDomainError(CodeInvalidCountedQty, "Counted quantity is missing or not a number")
	ErrIdempotencyKeyReused  = shared.NewDomainError(CodeIdempotencyKeyReused, "Idempotency key was already used with a different payload")
	ErrMissingIdempotencyKey = shared.NewDomainError(CodeMissingIdempotencyKey, "Idempotency key is required")
	ErrInvalidCountedAt      = shared.NewDomainError(CodeInvalidCountedAt, "Counted-at timestamp is missing or in the future")
	ErrDuplicateInBatch      = shared.NewDomainError(CodeDuplicateInBatch, "Same count was submitted twice in one batch")
	ErrCancelled             = shared.NewDomainError(CodeCancelled, "Reconciliation was cancelled before the item was processed")

	// ErrStaleSequence means a movement landed on the stock row after the
	// reconciliation engine read it. Callers treat it as a concurrency conflict.
	ErrStaleSequence = shared.NewDomainError(CodeStaleSequence, "Stock changed since it was evaluated")
	// ErrLockNotAvailable means the stock row is locked by another transaction.
	ErrLockNotAvailable = shared.NewDomainError(CodeLockNotAvailable, "Stock row is locked by another transaction")
)

// IsConcurrencyConflict reports whether err should trigger a re-evaluation and retry
func IsConcurrencyConflict(err error) bool {
	domainErr, ok := shared.AsDomainError(err)
	if !ok {
		return false
	}
	switch domainErr.Code {
	case shared.ErrConcurrencyConflict.Code, CodeStaleSequence, CodeLockNotAvailable:
		return true
	}
	return false
}
