package inventory

import "github.com/shopspring/decimal"

// QuantityScale is the number of decimal places kept for every stock quantity.
// It matches the decimal(18,4) columns and allows weight-based products.
const QuantityScale int32 = 4

// quantityEpsilon is the smallest representable quantity step.
var quantityEpsilon = decimal.New(1, -QuantityScale)

// NormalizeQuantity rounds q to QuantityScale decimal places
func NormalizeQuantity(q decimal.Decimal) decimal.Decimal {
	return q.Round(QuantityScale)
}

// IsZeroQuantity reports whether q rounds to zero at QuantityScale
func IsZeroQuantity(q decimal.Decimal) bool {
	return NormalizeQuantity(q).Abs().LessThan(quantityEpsilon)
}

// QuantitiesEqual compares two quantities at QuantityScale
func QuantitiesEqual(a, b decimal.Decimal) bool {
	return IsZeroQuantity(a.Sub(b))
}
