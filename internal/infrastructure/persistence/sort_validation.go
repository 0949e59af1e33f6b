package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted and defaultField
// otherwise.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// MovementSortFields contains allowed sort fields for ledger listings
var MovementSortFields = map[string]bool{
	"sequence":    true,
	"occurred_at": true,
	"recorded_at": true,
	"qty_delta":   true,
}

// StockSortFields contains allowed sort fields for current stock listings
var StockSortFields = map[string]bool{
	"updated_at":    true,
	"qty":           true,
	"last_sequence": true,
	"product_id":    true,
}

// ResultSortFields contains allowed sort fields for reconciliation results
var ResultSortFields = map[string]bool{
	"created_at":    true,
	"counted_at":    true,
	"delta_applied": true,
	"status":        true,
}

func orderClause(field, dir string) string {
	return field + " " + ValidateSortOrder(dir)
}
