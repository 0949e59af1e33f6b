package shared

// Page size bounds enforced by Filter.Normalize
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Filter carries paging and ordering for list queries. Field filters live on
// the embedding type (MovementFilter, StockFilter, ...).
type Filter struct {
	Page     int
	PageSize int
	// OrderBy is checked against a per-table whitelist by the repository
	OrderBy  string
	OrderDir string
}

// Normalize returns f with page and size clamped and the direction forced to
// asc or desc.
func (f Filter) Normalize() Filter {
	f.Page = max(f.Page, 1)
	switch {
	case f.PageSize < 1:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}
	if f.OrderDir != "asc" {
		f.OrderDir = "desc"
	}
	return f
}

// Offset is the number of rows before the current page
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Paginated is one page of a list query plus the total row count
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated wraps items. A nil slice becomes empty so it encodes as [].
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if items == nil {
		items = []T{}
	}
	pages := (total + int64(pageSize) - 1) / int64(pageSize)
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(pages),
	}
}
