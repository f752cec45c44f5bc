// Package pagination computes page windows for list endpoints. Inputs are expected
// to be validated by the request layer; nothing here rejects values.
package pagination

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// Meta is the pagination block attached to list responses.
type Meta struct {
	CurrentPage int  `json:"current_page"`
	PageSize    int  `json:"page_size"`
	TotalPages  int  `json:"total_pages"`
	TotalItems  int  `json:"total_items"`
	HasNextPage bool `json:"has_next_page"`
	HasPrevPage bool `json:"has_prev_page"`
}

// Compute derives pagination metadata for totalRows matches.
func Compute(totalRows, page, pageSize int) Meta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalRows + pageSize - 1) / pageSize
	}
	return Meta{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		TotalItems:  totalRows,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// Offset returns the row offset of the first item on page.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

// Normalize fills zero values with defaults. It does not clamp oversized pages.
func Normalize(page, pageSize int) (int, int) {
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}
