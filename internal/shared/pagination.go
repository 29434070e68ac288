package shared

import "math"

const (
	// DefaultPage is used when the client omits the page number.
	DefaultPage = 1
	// DefaultLimit is the page size used when the client omits it.
	DefaultLimit = 10
	// MaxLimit caps the page size.
	MaxLimit = 100
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Current    int  `json:"current"`
	TotalPages int  `json:"pages"`
	Total      int  `json:"total"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultLimit
	}
	if page <= 0 {
		page = DefaultPage
	}
	if total < 0 {
		total = 0
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{
		Current:    page,
		TotalPages: totalPages,
		Total:      total,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ClampLimit bounds a requested page size to [1, MaxLimit].
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Offset converts a 1-based page into a row offset, saturating at
// math.MaxInt instead of wrapping.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	if limit > 0 && page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}
