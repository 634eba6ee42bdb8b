package model

// Pagination holds normalized page/limit values for list endpoints.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 200
)

// DefaultPagination normalizes raw page/limit query values, applying
// defaults and clamping to a sane maximum.
func DefaultPagination(page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return Pagination{Page: page, Limit: limit}
}

// Offset returns the SQL OFFSET for this page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}
