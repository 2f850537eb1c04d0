package listview

// PaginateSlice cuts one page out of a fully loaded result set. Pages
// beyond the end are clamped to the last page.
func PaginateSlice[T any](rows []T, page, limit int) ([]T, Pagination) {
	p := NewPagination(len(rows), page, limit)
	if p.TotalPages > 0 && p.Page > p.TotalPages {
		p = NewPagination(len(rows), p.TotalPages, p.Limit)
	}
	start := (p.Page - 1) * p.Limit
	if start >= len(rows) {
		return []T{}, p
	}
	end := min(start+p.Limit, len(rows))
	return rows[start:end], p
}
