package listview

import (
	"slices"
	"strconv"
	"strings"
)

// Window radii used by the dashboard tables.
const (
	LogWindowRadius       = 2
	QuotationWindowRadius = 1
)

// Pagination is the envelope metadata returned with every list page.
type Pagination struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewPagination computes pagination metadata for total rows.
func NewPagination(total, page, limit int) Pagination {
	if limit < 1 {
		limit = DefaultLimit
	}
	if page < 1 {
		page = DefaultPage
	}
	if total < 0 {
		total = 0
	}
	totalPages := (total + limit - 1) / limit
	return Pagination{
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// Consistent reports whether the derived fields agree with total, page and limit.
func (p Pagination) Consistent() bool {
	if p.Limit < 1 || p.Page < 1 || p.Total < 0 {
		return false
	}
	return p == NewPagination(p.Total, p.Page, p.Limit)
}

// ShowControls is false when there is nothing to navigate.
func (p Pagination) ShowControls() bool {
	return p.TotalPages > 1
}

// Target validates a page change. Pages outside [1, TotalPages] are rejected.
func (p Pagination) Target(page int) (int, bool) {
	if page < 1 || page > p.TotalPages {
		return p.Page, false
	}
	return page, true
}

// PrevPage is the previous page number, or zero at the first page.
func (p Pagination) PrevPage() int {
	if !p.HasPrevPage {
		return 0
	}
	return p.Page - 1
}

// NextPage is the next page number, or zero at the last page.
func (p Pagination) NextPage() int {
	if !p.HasNextPage {
		return 0
	}
	return p.Page + 1
}

// Marker is one entry of a page window. Negative values stand for an
// ellipsis covering the gap that starts at the absolute value.
type Marker int

// IsEllipsis reports whether the marker stands for skipped pages.
func (m Marker) IsEllipsis() bool { return m < 0 }

// Page returns the page number, or zero for an ellipsis.
func (m Marker) Page() int {
	if m < 0 {
		return 0
	}
	return int(m)
}

func (m Marker) abs() int {
	if m < 0 {
		return int(-m)
	}
	return int(m)
}

// PageWindow lists the page buttons for a pagination control: the first
// and last page, the pages within radius of the current one, and one
// ellipsis per gap.
func PageWindow(page, totalPages, radius int) []Marker {
	if totalPages < 1 {
		return nil
	}
	if radius < 0 {
		radius = 0
	}
	page = min(max(page, 1), totalPages)

	pages := []int{1, totalPages}
	for p := page - radius; p <= page+radius; p++ {
		if p >= 1 && p <= totalPages {
			pages = append(pages, p)
		}
	}
	slices.Sort(pages)
	pages = slices.Compact(pages)

	window := make([]Marker, 0, len(pages)*2)
	for i, p := range pages {
		if i > 0 && p-pages[i-1] > 1 {
			window = append(window, Marker(-(pages[i-1] + 1)))
		}
		window = append(window, Marker(p))
	}
	slices.SortStableFunc(window, func(a, b Marker) int { return a.abs() - b.abs() })
	return window
}

// ParseJump interprets the jump-to-page input. Anything that is not a page
// in range leaves the current page in place and resets the displayed value.
func ParseJump(input string, current, totalPages int) (page int, display string, moved bool) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > totalPages {
		return current, strconv.Itoa(current), false
	}
	return n, strconv.Itoa(n), n != current
}
