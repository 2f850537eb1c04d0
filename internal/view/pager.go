package view

import (
	"net/url"
	"strconv"

	"github.com/fungus-mycelium/fungus-admin/internal/listview"
)

// PagerItem is one button of a pagination control.
type PagerItem struct {
	Page     int
	Link     string
	Current  bool
	Ellipsis bool
}

// Pager is the pagination control of a list page.
type Pager struct {
	Show       bool
	Summary    listview.Pagination
	PrevLink   string
	NextLink   string
	Items      []PagerItem
	JumpAction string
	// Hidden carries the other filters through the jump-to-page form.
	Hidden url.Values
}

// NewPager builds the control for path with the given filters.
func NewPager(path string, f listview.Filters, p listview.Pagination, radius int) Pager {
	pager := Pager{Show: p.ShowControls(), Summary: p, JumpAction: path}
	if !pager.Show {
		return pager
	}
	link := func(page int) string {
		return path + "?" + f.WithPage(page).Query()
	}
	if prev := p.PrevPage(); prev > 0 {
		pager.PrevLink = link(prev)
	}
	if next := p.NextPage(); next > 0 {
		pager.NextLink = link(next)
	}
	for _, m := range listview.PageWindow(p.Page, p.TotalPages, radius) {
		if m.IsEllipsis() {
			pager.Items = append(pager.Items, PagerItem{Ellipsis: true})
			continue
		}
		pager.Items = append(pager.Items, PagerItem{Page: m.Page(), Link: link(m.Page()), Current: m.Page() == p.Page})
	}
	hidden := f.Values()
	hidden.Del("page")
	hidden.Set("current", strconv.Itoa(p.Page))
	hidden.Set("pages", strconv.Itoa(p.TotalPages))
	pager.Hidden = hidden
	return pager
}

// Column is a sortable table header.
type Column struct {
	Key       string
	Label     string
	Link      string
	Indicator string
}

// SortColumns builds the header links. Clicking toggles the sort and goes
// back to the first page.
func SortColumns(path string, f listview.Filters, cols ...Column) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		next := f.WithSort(f.Sort.Toggle(c.Key))
		c.Link = path + "?" + next.Query()
		c.Indicator = f.Sort.Indicator(c.Key)
		out[i] = c
	}
	return out
}
