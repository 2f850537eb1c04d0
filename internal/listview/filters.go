// Package listview holds the list view model shared by the dashboard
// tables: filters, pagination, sorting, the remote list query and the
// row-action modal.
package listview

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPage is used whenever a page is missing or invalid.
	DefaultPage = 1
	// DefaultLimit is used whenever a page size is missing or invalid.
	DefaultLimit = 10
	// MaxLimit caps the page size requested from the API.
	MaxLimit = 100

	dateLayout = "2006-01-02"
)

// Filters is the set of user-selected constraints driving a list fetch.
type Filters struct {
	Operation  string     `json:"operation,omitempty"`
	Collection string     `json:"collection,omitempty"`
	Status     string     `json:"status,omitempty"`
	Search     string     `json:"search,omitempty"`
	StartDate  string     `json:"startDate,omitempty"`
	EndDate    string     `json:"endDate,omitempty"`
	DocumentID string     `json:"documentId,omitempty"`
	UserID     string     `json:"userId,omitempty"`
	Sort       SortConfig `json:"sort"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
}

// DefaultFilters returns the filters a view starts with.
func DefaultFilters() Filters {
	return Filters{Page: DefaultPage, Limit: DefaultLimit}
}

// Normalize applies page and limit defaults and drops malformed dates.
func (f Filters) Normalize() Filters {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	f.StartDate = normalizeDate(f.StartDate)
	f.EndDate = normalizeDate(f.EndDate)
	if f.Sort.Key == "" {
		f.Sort = SortConfig{}
	} else if f.Sort.Direction != Desc {
		f.Sort.Direction = Asc
	}
	return f
}

// WithPage returns a copy with only the page changed.
func (f Filters) WithPage(page int) Filters {
	f.Page = page
	return f
}

// WithSort returns a copy sorted by cfg, back on the first page.
func (f Filters) WithSort(cfg SortConfig) Filters {
	f.Sort = cfg
	f.Page = DefaultPage
	return f
}

// Values encodes the filters as query parameters. Empty fields are left out.
func (f Filters) Values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			v.Set(key, value)
		}
	}
	set("operation", f.Operation)
	set("collection", f.Collection)
	set("status", f.Status)
	set("search", f.Search)
	set("startDate", f.StartDate)
	set("endDate", f.EndDate)
	set("documentId", f.DocumentID)
	set("userId", f.UserID)
	if f.Sort.Active() {
		v.Set("sortBy", f.Sort.Key)
		v.Set("sortOrder", string(f.Sort.Direction))
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v
}

// Query renders Values as an encoded query string.
func (f Filters) Query() string {
	return f.Values().Encode()
}

// ParseFilters reads filters from request query values. Unknown or
// malformed values fall back to defaults.
func ParseFilters(v url.Values) Filters {
	f := Filters{
		Operation:  strings.TrimSpace(v.Get("operation")),
		Collection: strings.TrimSpace(v.Get("collection")),
		Status:     strings.TrimSpace(v.Get("status")),
		Search:     strings.TrimSpace(v.Get("search")),
		StartDate:  strings.TrimSpace(v.Get("startDate")),
		EndDate:    strings.TrimSpace(v.Get("endDate")),
		DocumentID: strings.TrimSpace(v.Get("documentId")),
		UserID:     strings.TrimSpace(v.Get("userId")),
		Page:       atoiOr(v.Get("page"), DefaultPage),
		Limit:      atoiOr(v.Get("limit"), DefaultLimit),
	}
	if key := strings.TrimSpace(v.Get("sortBy")); key != "" {
		f.Sort = SortConfig{Key: key, Direction: ParseDirection(v.Get("sortOrder"))}
	}
	return f.Normalize()
}

// WithJump applies a jump-to-page submission carried in q. prev is the
// pagination on screen; the "current" and "pages" fields stand in for it when
// the list is not cached for this session. Invalid targets keep the page.
func (f Filters) WithJump(q url.Values, prev Pagination) Filters {
	if !q.Has("jump") {
		return f
	}
	current, total := prev.Page, prev.TotalPages
	if current < 1 {
		current = atoiOr(q.Get("current"), DefaultPage)
	}
	if total < 1 {
		total = atoiOr(q.Get("pages"), 0)
	}
	page, _, _ := ParseJump(q.Get("jump"), current, total)
	return f.WithPage(page)
}

// HasConstraints reports whether any field other than paging and sorting is set.
func (f Filters) HasConstraints() bool {
	return f.Operation != "" || f.Collection != "" || f.Status != "" || f.Search != "" ||
		f.StartDate != "" || f.EndDate != "" || f.DocumentID != "" || f.UserID != ""
}

// MarshalFilters serialises filters for persistence in the session.
func MarshalFilters(f Filters) (string, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// UnmarshalFilters restores persisted filters. Garbage yields the defaults.
func UnmarshalFilters(raw string) Filters {
	if strings.TrimSpace(raw) == "" {
		return DefaultFilters()
	}
	var f Filters
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return DefaultFilters()
	}
	return f.Normalize()
}

func normalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return ""
	}
	return value
}

func atoiOr(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
