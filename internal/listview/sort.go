package listview

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction is the order of a sorted column.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps user input to a direction, ascending by default.
func ParseDirection(value string) Direction {
	if strings.EqualFold(strings.TrimSpace(value), string(Desc)) {
		return Desc
	}
	return Asc
}

// SortConfig is the active sort of a table. The zero value means unsorted.
type SortConfig struct {
	Key       string    `json:"key,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Active reports whether a sort key is set.
func (s SortConfig) Active() bool {
	return s.Key != ""
}

// Toggle handles a click on a column header: the same key flips direction,
// a different key starts ascending.
func (s SortConfig) Toggle(key string) SortConfig {
	if s.Key == key && s.Key != "" {
		if s.Direction == Asc {
			return SortConfig{Key: key, Direction: Desc}
		}
		return SortConfig{Key: key, Direction: Asc}
	}
	return SortConfig{Key: key, Direction: Asc}
}

// Indicator is the arrow shown next to a header.
func (s SortConfig) Indicator(key string) string {
	if s.Key != key {
		return ""
	}
	if s.Direction == Desc {
		return "▼"
	}
	return "▲"
}

// Sorter compares row fields. Strings use locale collation, everything
// else a relational comparison with nil sorting low.
type Sorter struct {
	mu       sync.Mutex
	collator *collate.Collator
}

// NewSorter builds a sorter for the given locale.
func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{collator: collate.New(tag)}
}

// NewSpanishSorter is the sorter used by the dashboard tables.
func NewSpanishSorter() *Sorter {
	return NewSorter(language.Spanish)
}

// Compare orders two field values.
func (s *Sorter) Compare(a, b any) int {
	a, b = normalizeValue(a), normalizeValue(b)
	as, aIsString := a.(string)
	bs, bIsString := b.(string)
	switch {
	case aIsString && bIsString:
		return s.compareStrings(as, bs)
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return cmp.Compare(af, bf)
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func (s *Sorter) compareStrings(a, b string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collator.CompareString(a, b)
}

// SortRows sorts rows in place by cfg. field extracts the value of a key
// from a row. Nothing happens when cfg is inactive.
func SortRows[T any](s *Sorter, rows []T, cfg SortConfig, field func(row T, key string) any) {
	if !cfg.Active() || field == nil {
		return
	}
	slices.SortStableFunc(rows, func(a, b T) int {
		c := s.Compare(field(a, cfg.Key), field(b, cfg.Key))
		if cfg.Direction == Desc {
			return -c
		}
		return c
	})
}

// Empty strings and nil pointers count as missing values.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return t
	case *string:
		if t == nil || *t == "" {
			return nil
		}
		return *t
	case *float64:
		if t == nil {
			return nil
		}
		return *t
	case *int:
		if t == nil {
			return nil
		}
		return *t
	case *int64:
		if t == nil {
			return nil
		}
		return *t
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
