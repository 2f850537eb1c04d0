package view

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned for input that is not a number.
var ErrInvalidAmount = errors.New("view: invalid amount")

var groupedThousands = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

// ParseAmount reads a number typed with Spanish separators ("1.234,56")
// or a plain decimal point ("1234.56").
func ParseAmount(input string) (float64, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		if strings.Count(s, ",") > 1 {
			return 0, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	case groupedThousands.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders v the way ParseAmount reads it back.
func FormatAmount(v float64) string {
	return spanish.Sprintf("%.2f", v)
}
