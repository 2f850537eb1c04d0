package view

import (
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var spanish = message.NewPrinter(language.Spanish)

// Funcs is the function map available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate":     FormatDate,
		"formatDateTime": FormatDateTime,
		"formatMoney":    FormatMoney,
		"formatAmount":   FormatAmount,
		"formatNumber":   FormatNumber,
		"iconFilter":     func(base string, index int) template.CSS { return template.CSS(IconFilter(base, index)) },
		"initials":       Initials,
		"dict":           dict,
		"add":            func(a, b int) int { return a + b },
	}
}

// FormatDate renders a date as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// FormatDateTime renders a timestamp as dd/mm/yyyy hh:mm.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006 15:04")
}

// FormatMoney renders an amount with Spanish separators and two decimals.
func FormatMoney(v float64) string {
	return "$ " + spanish.Sprintf("%.2f", v)
}

// FormatNumber renders an integer quantity with Spanish grouping.
func FormatNumber(v int) string {
	return spanish.Sprintf("%d", v)
}

// Initials is used for the avatar of the signed-in user.
func Initials(name string) string {
	var out []rune
	for _, part := range strings.Fields(name) {
		for _, r := range part {
			out = append(out, r)
			break
		}
		if len(out) == 2 {
			break
		}
	}
	return strings.ToUpper(string(out))
}

func dict(pairs ...any) map[string]any {
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if key, ok := pairs[i].(string); ok {
			m[key] = pairs[i+1]
		}
	}
	return m
}
