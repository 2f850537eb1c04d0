package view

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fungus-mycelium/fungus-admin/internal/listview"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderStatusWritesNothingOnError(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	err = engine.RenderStatus(rr, http.StatusBadRequest, "pages/missing.html", TemplateData{})
	assert.Error(t, err)
	assert.Equal(t, 0, rr.Body.Len())
}

func TestNewTemplateDataAddsNavigation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/sales", nil)
	req = req.WithContext(shared.ContextWithProfile(req.Context(), shared.Profile{Name: "Ana Pérez", Role: "seller"}))
	td := NewTemplateData(req, "Ventas", nil)
	require.NotNil(t, td.User)
	assert.Equal(t, "/sales", td.CurrentPath)
	assert.Len(t, td.Nav, 4)

	anon := NewTemplateData(httptest.NewRequest(http.MethodGet, "/auth/login", nil), "Ingresar", nil)
	assert.Nil(t, anon.User)
	assert.Empty(t, anon.Nav)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "$ 12.345,50", FormatMoney(12345.5))
	assert.Equal(t, "$ 0,50", FormatMoney(0.5))
	assert.Equal(t, "15/03/2026", FormatDate(time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)))
	assert.Empty(t, FormatDateTime(time.Time{}))
	assert.Equal(t, "AP", Initials("ana pérez soto"))
	assert.Equal(t, "", Initials(""))
}

func TestIconFilterDeterministic(t *testing.T) {
	a := IconFilter("#7c3aed", 3)
	assert.Equal(t, a, IconFilter("#7c3aed", 3))
	assert.NotEqual(t, a, IconFilter("#7c3aed", 4))
	assert.True(t, strings.HasPrefix(a, "invert("))
	assert.Contains(t, IconFilter("nonsense", 0), "hue-rotate(")
}

func TestHexToHSL(t *testing.T) {
	h, s, l := hexToHSL("#ff0000")
	assert.InDelta(t, 0, h, 0.001)
	assert.InDelta(t, 1, s, 0.001)
	assert.InDelta(t, 0.5, l, 0.001)

	h, _, _ = hexToHSL("#0f0")
	assert.InDelta(t, 120, h, 0.001)
}

func TestNewPager(t *testing.T) {
	f := listview.Filters{Operation: "delete", Page: 5, Limit: 10}
	p := listview.NewPagination(95, 5, 10)
	pager := NewPager("/logs", f, p, listview.LogWindowRadius)

	require.True(t, pager.Show)
	assert.Contains(t, pager.PrevLink, "page=4")
	assert.Contains(t, pager.NextLink, "page=6")
	assert.Contains(t, pager.PrevLink, "operation=delete")

	var pages []int
	ellipses := 0
	for _, item := range pager.Items {
		if item.Ellipsis {
			ellipses++
			continue
		}
		pages = append(pages, item.Page)
		if item.Current {
			assert.Equal(t, 5, item.Page)
		}
	}
	assert.Equal(t, []int{1, 3, 4, 5, 6, 7, 10}, pages)
	assert.Equal(t, 2, ellipses)
	assert.Equal(t, "5", pager.Hidden.Get("current"))
	assert.Equal(t, "10", pager.Hidden.Get("pages"))
	assert.Empty(t, pager.Hidden.Get("page"))

	single := NewPager("/logs", f, listview.NewPagination(4, 1, 10), 2)
	assert.False(t, single.Show)
	assert.Empty(t, single.Items)
}

func TestSortColumns(t *testing.T) {
	f := listview.Filters{Page: 3, Limit: 10, Sort: listview.SortConfig{Key: "name", Direction: listview.Asc}}
	cols := SortColumns("/products", f, Column{Key: "name", Label: "Nombre"}, Column{Key: "price", Label: "Precio"})

	assert.Equal(t, "▲", cols[0].Indicator)
	assert.Contains(t, cols[0].Link, "sortOrder=desc")
	assert.Contains(t, cols[0].Link, "page=1")
	assert.Empty(t, cols[1].Indicator)
	assert.Contains(t, cols[1].Link, "sortBy=price")
	assert.Contains(t, cols[1].Link, "sortOrder=asc")
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1.234,56", 1234.56},
		{"1234,5", 1234.5},
		{"1234.56", 1234.56},
		{"1.234", 1234},
		{"12.345.678", 12345678},
		{"$ 2.500,00", 2500},
		{" 42 ", 42},
		{"0,75", 0.75},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		require.NoError(t, err, tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, tc.in)
	}

	for _, bad := range []string{"", "abc", "1,2,3", "12a"} {
		_, err := ParseAmount(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
}

func TestFormatAmountRoundTrips(t *testing.T) {
	for _, v := range []float64{0, 12.5, 1234.56, 9876543.21} {
		got, err := ParseAmount(FormatAmount(v))
		require.NoError(t, err)
		assert.InDelta(t, v, got, 1e-9)
	}
}
