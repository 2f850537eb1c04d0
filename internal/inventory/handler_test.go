package inventory

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/internal/view"
	_ "github.com/fungus-mycelium/fungus-admin/testing"
)

type apiRecorder struct {
	mu     sync.Mutex
	bodies map[string]string
	reply  func(w http.ResponseWriter, r *http.Request)
}

func (a *apiRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	a.mu.Lock()
	a.bodies[r.Method+" "+r.URL.Path] = string(raw)
	a.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	a.reply(w, r)
}

func (a *apiRecorder) body(key string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.bodies[key]
	return b, ok
}

func newCatalogRouter(t *testing.T, role string, reply func(w http.ResponseWriter, r *http.Request)) (http.Handler, *apiRecorder, *shared.Session) {
	t.Helper()
	rec := &apiRecorder{bodies: make(map[string]string), reply: reply}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	creds := shared.NewCredentials()
	client := api.NewClient(api.Options{BaseURL: srv.URL, Credentials: creds})
	templates, err := view.NewEngine()
	require.NoError(t, err)
	mw := rbac.Middleware{Credentials: creds}
	h := NewHandler(nil, Products, NewService(client, Products, time.Minute), templates, shared.NewCSRFManager("csrf"), mw)

	sess := shared.NewSession()
	sess.ID = "sess-inv"
	require.NoError(t, creds.SetCredential(shared.ContextWithSession(t.Context(), sess), "jwt", shared.Profile{ID: "u1", Name: "Ana", Role: role}))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Use(mw.RequireAuth)
	h.MountRoutes(r)
	return r, rec, sess
}

func listReply(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": sampleItems})
}

func postForm(router http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestCatalogListSortedAndPaged(t *testing.T) {
	router, _, _ := newCatalogRouter(t, "admin", listReply)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?sortBy=name&sortOrder=desc&limit=2", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Zanahoria")
	assert.Contains(t, body, "Ñame")
	assert.NotContains(t, body, "Abeto")
	assert.Contains(t, body, "Nuevo producto")
	assert.Contains(t, body, "/products/1/edit")
}

func TestCatalogHidesWriteActionsFromSellers(t *testing.T) {
	router, _, _ := newCatalogRouter(t, "seller", listReply)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "/products/1/edit")

	rr = postForm(router, "/products", url.Values{"name": {"Seta"}, "unit": {"kg"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCatalogCreateParsesSpanishAmounts(t *testing.T) {
	router, rec, sess := newCatalogRouter(t, "manager", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"_id": "9", "name": "Seta ostra"}})
	})

	rr := postForm(router, "/products", url.Values{
		"name":      {"Seta ostra"},
		"unit":      {"kg"},
		"price":     {"1.234,56"},
		"stock":     {"12,5"},
		"min_stock": {""},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/products", rr.Header().Get("Location"))

	raw, ok := rec.body("POST /products")
	require.True(t, ok)
	var sent Input
	require.NoError(t, json.Unmarshal([]byte(raw), &sent))
	assert.Equal(t, "Seta ostra", sent.Name)
	assert.InDelta(t, 1234.56, sent.Price, 1e-9)
	assert.InDelta(t, 12.5, sent.Stock, 1e-9)

	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Producto creado.", flash.Message)
}

func TestCatalogCreateRejectsInvalidInput(t *testing.T) {
	router, rec, _ := newCatalogRouter(t, "admin", listReply)

	rr := postForm(router, "/products", url.Values{"name": {""}, "unit": {"kg"}, "price": {"doce"}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "El nombre es obligatorio.")
	assert.Contains(t, body, "El precio debe ser un número.")
	assert.Contains(t, body, `value="doce"`)
	_, called := rec.body("POST /products")
	assert.False(t, called)
}

func TestCatalogDeleteFailureKeepsModal(t *testing.T) {
	router, _, _ := newCatalogRouter(t, "admin", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"success":false,"message":"El producto está en una cotización"}`))
			return
		}
		listReply(w, r)
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = postForm(router, "/products/3/delete", url.Values{"return": {"page=1&limit=10"}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "El producto está en una cotización")
	assert.Contains(t, body, "<strong>Abeto</strong>")
	assert.Contains(t, body, `action="/products/3/delete"`)
}

func TestCatalogDeleteFlashStartsCapitalised(t *testing.T) {
	router, _, sess := newCatalogRouter(t, "admin", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		listReply(w, r)
	})

	rr := postForm(router, "/products/3/delete", url.Values{"return": {"page=1&limit=10"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Producto eliminado.", flash.Message)
	assert.Equal(t, "Insumo", Consumables.Label())
}

func TestCatalogEditNotFound(t *testing.T) {
	router, _, _ := newCatalogRouter(t, "admin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false}`))
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/404/edit", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "No se encontró el producto.")
}
