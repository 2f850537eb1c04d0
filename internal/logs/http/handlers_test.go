package logshttp

import (
	"encoding/json"
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
	"github.com/fungus-mycelium/fungus-admin/internal/listview"
	"github.com/fungus-mycelium/fungus-admin/internal/logs"
	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/internal/view"
	_ "github.com/fungus-mycelium/fungus-admin/testing"
)

type fakeAPI struct {
	mu       sync.Mutex
	requests []string
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())
	respond := f.respond
	f.mu.Unlock()
	respond(w, r)
}

func (f *fakeAPI) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func listResponse(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": []logs.Entry{
			{ID: "log-1", Operation: "delete", Collection: "products", DocumentID: "doc-42", UserID: "u7", CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
			{ID: "log-2", Operation: "create", Collection: "sales", DocumentID: "doc-43", UserID: "u7", CreatedAt: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)},
		},
		"pagination": listview.NewPagination(95, 1, 10),
	})
}

type fixture struct {
	api    *fakeAPI
	router http.Handler
	sess   *shared.Session
	creds  *shared.Credentials
}

func newFixture(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) *fixture {
	t.Helper()
	fake := &fakeAPI{respond: respond}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	creds := shared.NewCredentials()
	client := api.NewClient(api.Options{BaseURL: srv.URL, Credentials: creds})
	templates, err := view.NewEngine()
	require.NoError(t, err)

	sess := shared.NewSession()
	sess.ID = "sess-1"
	handler := NewHandler(nil, logs.NewService(client, time.Minute), templates, shared.NewCSRFManager("csrf"), rbac.Middleware{Credentials: creds})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithSession(req.Context(), sess)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(rbac.Middleware{Credentials: creds}.RequireAuth)
		handler.MountRoutes(r)
	})

	ctx := shared.ContextWithSession(t.Context(), sess)
	require.NoError(t, creds.SetCredential(ctx, "jwt", shared.Profile{ID: "u1", Name: "Ana", Role: "admin"}))
	return &fixture{api: fake, router: r, sess: sess, creds: creds}
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func (f *fixture) post(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestListRendersRowsAndPersistsFilters(t *testing.T) {
	f := newFixture(t, listResponse)

	rr := f.get(t, "/logs?operation=delete&limit=10")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "doc-42")
	assert.Contains(t, body, "doc-43")
	assert.Contains(t, body, `aria-current="page"`)
	assert.Contains(t, body, "Página 1 de 10")

	assert.Contains(t, f.api.last(), "operation=delete")
	persisted := listview.UnmarshalFilters(f.sess.Get(shared.LogsFiltersKey))
	assert.Equal(t, "delete", persisted.Operation)
}

func TestListRehydratesPersistedFilters(t *testing.T) {
	f := newFixture(t, listResponse)
	f.sess.Set(shared.LogsFiltersKey, `{"collection":"products","page":3,"limit":25}`)

	rr := f.get(t, "/logs")
	require.Equal(t, http.StatusOK, rr.Code)
	last := f.api.last()
	assert.Contains(t, last, "collection=products")
	assert.Contains(t, last, "page=3")
	assert.Contains(t, last, "limit=25")
}

func TestListResetDropsPersistedFilters(t *testing.T) {
	f := newFixture(t, listResponse)
	f.sess.Set(shared.LogsFiltersKey, `{"collection":"products","page":3,"limit":25}`)

	rr := f.get(t, "/logs?reset=1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, f.api.last(), "collection=")
	assert.Equal(t, listview.DefaultFilters(), listview.UnmarshalFilters(f.sess.Get(shared.LogsFiltersKey)))
}

func TestListJumpOutOfRangeStaysOnPage(t *testing.T) {
	f := newFixture(t, listResponse)
	require.Equal(t, http.StatusOK, f.get(t, "/logs?page=1").Code)

	rr := f.get(t, "/logs?jump=99&current=1&limit=10")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, f.api.last(), "page=1")

	rr = f.get(t, "/logs?jump=4&current=1&limit=10")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, f.api.last(), "page=4")
}

func TestListUnauthorizedRedirectsToSessionExpired(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Token inválido"})
	})

	rr := f.get(t, "/logs")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, rbac.SessionExpiredPath, rr.Header().Get("Location"))
	assert.Empty(t, f.sess.Get(shared.TokenKey))
}

func TestViewModalShowsDetail(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/logs/log-1" {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": logs.Entry{
				ID: "log-1", Operation: "update", DocumentID: "doc-42", IP: "10.0.0.8",
				Changes: json.RawMessage(`{"price":{"from":10,"to":12}}`),
			}})
			return
		}
		listResponse(w, r)
	})

	rr := f.get(t, "/logs?page=1&modal=view&id=log-1")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Detalle del registro")
	assert.Contains(t, body, "10.0.0.8")
	assert.Contains(t, body, "&#34;price&#34;")
}

func TestDeleteFailureKeepsModalOpenAndRow(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			writeJSON(w, http.StatusForbidden, map[string]any{"success": false, "message": "No autorizado"})
			return
		}
		listResponse(w, r)
	})
	require.Equal(t, http.StatusOK, f.get(t, "/logs?page=1").Code)

	rr := f.post(t, "/logs/log-1/delete", url.Values{"return": {"page=1&limit=10"}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "No autorizado")
	assert.Contains(t, body, `action="/logs/log-1/delete"`)
	assert.Contains(t, body, "doc-42")
	assert.Equal(t, "DELETE /logs/log-1", f.api.last())
}

func TestDeleteSuccessRedirectsWithFlash(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	rr := f.post(t, "/logs/log-1/delete", url.Values{"return": {"operation=delete&page=2&limit=10"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	location := rr.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/logs?"))
	assert.Contains(t, location, "operation=delete")
	flash := f.sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Registro eliminado.", flash.Message)
}

func TestCleanupSendsRetentionWindow(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]int{"deletedCount": 7}})
	})

	rr := f.post(t, "/logs/cleanup", url.Values{"days": {"15"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "DELETE /logs/cleanup?days=15", f.api.last())
	flash := f.sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Se eliminaron 7 registros.", flash.Message)
}

func TestCleanupRejectsInvalidWindow(t *testing.T) {
	f := newFixture(t, listResponse)

	rr := f.post(t, "/logs/cleanup", url.Values{"days": {"0"}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Indica un número de días")
	assert.Contains(t, rr.Body.String(), `action="/logs/cleanup"`)
}

func TestLogsHiddenFromSellers(t *testing.T) {
	f := newFixture(t, listResponse)
	ctx := shared.ContextWithSession(t.Context(), f.sess)
	require.NoError(t, f.creds.SetCredential(ctx, "jwt", shared.Profile{ID: "u2", Role: "seller"}))

	rr := f.get(t, "/logs")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}
