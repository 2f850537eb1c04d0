package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/app"
	"github.com/fungus-mycelium/fungus-admin/internal/auth"
	"github.com/fungus-mycelium/fungus-admin/internal/inventory"
	"github.com/fungus-mycelium/fungus-admin/internal/observability"
	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/internal/view"
	"github.com/fungus-mycelium/fungus-admin/jobs"
	_ "github.com/fungus-mycelium/fungus-admin/testing"
)

var csrfField = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func upstreamAPI(t *testing.T, role string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"token": "jwt-1",
					"user":  map[string]string{"id": "u1", "name": "Ana Pérez", "email": "ana@fungus.test", "role": role},
				},
			})
		case "/products":
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []any{}})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "not found"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, upstream string, readiness map[string]app.ReadinessCheck) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	cfg := &app.Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second}
	sessions := shared.NewSessionManager(redisClient, "fungus_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	creds := shared.NewCredentials()
	templates, err := view.NewEngine()
	require.NoError(t, err)

	client := api.NewClient(api.Options{BaseURL: upstream, Credentials: creds})
	guard := rbac.Middleware{Credentials: creds}
	products := inventory.NewService(client, inventory.Products, time.Minute)

	return app.NewRouter(app.RouterParams{
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessions,
		CSRFManager:    csrf,
		RBAC:           guard,
		AuthHandler:    auth.NewHandler(nil, auth.NewService(client, creds), creds, templates, sessions, csrf, products),
		Sections: []app.SectionRoutes{
			inventory.NewHandler(nil, inventory.Products, products, templates, csrf, guard),
		},
		JobHandler: jobs.NewHandler(nil, nil),
		Metrics:    observability.NewMetrics(),
		Readiness:  readiness,
	})
}

func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func signIn(t *testing.T, srv *httptest.Server, client *http.Client) *http.Response {
	t.Helper()
	resp, err := client.Get(srv.URL + "/auth/login")
	require.NoError(t, err)
	page := body(t, resp)
	match := csrfField.FindStringSubmatch(page)
	require.Len(t, match, 2, "login page must carry a csrf token")

	resp, err = client.PostForm(srv.URL+"/auth/login", url.Values{
		"email":      {"ana@fungus.test"},
		"password":   {"hunter2"},
		"csrf_token": {match[1]},
	})
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, upstreamAPI(t, "admin").URL, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body(t, resp))
}

func TestReadyzReportsFailingDependency(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, upstreamAPI(t, "admin").URL, map[string]app.ReadinessCheck{
		"api":   func(context.Context) error { return errors.New("connection refused") },
		"redis": func(context.Context) error { return nil },
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"status":"degraded","checks":{"api":"unavailable","redis":"ok"}}`, body(t, resp))
}

func TestAnonymousVisitorGoesToLogin(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, upstreamAPI(t, "admin").URL, nil))
	defer srv.Close()
	client := browser(t)
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Get(srv.URL + "/products")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, rbac.LoginPath, resp.Header.Get("Location"))
}

func TestPostWithoutCSRFTokenIsForbidden(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, upstreamAPI(t, "admin").URL, nil))
	defer srv.Close()

	resp, err := browser(t).PostForm(srv.URL+"/auth/login", url.Values{"email": {"ana@fungus.test"}, "password": {"x"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLoginLandsOnHomeWithRoleSections(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, upstreamAPI(t, "seller").URL, nil))
	defer srv.Close()
	client := browser(t)

	resp := signIn(t, srv, client)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/", resp.Request.URL.Path)
	page := body(t, resp)

	assert.Contains(t, page, "Hola, Ana Pérez")
	assert.Contains(t, page, "Bienvenido, Ana Pérez.")
	assert.Contains(t, page, `href="/quotations"`)
	assert.Contains(t, page, `href="/sales"`)
	assert.NotContains(t, page, `href="/purchases"`)
	assert.NotContains(t, page, `href="/logs"`)
}

func TestLoginReturnsToRequestedPage(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, upstreamAPI(t, "admin").URL, nil))
	defer srv.Close()
	client := browser(t)

	resp, err := client.Get(srv.URL + "/products?page=1")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, rbac.LoginPath, resp.Request.URL.Path)

	resp = signIn(t, srv, client)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/products", resp.Request.URL.Path)
}

func TestUnknownPageRendersNotFound(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, upstreamAPI(t, "admin").URL, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.True(t, strings.Contains(body(t, resp), "La página que buscas no existe."))
}

func TestStaticAssetsAreCached(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, upstreamAPI(t, "admin").URL, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/static/css/app.css")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
}

func TestJobsHealthIsMounted(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, upstreamAPI(t, "admin").URL, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/jobs/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), `"queue":"default"`)
}
