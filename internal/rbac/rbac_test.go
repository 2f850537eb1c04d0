package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fungus-mycelium/fungus-admin/internal/shared"
)

func TestNavigationPerRole(t *testing.T) {
	admin := Navigation(RoleAdmin, "/logs/abc")
	require.Len(t, admin, 8)
	assert.True(t, admin[len(admin)-1].Active)

	seller := Navigation(RoleSeller, "/")
	paths := make([]string, 0, len(seller))
	for _, item := range seller {
		paths = append(paths, item.Path)
	}
	assert.Equal(t, []string{"/products", "/clients", "/quotations", "/sales"}, paths)

	assert.Empty(t, Navigation(ParseRole("intruder"), "/"))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleManager, ParseRole(" Manager "))
	assert.Equal(t, Role(""), ParseRole("root"))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuthRedirectsAndRemembers(t *testing.T) {
	creds := shared.NewCredentials()
	mw := Middleware{Credentials: creds}
	sess := shared.NewSession()

	req := httptest.NewRequest(http.MethodGet, "/logs?page=2", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	mw.RequireAuth(okHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, LoginPath, rr.Header().Get("Location"))
	assert.Equal(t, "/logs?page=2", sess.Get(shared.RedirectAfterKey))
}

func TestRequireAuthPassesProfile(t *testing.T) {
	creds := shared.NewCredentials()
	sess := shared.NewSession()
	ctx := shared.ContextWithSession(context.Background(), sess)
	require.NoError(t, creds.SetCredential(ctx, "tok", shared.Profile{ID: "1", Role: "seller"}))

	var seen shared.Profile
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.ProfileFromContext(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	Middleware{Credentials: creds}.RequireAuth(next).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "seller", seen.Role)
}

func TestRequireAnyRedirectsUnauthorizedRole(t *testing.T) {
	mw := Middleware{}
	ctx := shared.ContextWithProfile(context.Background(), shared.Profile{Role: "seller"})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/logs", nil).WithContext(ctx)
	mw.RequireAny(SectionLogs)(okHandler()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/sales", nil).WithContext(ctx)
	mw.RequireAny(SectionSales, SectionPurchases)(okHandler()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCanWrite(t *testing.T) {
	assert.True(t, CanWrite(RoleAdmin, SectionLogs))
	assert.True(t, CanWrite(RoleManager, SectionPurchases))
	assert.False(t, CanWrite(RoleManager, SectionLogs))
	assert.True(t, CanWrite(RoleSeller, SectionQuotations))
	assert.True(t, CanWrite(RoleSeller, SectionClients))
	assert.False(t, CanWrite(RoleSeller, SectionProducts))
	assert.False(t, CanWrite(RoleSeller, SectionSuppliers))
	assert.False(t, CanWrite("", SectionProducts))
}

func TestRequireWrite(t *testing.T) {
	mw := Middleware{}
	ctx := shared.ContextWithProfile(context.Background(), shared.Profile{Role: "seller"})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/products", nil).WithContext(ctx)
	mw.RequireWrite(SectionProducts)(okHandler()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/quotations", nil).WithContext(ctx)
	mw.RequireWrite(SectionQuotations)(okHandler()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.True(t, Writable(req, SectionQuotations))
	assert.False(t, Writable(req, SectionProducts))

	rr = httptest.NewRecorder()
	mw.RequireWrite(SectionQuotations)(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/quotations", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}
