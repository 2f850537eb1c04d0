package rbac

import (
	"log/slog"
	"net/http"

	"github.com/fungus-mycelium/fungus-admin/internal/shared"
)

const (
	// LoginPath is where anonymous requests are sent.
	LoginPath = "/auth/login"
	// SessionExpiredPath is where a request lands after the API rejected the credential.
	SessionExpiredPath = "/session-expired"
)

// Middleware wires authentication and role checks for HTTP handlers.
type Middleware struct {
	Credentials *shared.Credentials
	Logger      *slog.Logger
}

// RequireAuth resolves the signed-in profile and stores it in the request
// context. Anonymous requests remember the target and go to the login page.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, ok := m.Credentials.Profile(r.Context())
		if !ok {
			if r.Method == http.MethodGet {
				m.Credentials.RememberRedirect(r.Context(), r.URL.RequestURI())
			}
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithProfile(r.Context(), profile)))
	})
}

// RequireWrite only lets through roles that may modify section.
func (m Middleware) RequireWrite(section Section) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, ok := shared.ProfileFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			if !CanWrite(ParseRole(profile.Role), section) {
				if m.Logger != nil {
					m.Logger.Info("rbac write denied", slog.String("role", profile.Role), slog.String("path", r.URL.Path))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Writable reports whether the signed-in user may modify section.
func Writable(r *http.Request, section Section) bool {
	profile, ok := shared.ProfileFromContext(r.Context())
	return ok && CanWrite(ParseRole(profile.Role), section)
}

// RequireAny lets the request through when the role may open at least one
// of the sections. Other roles land on the dashboard home.
func (m Middleware) RequireAny(sections ...Section) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, ok := shared.ProfileFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			role := ParseRole(profile.Role)
			for _, s := range sections {
				if Allowed(role, s) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if m.Logger != nil {
				m.Logger.Info("rbac denied", slog.String("role", profile.Role), slog.String("path", r.URL.Path))
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
		})
	}
}
