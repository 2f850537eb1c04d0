package logshttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
)

const (
	cleanupRateLimit  = 5
	cleanupRateWindow = time.Minute
)

// MountRoutes registers the activity log pages and row actions.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(cleanupRateLimit, cleanupRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.SectionLogs))
		r.Get("/logs", h.handleList)
		r.Post("/logs/{id}/delete", h.handleDelete)
		r.With(limiter).Post("/logs/cleanup", h.handleCleanup)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if profile, ok := shared.ProfileFromContext(r.Context()); ok && profile.ID != "" {
		return "user:" + profile.ID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
