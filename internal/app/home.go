package app

import (
	"log/slog"
	"net/http"

	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/internal/view"
)

type navGroup struct {
	Name  string
	Items []rbac.NavItem
}

type homeViewModel struct {
	Name   string
	Role   string
	Groups []navGroup
}

// homeHandler is the landing page: the sections the role may open, grouped
// as in the sidebar.
type homeHandler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
}

func (h homeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	profile, _ := shared.ProfileFromContext(r.Context())
	data := homeViewModel{
		Name:   profile.Name,
		Role:   profile.Role,
		Groups: groupNavigation(rbac.Navigation(rbac.ParseRole(profile.Role), "")),
	}
	if err := h.templates.RenderPage(w, r, h.csrf, http.StatusOK, "pages/home.html", "Inicio", data); err != nil {
		h.logger.Error("render home", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func groupNavigation(items []rbac.NavItem) []navGroup {
	var groups []navGroup
	for _, item := range items {
		if n := len(groups); n > 0 && groups[n-1].Name == item.Group {
			groups[n-1].Items = append(groups[n-1].Items, item)
			continue
		}
		groups = append(groups, navGroup{Name: item.Group, Items: []rbac.NavItem{item}})
	}
	return groups
}
