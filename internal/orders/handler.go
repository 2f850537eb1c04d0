package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/listview"
	"github.com/fungus-mycelium/fungus-admin/internal/platform/httpx"
	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/internal/status"
	"github.com/fungus-mycelium/fungus-admin/internal/view"
)

// Handler serves the pages of one order kind.
type Handler struct {
	logger    *slog.Logger
	kind      Kind
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds the handler of kind.
func NewHandler(logger *slog.Logger, kind Kind, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger.With(slog.String("orders", kind.Path)),
		kind:      kind,
		service:   service,
		templates: templates,
		csrf:      csrf,
		rbac:      rbac,
	}
}

// MountRoutes registers the routes of the kind.
func (h *Handler) MountRoutes(r chi.Router) {
	base := h.kind.Path
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(h.kind.Section))
		r.Get(base, h.handleList)
		r.Get(base+"/{id}", h.showDetail)
		r.With(h.rbac.RequireWrite(h.kind.Section)).Post(base+"/{id}/status", h.handleStatus)
	})
}

type statusOption struct {
	Value    status.Status
	Label    string
	Selected bool
}

type rowViewModel struct {
	Order
	DetailLink string
	PartyName  string
	StatusText string
	Transition []status.Action
}

type listViewModel struct {
	Kind        Kind
	Filters     listview.Filters
	Statuses    []statusOption
	Rows        []rowViewModel
	Error       string
	Columns     []view.Column
	Pager       view.Pager
	ReturnQuery string
}

type detailViewModel struct {
	Order
	Kind       Kind
	PartyName  string
	PartyLink  string
	StatusText string
	Transition []status.Action
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	query, q := h.service.Query(sess.ID), r.URL.Query()
	filters := listview.ParseFilters(q).WithJump(q, query.State().Pagination)
	if !h.kind.Table.Known(status.Parse(filters.Status)) {
		filters.Status = ""
	}
	state, err := query.SetFilters(r.Context(), filters)
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	if err != nil && !errors.Is(err, listview.ErrSuperseded) {
		h.logger.Warn("load orders", slog.Any("error", err))
	}

	f := state.Filters
	writable := rbac.Writable(r, h.kind.Section)
	rows := make([]rowViewModel, 0, len(state.Rows))
	for _, o := range state.Rows {
		_, party := o.Party()
		row := rowViewModel{
			Order:      o,
			DetailLink: h.detailPath(o.ID),
			PartyName:  party,
			StatusText: h.kind.Table.Label(o.Status),
		}
		if writable {
			row.Transition = h.kind.Table.Actions(o.Status)
		}
		rows = append(rows, row)
	}
	vm := listViewModel{
		Kind:     h.kind,
		Filters:  f,
		Statuses: h.statusOptions(status.Parse(f.Status)),
		Rows:     rows,
		Error:    state.Err,
		Columns: view.SortColumns(h.kind.Path, f,
			view.Column{Key: "number", Label: "Número"},
			view.Column{Key: h.kind.PartySort, Label: h.kind.PartyLabel},
			view.Column{Key: "createdAt", Label: "Fecha"},
			view.Column{Key: "status", Label: "Estado"},
			view.Column{Key: "total", Label: "Total"},
		),
		Pager:       view.NewPager(h.kind.Path, f, state.Pagination, listview.QuotationWindowRadius),
		ReturnQuery: f.Query(),
	}
	if err := h.templates.RenderPage(w, r, h.csrf, http.StatusOK, "pages/orders.html", h.kind.Title, vm); err != nil {
		h.logger.Error("render orders", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) showDetail(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if api.IsUnauthorized(err) {
			http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
			return
		}
		h.logger.Warn("load order", slog.Any("error", err))
		if rerr := h.templates.RenderError(w, r, httpx.StatusFor(err), shared.UserMessage(err, "No se encontró la "+strings.ToLower(h.kind.Singular)+".")); rerr != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}
	partyID, party := o.Party()
	vm := detailViewModel{
		Order:      o,
		Kind:       h.kind,
		PartyName:  party,
		StatusText: h.kind.Table.Label(o.Status),
	}
	if partyID != "" {
		vm.PartyLink = h.kind.PartyPath + "/" + url.PathEscape(partyID)
	}
	if rbac.Writable(r, h.kind.Section) {
		vm.Transition = h.kind.Table.Actions(o.Status)
	}
	if err := h.templates.RenderPage(w, r, h.csrf, http.StatusOK, "pages/order_detail.html", h.kind.Singular+" "+o.Number, vm); err != nil {
		h.logger.Error("render order", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	target := status.Parse(r.PostFormValue("status"))
	back := h.detailPath(id)
	if ret := strings.TrimSpace(r.PostFormValue("return")); ret != "" {
		if values, err := url.ParseQuery(ret); err == nil {
			back = h.kind.Path + "?" + listview.ParseFilters(values).Query()
		}
	}
	_, err := h.service.ChangeStatus(r.Context(), id, target)
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	kind, message := "success", h.kind.Singular+" "+strings.ToLower(h.kind.Table.Label(target))+"."
	if err != nil {
		h.logger.Warn("change order status", slog.String("id", id), slog.String("status", string(target)), slog.Any("error", err))
		kind, message = "error", shared.UserMessage(err, "No se pudo cambiar el estado.")
	} else {
		h.logger.Info("order status changed", slog.String("id", id), slog.String("status", string(target)))
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *Handler) statusOptions(selected status.Status) []statusOption {
	all := h.kind.Table.Statuses()
	out := make([]statusOption, 0, len(all))
	for _, s := range all {
		out = append(out, statusOption{Value: s, Label: h.kind.Table.Label(s), Selected: s == selected})
	}
	return out
}

func (h *Handler) detailPath(id string) string {
	return h.kind.Path + "/" + url.PathEscape(id)
}
