package quotations

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/listview"
	"github.com/fungus-mycelium/fungus-admin/internal/platform/httpx"
	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/internal/status"
	"github.com/fungus-mycelium/fungus-admin/internal/view"
)

const (
	basePath   = "/quotations"
	blankLines = 2
)

// Handler serves the quotation pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler builds the quotation handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger.With(slog.String("component", "quotations")),
		service:   service,
		templates: templates,
		csrf:      csrf,
		rbac:      rbac,
		validator: httpx.NewValidator(),
		now:       time.Now,
	}
}

// MountRoutes registers the quotation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.SectionQuotations))
		r.Get(basePath, h.handleList)
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireWrite(rbac.SectionQuotations))
			r.Get(basePath+"/new", h.showCreate)
			r.Post(basePath, h.handleCreate)
			r.Get(basePath+"/{id}/edit", h.showEdit)
			r.Post(basePath+"/{id}/edit", h.handleUpdate)
			r.Post(basePath+"/{id}/delete", h.handleDelete)
			r.Post(basePath+"/{id}/status", h.handleStatus)
		})
		r.Get(basePath+"/{id}", h.showDetail)
	})
}

type statusOption struct {
	Value    status.Status
	Label    string
	Selected bool
}

type rowViewModel struct {
	Quotation
	DetailLink string
	EditLink   string
	DeleteLink string
	Overdue    bool
	Transition []status.Action
}

type listViewModel struct {
	Filters     listview.Filters
	Statuses    []statusOption
	Rows        []rowViewModel
	Error       string
	Columns     []view.Column
	Pager       view.Pager
	Modal       listview.Modal
	Target      *Quotation
	CloseLink   string
	ReturnQuery string
	Writable    bool
}

type detailViewModel struct {
	Quotation
	Overdue    bool
	Writable   bool
	EditLink   string
	Transition []status.Action
	Modal      listview.Modal
	ModalLink  string
	CloseLink  string
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	query, q := h.service.Query(sess.ID), r.URL.Query()
	filters := listview.ParseFilters(q).WithJump(q, query.State().Pagination)
	if !status.Quotations.Known(status.Parse(filters.Status)) {
		filters.Status = ""
	}
	state, err := query.SetFilters(r.Context(), filters)
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	if err != nil && !errors.Is(err, listview.ErrSuperseded) {
		h.logger.Warn("load quotations", slog.Any("error", err))
	}
	modal := listview.ModalFromQuery(q)
	if modal.Kind != listview.ModalDelete {
		modal = listview.Modal{}
	}
	h.renderList(w, r, http.StatusOK, state, modal)
}

func (h *Handler) showDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	quote, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	modal := listview.ModalFromQuery(r.URL.Query())
	if modal.Kind != listview.ModalDelete || modal.TargetID != id {
		modal = listview.Modal{}
	}
	h.renderDetail(w, r, http.StatusOK, quote, modal)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	target := status.Parse(r.PostFormValue("status"))
	back := detailPath(id)
	if ret := strings.TrimSpace(r.PostFormValue("return")); ret != "" {
		back = basePath + "?" + returnFilters(r).Query()
	}
	quote, err := h.service.ChangeStatus(r.Context(), id, target)
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.logger.Warn("change quotation status", slog.String("id", id), slog.String("status", string(target)), slog.Any("error", err))
		h.redirectWithFlash(w, r, back, "error", shared.UserMessage(err, "No se pudo cambiar el estado de la cotización."))
		return
	}
	h.logger.Info("quotation status changed", slog.String("id", id), slog.String("status", string(quote.Status)))
	message := "Cotización " + strings.ToLower(status.Quotations.Label(target)) + "."
	if target == status.Converted {
		message = "Cotización convertida en venta."
	}
	h.redirectWithFlash(w, r, back, "success", message)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	id := chi.URLParam(r, "id")
	var modal listview.Modal
	_ = modal.Open(listview.ModalDelete, id)
	err := modal.Confirm(r.Context(), func(ctx context.Context) error {
		return h.service.Delete(ctx, id)
	})
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	fromDetail := r.PostFormValue("from") == "detail"
	back := returnFilters(r)
	if err != nil {
		h.logger.Warn("delete quotation", slog.String("id", id), slog.Any("error", err))
		if fromDetail {
			quote, gerr := h.service.Get(r.Context(), id)
			if gerr != nil {
				h.fail(w, r, gerr)
				return
			}
			h.renderDetail(w, r, http.StatusUnprocessableEntity, quote, modal)
			return
		}
		query := h.service.Query(sess.ID)
		state := query.State()
		if state.Seq == 0 {
			state, _ = query.SetFilters(r.Context(), back)
		}
		h.renderList(w, r, http.StatusUnprocessableEntity, state, modal)
		return
	}
	h.redirectWithFlash(w, r, basePath+"?"+back.Query(), "success", "Cotización eliminada.")
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, code int, state listview.State[Quotation], modal listview.Modal) {
	f := state.Filters
	query := f.Query()
	writable := rbac.Writable(r, rbac.SectionQuotations)
	now := h.now()
	rows := make([]rowViewModel, 0, len(state.Rows))
	var target *Quotation
	for _, quote := range state.Rows {
		row := rowViewModel{
			Quotation:  quote,
			DetailLink: detailPath(quote.ID),
			Overdue:    quote.Expired(now),
		}
		if writable {
			row.Transition = quote.Actions()
			if quote.Editable() {
				row.EditLink = row.DetailLink + "/edit"
			}
			if quote.Deletable() {
				row.DeleteLink = basePath + "?" + query + "&modal=delete&id=" + url.QueryEscape(quote.ID)
			}
		}
		if modal.TargetID == quote.ID {
			target = &quote
		}
		rows = append(rows, row)
	}
	vm := listViewModel{
		Filters:  f,
		Statuses: statusOptions(status.Parse(f.Status)),
		Rows:     rows,
		Error:    state.Err,
		Columns: view.SortColumns(basePath, f,
			view.Column{Key: "number", Label: "Número"},
			view.Column{Key: "clientName", Label: "Cliente"},
			view.Column{Key: "createdAt", Label: "Fecha"},
			view.Column{Key: "status", Label: "Estado"},
			view.Column{Key: "total", Label: "Total"},
		),
		Pager:       view.NewPager(basePath, f, state.Pagination, listview.QuotationWindowRadius),
		Modal:       modal,
		Target:      target,
		CloseLink:   basePath + "?" + query,
		ReturnQuery: query,
		Writable:    writable,
	}
	if err := h.templates.RenderPage(w, r, h.csrf, code, "pages/quotations.html", "Cotizaciones", vm); err != nil {
		h.logger.Error("render quotations", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) renderDetail(w http.ResponseWriter, r *http.Request, code int, quote Quotation, modal listview.Modal) {
	writable := rbac.Writable(r, rbac.SectionQuotations)
	vm := detailViewModel{
		Quotation: quote,
		Overdue:   quote.Expired(h.now()),
		Writable:  writable,
		Modal:     modal,
		CloseLink: detailPath(quote.ID),
	}
	if writable {
		vm.Transition = quote.Actions()
		if quote.Editable() {
			vm.EditLink = detailPath(quote.ID) + "/edit"
		}
		if quote.Deletable() {
			vm.ModalLink = detailPath(quote.ID) + "?modal=delete&id=" + url.QueryEscape(quote.ID)
		}
	}
	if err := h.templates.RenderPage(w, r, h.csrf, code, "pages/quotation_detail.html", "Cotización "+quote.Number, vm); err != nil {
		h.logger.Error("render quotation", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	h.logger.Warn("quotation request failed", slog.Any("error", err))
	if rerr := h.templates.RenderError(w, r, httpx.StatusFor(err), shared.UserMessage(err, "No se encontró la cotización.")); rerr != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func statusOptions(selected status.Status) []statusOption {
	all := status.Quotations.Statuses()
	out := make([]statusOption, 0, len(all))
	for _, s := range all {
		out = append(out, statusOption{Value: s, Label: status.Quotations.Label(s), Selected: s == selected})
	}
	return out
}

func detailPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}

func returnFilters(r *http.Request) listview.Filters {
	values, err := url.ParseQuery(strings.TrimSpace(r.PostFormValue("return")))
	if err != nil {
		return listview.DefaultFilters()
	}
	return listview.ParseFilters(values)
}
