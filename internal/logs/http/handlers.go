package logshttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/listview"
	"github.com/fungus-mycelium/fungus-admin/internal/logs"
	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/internal/view"
)

const basePath = "/logs"

// Service defines the log operations the handler needs.
type Service interface {
	Query(sessionID string) *listview.Query[logs.Entry]
	Get(ctx context.Context, id string) (logs.Entry, error)
	Delete(ctx context.Context, id string) error
	Cleanup(ctx context.Context, days int) (logs.CleanupResult, error)
}

// Handler serves the activity log pages.
type Handler struct {
	logger    *slog.Logger
	service   Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds the log handler.
func NewHandler(logger *slog.Logger, service Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		rbac:      rbac,
	}
}

type rowViewModel struct {
	logs.Entry
	ViewLink   string
	DeleteLink string
}

type listViewModel struct {
	Filters     listview.Filters
	Operations  []logs.Option
	Collections []logs.Option
	Limits      []int
	Rows        []rowViewModel
	Loading     bool
	Error       string
	Columns     []view.Column
	Pager       view.Pager
	Modal       listview.Modal
	Detail      *logs.Entry
	CloseLink   string
	CleanupLink string
	ResetLink   string
	ReturnQuery string
	CleanupDays int
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	query := h.service.Query(sess.ID)
	filters := h.resolveFilters(r, sess, query.State())

	state, err := query.SetFilters(r.Context(), filters)
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	if err != nil && !errors.Is(err, listview.ErrSuperseded) {
		h.logger.Warn("load logs", slog.Any("error", err))
	}
	h.persistFilters(sess, state.Filters)

	modal := listview.ModalFromQuery(r.URL.Query())
	var detail *logs.Entry
	if modal.Kind == listview.ModalView {
		entry, err := h.service.Get(r.Context(), modal.TargetID)
		switch {
		case api.IsUnauthorized(err):
			http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
			return
		case err != nil:
			modal.Err = shared.UserMessage(err, "No se pudo cargar el registro.")
		default:
			detail = &entry
		}
	}
	h.renderList(w, r, http.StatusOK, state, modal, detail, logs.DefaultCleanupDays)
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
	if err != nil {
		h.logger.Warn("delete log", slog.String("id", id), slog.Any("error", err))
		h.renderList(w, r, http.StatusUnprocessableEntity, h.currentState(r, sess), modal, nil, logs.DefaultCleanupDays)
		return
	}
	h.redirectWithFlash(w, r, h.returnTo(r), "success", "Registro eliminado.")
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	days, convErr := strconv.Atoi(strings.TrimSpace(r.PostFormValue("days")))
	if convErr != nil {
		days = 0
	}
	var modal listview.Modal
	_ = modal.Open(listview.ModalCleanup, "")
	var result logs.CleanupResult
	err := modal.Confirm(r.Context(), func(ctx context.Context) error {
		var err error
		result, err = h.service.Cleanup(ctx, days)
		return err
	})
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	if err != nil {
		if days < 1 {
			days = logs.DefaultCleanupDays
		}
		h.logger.Warn("cleanup logs", slog.Int("days", days), slog.Any("error", err))
		h.renderList(w, r, http.StatusUnprocessableEntity, h.currentState(r, sess), modal, nil, days)
		return
	}
	h.logger.Info("logs cleaned up", slog.Int("days", days), slog.Int("deleted", result.DeletedCount))
	h.redirectWithFlash(w, r, h.returnTo(r), "success", fmt.Sprintf("Se eliminaron %d registros.", result.DeletedCount))
}

// resolveFilters picks the filters for a list request: reset, explicit
// query parameters, a jump-to-page submission, or the persisted set.
func (h *Handler) resolveFilters(r *http.Request, sess *shared.Session, prev listview.State[logs.Entry]) listview.Filters {
	q := r.URL.Query()
	if q.Has("reset") {
		sess.Delete(shared.LogsFiltersKey)
		return listview.DefaultFilters()
	}
	if !hasFilterParams(q) {
		return listview.UnmarshalFilters(sess.Get(shared.LogsFiltersKey))
	}
	return listview.ParseFilters(q).WithJump(q, prev.Pagination)
}

// currentState is the list behind a failed confirmation. The rows of the
// last successful fetch stay on screen; a fresh session fetches once.
func (h *Handler) currentState(r *http.Request, sess *shared.Session) listview.State[logs.Entry] {
	query := h.service.Query(sess.ID)
	state := query.State()
	if state.Status == listview.StatusIdle && state.Seq == 0 {
		state, _ = query.SetFilters(r.Context(), listview.UnmarshalFilters(sess.Get(shared.LogsFiltersKey)))
	}
	return state
}

func (h *Handler) persistFilters(sess *shared.Session, f listview.Filters) {
	raw, err := listview.MarshalFilters(f)
	if err != nil {
		h.logger.Warn("persist log filters", slog.Any("error", err))
		return
	}
	sess.Set(shared.LogsFiltersKey, raw)
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, status int, state listview.State[logs.Entry], modal listview.Modal, detail *logs.Entry, cleanupDays int) {
	f := state.Filters
	query := f.Query()
	rows := make([]rowViewModel, 0, len(state.Rows))
	for _, e := range state.Rows {
		id := url.QueryEscape(e.ID)
		rows = append(rows, rowViewModel{
			Entry:      e,
			ViewLink:   basePath + "?" + query + "&modal=view&id=" + id,
			DeleteLink: basePath + "?" + query + "&modal=delete&id=" + id,
		})
	}
	vm := listViewModel{
		Filters:     f,
		Operations:  logs.Operations,
		Collections: logs.Collections,
		Limits:      []int{10, 25, 50, 100},
		Rows:        rows,
		Loading:     state.Loading,
		Error:       state.Err,
		Columns: view.SortColumns(basePath, f,
			view.Column{Key: "createdAt", Label: "Fecha"},
			view.Column{Key: "operation", Label: "Operación"},
			view.Column{Key: "collection", Label: "Colección"},
			view.Column{Key: "documentId", Label: "Documento"},
			view.Column{Key: "userId", Label: "Usuario"},
		),
		Pager:       view.NewPager(basePath, f, state.Pagination, listview.LogWindowRadius),
		Modal:       modal,
		Detail:      detail,
		CloseLink:   basePath + "?" + query,
		CleanupLink: basePath + "?" + query + "&modal=cleanup",
		ResetLink:   basePath + "?reset=1",
		ReturnQuery: query,
		CleanupDays: cleanupDays,
	}

	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	data := view.NewTemplateData(r, "Registro de actividad", vm)
	data.CSRFToken = csrfToken
	if sess != nil {
		data.Flash = sess.PopFlash()
	}
	if err := h.templates.RenderStatus(w, status, "pages/logs.html", data); err != nil {
		h.handleServerError(w, "render logs", err)
	}
}

// returnTo sends the browser back to the list with the filters it came from.
func (h *Handler) returnTo(r *http.Request) string {
	raw := strings.TrimSpace(r.PostFormValue("return"))
	values, err := url.ParseQuery(raw)
	if err != nil || raw == "" {
		return basePath
	}
	return basePath + "?" + listview.ParseFilters(values).Query()
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func hasFilterParams(q url.Values) bool {
	for _, key := range []string{"operation", "collection", "status", "search", "startDate", "endDate", "documentId", "userId", "sortBy", "sortOrder", "page", "limit", "jump"} {
		if q.Has(key) {
			return true
		}
	}
	return false
}
