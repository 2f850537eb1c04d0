package inventory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/listview"
	"github.com/fungus-mycelium/fungus-admin/internal/platform/httpx"
	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/internal/view"
)

// Handler wires HTTP endpoints for one catalog.
type Handler struct {
	logger    *slog.Logger
	catalog   Catalog
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a catalog handler.
func NewHandler(logger *slog.Logger, catalog Catalog, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger.With(slog.String("catalog", catalog.Path)),
		catalog:   catalog,
		service:   service,
		templates: templates,
		csrf:      csrf,
		rbac:      rbac,
		validator: httpx.NewValidator(),
	}
}

// MountRoutes registers the catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	base := h.catalog.Path
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(h.catalog.Section))
		r.Get(base, h.handleList)
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireWrite(h.catalog.Section))
			r.Get(base+"/new", h.showCreate)
			r.Post(base, h.handleCreate)
			r.Get(base+"/{id}/edit", h.showEdit)
			r.Post(base+"/{id}/edit", h.handleUpdate)
			r.Post(base+"/{id}/delete", h.handleDelete)
		})
	})
}

type rowViewModel struct {
	Item
	EditLink   string
	DeleteLink string
}

type listViewModel struct {
	Catalog     Catalog
	Filters     listview.Filters
	Limits      []int
	Rows        []rowViewModel
	Error       string
	Columns     []view.Column
	Pager       view.Pager
	Modal       listview.Modal
	Target      *Item
	CloseLink   string
	NewLink     string
	ResetLink   string
	ReturnQuery string
	Writable    bool
}

type itemForm struct {
	Name         string  `validate:"required,max=120"`
	Description  string  `validate:"max=500"`
	Category     string  `validate:"max=60"`
	Unit         string  `validate:"required,max=20"`
	Price        float64 `validate:"gte=0"`
	Stock        float64 `validate:"gte=0"`
	MinStock     float64 `validate:"gte=0"`
	PriceText    string  `validate:"-"`
	StockText    string  `validate:"-"`
	MinStockText string  `validate:"-"`
}

type formViewModel struct {
	Catalog Catalog
	Action  string
	Editing bool
	Form    itemForm
	Errors  map[string]string
}

var formLabels = map[string]string{
	"Name":        "El nombre",
	"Description": "La descripción",
	"Category":    "La categoría",
	"Unit":        "La unidad",
	"Price":       "El precio",
	"Stock":       "El stock",
	"MinStock":    "El stock mínimo",
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	query, q := h.service.Query(sess.ID), r.URL.Query()
	state, err := query.SetFilters(r.Context(), listview.ParseFilters(q).WithJump(q, query.State().Pagination))
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	if err != nil && !errors.Is(err, listview.ErrSuperseded) {
		h.logger.Warn("load catalog", slog.Any("error", err))
	}
	modal := listview.ModalFromQuery(q)
	if modal.Kind != listview.ModalDelete {
		modal = listview.Modal{}
	}
	h.renderList(w, r, http.StatusOK, state, modal)
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
	back := h.returnTo(r)
	if err != nil {
		h.logger.Warn("delete item", slog.String("id", id), slog.Any("error", err))
		query := h.service.Query(sess.ID)
		state := query.State()
		if state.Seq == 0 {
			state, _ = query.SetFilters(r.Context(), back)
		}
		h.renderList(w, r, http.StatusUnprocessableEntity, state, modal)
		return
	}
	h.redirectWithFlash(w, r, h.catalog.Path+"?"+back.Query(), "success", h.catalog.Label()+" eliminado.")
}

func (h *Handler) showCreate(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, formViewModel{
		Catalog: h.catalog,
		Action:  h.catalog.Path,
		Form:    itemForm{PriceText: view.FormatAmount(0), StockText: "0", MinStockText: "0"},
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	form, errs := h.parseForm(r)
	vm := formViewModel{Catalog: h.catalog, Action: h.catalog.Path, Form: form, Errors: errs}
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, vm)
		return
	}
	item, err := h.service.Create(r.Context(), form.input())
	if err != nil {
		h.formFailed(w, r, vm, err)
		return
	}
	h.logger.Info("item created", slog.String("id", item.ID))
	h.redirectWithFlash(w, r, h.catalog.Path, "success", h.catalog.Label()+" creado.")
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "No se encontró el "+strings.ToLower(h.catalog.Singular)+".")
		return
	}
	h.renderForm(w, r, http.StatusOK, formViewModel{
		Catalog: h.catalog,
		Action:  h.catalog.Path + "/" + url.PathEscape(id) + "/edit",
		Editing: true,
		Form:    formFromItem(item),
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, errs := h.parseForm(r)
	vm := formViewModel{
		Catalog: h.catalog,
		Action:  h.catalog.Path + "/" + url.PathEscape(id) + "/edit",
		Editing: true,
		Form:    form,
		Errors:  errs,
	}
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, vm)
		return
	}
	if _, err := h.service.Update(r.Context(), id, form.input()); err != nil {
		h.formFailed(w, r, vm, err)
		return
	}
	h.redirectWithFlash(w, r, h.catalog.Path, "success", h.catalog.Label()+" actualizado.")
}

// parseForm reads the form. Amounts accept Spanish separators.
func (h *Handler) parseForm(r *http.Request) (itemForm, map[string]string) {
	if err := r.ParseForm(); err != nil {
		return itemForm{}, map[string]string{"general": "Formulario inválido."}
	}
	form := itemForm{
		Name:         strings.TrimSpace(r.PostFormValue("name")),
		Description:  strings.TrimSpace(r.PostFormValue("description")),
		Category:     strings.TrimSpace(r.PostFormValue("category")),
		Unit:         strings.TrimSpace(r.PostFormValue("unit")),
		PriceText:    strings.TrimSpace(r.PostFormValue("price")),
		StockText:    strings.TrimSpace(r.PostFormValue("stock")),
		MinStockText: strings.TrimSpace(r.PostFormValue("min_stock")),
	}
	amountErrs := make(map[string]string)
	parse := func(field, text string, dst *float64) {
		if text == "" {
			return
		}
		v, err := view.ParseAmount(text)
		if err != nil {
			amountErrs[field] = formLabels[field] + " debe ser un número."
			return
		}
		*dst = v
	}
	parse("Price", form.PriceText, &form.Price)
	parse("Stock", form.StockText, &form.Stock)
	parse("MinStock", form.MinStockText, &form.MinStock)

	errs := httpx.FieldErrors(h.validator.Struct(form), formLabels)
	for field, msg := range amountErrs {
		errs[field] = msg
	}
	return form, errs
}

func (f itemForm) input() Input {
	return Input{
		Name:        f.Name,
		Description: f.Description,
		Category:    f.Category,
		Unit:        f.Unit,
		Price:       f.Price,
		Stock:       f.Stock,
		MinStock:    f.MinStock,
	}
}

func formFromItem(i Item) itemForm {
	return itemForm{
		Name:         i.Name,
		Description:  i.Description,
		Category:     i.Category,
		Unit:         i.Unit,
		Price:        i.Price,
		Stock:        i.Stock,
		MinStock:     i.MinStock,
		PriceText:    view.FormatAmount(i.Price),
		StockText:    view.FormatAmount(i.Stock),
		MinStockText: view.FormatAmount(i.MinStock),
	}
}

func (h *Handler) formFailed(w http.ResponseWriter, r *http.Request, vm formViewModel, err error) {
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	h.logger.Warn("save item", slog.Any("error", err))
	if vm.Errors == nil {
		vm.Errors = make(map[string]string)
	}
	vm.Errors["general"] = shared.UserMessage(err, "No se pudo guardar el "+strings.ToLower(h.catalog.Singular)+".")
	h.renderForm(w, r, httpx.StatusFor(err), vm)
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, status int, state listview.State[Item], modal listview.Modal) {
	f := state.Filters
	base := h.catalog.Path
	query := f.Query()
	writable := rbac.Writable(r, h.catalog.Section)
	rows := make([]rowViewModel, 0, len(state.Rows))
	var target *Item
	for _, it := range state.Rows {
		row := rowViewModel{Item: it}
		if writable {
			row.EditLink = base + "/" + url.PathEscape(it.ID) + "/edit"
			row.DeleteLink = base + "?" + query + "&modal=delete&id=" + url.QueryEscape(it.ID)
		}
		if modal.TargetID == it.ID {
			target = &it
		}
		rows = append(rows, row)
	}
	vm := listViewModel{
		Catalog: h.catalog,
		Filters: f,
		Limits:  []int{10, 25, 50, 100},
		Rows:    rows,
		Error:   state.Err,
		Columns: view.SortColumns(base, f,
			view.Column{Key: "name", Label: "Nombre"},
			view.Column{Key: "category", Label: "Categoría"},
			view.Column{Key: "unit", Label: "Unidad"},
			view.Column{Key: "price", Label: "Precio"},
			view.Column{Key: "stock", Label: "Stock"},
		),
		Pager:       view.NewPager(base, f, state.Pagination, listview.LogWindowRadius),
		Modal:       modal,
		Target:      target,
		CloseLink:   base + "?" + query,
		NewLink:     base + "/new",
		ResetLink:   base,
		ReturnQuery: query,
		Writable:    writable,
	}
	if err := h.templates.RenderPage(w, r, h.csrf, status, "pages/catalog.html", h.catalog.Title, vm); err != nil {
		h.logger.Error("render catalog", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, vm formViewModel) {
	title := "Nuevo " + strings.ToLower(h.catalog.Singular)
	if vm.Editing {
		title = "Editar " + strings.ToLower(h.catalog.Singular)
	}
	if err := h.templates.RenderPage(w, r, h.csrf, status, "pages/catalog_form.html", title, vm); err != nil {
		h.logger.Error("render catalog form", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	h.logger.Warn("catalog request failed", slog.Any("error", err))
	if rerr := h.templates.RenderError(w, r, httpx.StatusFor(err), shared.UserMessage(err, fallback)); rerr != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// returnTo restores the list filters a confirmation form was posted from.
func (h *Handler) returnTo(r *http.Request) listview.Filters {
	values, err := url.ParseQuery(strings.TrimSpace(r.PostFormValue("return")))
	if err != nil {
		return listview.DefaultFilters()
	}
	return listview.ParseFilters(values)
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
