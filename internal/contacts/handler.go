package contacts

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

const detailTransactions = 10

// Handler serves the pages of one contact directory.
type Handler struct {
	logger    *slog.Logger
	dir       Directory
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a directory handler.
func NewHandler(logger *slog.Logger, dir Directory, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger.With(slog.String("directory", dir.Path)),
		dir:       dir,
		service:   service,
		templates: templates,
		csrf:      csrf,
		rbac:      rbac,
		validator: httpx.NewValidator(),
	}
}

// MountRoutes registers the directory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	base := h.dir.Path
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(h.dir.Section))
		r.Get(base, h.handleList)
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireWrite(h.dir.Section))
			r.Get(base+"/new", h.showCreate)
			r.Post(base, h.handleCreate)
			r.Get(base+"/{id}/edit", h.showEdit)
			r.Post(base+"/{id}/edit", h.handleUpdate)
			r.Post(base+"/{id}/delete", h.handleDelete)
		})
		r.Get(base+"/{id}", h.showDetail)
	})
}

type rowViewModel struct {
	Contact
	DetailLink string
	EditLink   string
	DeleteLink string
}

type listViewModel struct {
	Directory   Directory
	Filters     listview.Filters
	Rows        []rowViewModel
	Error       string
	Columns     []view.Column
	Pager       view.Pager
	Modal       listview.Modal
	Target      *Contact
	CloseLink   string
	NewLink     string
	ReturnQuery string
	Writable    bool
}

type detailViewModel struct {
	Directory Directory
	Detail
	EditLink string
}

type contactForm struct {
	Name    string `validate:"required,max=120"`
	TaxID   string `validate:"max=20"`
	Email   string `validate:"omitempty,email,max=120"`
	Phone   string `validate:"max=30"`
	Address string `validate:"max=200"`
	Notes   string `validate:"max=500"`
}

type formViewModel struct {
	Directory Directory
	Action    string
	Editing   bool
	Form      contactForm
	Errors    map[string]string
}

var formLabels = map[string]string{
	"Name":    "El nombre",
	"TaxID":   "El RUT",
	"Email":   "El correo",
	"Phone":   "El teléfono",
	"Address": "La dirección",
	"Notes":   "Las notas",
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
		h.logger.Warn("load contacts", slog.Any("error", err))
	}
	modal := listview.ModalFromQuery(q)
	if modal.Kind != listview.ModalDelete {
		modal = listview.Modal{}
	}
	h.renderList(w, r, http.StatusOK, state, modal)
}

func (h *Handler) showDetail(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Detail(r.Context(), chi.URLParam(r, "id"), detailTransactions)
	if err != nil {
		h.fail(w, r, err, "No se encontró el "+strings.ToLower(h.dir.Singular)+".")
		return
	}
	vm := detailViewModel{Directory: h.dir, Detail: d}
	if rbac.Writable(r, h.dir.Section) {
		vm.EditLink = h.dir.Path + "/" + url.PathEscape(d.Contact.ID) + "/edit"
	}
	if err := h.templates.RenderPage(w, r, h.csrf, http.StatusOK, "pages/contact_detail.html", d.Contact.Name, vm); err != nil {
		h.logger.Error("render contact", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
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
	back := returnFilters(r)
	if err != nil {
		h.logger.Warn("delete contact", slog.String("id", id), slog.Any("error", err))
		query := h.service.Query(sess.ID)
		state := query.State()
		if state.Seq == 0 {
			state, _ = query.SetFilters(r.Context(), back)
		}
		h.renderList(w, r, http.StatusUnprocessableEntity, state, modal)
		return
	}
	h.redirectWithFlash(w, r, h.dir.Path+"?"+back.Query(), "success", h.dir.Singular+" eliminado.")
}

func (h *Handler) showCreate(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, formViewModel{Directory: h.dir, Action: h.dir.Path})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	form, errs := h.parseForm(r)
	vm := formViewModel{Directory: h.dir, Action: h.dir.Path, Form: form, Errors: errs}
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, vm)
		return
	}
	c, err := h.service.Create(r.Context(), form.input())
	if err != nil {
		h.formFailed(w, r, vm, err)
		return
	}
	h.redirectWithFlash(w, r, h.dir.Path+"/"+url.PathEscape(c.ID), "success", h.dir.Singular+" creado.")
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "No se encontró el "+strings.ToLower(h.dir.Singular)+".")
		return
	}
	h.renderForm(w, r, http.StatusOK, formViewModel{
		Directory: h.dir,
		Action:    h.dir.Path + "/" + url.PathEscape(id) + "/edit",
		Editing:   true,
		Form: contactForm{
			Name:    c.Name,
			TaxID:   c.TaxID,
			Email:   c.Email,
			Phone:   c.Phone,
			Address: c.Address,
			Notes:   c.Notes,
		},
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, errs := h.parseForm(r)
	vm := formViewModel{
		Directory: h.dir,
		Action:    h.dir.Path + "/" + url.PathEscape(id) + "/edit",
		Editing:   true,
		Form:      form,
		Errors:    errs,
	}
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, vm)
		return
	}
	if _, err := h.service.Update(r.Context(), id, form.input()); err != nil {
		h.formFailed(w, r, vm, err)
		return
	}
	h.redirectWithFlash(w, r, h.dir.Path+"/"+url.PathEscape(id), "success", h.dir.Singular+" actualizado.")
}

func (h *Handler) parseForm(r *http.Request) (contactForm, map[string]string) {
	if err := r.ParseForm(); err != nil {
		return contactForm{}, map[string]string{"general": "Formulario inválido."}
	}
	form := contactForm{
		Name:    strings.TrimSpace(r.PostFormValue("name")),
		TaxID:   strings.TrimSpace(r.PostFormValue("tax_id")),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
		Phone:   strings.TrimSpace(r.PostFormValue("phone")),
		Address: strings.TrimSpace(r.PostFormValue("address")),
		Notes:   strings.TrimSpace(r.PostFormValue("notes")),
	}
	return form, httpx.FieldErrors(h.validator.Struct(form), formLabels)
}

func (f contactForm) input() Input {
	return Input{Name: f.Name, TaxID: f.TaxID, Email: f.Email, Phone: f.Phone, Address: f.Address, Notes: f.Notes}
}

func (h *Handler) formFailed(w http.ResponseWriter, r *http.Request, vm formViewModel, err error) {
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	h.logger.Warn("save contact", slog.Any("error", err))
	if vm.Errors == nil {
		vm.Errors = make(map[string]string)
	}
	vm.Errors["general"] = shared.UserMessage(err, "No se pudo guardar el "+strings.ToLower(h.dir.Singular)+".")
	h.renderForm(w, r, httpx.StatusFor(err), vm)
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, status int, state listview.State[Contact], modal listview.Modal) {
	f := state.Filters
	base := h.dir.Path
	query := f.Query()
	writable := rbac.Writable(r, h.dir.Section)
	rows := make([]rowViewModel, 0, len(state.Rows))
	var target *Contact
	for _, c := range state.Rows {
		row := rowViewModel{Contact: c, DetailLink: base + "/" + url.PathEscape(c.ID)}
		if writable {
			row.EditLink = row.DetailLink + "/edit"
			row.DeleteLink = base + "?" + query + "&modal=delete&id=" + url.QueryEscape(c.ID)
		}
		if modal.TargetID == c.ID {
			target = &c
		}
		rows = append(rows, row)
	}
	vm := listViewModel{
		Directory: h.dir,
		Filters:   f,
		Rows:      rows,
		Error:     state.Err,
		Columns: view.SortColumns(base, f,
			view.Column{Key: "name", Label: "Nombre"},
			view.Column{Key: "taxId", Label: "RUT"},
			view.Column{Key: "email", Label: "Correo"},
			view.Column{Key: "phone", Label: "Teléfono"},
		),
		Pager:       view.NewPager(base, f, state.Pagination, listview.LogWindowRadius),
		Modal:       modal,
		Target:      target,
		CloseLink:   base + "?" + query,
		NewLink:     base + "/new",
		ReturnQuery: query,
		Writable:    writable,
	}
	if err := h.templates.RenderPage(w, r, h.csrf, status, "pages/contacts.html", h.dir.Title, vm); err != nil {
		h.logger.Error("render contacts", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, vm formViewModel) {
	title := "Nuevo " + strings.ToLower(h.dir.Singular)
	if vm.Editing {
		title = "Editar " + strings.ToLower(h.dir.Singular)
	}
	if err := h.templates.RenderPage(w, r, h.csrf, status, "pages/contact_form.html", title, vm); err != nil {
		h.logger.Error("render contact form", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	h.logger.Warn("contact request failed", slog.Any("error", err))
	if rerr := h.templates.RenderError(w, r, httpx.StatusFor(err), shared.UserMessage(err, fallback)); rerr != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// returnFilters restores the list filters a confirmation form was posted from.
func returnFilters(r *http.Request) listview.Filters {
	values, err := url.ParseQuery(strings.TrimSpace(r.PostFormValue("return")))
	if err != nil {
		return listview.DefaultFilters()
	}
	return listview.ParseFilters(values)
}
