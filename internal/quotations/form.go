package quotations

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/platform/httpx"
	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/internal/view"
)

type quotationForm struct {
	ClientID   string `validate:"required"`
	ValidUntil string `validate:"omitempty,datetime=2006-01-02"`
	Notes      string `validate:"max=500"`
}

type lineForm struct {
	ProductID     string            `validate:"required"`
	Quantity      float64           `validate:"gt=0"`
	UnitPrice     float64           `validate:"gte=0"`
	QuantityText  string            `validate:"-"`
	UnitPriceText string            `validate:"-"`
	Errors        map[string]string `validate:"-"`
}

type formViewModel struct {
	Action   string
	Editing  bool
	Form     quotationForm
	Lines    []lineForm
	Options  FormOptions
	Errors   map[string]string
	Subtotal float64
	Tax      float64
	Total    float64
}

var formLabels = map[string]string{
	"ClientID":   "El cliente",
	"ValidUntil": "La fecha de validez",
	"Notes":      "Las notas",
	"ProductID":  "El producto",
	"Quantity":   "La cantidad",
	"UnitPrice":  "El precio unitario",
}

func (h *Handler) showCreate(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Options(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderForm(w, r, http.StatusOK, formViewModel{Action: basePath, Options: opts, Lines: padLines(nil)})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	quote, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !quote.Editable() {
		h.redirectWithFlash(w, r, detailPath(id), "error", shared.UserMessage(ErrLocked, ""))
		return
	}
	opts, err := h.service.Options(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lines := make([]lineForm, 0, len(quote.Items))
	for _, item := range quote.Items {
		lines = append(lines, lineForm{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			QuantityText:  view.FormatAmount(item.Quantity),
			UnitPriceText: view.FormatAmount(item.UnitPrice),
		})
	}
	form := quotationForm{ClientID: quote.ClientID, Notes: quote.Notes}
	if quote.ValidUntil != nil {
		form.ValidUntil = quote.ValidUntil.Format("2006-01-02")
	}
	h.renderForm(w, r, http.StatusOK, formViewModel{
		Action:  detailPath(id) + "/edit",
		Editing: true,
		Form:    form,
		Lines:   padLines(lines),
		Options: opts,
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"))
}

// save handles create when id is empty and update otherwise.
func (h *Handler) save(w http.ResponseWriter, r *http.Request, id string) {
	opts, err := h.service.Options(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	vm := formViewModel{Action: basePath, Options: opts}
	if id != "" {
		vm.Action = detailPath(id) + "/edit"
		vm.Editing = true
	}
	in, ok := h.parseForm(r, &vm)
	if !ok {
		vm.Lines = padLines(vm.Lines)
		h.renderForm(w, r, http.StatusUnprocessableEntity, vm)
		return
	}

	var quote Quotation
	if id == "" {
		quote, err = h.service.Create(r.Context(), in)
	} else {
		quote, err = h.service.Update(r.Context(), id, in)
	}
	if api.IsUnauthorized(err) {
		http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.logger.Warn("save quotation", slog.String("id", id), slog.Any("error", err))
		vm.Errors = map[string]string{"general": shared.UserMessage(err, "No se pudo guardar la cotización.")}
		vm.Lines = padLines(vm.Lines)
		h.renderForm(w, r, httpx.StatusFor(err), vm)
		return
	}
	if quote.ID == "" {
		quote.ID = id
	}
	message := "Cotización creada."
	if id != "" {
		message = "Cotización actualizada."
	}
	target := basePath
	if quote.ID != "" {
		target = detailPath(quote.ID)
	}
	h.redirectWithFlash(w, r, target, "success", message)
}

// parseForm reads the header fields and the product lines. Lines left
// completely blank are ignored; a blank unit price takes the catalog price.
func (h *Handler) parseForm(r *http.Request, vm *formViewModel) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		vm.Errors = map[string]string{"general": "Formulario inválido."}
		return Input{}, false
	}
	vm.Form = quotationForm{
		ClientID:   strings.TrimSpace(r.PostFormValue("client_id")),
		ValidUntil: strings.TrimSpace(r.PostFormValue("valid_until")),
		Notes:      strings.TrimSpace(r.PostFormValue("notes")),
	}
	vm.Errors = httpx.FieldErrors(h.validator.Struct(vm.Form), formLabels)

	prices := make(map[string]float64, len(vm.Options.Products))
	for _, p := range vm.Options.Products {
		prices[p.ID] = p.Price
	}
	products := r.PostForm["product_id"]
	quantities := r.PostForm["quantity"]
	unitPrices := r.PostForm["unit_price"]
	valid := len(vm.Errors) == 0
	in := Input{ClientID: vm.Form.ClientID, ValidUntil: vm.Form.ValidUntil, Notes: vm.Form.Notes}
	for i := range products {
		line := lineForm{
			ProductID:     strings.TrimSpace(products[i]),
			QuantityText:  strings.TrimSpace(at(quantities, i)),
			UnitPriceText: strings.TrimSpace(at(unitPrices, i)),
		}
		if line.ProductID == "" && line.QuantityText == "" && line.UnitPriceText == "" {
			continue
		}
		line.Errors = h.parseLine(&line, prices)
		if len(line.Errors) > 0 {
			valid = false
		}
		vm.Lines = append(vm.Lines, line)
		in.Items = append(in.Items, LineInput{ProductID: line.ProductID, Quantity: line.Quantity, UnitPrice: line.UnitPrice})
	}
	if len(vm.Lines) == 0 {
		vm.Errors["Lines"] = "Agrega al menos un producto."
		valid = false
	}
	vm.Subtotal, vm.Tax, vm.Total = Totals(in.Items)
	return in, valid
}

func (h *Handler) parseLine(line *lineForm, prices map[string]float64) map[string]string {
	errs := make(map[string]string)
	if line.QuantityText != "" {
		q, err := view.ParseAmount(line.QuantityText)
		if err != nil {
			errs["Quantity"] = formLabels["Quantity"] + " debe ser un número."
		}
		line.Quantity = q
	}
	if line.UnitPriceText == "" {
		if price, ok := prices[line.ProductID]; ok {
			line.UnitPrice = price
			line.UnitPriceText = view.FormatAmount(price)
		}
	} else {
		p, err := view.ParseAmount(line.UnitPriceText)
		if err != nil {
			errs["UnitPrice"] = formLabels["UnitPrice"] + " debe ser un número."
		}
		line.UnitPrice = p
	}
	if line.ProductID != "" {
		if _, ok := prices[line.ProductID]; !ok {
			errs["ProductID"] = formLabels["ProductID"] + " no existe en el catálogo."
		}
	}
	for field, msg := range httpx.FieldErrors(h.validator.Struct(*line), formLabels) {
		if _, taken := errs[field]; !taken {
			errs[field] = msg
		}
	}
	return errs
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, code int, vm formViewModel) {
	title := "Nueva cotización"
	if vm.Editing {
		title = "Editar cotización"
	}
	if err := h.templates.RenderPage(w, r, h.csrf, code, "pages/quotation_form.html", title, vm); err != nil {
		h.logger.Error("render quotation form", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// padLines appends empty rows so the form always offers room for new products.
func padLines(lines []lineForm) []lineForm {
	for range blankLines {
		lines = append(lines, lineForm{})
	}
	return lines
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
