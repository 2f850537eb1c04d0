package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/platform/httpx"
	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/internal/view"
)

// SessionForgetter drops per-session state kept outside the session store.
type SessionForgetter interface {
	ForgetSession(sessionID string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	credentials    *shared.Credentials
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	forget         []SessionForgetter
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, credentials *shared.Credentials, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, forget ...SessionForgetter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		credentials:    credentials,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      httpx.NewValidator(),
		forget:         forget,
	}
}

// MountRoutes registers auth routes on provided router. requireAuth guards
// the pages that need a signed-in user.
func (h *Handler) MountRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/auth/login", h.showLogin)
	r.With(httprate.LimitByIP(10, time.Minute)).Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Get(rbac.SessionExpiredPath, h.showSessionExpired)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/auth/password", h.showPassword)
		r.Post("/auth/password", h.handlePassword)
	})
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

type passwordForm struct {
	Current string `validate:"required"`
	New     string `validate:"required,min=8,nefield=Current"`
	Confirm string `validate:"required,eqfield=New"`
}

type passwordPageData struct {
	Errors map[string]string
}

var loginLabels = map[string]string{"Email": "El correo", "Password": "La contraseña"}

var passwordLabels = map[string]string{
	"Current": "La contraseña actual",
	"New":     "La nueva contraseña",
	"Confirm": "La confirmación",
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.credentials.Profile(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{Form: loginForm{}})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	errs := httpx.FieldErrors(h.validator.Struct(form), loginLabels)
	if len(errs) > 0 {
		h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Form: loginForm{Email: form.Email}, Errors: errs})
		return
	}

	profile, err := h.service.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		h.logger.Info("login failed", slog.String("email", form.Email), slog.Any("error", err))
		errs["general"] = shared.UserMessage(err, "")
		status := http.StatusBadRequest
		if !errors.Is(err, ErrInvalidCredentials) && httpx.StatusFor(err) >= http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		h.renderLogin(w, r, status, loginPageData{Form: loginForm{Email: form.Email}, Errors: errs})
		return
	}

	target := h.credentials.TakeRedirect(r.Context())
	if target == "" || target == rbac.LoginPath {
		target = "/"
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Bienvenido, " + profile.Name + "."})
	}
	h.logger.Info("login", slog.String("user", profile.ID), slog.String("role", profile.Role))
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		for _, f := range h.forget {
			f.ForgetSession(sess.ID)
		}
		h.service.Logout(r.Context())
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
}

func (h *Handler) showSessionExpired(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		for _, f := range h.forget {
			f.ForgetSession(sess.ID)
		}
	}
	h.service.Logout(r.Context())
	h.render(w, r, http.StatusOK, "pages/session_expired.html", "Sesión expirada", nil)
}

func (h *Handler) showPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/password.html", "Cambiar contraseña", passwordPageData{})
}

func (h *Handler) handlePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := passwordForm{
		Current: r.PostFormValue("current_password"),
		New:     r.PostFormValue("new_password"),
		Confirm: r.PostFormValue("confirm_password"),
	}
	errs := httpx.FieldErrors(h.validator.Struct(form), passwordLabels)
	if len(errs) > 0 {
		if _, ok := errs["New"]; ok && form.New != "" && form.New == form.Current {
			errs["New"] = "La nueva contraseña debe ser distinta de la actual."
		}
		h.render(w, r, http.StatusUnprocessableEntity, "pages/password.html", "Cambiar contraseña", passwordPageData{Errors: errs})
		return
	}
	if err := h.service.ChangePassword(r.Context(), form.Current, form.New); err != nil {
		if api.IsUnauthorized(err) {
			http.Redirect(w, r, rbac.SessionExpiredPath, http.StatusSeeOther)
			return
		}
		h.logger.Warn("change password", slog.Any("error", err))
		errs["general"] = shared.UserMessage(err, "No se pudo cambiar la contraseña.")
		h.render(w, r, httpx.StatusFor(err), "pages/password.html", "Cambiar contraseña", passwordPageData{Errors: errs})
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Contraseña actualizada."})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	h.render(w, r, status, "pages/login.html", "Iniciar sesión", data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	viewData := view.NewTemplateData(r, title, data)
	viewData.CSRFToken = csrfToken
	if sess != nil {
		viewData.Flash = sess.PopFlash()
	}
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.logger.Error("render auth page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
