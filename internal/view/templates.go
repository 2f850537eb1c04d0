package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        *shared.Profile
	Nav         []rbac.NavItem
	Data        any
}

// NewTemplateData fills the request dependent fields: current path, the
// signed-in profile and the sidebar of its role.
func NewTemplateData(r *http.Request, title string, data any) TemplateData {
	td := TemplateData{Title: title, CurrentPath: r.URL.Path, Data: data}
	if profile, ok := shared.ProfileFromContext(r.Context()); ok {
		td.User = &profile
		td.Nav = rbac.Navigation(rbac.ParseRole(profile.Role), r.URL.Path)
	}
	return td
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(Funcs()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderPage fills the request dependent fields, the CSRF token and the
// pending flash, then renders name with status.
func (e *Engine) RenderPage(w http.ResponseWriter, r *http.Request, csrf *shared.CSRFManager, status int, name, title string, data any) error {
	sess := shared.SessionFromContext(r.Context())
	td := NewTemplateData(r, title, data)
	switch {
	case csrf != nil:
		td.CSRFToken, _ = csrf.EnsureToken(r.Context(), sess)
	case sess != nil:
		td.CSRFToken = sess.Get(shared.CSRFSessionKey)
	}
	if sess != nil {
		td.Flash = sess.PopFlash()
	}
	return e.RenderStatus(w, status, name, td)
}

// ErrorPage is the data of the error page.
type ErrorPage struct {
	Status  int
	Message string
}

// RenderError shows the error page with message.
func (e *Engine) RenderError(w http.ResponseWriter, r *http.Request, status int, message string) error {
	return e.RenderPage(w, r, nil, status, "pages/error.html", http.StatusText(status), ErrorPage{Status: status, Message: message})
}

// RenderStatus executes a template into a buffer and writes it with status.
// Nothing is written when execution fails.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
