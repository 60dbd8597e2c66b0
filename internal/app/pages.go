package app

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/guard"
)

//go:embed templates/*.html
var templateFS embed.FS

func parsePages() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

type pageData struct {
	Title   string
	View    goSession.View
	Landing string

	Error  string
	Notice string
	Email  string
	Next   string
}

func newPageData(title string, view goSession.View, routes guard.Routes) pageData {
	d := pageData{Title: title, View: view}
	if view.User != nil {
		d.Landing = routes.LandingFor(view.User.Role)
	}
	return d
}

func (h *handlers) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := h.pages.ExecuteTemplate(w, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "render page", slog.String("page", name), slog.Any("error", err))
	}
}
