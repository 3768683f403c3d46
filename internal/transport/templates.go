package transport

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/rpggio/kinboard/internal/domain/notification"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	pageRegister      = "register"
	pageReport        = "report"
	pageNotifications = "notifications"
	pageLanguage      = "language"
)

var pageFiles = map[string]string{
	pageRegister:      "templates/index.html",
	pageReport:        "templates/report.html",
	pageNotifications: "templates/notifications.html",
	pageLanguage:      "templates/language.html",
}

type pageData struct {
	Title         string
	Active        string
	Lang          string
	Flash         *Flash
	PhotoRequired bool
	Entries       []notification.Entry
	Languages     []Language
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	pages := make(map[string]*template.Template, len(pageFiles))
	for name, file := range pageFiles {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		pages[name] = tmpl
	}
	return &renderer{pages: pages}, nil
}

func (rd *renderer) render(w http.ResponseWriter, r *http.Request, status int, data pageData) error {
	tmpl, ok := rd.pages[data.Active]
	if !ok {
		return fmt.Errorf("unknown page %q", data.Active)
	}
	data.Lang = LanguageFromContext(r.Context())
	if f, ok := FlashFromContext(r.Context()); ok {
		data.Flash = &f
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", data.Active, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
