package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"root", "home", "playlists", "tracks", "error"}

// templates holds one template set per page, each combined with the base layout.
type templates map[string]*template.Template

func parseTemplates() (templates, error) {
	t := make(templates, len(pages))
	for _, page := range pages {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		t[page] = tmpl
	}
	return t, nil
}

// render executes page into a buffer first so a template error never leaves a half-written response.
func (t templates) render(w http.ResponseWriter, status int, page string, data any) error {
	tmpl, ok := t[page]
	if !ok {
		return fmt.Errorf("unknown template %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
