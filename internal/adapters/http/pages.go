package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Pages holds one template set per page, each sharing the layout.
type Pages struct {
	sets map[string]*template.Template
}

func NewPages() (*Pages, error) {
	p := &Pages{sets: make(map[string]*template.Template)}

	for _, name := range []string{"login", "home", "register"} {
		set, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		p.sets[name] = set
	}

	return p, nil
}

// Render buffers the page so a template error never produces a half written
// response.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data any) error {
	set, ok := p.sets[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
