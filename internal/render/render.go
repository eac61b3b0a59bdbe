// Package render turns card data and page models into HTML.
//
// Templates and static assets are embedded in the binary. Every render goes
// to a buffer first: a template failure never leaves a half-written document
// behind, neither on disk nor on the wire.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/sakif/business-cards/internal/apperror"
	"github.com/sakif/business-cards/internal/card"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names.
const (
	PageCreateCard = "create-card"
	PageCardViewer = "card-viewer"
	PageError      = "error"
)

// Page is the model shared by all service pages.
type Page struct {
	Title   string
	Mode    string
	CardID  string
	Email   string
	Message string
	Errors  []apperror.FieldError
}

// Renderer holds the parsed templates. It is safe for concurrent use.
type Renderer struct {
	pages map[string]*template.Template
	card  *template.Template
}

// New parses every embedded template.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}

	for _, name := range []string{PageCreateCard, PageCardViewer, PageError} {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("render: parsing %s page: %w", name, err)
		}
		r.pages[name] = tmpl
	}

	tmpl, err := template.ParseFS(templateFS, "templates/card.html")
	if err != nil {
		return nil, fmt.Errorf("render: parsing card template: %w", err)
	}
	r.card = tmpl

	return r, nil
}

// Card renders the self-contained card document.
func (r *Renderer) Card(d card.Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.card.Execute(&buf, d); err != nil {
		return nil, apperror.RenderFailed("Error rendering card", err)
	}
	return buf.Bytes(), nil
}

// Page renders one of the service pages.
func (r *Renderer) Page(name string, p Page) ([]byte, error) {
	tmpl, ok := r.pages[name]
	if !ok {
		return nil, apperror.RenderFailed("Error rendering page", fmt.Errorf("unknown page %q", name))
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", p); err != nil {
		return nil, apperror.RenderFailed("Error rendering page", err)
	}
	return buf.Bytes(), nil
}

// Static is the file system served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	return sub
}
