package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/statafdev/nomadnest-front/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const layoutName = "layout.html"

// Toast is a one-shot notification shown at the top of the next page
type Toast struct {
	Kind    string // success, error or info
	Message string
}

// Page is the data every template receives
type Page struct {
	Title   string
	Path    string
	Session *auth.SessionContext // nil when signed out
	CSRF    string
	Toasts  []Toast
	Data    any
}

// Renderer implements echo.Renderer with one template set per page, each
// combining layout.html with the page file
type Renderer struct {
	pages map[string]*template.Template
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

func funcs() template.FuncMap {
	return template.FuncMap{
		"markdown": func(src string) template.HTML {
			var buf bytes.Buffer
			if err := markdown.Convert([]byte(src), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(src))
			}
			return template.HTML(buf.String())
		},
		"price": func(v float64) string {
			if v == math.Trunc(v) {
				return "$" + strconv.FormatFloat(v, 'f', 0, 64)
			}
			return "$" + strconv.FormatFloat(v, 'f', 2, 64)
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format("Jan 2, 2006")
		},
		"datetime": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04")
		},
		"join":  strings.Join,
		"upper": strings.ToUpper,
		"initial": func(s string) string {
			s = strings.TrimSpace(s)
			if s == "" {
				return "?"
			}
			r, _ := utf8.DecodeRuneInString(s)
			return strings.ToUpper(string(r))
		},
		"deref": func(p *int) int {
			if p == nil {
				return 0
			}
			return *p
		},
	}
}

// NewRenderer parses every page template
func NewRenderer() (*Renderer, error) {
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, entry := range entries {
		name := entry.Name()
		if name == layoutName || !strings.HasSuffix(name, ".html") {
			continue
		}
		tpl, err := template.New(layoutName).Funcs(funcs()).ParseFS(templateFS,
			"templates/"+layoutName, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		r.pages[name] = tpl
	}
	return r, nil
}

// Render writes the named page
func (r *Renderer) Render(w io.Writer, name string, data any, c echo.Context) error {
	tpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	return tpl.ExecuteTemplate(w, layoutName, data)
}

// Static returns the embedded stylesheet directory
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
