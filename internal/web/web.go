package web

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const adminLayout = "templates/admin_layout.html"

// Standalone pages are parsed alone; the rest share the admin layout.
var (
	standalonePages = []string{"index", "login"}
	adminPages      = []string{"dashboard", "projects", "messages", "profile"}
)

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}

	for _, name := range standalonePages {
		t, err := template.New(name + ".html").Funcs(Funcs).ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}

	for _, name := range adminPages {
		t, err := template.New("admin_layout.html").Funcs(Funcs).ParseFS(templateFS, adminLayout, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}

	return r, nil
}

// Render writes page with status. The page is executed into a buffer first
// so a template error never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data interface{}) {
	t, ok := r.pages[page]
	if !ok {
		log.Printf("Unknown template %q", page)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		log.Printf("Failed to render %s: %v", page, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Static serves the embedded css and js under /assets/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))
}

var Funcs = template.FuncMap{
	"plain":     plain,
	"truncate":  truncate,
	"date":      func(t time.Time) string { return t.Local().Format("02/01/2006") },
	"datetime":  func(t time.Time) string { return t.Local().Format("02/01/2006 15:04") },
	"clock":     func(t time.Time) string { return t.Local().Format("15:04") },
	"nl2br":     nl2br,
	"pageRange": pageRange,
	"add":       func(a, b int) int { return a + b },
	"year":      func() int { return time.Now().Year() },
}

// plain undoes the HTML escaping applied when text was stored, so the
// template escapes it exactly once on output.
func plain(s string) string {
	return html.UnescapeString(s)
}

func truncate(s string, n int) string {
	s = plain(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

func nl2br(s string) template.HTML {
	escaped := template.HTMLEscapeString(plain(s))
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>\n"))
}

// pageRange lists the page numbers shown around current, two on each side.
func pageRange(current, total int) []int {
	lo, hi := current-2, current+2
	if lo < 1 {
		lo = 1
	}
	if hi > total {
		hi = total
	}
	var pages []int
	for i := lo; i <= hi; i++ {
		pages = append(pages, i)
	}
	return pages
}
