package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"sync"
)

//go:embed report.html static
var content embed.FS

var (
	tmpl *template.Template
	once sync.Once
)

// Templates returns the parsed HTML templates for the public report view,
// embedded at build time.
func Templates() *template.Template {
	once.Do(func() {
		tmpl = template.Must(template.New("").Funcs(template.FuncMap{
			"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		}).ParseFS(content, "*.html"))
	})
	return tmpl
}

// StaticFS exposes the embedded static directory only, never the templates.
func StaticFS() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
