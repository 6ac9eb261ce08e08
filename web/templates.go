package web

import (
	"embed"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"image": func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	},
	"when": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
}).ParseFS(templateFS, "templates/*.html"))
