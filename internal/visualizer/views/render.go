package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
)

//go:embed templates
var viewsFS embed.FS

var pageTmpl *template.Template

func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	pageTmpl = tmpl
	return nil
}

// LoadTemplates parses the embedded templates. Call it before serving.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

type PageData struct {
	Device       string
	Variable     string
	Chart        Chart
	Start, End   int
	Total        int
	Pinned       bool
	Last         *Sample
	RefreshEvery int // seconds
	Error        string
}

func RenderPage(w io.Writer, data *PageData) error {
	if pageTmpl == nil {
		return errors.New("page template not loaded: call views.LoadTemplates during startup")
	}
	return pageTmpl.ExecuteTemplate(w, "index.html", data)
}
