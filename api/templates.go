package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"
)

//go:embed ui
var uiFS embed.FS

type templateData struct {
	Flashes     []flash
	Task        *task
	Tasks       []task
	Subscriber  *subscriber
	Subscribers []subscriber
	AIEnabled   bool
}

// stamp accepts time.Time and *time.Time so templates can pass optional fields directly.
func stamp(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return formatStamp(t)
	case *time.Time:
		if t == nil {
			return ""
		}
		return formatStamp(*t)
	}
	return ""
}

func inputTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(reminderLayout)
}

var templateFuncs = template.FuncMap{
	"stamp":     stamp,
	"inputTime": inputTime,
}

func newTemplateCache() (map[string]*template.Template, error) {
	cache := map[string]*template.Template{}

	pages, err := fs.Glob(uiFS, "ui/html/pages/*.tmpl")
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		name := filepath.Base(page)
		ts, err := template.New(name).Funcs(templateFuncs).ParseFS(uiFS, "ui/html/base.tmpl", page)
		if err != nil {
			return nil, err
		}
		cache[name] = ts
	}
	return cache, nil
}

func (app *application) newTemplateData(w http.ResponseWriter, r *http.Request) *templateData {
	return &templateData{
		Flashes:   app.popFlashes(w, r),
		AIEnabled: app.ai != nil,
	}
}

// render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data *templateData) {
	ts, ok := app.templates[page]
	if !ok {
		app.serverError(w, r, fmt.Errorf("the template %s does not exist", page))
		return
	}
	var buf bytes.Buffer
	err := ts.ExecuteTemplate(&buf, "base", data)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
