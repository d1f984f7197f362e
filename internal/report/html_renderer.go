package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"vinreport-workers/internal/models"
)

// HTMLRenderer renders html/template files from a templates directory.
// Parsed templates are cached by reference.
type HTMLRenderer struct {
	dir string
	now func() time.Time

	mu    sync.Mutex
	cache map[string]*template.Template
}

func NewHTMLRenderer(templatesDir string) *HTMLRenderer {
	return &HTMLRenderer{
		dir:   templatesDir,
		now:   time.Now,
		cache: make(map[string]*template.Template),
	}
}

// templateData is the root object templates execute against.
type templateData struct {
	Doc          map[string]interface{}
	Sub          map[string][]interface{}
	HistoryFound bool
	Locale       string
	GeneratedAt  string
}

func (r *HTMLRenderer) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tmpl, err := r.load(req.TemplateRef)
	if err != nil {
		return nil, err
	}

	locale := req.Locale
	if locale == "" {
		locale = DefaultLocale
	}
	data := templateData{
		Sub:         req.SubDatasets,
		Locale:      locale,
		GeneratedAt: r.now().Format("02.01.2006 15:04"),
	}
	if req.Document != nil {
		data.Doc = req.Document.Root
		data.HistoryFound = req.Document.HistoryFound
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", req.TemplateRef, err)
	}
	return buf.Bytes(), nil
}

func (r *HTMLRenderer) load(ref string) (*template.Template, error) {
	if ref == "" || strings.ContainsAny(ref, `/\`) || ref == "." || ref == ".." {
		return nil, fmt.Errorf("invalid template reference %q", ref)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.cache[ref]; ok {
		return t, nil
	}
	t, err := template.New(ref).Funcs(templateFuncs).ParseFiles(filepath.Join(r.dir, ref))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", ref, err)
	}
	r.cache[ref] = t
	return t, nil
}

var templateFuncs = template.FuncMap{
	"field": func(root interface{}, path string) interface{} {
		obj, ok := root.(map[string]interface{})
		if !ok {
			return nil
		}
		v, _ := (&models.Document{Root: obj}).Lookup(path)
		return v
	},
	"orDash": func(v interface{}) interface{} {
		if v == nil || v == "" {
			return "-"
		}
		return v
	},
}
