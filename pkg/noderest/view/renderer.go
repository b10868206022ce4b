// Package view renders entities to HTML with html/template. Templates are
// selected by entity kind, bundle and view mode, falling back to a generic
// field listing.
package view

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"

	"github.com/tendant/node-rest-api/pkg/noderest"
)

const defaultTemplate = `<div class="{{.Kind}} {{.Kind}}--type-{{.Bundle}} {{.Kind}}--view-mode-{{.ViewMode}}">` +
	`{{range .Fields}}<div class="field field--name-{{.Name}}">` +
	`{{range .Items}}<div class="field__item">{{.}}</div>{{end}}` +
	`</div>{{end}}</div>`

// Data is passed to templates.
type Data struct {
	Kind     noderest.EntityKind
	ID       int64
	Bundle   string
	Label    string
	ViewMode string
	Fields   []FieldData
	Entity   *noderest.Entity
}

// FieldData is one field prepared for output. Items carrying a text format
// are trusted markup; everything else is escaped by the template.
type FieldData struct {
	Name  string
	Items []any
}

// TemplateRenderer implements noderest.Renderer.
type TemplateRenderer struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
	fallback  *template.Template
}

// New creates a renderer with only the generic fallback template.
func New() *TemplateRenderer {
	return &TemplateRenderer{
		templates: make(map[string]*template.Template),
		fallback:  template.Must(template.New("default").Parse(defaultTemplate)),
	}
}

// Register parses a template for a kind, bundle and view mode. An empty
// bundle matches every bundle of the kind.
func (r *TemplateRenderer) Register(kind noderest.EntityKind, bundle, viewMode, text string) error {
	key := templateKey(kind, bundle, viewMode)
	t, err := template.New(key).Parse(text)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[key] = t
	return nil
}

// View renders the entity.
func (r *TemplateRenderer) View(ctx context.Context, entity *noderest.Entity, viewMode string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := r.lookup(entity.Kind, entity.Bundle, viewMode).Execute(&buf, newData(entity, viewMode)); err != nil {
		return "", fmt.Errorf("render %s %d: %w", entity.Kind, entity.ID, err)
	}
	return buf.String(), nil
}

func (r *TemplateRenderer) lookup(kind noderest.EntityKind, bundle, viewMode string) *template.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range []string{
		templateKey(kind, bundle, viewMode),
		templateKey(kind, "", viewMode),
	} {
		if t, ok := r.templates[key]; ok {
			return t
		}
	}
	return r.fallback
}

func templateKey(kind noderest.EntityKind, bundle, viewMode string) string {
	return fmt.Sprintf("%s.%s.%s", kind, bundle, viewMode)
}

func newData(e *noderest.Entity, viewMode string) Data {
	d := Data{
		Kind:     e.Kind,
		ID:       e.ID,
		Bundle:   e.Bundle,
		Label:    e.Label,
		ViewMode: viewMode,
		Entity:   e,
	}
	for _, f := range e.Fields {
		fd := FieldData{Name: f.Name}
		for _, item := range f.Items {
			fd.Items = append(fd.Items, itemOutput(item))
		}
		if len(fd.Items) > 0 {
			d.Fields = append(d.Fields, fd)
		}
	}
	return d
}

func itemOutput(item noderest.FieldItem) any {
	switch {
	case item.Format != "":
		return template.HTML(item.Value)
	case item.URI != "":
		title := item.Title
		if title == "" {
			title = item.URI
		}
		return template.HTML(fmt.Sprintf(`<a href="%s">%s</a>`,
			template.HTMLEscapeString(item.URI), template.HTMLEscapeString(title)))
	case item.Value != "":
		return item.Value
	case item.TargetID != 0:
		return fmt.Sprintf("%s:%d", item.TargetKind, item.TargetID)
	default:
		return ""
	}
}
