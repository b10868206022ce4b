package noderest

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ViewModeFull is the view mode referenced entities are rendered in.
const ViewModeFull = "full"

// formatEntityReference flattens a reference field. Taxonomy terms collapse
// into a comma-joined string; any other entity is rendered and cleaned. When
// at least one non-term entity is present the rendered list is returned and
// the term string is dropped.
func (f *Formatter) formatEntityReference(ctx context.Context, def FieldDefinition, node *Entity) (any, error) {
	var terms []string
	var rendered []string

	for _, item := range node.Get(def.Name) {
		if item.TargetID == 0 {
			continue
		}
		kind := item.TargetKind
		if kind == "" {
			kind = def.TargetKind
		}

		entity, err := f.deps.Entities.LoadEntity(ctx, kind, item.TargetID)
		if errors.Is(err, ErrEntityNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s %d: %w", kind, item.TargetID, err)
		}

		if entity.Kind == KindTaxonomyTerm {
			terms = append(terms, f.deps.TermFormatter(entity))
			continue
		}

		markup, err := f.deps.Renderer.View(ctx, entity, ViewModeFull)
		if err != nil {
			return nil, fmt.Errorf("render %s %d: %w", entity.Kind, entity.ID, err)
		}
		markup, err = f.cleanText(ctx, markup)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, markup)
	}

	if len(rendered) > 0 {
		return rendered, nil
	}
	return strings.Join(terms, ","), nil
}
