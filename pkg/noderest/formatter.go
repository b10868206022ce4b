package noderest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Dependencies are the platform capabilities a Formatter reads through.
type Dependencies struct {
	Entities         EntityLoader
	FieldDefinitions FieldDefinitionProvider
	Aliases          AliasResolver
	Files            FileStore
	URLs             URLResolver
	Renderer         Renderer
	Metatags         MetatagManager
	TermFormatter    TermFormatter
}

func (d *Dependencies) validate() error {
	switch {
	case d.Entities == nil:
		return errors.New("entity loader is required")
	case d.FieldDefinitions == nil:
		return errors.New("field definition provider is required")
	case d.Aliases == nil:
		return errors.New("alias resolver is required")
	case d.Files == nil:
		return errors.New("file store is required")
	case d.Renderer == nil:
		return errors.New("renderer is required")
	}
	if d.URLs == nil {
		d.URLs = NewPassthroughURLResolver()
	}
	if d.Metatags == nil {
		d.Metatags = NewNoopMetatagManager()
	}
	if d.TermFormatter == nil {
		d.TermFormatter = DefaultTermFormatter
	}
	return nil
}

// Formatter flattens nodes of one content type into OutputRecords. Field
// definitions are loaded once when the Formatter is created.
type Formatter struct {
	config FormatterConfig
	defs   map[string]FieldDefinition
	deps   Dependencies
	media  *MediaRewriter
}

// NewFormatter validates the configuration and loads the field definitions
// of its content type.
func NewFormatter(ctx context.Context, deps Dependencies, config FormatterConfig) (*Formatter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	defs, err := deps.FieldDefinitions.FieldDefinitions(ctx, KindNode, config.ContentType)
	if err != nil {
		return nil, fmt.Errorf("load field definitions for %s: %w", config.ContentType, err)
	}
	if defs == nil {
		defs = make(map[string]FieldDefinition)
	}
	for name, def := range BaseFieldDefinitions() {
		if _, ok := defs[name]; !ok {
			defs[name] = def
		}
	}

	return &Formatter{
		config: config,
		defs:   defs,
		deps:   deps,
		media:  NewMediaRewriter(deps.Files, deps.URLs),
	}, nil
}

// Config returns the configuration the Formatter was built with.
func (f *Formatter) Config() FormatterConfig {
	return f.config
}

// FormatMany formats every node in ids, preserving order. The first failure
// aborts the batch.
func (f *Formatter) FormatMany(ctx context.Context, ids []int64) ([]*OutputRecord, error) {
	records := make([]*OutputRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := f.FormatOne(ctx, id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// FormatOne loads a node and flattens it. A node that disappeared after the
// query ran yields a record with nid, path and an empty string for every
// configured field.
func (f *Formatter) FormatOne(ctx context.Context, id int64) (*OutputRecord, error) {
	rec := NewOutputRecord()
	rec.Set(KeyNID, fmt.Sprintf("%d", id))

	path, err := f.aliasPath(ctx, id)
	if err != nil {
		return nil, &NodeError{NodeID: id, Op: "alias", Err: err}
	}
	rec.Set(KeyPath, path)

	node, err := f.deps.Entities.LoadEntity(ctx, KindNode, id)
	if errors.Is(err, ErrEntityNotFound) {
		slog.Warn("Node vanished before formatting", "nid", id)
		for _, name := range f.config.Fields {
			rec.Set(name, "")
		}
		return rec, nil
	}
	if err != nil {
		return nil, &NodeError{NodeID: id, Op: "load", Err: err}
	}

	for _, name := range f.config.Fields {
		value, err := f.formatField(ctx, name, node)
		if err != nil {
			return nil, &NodeError{NodeID: id, Op: "format", Err: err}
		}
		rec.Set(name, value)
	}

	if err := f.appendMetatags(ctx, node, rec); err != nil {
		return nil, &NodeError{NodeID: id, Op: "metatags", Err: err}
	}

	return rec, nil
}

func (f *Formatter) aliasPath(ctx context.Context, id int64) (string, error) {
	alias, err := f.deps.Aliases.AliasByPath(ctx, NodePath(id))
	if err != nil {
		return "", err
	}
	return EncodeAliasPath(alias), nil
}

func (f *Formatter) formatField(ctx context.Context, name string, node *Entity) (any, error) {
	def, ok := f.defs[name]
	if !ok {
		return nil, &FieldError{Field: name, Err: ErrUnknownField}
	}

	var (
		value any
		err   error
	)
	switch def.Kind {
	case FieldKindEntityReference, FieldKindEntityReferenceRevisions:
		value, err = f.formatEntityReference(ctx, def, node)
	case FieldKindImage:
		value, err = f.formatImage(ctx, def, node)
	case FieldKindLink:
		value = formatLink(node.Get(def.Name))
	case FieldKindScalar, FieldKindRichText:
		value, err = f.cleanText(ctx, node.Value(def.Name))
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownFieldType, def.Kind)
	}
	if err != nil {
		return nil, &FieldError{Field: name, Err: err}
	}
	return value, nil
}

// cleanText rewrites media placeholders and strips editor noise.
func (f *Formatter) cleanText(ctx context.Context, text string) (string, error) {
	text, err := f.media.Rewrite(ctx, text)
	if err != nil {
		return "", err
	}
	return StripNoise(text), nil
}

func (f *Formatter) formatImage(ctx context.Context, def FieldDefinition, node *Entity) (string, error) {
	items := node.Get(def.Name)
	if len(items) == 0 || items[0].TargetID == 0 {
		return "", nil
	}

	file, err := f.deps.Files.LoadFile(ctx, items[0].TargetID)
	if errors.Is(err, ErrFileNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	url, err := f.deps.URLs.PublicURL(ctx, file.URI)
	if errors.Is(err, ErrFileNotFound) {
		return "", nil
	}
	return url, err
}

func formatLink(items []FieldItem) []LinkValue {
	links := make([]LinkValue, 0, len(items))
	for _, item := range items {
		opts := item.Options
		if opts == nil {
			opts = map[string]any{}
		}
		links = append(links, LinkValue{URI: item.URI, Title: item.Title, Options: opts})
	}
	return links
}

// appendMetatags adds one meta_<name> key per generated element that carries
// its value attribute: href for canonical_url, content for everything else.
func (f *Formatter) appendMetatags(ctx context.Context, node *Entity, rec *OutputRecord) error {
	tags, err := f.deps.Metatags.DefaultTags(ctx, node)
	if err != nil {
		return err
	}
	elements, err := f.deps.Metatags.GenerateRawElements(ctx, tags, node)
	if err != nil {
		return err
	}

	for _, el := range elements {
		attr := "content"
		if el.Name == "canonical_url" {
			attr = "href"
		}
		if v, ok := el.Attributes[attr]; ok {
			rec.Set(MetaPrefix+el.Name, v)
		}
	}
	return nil
}
