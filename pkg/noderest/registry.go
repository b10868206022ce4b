package noderest

import (
	"fmt"
	"sort"
)

// FormatterConfig selects the fields emitted for one content type, in order.
type FormatterConfig struct {
	ContentType string
	Fields      []string
}

// Validate checks that the configuration names a content type and a list of
// distinct, non-reserved fields.
func (c FormatterConfig) Validate() error {
	if c.ContentType == "" {
		return fmt.Errorf("%w: content type is required", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Fields))
	for _, name := range c.Fields {
		switch {
		case name == "":
			return fmt.Errorf("%w: %s: empty field name", ErrInvalidConfig, c.ContentType)
		case name == KeyNID || name == KeyPath:
			return fmt.Errorf("%w: %s: field %q is reserved", ErrInvalidConfig, c.ContentType, name)
		case seen[name]:
			return fmt.Errorf("%w: %s: field %q listed twice", ErrInvalidConfig, c.ContentType, name)
		}
		seen[name] = true
	}
	return nil
}

// Registry maps content types to their formatter configuration.
type Registry struct {
	configs map[string]FormatterConfig
}

// NewRegistry validates and registers the given configurations.
func NewRegistry(configs ...FormatterConfig) (*Registry, error) {
	r := &Registry{configs: make(map[string]FormatterConfig, len(configs))}
	for _, c := range configs {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces the configuration of a content type.
func (r *Registry) Register(c FormatterConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}
	fields := make([]string, len(c.Fields))
	copy(fields, c.Fields)
	r.configs[c.ContentType] = FormatterConfig{ContentType: c.ContentType, Fields: fields}
	return nil
}

// Lookup returns the configuration of a content type.
func (r *Registry) Lookup(contentType string) (FormatterConfig, bool) {
	c, ok := r.configs[contentType]
	return c, ok
}

// ContentTypes returns the registered content types, sorted.
func (r *Registry) ContentTypes() []string {
	out := make([]string, 0, len(r.configs))
	for name := range r.configs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultFormatterConfigs are used when no content types are configured.
func DefaultFormatterConfigs() []FormatterConfig {
	return []FormatterConfig{
		{ContentType: "article", Fields: []string{"title", "body", "field_tags", "field_image"}},
		{ContentType: "page", Fields: []string{"title", "body"}},
	}
}
