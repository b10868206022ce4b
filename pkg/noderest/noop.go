package noderest

import (
	"context"
	"strings"
)

// NoopMetatagManager produces no metatags.
type NoopMetatagManager struct{}

// NewNoopMetatagManager creates a metatag manager that never emits tags
func NewNoopMetatagManager() MetatagManager {
	return &NoopMetatagManager{}
}

// DefaultTags returns an empty tag set
func (n *NoopMetatagManager) DefaultTags(ctx context.Context, node *Entity) (TagSet, error) {
	return TagSet{}, nil
}

// GenerateRawElements returns no elements
func (n *NoopMetatagManager) GenerateRawElements(ctx context.Context, tags TagSet, node *Entity) ([]RawElement, error) {
	return nil, nil
}

// PassthroughURLResolver returns absolute URLs unchanged and strips the
// stream wrapper from anything else, yielding a root-relative path.
type PassthroughURLResolver struct{}

// NewPassthroughURLResolver creates a URL resolver for setups without file hosting
func NewPassthroughURLResolver() URLResolver {
	return &PassthroughURLResolver{}
}

// PublicURL implements URLResolver.
func (p *PassthroughURLResolver) PublicURL(ctx context.Context, uri string) (string, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri, nil
	}
	if i := strings.Index(uri, "://"); i >= 0 {
		return "/" + uri[i+3:], nil
	}
	return uri, nil
}

// DefaultTermFormatter renders a taxonomy term as its name.
func DefaultTermFormatter(term *Entity) string {
	return term.Label
}

// NoopQueryAlterer leaves the query unchanged.
func NoopQueryAlterer(q Query) Query {
	return q
}
