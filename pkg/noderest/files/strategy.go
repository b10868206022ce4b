// Package files turns managed file URIs (public://, s3://, ...) into public
// URLs. A Router dispatches on the URI scheme to a Strategy.
package files

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tendant/node-rest-api/pkg/noderest"
)

// ErrUnsupportedScheme indicates no strategy is registered for a URI scheme.
// It matches noderest.ErrFileNotFound so callers fall back as for a missing
// file.
var ErrUnsupportedScheme = fmt.Errorf("unsupported file scheme: %w", noderest.ErrFileNotFound)

// Strategy resolves the path part of a URI (everything after "scheme://").
type Strategy interface {
	PublicURL(ctx context.Context, path string) (string, error)
}

// Router implements noderest.URLResolver by scheme.
type Router struct {
	strategies map[string]Strategy
}

// NewRouter creates an empty router. Absolute http(s) URIs always pass
// through unchanged.
func NewRouter() *Router {
	return &Router{strategies: make(map[string]Strategy)}
}

// Register sets the strategy for a scheme such as "public" or "s3".
func (r *Router) Register(scheme string, s Strategy) *Router {
	r.strategies[scheme] = s
	return r
}

// PublicURL implements noderest.URLResolver.
func (r *Router) PublicURL(ctx context.Context, uri string) (string, error) {
	scheme, path, ok := strings.Cut(uri, "://")
	if !ok {
		return "", fmt.Errorf("%w: %q has no scheme", ErrUnsupportedScheme, uri)
	}
	if scheme == "http" || scheme == "https" {
		return uri, nil
	}

	s, ok := r.strategies[scheme]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	return s.PublicURL(ctx, path)
}

// escapePath escapes each segment of a slash-separated path.
func escapePath(p string) string {
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func joinURL(base, p string) string {
	return strings.TrimSuffix(base, "/") + "/" + escapePath(p)
}
