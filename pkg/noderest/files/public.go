package files

import (
	"context"
	"strings"
)

// DefaultPublicPath is where public:// files are served from.
const DefaultPublicPath = "sites/default/files"

// PublicStrategy serves files from a directory under the site's base URL.
type PublicStrategy struct {
	BaseURL   string // e.g. "https://www.example.com"; empty yields root-relative URLs
	FilesPath string // e.g. "sites/default/files"
}

// NewPublicStrategy creates a public files strategy
func NewPublicStrategy(baseURL, filesPath string) *PublicStrategy {
	if filesPath == "" {
		filesPath = DefaultPublicPath
	}
	return &PublicStrategy{
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		FilesPath: strings.Trim(filesPath, "/"),
	}
}

// PublicURL implements Strategy.
func (s *PublicStrategy) PublicURL(ctx context.Context, path string) (string, error) {
	return joinURL(s.BaseURL+"/"+s.FilesPath, path), nil
}

// CDNStrategy serves files directly from a CDN keyed by path.
type CDNStrategy struct {
	CDNBaseURL string // e.g. "https://cdn.example.com"
}

// NewCDNStrategy creates a CDN strategy
func NewCDNStrategy(cdnBaseURL string) *CDNStrategy {
	return &CDNStrategy{CDNBaseURL: strings.TrimSuffix(cdnBaseURL, "/")}
}

// PublicURL implements Strategy.
func (s *CDNStrategy) PublicURL(ctx context.Context, path string) (string, error) {
	return joinURL(s.CDNBaseURL, path), nil
}
