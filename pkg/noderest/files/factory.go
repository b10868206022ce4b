package files

import (
	"fmt"
)

// Config selects the strategies registered on a Router.
type Config struct {
	// PublicBaseURL and PublicPath serve public:// files.
	PublicBaseURL string
	PublicPath    string

	// CDNBaseURL, when set, serves public:// files from a CDN instead.
	CDNBaseURL string

	// S3 enables s3:// URIs when S3.Bucket is set.
	S3 S3Config
}

// NewRouterFromConfig creates a Router with a public:// strategy and, when
// configured, an s3:// strategy.
func NewRouterFromConfig(config Config) (*Router, error) {
	r := NewRouter()

	if config.CDNBaseURL != "" {
		r.Register("public", NewCDNStrategy(config.CDNBaseURL))
	} else {
		r.Register("public", NewPublicStrategy(config.PublicBaseURL, config.PublicPath))
	}

	if config.S3.Bucket != "" {
		s3Strategy, err := NewS3Strategy(config.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to build s3 strategy: %w", err)
		}
		r.Register("s3", s3Strategy)
	}

	return r, nil
}
