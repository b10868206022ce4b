// Package config builds a noderest.Service from server configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/node-rest-api/pkg/noderest"
	"github.com/tendant/node-rest-api/pkg/noderest/files"
	"github.com/tendant/node-rest-api/pkg/noderest/metatag"
	"github.com/tendant/node-rest-api/pkg/noderest/repo/memory"
	repopg "github.com/tendant/node-rest-api/pkg/noderest/repo/postgres"
	"github.com/tendant/node-rest-api/pkg/noderest/repo/sqlite"
	"github.com/tendant/node-rest-api/pkg/noderest/view"
)

// Database types
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: DatabaseMemory,
		DBSchema:     "noderest",
		SiteName:     "Drupal",
	}
}

// ServerConfig represents server configuration for the node REST service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string // Postgres connection string or SQLite file path
	DatabaseType string // "memory", "postgres", "sqlite"
	DBSchema     string // Postgres schema to use (default: noderest)
	AutoMigrate  bool   // create tables on startup

	// Content types; DefaultFormatterConfigs are used when empty.
	ContentTypes []ContentType

	// Site settings used for metatag tokens
	SiteName string
	SiteURL  string

	// Files selects how managed file URIs become public URLs
	Files files.Config
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case DatabaseMemory:
	case DatabasePostgres, DatabaseSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when using %s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("database_type must be 'memory', 'postgres' or 'sqlite', got %q", c.DatabaseType)
	}

	if c.SiteURL != "" && !strings.HasPrefix(c.SiteURL, "http://") && !strings.HasPrefix(c.SiteURL, "https://") {
		return fmt.Errorf("site_url must be an absolute http(s) URL, got %q", c.SiteURL)
	}

	seen := make(map[string]bool, len(c.ContentTypes))
	for _, ct := range c.ContentTypes {
		if err := ct.FormatterConfig().Validate(); err != nil {
			return err
		}
		if seen[ct.Name] {
			return fmt.Errorf("%w: content type %q configured twice", noderest.ErrInvalidConfig, ct.Name)
		}
		seen[ct.Name] = true
	}

	return nil
}

// Registry returns the formatter registry for the configured content types.
func (c *ServerConfig) Registry() (*noderest.Registry, error) {
	if len(c.ContentTypes) == 0 {
		return noderest.NewRegistry(noderest.DefaultFormatterConfigs()...)
	}
	configs := make([]noderest.FormatterConfig, len(c.ContentTypes))
	for i, ct := range c.ContentTypes {
		configs[i] = ct.FormatterConfig()
	}
	return noderest.NewRegistry(configs...)
}

// BuildService creates a Service instance from the server configuration.
// The returned function releases database connections.
func (c *ServerConfig) BuildService(ctx context.Context) (noderest.Service, func(), error) {
	repo, closeRepo, err := c.buildRepository(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build repository: %w", err)
	}

	service, err := c.buildService(repo)
	if err != nil {
		closeRepo()
		return nil, nil, err
	}
	return service, closeRepo, nil
}

func (c *ServerConfig) buildService(repo noderest.Repository) (noderest.Service, error) {
	registry, err := c.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to build content type registry: %w", err)
	}

	urls, err := files.NewRouterFromConfig(c.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to build file URL router: %w", err)
	}

	bundles := make(map[string]noderest.TagSet)
	for _, ct := range c.ContentTypes {
		if len(ct.Metatags) > 0 {
			bundles[ct.Name] = noderest.TagSet(ct.Metatags)
		}
	}
	metatags := metatag.New(metatag.Config{
		SiteName: c.SiteName,
		SiteURL:  c.SiteURL,
		Bundles:  bundles,
	}, repo)

	return noderest.New(
		noderest.WithRepository(repo),
		noderest.WithRegistry(registry),
		noderest.WithURLResolver(urls),
		noderest.WithRenderer(view.New()),
		noderest.WithMetatagManager(metatags),
	)
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context) (noderest.Repository, func(), error) {
	switch c.DatabaseType {
	case DatabaseMemory:
		return memory.New(), func() {}, nil

	case DatabaseSQLite:
		store, err := sqlite.Open(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case DatabasePostgres:
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}

		repo := repopg.NewWithPool(pool)
		if c.AutoMigrate {
			if schema != "" {
				if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
					pool.Close()
					return nil, nil, fmt.Errorf("failed to create schema %s: %w", schema, err)
				}
			}
			if err := repo.Migrate(ctx); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return repo, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}
