package config

import (
	"fmt"

	"github.com/tendant/node-rest-api/pkg/noderest/files"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend. For sqlite the url is a
// file path or ":memory:".
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case DatabaseMemory:
		case DatabasePostgres, DatabaseSQLite:
			if url == "" {
				return fmt.Errorf("database URL is required for %s", dbType)
			}
		default:
			return fmt.Errorf("database type must be 'memory', 'postgres' or 'sqlite', got: %s", dbType)
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithAutoMigrate creates missing tables when the service is built
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithSite sets the site name and absolute base URL
func WithSite(name, url string) Option {
	return func(c *ServerConfig) error {
		c.SiteName = name
		c.SiteURL = url
		return nil
	}
}

// WithContentTypes replaces the configured content types
func WithContentTypes(types ...ContentType) Option {
	return func(c *ServerConfig) error {
		c.ContentTypes = append([]ContentType(nil), types...)
		return nil
	}
}

// WithContentTypesFile loads content types from a TOML file. An empty path
// is ignored.
func WithContentTypesFile(path string) Option {
	return func(c *ServerConfig) error {
		if path == "" {
			return nil
		}
		types, err := LoadContentTypes(path)
		if err != nil {
			return err
		}
		c.ContentTypes = types
		return nil
	}
}

// WithFiles sets how file URIs are turned into public URLs
func WithFiles(cfg files.Config) Option {
	return func(c *ServerConfig) error {
		c.Files = cfg
		return nil
	}
}
