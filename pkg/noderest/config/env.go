package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig lists the environment variables read by WithEnv. Unset
// variables leave the current configuration unchanged.
type envConfig struct {
	Port             string `env:"PORT"`
	Environment      string `env:"ENVIRONMENT"`
	DatabaseURL      string `env:"DATABASE_URL"`
	DBSchema         string `env:"DB_SCHEMA"`
	AutoMigrate      string `env:"AUTO_MIGRATE"`
	ContentTypesFile string `env:"CONTENT_TYPES_FILE"`
	SiteName         string `env:"SITE_NAME"`
	SiteURL          string `env:"SITE_URL"`

	FilesBaseURL string `env:"FILES_BASE_URL"`
	FilesPath    string `env:"FILES_PATH"`
	CDNBaseURL   string `env:"CDN_BASE_URL"`

	S3Bucket          string `env:"AWS_S3_BUCKET"`
	S3Region          string `env:"AWS_S3_REGION"`
	S3Endpoint        string `env:"AWS_S3_ENDPOINT"`
	S3UsePathStyle    string `env:"AWS_S3_USE_PATH_STYLE"`
	S3Public          string `env:"AWS_S3_PUBLIC"`
	S3VerifyExists    string `env:"AWS_S3_VERIFY_EXISTS"`
	S3PresignDuration int    `env:"AWS_S3_PRESIGN_DURATION"`
	AccessKeyID       string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey   string `env:"AWS_SECRET_ACCESS_KEY"`
}

// WithEnv applies environment variable overrides.
//
// Server:
//
//	PORT, ENVIRONMENT
//
// Database:
//
//	DATABASE_URL - "memory" (default), "postgres://..." / "postgresql://...",
//	               or "sqlite://<path>" ("sqlite://:memory:" for a private database)
//	DB_SCHEMA    - Postgres schema
//	AUTO_MIGRATE - create missing tables on startup
//
// Content:
//
//	CONTENT_TYPES_FILE - TOML file with [[content_type]] tables
//	SITE_NAME, SITE_URL
//
// Files:
//
//	FILES_BASE_URL, FILES_PATH, CDN_BASE_URL
//	AWS_S3_BUCKET enables s3:// URIs; AWS_S3_REGION, AWS_S3_ENDPOINT,
//	AWS_S3_USE_PATH_STYLE, AWS_S3_PUBLIC, AWS_S3_VERIFY_EXISTS,
//	AWS_S3_PRESIGN_DURATION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}

		setString(&c.Port, env.Port)
		setString(&c.Environment, env.Environment)
		setString(&c.DBSchema, env.DBSchema)
		setString(&c.SiteName, env.SiteName)
		setString(&c.SiteURL, env.SiteURL)

		if err := applyDatabaseURL(c, env.DatabaseURL); err != nil {
			return err
		}
		if err := setBool(&c.AutoMigrate, "AUTO_MIGRATE", env.AutoMigrate); err != nil {
			return err
		}

		if env.ContentTypesFile != "" {
			if err := WithContentTypesFile(env.ContentTypesFile)(c); err != nil {
				return err
			}
		}

		return applyFilesEnv(c, env)
	}
}

// WithDatabaseURL sets the database from a URL in the DATABASE_URL format.
func WithDatabaseURL(dbURL string) Option {
	return func(c *ServerConfig) error {
		return applyDatabaseURL(c, dbURL)
	}
}

// applyDatabaseURL detects the database type from the URL scheme.
func applyDatabaseURL(c *ServerConfig, dbURL string) error {
	switch {
	case dbURL == "":
		return nil
	case dbURL == "memory":
		c.DatabaseType = DatabaseMemory
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		c.DatabaseType = DatabasePostgres
		c.DatabaseURL = dbURL
	case strings.HasPrefix(dbURL, "sqlite://"):
		path := strings.TrimPrefix(dbURL, "sqlite://")
		if path == "" {
			return fmt.Errorf("sqlite path cannot be empty in DATABASE_URL")
		}
		c.DatabaseType = DatabaseSQLite
		c.DatabaseURL = path
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'postgresql://...' or 'sqlite://...')", dbURL)
	}
	return nil
}

func applyFilesEnv(c *ServerConfig, env envConfig) error {
	setString(&c.Files.PublicBaseURL, env.FilesBaseURL)
	setString(&c.Files.PublicPath, env.FilesPath)
	setString(&c.Files.CDNBaseURL, env.CDNBaseURL)

	s3 := &c.Files.S3
	setString(&s3.Bucket, env.S3Bucket)
	setString(&s3.Region, env.S3Region)
	setString(&s3.Endpoint, env.S3Endpoint)
	setString(&s3.AccessKeyID, env.AccessKeyID)
	setString(&s3.SecretAccessKey, env.SecretAccessKey)
	if env.S3PresignDuration != 0 {
		s3.PresignDuration = env.S3PresignDuration
	}

	for _, b := range []struct {
		dst *bool
		key string
		raw string
	}{
		{&s3.UsePathStyle, "AWS_S3_USE_PATH_STYLE", env.S3UsePathStyle},
		{&s3.Public, "AWS_S3_PUBLIC", env.S3Public},
		{&s3.VerifyExists, "AWS_S3_VERIFY_EXISTS", env.S3VerifyExists},
	} {
		if err := setBool(b.dst, b.key, b.raw); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key, raw string) error {
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	*dst = parsed
	return nil
}
