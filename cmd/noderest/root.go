package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tendant/node-rest-api/pkg/noderest/config"
)

type commandContext struct {
	envFile      string
	contentTypes string
	databaseURL  string
	logLevel     string
	logFormat    string

	config *config.ServerConfig
}

// loadConfig reads .env, installs the logger and loads the server
// configuration. Flags take precedence over the environment.
func (c *commandContext) loadConfig(cmd *cobra.Command) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}

	logger, err := newLogger(cmd.ErrOrStderr(), c.logLevel, c.logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := config.Load(
		config.WithEnv(),
		config.WithContentTypesFile(c.contentTypes),
		config.WithDatabaseURL(c.databaseURL),
	)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	c.config = cfg
	return nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "noderest",
		Short:         "Serve published nodes as JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.envFile, "env-file", ".env", "Environment file loaded before reading configuration")
	flags.StringVar(&ctx.contentTypes, "content-types", "", "TOML file with [[content_type]] tables (overrides CONTENT_TYPES_FILE)")
	flags.StringVar(&ctx.databaseURL, "database-url", "", "Database URL: memory, postgres://..., sqlite://<path> (overrides DATABASE_URL)")
	flags.StringVar(&ctx.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&ctx.logFormat, "log-format", "auto", "Log format: auto, text, json")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))

	return rootCmd
}
