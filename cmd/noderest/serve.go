package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/spf13/cobra"
	"github.com/tendant/node-rest-api/pkg/noderest"
	"github.com/tendant/node-rest-api/pkg/noderest/api"
	"github.com/tendant/node-rest-api/pkg/noderest/config"
)

const maxRequestBody = 1 << 20

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if port != "" {
				cfg.Port = port
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, cleanup, err := cfg.BuildService(runCtx)
			if err != nil {
				return fmt.Errorf("failed to build service: %w", err)
			}
			defer cleanup()

			return serve(runCtx, cfg, NewHTTPServer(svc, cfg))
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.ServerConfig, server *HTTPServer) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Node REST server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"database", cfg.DatabaseType,
			"content_types", server.service.ContentTypes(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("Server exiting")
	return nil
}

// HTTPServer wraps the node service for HTTP access
type HTTPServer struct {
	service noderest.Service
	config  *config.ServerConfig
}

// NewHTTPServer creates a new HTTP server wrapper
func NewHTTPServer(service noderest.Service, serverConfig *config.ServerConfig) *HTTPServer {
	return &HTTPServer{
		service: service,
		config:  serverConfig,
	}
}

// Routes sets up the HTTP routes
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(api.RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(api.LoggingMiddleware(slog.Default()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(api.RequestSizeLimitMiddleware(maxRequestBody))

	r.Get("/health", s.handleHealth)
	r.Mount("/nodes", api.NewNodeHandler(s.service).Routes())

	return r
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status       string   `json:"status"`
	Environment  string   `json:"environment"`
	Database     string   `json:"database"`
	ContentTypes []string `json:"content_types"`
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:       "healthy",
		Environment:  s.config.Environment,
		Database:     s.config.DatabaseType,
		ContentTypes: s.service.ContentTypes(),
	})
}
