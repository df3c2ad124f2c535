package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/disclosure-collector/config"
	httpx "github.com/target/disclosure-collector/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// BuildHTTPHandler assembles the router for the services hosted by this process.
func BuildHTTPHandler(cfg *HTTPServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	return httpx.NewRouter(httpx.RouterServices{
		Launcher:     cfg.Services.Launcher,
		Jobs:         cfg.Services.Jobs,
		Records:      cfg.Services.Records,
		Grants:       cfg.Services.Grants,
		Workers:      cfg.Services.Workers(),
		Auth:         cfg.Services.Credentials,
		APIKeyHeader: appCfg.Auth.HeaderName,
		Logger:       logger,
	})
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown. Listen failures are sent on errCh.
func StartHTTPServer(cfg *HTTPServerConfig, errCh chan<- error) *http.Server {
	if cfg == nil || cfg.Config == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpCfg := cfg.Config.HTTP

	server := &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           BuildHTTPHandler(cfg),
		ReadHeaderTimeout: httpCfg.ReadHeaderTimeout,
		ReadTimeout:       httpCfg.ReadTimeout,
		WriteTimeout:      httpCfg.WriteTimeout,
		IdleTimeout:       httpCfg.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			select {
			case errCh <- err:
			default:
			}
		}
	}()

	return server
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	if server == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("shutting down HTTP server")
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
