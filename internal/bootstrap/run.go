package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/target/disclosure-collector/config"
	"golang.org/x/sync/errgroup"
)

// ServiceOrchestrationConfig contains the wired services and their configuration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// waiter is a worker that can drain its running jobs.
type waiter interface {
	Wait(ctx context.Context) error
}

// RunServicesWithShutdown serves HTTP for the enabled services and blocks until a shutdown
// signal is received or the server fails. Running worker jobs are drained before returning.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 1)
	server := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
	}, errCh)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		logger.Info("shutting down services...", "signal", sig.String())
	case err := <-errCh:
		logger.Error("service error", "error", err)
		runErr = fmt.Errorf("http server: %w", err)
	}

	if err := gracefulStop(context.Background(), cfg, server, logger); err != nil {
		if runErr != nil {
			logger.Error("graceful stop failed", "error", err)
			return runErr
		}
		return err
	}
	return runErr
}

// gracefulStop stops accepting requests first so no new jobs start, then drains the workers.
func gracefulStop(ctx context.Context, cfg *ServiceOrchestrationConfig, server *http.Server, logger *slog.Logger) error {
	httpCtx, cancel := context.WithTimeout(ctx, cfg.Config.HTTP.ShutdownTimeout)
	defer cancel()
	if err := ShutdownHTTPServer(httpCtx, server, logger); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	var waiters []waiter
	if cfg.Services.Collection != nil {
		waiters = append(waiters, cfg.Services.Collection)
	}
	if cfg.Services.Export != nil {
		waiters = append(waiters, cfg.Services.Export)
	}
	if err := drainWorkers(ctx, waiters, cfg.Config.Worker.ShutdownTimeout); err != nil {
		logger.Warn("timeout waiting for workers to stop", "error", err)
		return err
	}
	if len(waiters) > 0 {
		logger.Info("workers stopped")
	}
	return nil
}

func drainWorkers(ctx context.Context, waiters []waiter, timeout time.Duration) error {
	if len(waiters) == 0 {
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(waitCtx)
	for _, w := range waiters {
		g.Go(func() error {
			return w.Wait(gctx)
		})
	}
	return g.Wait()
}
