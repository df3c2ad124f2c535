package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/target/disclosure-collector/config"
)

// InitLogger initializes the structured logger used until configuration is loaded.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// ConfigureLogger rebuilds the default logger from configuration.
// Development mode logs human-readable text; everything else logs JSON.
func ConfigureLogger(cfg *config.AppConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.IsDev {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig checks that the enabled services can be wired with the given configuration.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}

	if len(services) == 0 {
		return errors.New("no services enabled")
	}

	if services[config.ServiceModeHTTP] && !services[config.ServiceModeWorker] &&
		cfg.Worker.Transport == config.WorkerTransportInProcess {
		return errors.New("WORKER_TRANSPORT=inprocess requires the worker service; enable it or set WORKER_TRANSPORT=http")
	}
	if cfg.Worker.Transport == config.WorkerTransportHTTP && services[config.ServiceModeHTTP] && cfg.Worker.URL == "" {
		return errors.New("WORKER_URL is required when WORKER_TRANSPORT=http")
	}
	if cfg.AWS.Bucket == "" {
		return errors.New("S3_BUCKET is required")
	}
	if cfg.Auth.SecretName == "" {
		return errors.New("AUTH_SECRET_NAME is required")
	}
	if cfg.Auth.Resolver == config.SecretResolverEnv && !cfg.IsDev {
		return errors.New("AUTH_RESOLVER=env is only allowed in development mode")
	}
	if services[config.ServiceModeWorker] && cfg.Collect.FeedBaseURL == "" {
		return errors.New("FEED_BASE_URL is required for the worker service")
	}

	return nil
}

// GetEnabledServices returns a sorted list of enabled service names.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		// Return empty list on error - validation will catch this
		return []string{}
	}

	enabledServices := make([]string, 0, len(services))
	for svc := range services {
		enabledServices = append(enabledServices, string(svc))
	}
	sort.Strings(enabledServices)

	return enabledServices
}
