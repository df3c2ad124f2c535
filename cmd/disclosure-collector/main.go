package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/target/disclosure-collector/config"
	"github.com/target/disclosure-collector/internal/adapters/envsecret"
	"github.com/target/disclosure-collector/internal/adapters/feed"
	"github.com/target/disclosure-collector/internal/adapters/s3store"
	"github.com/target/disclosure-collector/internal/adapters/secretsmanager"
	"github.com/target/disclosure-collector/internal/bootstrap"
	"github.com/target/disclosure-collector/internal/core"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger = bootstrap.ConfigureLogger(&cfg)

	logStartupInfo(ctx, logger, &cfg)

	if err = bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}

	db, redisClient, err := initInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close database failed", "error", cerr)
		}
	}()
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
			return err
		}
	} else {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}

	adapters, err := buildAdapters(ctx, &cfg, logger)
	if err != nil {
		return err
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          db,
		RedisClient: redisClient,
		Objects:     adapters.objects,
		Feed:        adapters.feed,
		Secrets:     adapters.secrets,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer func() {
		if cerr := services.Observability.Close(); cerr != nil {
			logger.WarnContext(ctx, "close metrics client failed", "error", cerr)
		}
	}()

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting disclosure collector",
		"db_host", cfg.Postgres.Host,
		"db_port", cfg.Postgres.Port,
		"db_name", cfg.Postgres.Name,
		"job_store", cfg.JobStore.Backend,
		"worker_transport", cfg.Worker.Transport,
		"enabled_services", bootstrap.GetEnabledServices(cfg))
}

// initInfrastructure connects Postgres and, when job records live there, Redis.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initInfrastructure(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (*sql.DB, redis.UniversalClient, error) {
	db, err := bootstrap.ConnectDB(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	if cfg.JobStore.Backend != config.JobStoreRedis {
		return db, nil, nil
	}

	redisClient, err := bootstrap.ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close database after redis connect failure", "error", cerr)
			return nil, nil, fmt.Errorf("connect redis: %w", errors.Join(err, fmt.Errorf("close database: %w", cerr)))
		}
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	return db, redisClient, nil
}

type adapterSet struct {
	objects core.ObjectStore
	feed    core.DisclosureFeed
	secrets core.SecretResolver
}

func buildAdapters(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (adapterSet, error) {
	awsCfg, err := bootstrap.LoadAWSConfig(ctx, cfg.AWS, logger)
	if err != nil {
		return adapterSet{}, err
	}

	objects, err := s3store.NewFromConfig(awsCfg, cfg.AWS.Bucket, s3store.ClientConfig{
		Endpoint:       cfg.AWS.Endpoint,
		ForcePathStyle: cfg.AWS.ForcePathStyle,
	}, logger)
	if err != nil {
		return adapterSet{}, fmt.Errorf("build object store: %w", err)
	}
	set := adapterSet{objects: objects}

	switch cfg.Auth.Resolver {
	case config.SecretResolverEnv:
		set.secrets = envsecret.FromEnv(cfg.Auth.SecretName, cfg.Auth.EnvVar)
	default:
		set.secrets, err = secretsmanager.NewFromConfig(awsCfg, logger)
		if err != nil {
			return adapterSet{}, fmt.Errorf("build secret resolver: %w", err)
		}
	}

	if cfg.IsWorkerEnabled() {
		set.feed, err = feed.New(feed.Options{
			BaseURL:          cfg.Collect.FeedBaseURL,
			HTTPClient:       &http.Client{Timeout: cfg.Collect.FeedTimeout},
			MaxDocumentBytes: cfg.Collect.MaxDocumentBytes,
			Logger:           logger,
		})
		if err != nil {
			return adapterSet{}, fmt.Errorf("build disclosure feed: %w", err)
		}
	}

	return set, nil
}
