package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/target/disclosure-collector/config"
	"github.com/target/disclosure-collector/internal/adapters/workerclient"
	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/credcache"
	"github.com/target/disclosure-collector/internal/data"
	"github.com/target/disclosure-collector/internal/domain/model"
	"github.com/target/disclosure-collector/internal/observability/statsd"
	"github.com/target/disclosure-collector/internal/retry"
	"github.com/target/disclosure-collector/internal/service"
)

// ServiceDeps contains the infrastructure needed to build the service container.
type ServiceDeps struct {
	Config      *config.AppConfig     // Required
	DB          *sql.DB               // Required: disclosures always live in Postgres
	RedisClient redis.UniversalClient // Optional: required when JOB_STORE=redis
	Objects     core.ObjectStore      // Required: document and export storage
	Feed        core.DisclosureFeed   // Optional: required when the worker service is enabled
	Secrets     core.SecretResolver   // Required: API key source
	Clock       data.TimeProvider     // Optional: defaults to the system clock
	Logger      *slog.Logger          // Optional
}

// ServiceContainer holds the wired application services.
type ServiceContainer struct {
	Jobs        *service.JobStatusService
	Records     *service.RecordStore
	Grants      *service.GrantIssuer
	Credentials *service.CredentialService

	// Launcher is nil unless the http service is enabled.
	Launcher *service.Launcher

	// Collection and Export are nil unless the worker service is enabled.
	Collection *service.CollectionWorker
	Export     *service.ExportWorker

	Observability ObservabilityContainer
}

// Workers returns the workers hosted by this process keyed by the job kind they own.
func (c ServiceContainer) Workers() map[model.JobKind]core.Worker {
	workers := make(map[model.JobKind]core.Worker, 2)
	if c.Collection != nil {
		workers[model.JobKindCollect] = c.Collection
	}
	if c.Export != nil {
		workers[model.JobKindExport] = c.Export
	}
	return workers
}

// ObservabilityContainer groups metrics dependencies.
type ObservabilityContainer struct {
	MetricsSink statsd.Sink
	// client is kept for Close; nil when metrics are disabled.
	client *statsd.Client
}

// Close flushes and releases the metrics client.
func (o ObservabilityContainer) Close() error {
	if o.client == nil {
		return nil
	}
	return o.client.Close()
}

func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	if !cfg.Metrics.IsEnabled() {
		return ObservabilityContainer{MetricsSink: statsd.Nop{}}
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return ObservabilityContainer{MetricsSink: statsd.Nop{}}
	}
	return ObservabilityContainer{MetricsSink: client, client: client}
}

// retryPolicy converts configuration into the policy shared by every store-facing service.
func retryPolicy(cfg config.RetryConfig) *retry.Policy {
	return &retry.Policy{
		MaxRetries:   cfg.MaxRetries,
		InitialDelay: cfg.InitialDelay,
		Multiplier:   cfg.Multiplier,
		MaxDelay:     cfg.MaxDelay,
		Jitter:       cfg.Jitter,
	}
}

// serviceRepositories groups the repositories backing service ports; no business rules here.
type serviceRepositories struct {
	Disclosures core.DisclosureRepository
	Jobs        core.JobStatusRepository
}

func buildRepositories(deps *ServiceDeps) (*serviceRepositories, error) {
	repos := &serviceRepositories{
		Disclosures: data.NewDisclosureRepo(deps.DB),
	}

	switch deps.Config.JobStore.Backend {
	case config.JobStoreRedis:
		if deps.RedisClient == nil {
			return nil, errors.New("JOB_STORE=redis requires a redis client")
		}
		repos.Jobs = data.NewRedisJobStatusRepo(data.RedisJobStatusRepoOptions{
			Client:       deps.RedisClient,
			TTL:          deps.Config.JobStore.RedisTTL,
			KeyPrefix:    deps.Config.JobStore.RedisKeyPrefix,
			TimeProvider: deps.Clock,
		})
	default:
		repos.Jobs = data.NewJobStatusRepo(deps.DB, deps.Clock)
	}
	return repos, nil
}

// NewServices wires the application services for the enabled service modes.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if err := validateServiceDeps(deps); err != nil {
		return ServiceContainer{}, err
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = &data.RealTimeProvider{}
	}

	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("determine enabled services: %w", err)
	}

	repos, err := buildRepositories(deps)
	if err != nil {
		return ServiceContainer{}, err
	}

	obs := buildObservability(logger, cfg.Observability)
	policy := retryPolicy(cfg.Retry)
	container := ServiceContainer{Observability: obs}

	if err := buildCoreServices(&container, deps, repos, policy, logger); err != nil {
		return ServiceContainer{}, err
	}

	if enabled[config.ServiceModeWorker] {
		if err := buildWorkers(&container, deps, policy, logger); err != nil {
			return ServiceContainer{}, err
		}
	}

	if enabled[config.ServiceModeHTTP] {
		invoker, err := buildInvoker(cfg, container, logger)
		if err != nil {
			return ServiceContainer{}, err
		}
		container.Launcher, err = service.NewLauncher(service.LauncherOptions{
			Invoker:          invoker,
			TimeProvider:     deps.Clock,
			MaxAge:           cfg.Collect.MaxAge,
			ExportWindowDays: cfg.Export.DefaultWindowDays,
			Logger:           logger,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("build launcher: %w", err)
		}
	}

	return container, nil
}

func validateServiceDeps(deps *ServiceDeps) error {
	switch {
	case deps == nil:
		return errors.New("service deps are required")
	case deps.Config == nil:
		return errors.New("AppConfig is required")
	case deps.DB == nil:
		return errors.New("database is required")
	case deps.Objects == nil:
		return errors.New("ObjectStore is required")
	case deps.Secrets == nil:
		return errors.New("SecretResolver is required")
	}
	return nil
}

func buildCoreServices(
	c *ServiceContainer,
	deps *ServiceDeps,
	repos *serviceRepositories,
	policy *retry.Policy,
	logger *slog.Logger,
) error {
	cfg := deps.Config
	sink := c.Observability.MetricsSink
	var err error

	c.Jobs, err = service.NewJobStatusService(service.JobStatusServiceOptions{
		Repo:    repos.Jobs,
		Retry:   policy,
		Metrics: sink,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("build job status service: %w", err)
	}

	c.Records, err = service.NewRecordStore(service.RecordStoreOptions{
		Repo:        repos.Disclosures,
		Retry:       policy,
		Concurrency: cfg.Worker.Concurrency,
		Metrics:     sink,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("build record store: %w", err)
	}

	c.Grants, err = service.NewGrantIssuer(service.GrantIssuerOptions{
		Records:      c.Records,
		Objects:      deps.Objects,
		MinTTL:       cfg.Grant.MinTTL,
		MaxTTL:       cfg.Grant.MaxTTL,
		DefaultTTL:   cfg.Grant.DefaultTTL,
		Retry:        policy,
		TimeProvider: deps.Clock,
		Metrics:      sink,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("build grant issuer: %w", err)
	}

	c.Credentials, err = service.NewCredentialService(service.CredentialServiceOptions{
		Resolver: deps.Secrets,
		Cache: credcache.New(credcache.Config{
			Capacity: cfg.Auth.CacheCapacity,
			Now:      deps.Clock.Now,
		}),
		Name:            cfg.Auth.SecretName,
		TTL:             cfg.Auth.CacheTTL,
		RefreshInterval: cfg.Auth.RefreshInterval,
		TimeProvider:    deps.Clock,
		Metrics:         sink,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("build credential service: %w", err)
	}
	return nil
}

func buildWorkers(c *ServiceContainer, deps *ServiceDeps, policy *retry.Policy, logger *slog.Logger) error {
	if deps.Feed == nil {
		return errors.New("DisclosureFeed is required for the worker service")
	}
	cfg := deps.Config
	sink := c.Observability.MetricsSink
	var err error

	c.Collection, err = service.NewCollectionWorker(service.CollectionWorkerOptions{
		Jobs:         c.Jobs,
		Records:      c.Records,
		Objects:      deps.Objects,
		Feed:         deps.Feed,
		BatchSize:    cfg.Worker.BatchSize,
		Concurrency:  cfg.Worker.Concurrency,
		Timeout:      cfg.Worker.Timeout,
		Retry:        policy,
		TimeProvider: deps.Clock,
		Metrics:      sink,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("build collection worker: %w", err)
	}

	c.Export, err = service.NewExportWorker(service.ExportWorkerOptions{
		Jobs:         c.Jobs,
		Records:      c.Records,
		Objects:      deps.Objects,
		Grants:       c.Grants,
		URLTTL:       cfg.Export.URLTTL,
		MaxRows:      cfg.Export.MaxRows,
		Timeout:      cfg.Worker.Timeout,
		Retry:        policy,
		TimeProvider: deps.Clock,
		Metrics:      sink,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("build export worker: %w", err)
	}
	return nil
}

//nolint:ireturn // the transport is selected at runtime.
func buildInvoker(cfg *config.AppConfig, c ServiceContainer, logger *slog.Logger) (core.WorkerInvoker, error) {
	switch cfg.Worker.Transport {
	case config.WorkerTransportHTTP:
		invoker, err := workerclient.NewHTTPInvoker(workerclient.HTTPInvokerOptions{
			BaseURL:     cfg.Worker.URL,
			Credentials: c.Credentials,
			HeaderName:  cfg.Auth.HeaderName,
			HTTPClient:  &http.Client{Timeout: cfg.Worker.InvokeTimeout},
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build http worker invoker: %w", err)
		}
		return invoker, nil
	default:
		workers := c.Workers()
		if len(workers) == 0 {
			return nil, errors.New("in-process worker transport requires the worker service")
		}
		invoker, err := workerclient.NewLocalInvoker(workers)
		if err != nil {
			return nil, fmt.Errorf("build local worker invoker: %w", err)
		}
		return invoker, nil
	}
}
