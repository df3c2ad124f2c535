package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/target/disclosure-collector/config"
)

// ConnectRedis opens the client for the job store and verifies it within connectTimeout.
//
//nolint:ireturn // the topology decides between single, failover and cluster clients.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	client, target, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis %s: %w", target, pingErr)
	}

	if logger != nil {
		logger.InfoContext(ctx, "redis connected", "mode", cfg.Mode, "target", target, "db", cfg.DB)
	}
	return client, nil
}

// newRedisClient builds the client for cfg.Mode without dialing.
// The returned target describes the deployment for logs and never carries credentials.
//
//nolint:ireturn // the topology decides between single, failover and cluster clients.
func newRedisClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	switch cfg.Mode {
	case config.RedisModeCluster:
		if len(cfg.ClusterNodes) == 0 {
			return nil, "", errors.New("REDIS_MODE=cluster requires REDIS_CLUSTER_NODES")
		}
		client := redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.ClusterNodes,
			Username: cfg.Username,
			Password: cfg.Password,
		})
		return client, "cluster:" + strings.Join(cfg.ClusterNodes, ","), nil

	case config.RedisModeSentinel:
		if len(cfg.SentinelNodes) == 0 {
			return nil, "", errors.New("REDIS_MODE=sentinel requires REDIS_SENTINEL_NODES")
		}
		if cfg.SentinelMasterName == "" {
			return nil, "", errors.New("REDIS_MODE=sentinel requires REDIS_SENTINEL_MASTER_NAME")
		}
		client := redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       cfg.SentinelMasterName,
			SentinelAddrs:    cfg.SentinelNodes,
			SentinelPassword: cfg.SentinelPassword,
			Username:         cfg.Username,
			Password:         cfg.Password,
			DB:               cfg.DB,
		})
		return client, "sentinel:" + cfg.SentinelMasterName, nil

	default:
		opts, err := directOptions(cfg)
		if err != nil {
			return nil, "", err
		}
		return redis.NewClient(opts), opts.Addr, nil
	}
}

// directOptions accepts a redis:// or rediss:// URL or a bare host:port.
// Explicit username, password and a non-zero DB from the environment override the URL.
func directOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URI == "" {
		return nil, errors.New("REDIS_MODE=direct requires REDIS_URI")
	}

	opts := &redis.Options{Addr: cfg.URI}
	if strings.HasPrefix(cfg.URI, "redis://") || strings.HasPrefix(cfg.URI, "rediss://") {
		parsed, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URI %s: %w", redactURL(cfg.URI), err)
		}
		opts = parsed
	}
	if cfg.Username != "" {
		opts.Username = cfg.Username
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return opts, nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
