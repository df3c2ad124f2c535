package bootstrap

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/target/disclosure-collector/config"
)

func validConfig() *config.AppConfig {
	return &config.AppConfig{
		Services: "http,worker",
		Auth: config.AuthConfig{
			SecretName: "collector/api-key",
			Resolver:   config.SecretResolverSecretsManager,
		},
		AWS:     config.AWSConfig{Bucket: "docs"},
		Worker:  config.WorkerConfig{Transport: config.WorkerTransportInProcess},
		Collect: config.CollectConfig{FeedBaseURL: "http://feed.local"},
	}
}

func TestValidateServiceConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.AppConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.AppConfig) {}},
		{
			name:    "invalid services",
			mutate:  func(c *config.AppConfig) { c.Services = "rules" },
			wantErr: "invalid service configuration",
		},
		{
			name:    "inprocess transport without worker",
			mutate:  func(c *config.AppConfig) { c.Services = "http" },
			wantErr: "WORKER_TRANSPORT=inprocess requires the worker service",
		},
		{
			name: "http transport without url",
			mutate: func(c *config.AppConfig) {
				c.Services = "http"
				c.Worker.Transport = config.WorkerTransportHTTP
			},
			wantErr: "WORKER_URL is required",
		},
		{
			name: "http transport with url",
			mutate: func(c *config.AppConfig) {
				c.Services = "http"
				c.Worker.Transport = config.WorkerTransportHTTP
				c.Worker.URL = "http://workers.local"
			},
		},
		{
			name:    "missing bucket",
			mutate:  func(c *config.AppConfig) { c.AWS.Bucket = "" },
			wantErr: "S3_BUCKET is required",
		},
		{
			name:    "missing secret name",
			mutate:  func(c *config.AppConfig) { c.Auth.SecretName = "" },
			wantErr: "AUTH_SECRET_NAME is required",
		},
		{
			name:    "env resolver outside dev",
			mutate:  func(c *config.AppConfig) { c.Auth.Resolver = config.SecretResolverEnv },
			wantErr: "only allowed in development mode",
		},
		{
			name: "env resolver in dev",
			mutate: func(c *config.AppConfig) {
				c.IsDev = true
				c.Auth.Resolver = config.SecretResolverEnv
			},
		},
		{
			name: "worker without feed",
			mutate: func(c *config.AppConfig) {
				c.Services = "worker"
				c.Collect.FeedBaseURL = ""
			},
			wantErr: "FEED_BASE_URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateServiceConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	assert.Error(t, ValidateServiceConfig(nil))
}

func TestGetEnabledServices(t *testing.T) {
	assert.Equal(t, []string{"http", "worker"}, GetEnabledServices(&config.AppConfig{Services: "worker,http"}))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Empty(t, GetEnabledServices(nil))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(""))
}
