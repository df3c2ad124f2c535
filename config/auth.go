package config

import (
	"fmt"
	"strings"
	"time"
)

// SecretResolverKind selects where the API key is read from.
type SecretResolverKind string

const (
	// SecretResolverSecretsManager reads the key from AWS Secrets Manager.
	SecretResolverSecretsManager SecretResolverKind = "secretsmanager"
	// SecretResolverEnv reads the key from an environment variable (development only).
	SecretResolverEnv SecretResolverKind = "env"
)

// UnmarshalText implements encoding.TextUnmarshaler for SecretResolverKind.
func (k *SecretResolverKind) UnmarshalText(text []byte) error {
	v := SecretResolverKind(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case SecretResolverSecretsManager, SecretResolverEnv:
		*k = v
		return nil
	default:
		return fmt.Errorf("invalid SecretResolverKind: %q (valid options: secretsmanager, env)", v)
	}
}

// AuthConfig groups API key authentication configuration.
type AuthConfig struct {
	// HeaderName is the request header carrying the API key.
	HeaderName string `env:"AUTH_HEADER" envDefault:"X-API-Key"`

	// SecretName identifies the API key in the resolver. For Secrets Manager it may take the
	// form "secret-id#field" to read one field of a JSON secret.
	SecretName string `env:"AUTH_SECRET_NAME" envDefault:"disclosure-collector/api-key"`

	Resolver SecretResolverKind `env:"AUTH_RESOLVER" envDefault:"secretsmanager"`

	// EnvVar names the variable holding the key when Resolver=env.
	EnvVar string `env:"AUTH_API_KEY_ENV" envDefault:"API_KEY"`

	// CacheTTL bounds how long a resolved key is reused.
	CacheTTL time.Duration `env:"AUTH_CACHE_TTL" envDefault:"5m"`

	// RefreshInterval rate-limits re-resolution after a mismatched key.
	RefreshInterval time.Duration `env:"AUTH_REFRESH_INTERVAL" envDefault:"30s"`

	// CacheCapacity bounds the number of cached credentials.
	CacheCapacity int `env:"AUTH_CACHE_CAPACITY" envDefault:"16"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	a.HeaderName = strings.TrimSpace(a.HeaderName)
	if a.HeaderName == "" {
		a.HeaderName = "X-API-Key"
	}
	a.SecretName = strings.TrimSpace(a.SecretName)
	if a.Resolver == "" {
		a.Resolver = SecretResolverSecretsManager
	}
	if a.CacheTTL <= 0 {
		a.CacheTTL = 5 * time.Minute
	}
	if a.RefreshInterval < time.Second {
		a.RefreshInterval = time.Second
	}
	if a.CacheCapacity < 1 {
		a.CacheCapacity = 1
	}
}
