package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/data"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/observability/metrics"
	"github.com/target/disclosure-collector/internal/observability/statsd"
)

const (
	defaultCredentialTTL   = 5 * time.Minute
	defaultRefreshInterval = 30 * time.Second
)

// CredentialServiceOptions groups dependencies for CredentialService.
type CredentialServiceOptions struct {
	Resolver        core.SecretResolver  // Required: source of truth for the API key
	Cache           core.CredentialCache // Required: process-local credential cache
	Name            string               // Required: credential name passed to the resolver
	TTL             time.Duration        // Optional: cache lifetime (default 5m)
	RefreshInterval time.Duration        // Optional: minimum gap between forced refreshes (default 30s)
	TimeProvider    data.TimeProvider    // Optional: defaults to the system clock
	Metrics         statsd.Sink          // Optional: metrics sink
	Logger          *slog.Logger         // Optional: structured logger
}

// CredentialService verifies the API key presented by callers.
type CredentialService struct {
	resolver        core.SecretResolver
	cache           core.CredentialCache
	name            string
	ttl             time.Duration
	refreshInterval time.Duration
	clock           data.TimeProvider
	metrics         statsd.Sink
	logger          *slog.Logger

	mu          sync.Mutex
	lastRefresh time.Time
}

// NewCredentialService constructs a CredentialService.
func NewCredentialService(opts CredentialServiceOptions) (*CredentialService, error) {
	if opts.Resolver == nil {
		return nil, errors.New("SecretResolver is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("CredentialCache is required")
	}
	if strings.TrimSpace(opts.Name) == "" {
		return nil, errors.New("credential name is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultCredentialTTL
	}
	interval := opts.RefreshInterval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	clock := opts.TimeProvider
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialService{
		resolver:        opts.Resolver,
		cache:           opts.Cache,
		name:            opts.Name,
		ttl:             ttl,
		refreshInterval: interval,
		clock:           clock,
		metrics:         opts.Metrics,
		logger:          logger.With("component", "credential_service"),
	}, nil
}

// Credential returns the current API key, resolving it on a cache miss.
func (s *CredentialService) Credential(ctx context.Context) (string, error) {
	if v, ok := s.cache.Get(s.name); ok {
		return v, nil
	}
	return s.resolve(ctx)
}

// Verify checks presented against the current API key. On a mismatch the cached value is
// dropped and re-resolved once, so a rotated key is accepted without a restart.
func (s *CredentialService) Verify(ctx context.Context, presented string) error {
	if presented == "" {
		metrics.EmitAuth(s.metrics, false, false)
		return apperrors.Unauthenticated("missing API key")
	}

	expected, err := s.Credential(ctx)
	if err != nil {
		return err
	}
	if equalKeys(presented, expected) {
		metrics.EmitAuth(s.metrics, true, false)
		return nil
	}

	if !s.claimRefresh() {
		metrics.EmitAuth(s.metrics, false, false)
		return apperrors.Unauthenticated("invalid API key")
	}
	s.cache.Invalidate(s.name)
	expected, err = s.resolve(ctx)
	if err != nil {
		return err
	}
	if equalKeys(presented, expected) {
		s.logger.InfoContext(ctx, "accepted API key after credential refresh")
		metrics.EmitAuth(s.metrics, true, true)
		return nil
	}
	metrics.EmitAuth(s.metrics, false, true)
	return apperrors.Unauthenticated("invalid API key")
}

func (s *CredentialService) resolve(ctx context.Context) (string, error) {
	v, err := s.resolver.Resolve(ctx, s.name)
	if err != nil {
		s.logger.ErrorContext(ctx, "credential resolution failed", "name", s.name, "error", err)
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to resolve API credential")
	}
	if v == "" {
		return "", apperrors.Internal("API credential is empty")
	}
	s.cache.Set(s.name, v, s.ttl)
	return v, nil
}

// claimRefresh rate-limits forced refreshes so bad keys cannot hammer the resolver.
func (s *CredentialService) claimRefresh() bool {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastRefresh.IsZero() && now.Sub(s.lastRefresh) < s.refreshInterval {
		return false
	}
	s.lastRefresh = now
	return true
}

func equalKeys(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
