package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/data"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/observability/metrics"
	"github.com/target/disclosure-collector/internal/observability/statsd"
	"github.com/target/disclosure-collector/internal/retry"
)

// Grant TTL bounds used when GrantIssuerOptions leaves them unset.
const (
	DefaultGrantMinTTL     = 60 * time.Second
	DefaultGrantMaxTTL     = 7 * 24 * time.Hour
	DefaultGrantDefaultTTL = time.Hour
)

// GrantIssuerOptions groups dependencies for GrantIssuer.
type GrantIssuerOptions struct {
	Records      *RecordStore      // Required: disclosure lookups
	Objects      core.ObjectStore  // Required: existence checks and URL signing
	MinTTL       time.Duration     // Optional: default 60s
	MaxTTL       time.Duration     // Optional: default 7 days
	DefaultTTL   time.Duration     // Optional: default 1h
	Retry        *retry.Policy     // Optional: policy for the existence check
	TimeProvider data.TimeProvider // Optional: defaults to the system clock
	Metrics      statsd.Sink       // Optional: metrics sink
	Logger       *slog.Logger      // Optional: structured logger
}

// GrantIssuer mints time-limited download links for stored documents.
type GrantIssuer struct {
	records    *RecordStore
	objects    core.ObjectStore
	minTTL     time.Duration
	maxTTL     time.Duration
	defaultTTL time.Duration
	policy     retry.Policy
	clock      data.TimeProvider
	metrics    statsd.Sink
	logger     *slog.Logger
}

// NewGrantIssuer constructs a GrantIssuer.
func NewGrantIssuer(opts GrantIssuerOptions) (*GrantIssuer, error) {
	if opts.Records == nil {
		return nil, errors.New("RecordStore is required")
	}
	if opts.Objects == nil {
		return nil, errors.New("ObjectStore is required")
	}

	g := &GrantIssuer{
		records:    opts.Records,
		objects:    opts.Objects,
		minTTL:     opts.MinTTL,
		maxTTL:     opts.MaxTTL,
		defaultTTL: opts.DefaultTTL,
		policy:     retry.DefaultPolicy(),
		clock:      opts.TimeProvider,
		metrics:    opts.Metrics,
	}
	if g.minTTL <= 0 {
		g.minTTL = DefaultGrantMinTTL
	}
	if g.maxTTL <= 0 {
		g.maxTTL = DefaultGrantMaxTTL
	}
	if g.defaultTTL <= 0 {
		g.defaultTTL = DefaultGrantDefaultTTL
	}
	if g.minTTL > g.maxTTL {
		return nil, errors.New("MinTTL must not exceed MaxTTL")
	}
	if g.defaultTTL < g.minTTL || g.defaultTTL > g.maxTTL {
		return nil, errors.New("DefaultTTL must be within [MinTTL, MaxTTL]")
	}
	if opts.Retry != nil {
		g.policy = *opts.Retry
	}
	if g.clock == nil {
		g.clock = &data.RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g.logger = logger.With("component", "grant_issuer")
	return g, nil
}

// ParseTTLSeconds parses the expiration query parameter. An empty value yields nil.
func ParseTTLSeconds(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.ValidationField("expiration", "expiration must be an integer number of seconds")
	}
	return &n, nil
}

// Issue returns a download grant for the document behind recordID. ttlSeconds is optional;
// it is validated before any store is touched. A record without a stored document, or whose
// document is missing from the object store, is reported as not found.
func (g *GrantIssuer) Issue(ctx context.Context, recordID string, ttlSeconds *int) (grant *model.Grant, err error) {
	defer func() { metrics.EmitGrant(g.metrics, err) }()

	ttl, err := g.resolveTTL(ttlSeconds)
	if err != nil {
		return nil, err
	}
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return nil, apperrors.ValidationField("record_id", "record_id is required")
	}

	record, err := g.records.Get(ctx, recordID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFoundf("disclosure %s not found", recordID)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load disclosure")
	}
	if !record.HasArtifact() {
		return nil, apperrors.NotFoundf("document not found: artifact not associated with disclosure %s", recordID)
	}

	key := *record.StorageKey
	err = retry.Do(ctx, withRetryHooks(g.policy, "object.exists", g.metrics, g.logger), func(ctx context.Context) error {
		return g.objects.Exists(ctx, key)
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			g.logger.WarnContext(ctx, "stored document missing", "record_id", recordID, "storage_key", key)
			return nil, apperrors.NotFoundf("document not found in storage for disclosure %s", recordID)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to verify document")
	}

	return g.sign(ctx, key, ttl)
}

// IssueForKey signs key directly. The export worker uses it for artifacts it has just written.
func (g *GrantIssuer) IssueForKey(ctx context.Context, key string, ttl time.Duration) (*model.Grant, error) {
	if strings.TrimSpace(key) == "" {
		return nil, apperrors.Validation("storage key is required")
	}
	if ttl <= 0 {
		ttl = g.defaultTTL
	}
	if ttl < g.minTTL || ttl > g.maxTTL {
		return nil, g.ttlError()
	}
	return g.sign(ctx, key, ttl)
}

// sign fixes the issuance time before signing so the reported expiry never trails the signature's.
func (g *GrantIssuer) sign(ctx context.Context, key string, ttl time.Duration) (*model.Grant, error) {
	issued := g.clock.Now().UTC()
	url, err := g.objects.PresignGet(ctx, key, ttl)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to sign download url")
	}
	return &model.Grant{
		TargetKey: key,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
		URL:       url,
	}, nil
}

func (g *GrantIssuer) resolveTTL(ttlSeconds *int) (time.Duration, error) {
	if ttlSeconds == nil {
		return g.defaultTTL, nil
	}
	secs := int64(*ttlSeconds)
	if secs < int64(g.minTTL/time.Second) || secs > int64(g.maxTTL/time.Second) {
		return 0, g.ttlError()
	}
	return time.Duration(secs) * time.Second, nil
}

func (g *GrantIssuer) ttlError() error {
	minSecs, maxSecs := int(g.minTTL/time.Second), int(g.maxTTL/time.Second)
	msg := fmt.Sprintf("expiration must be between %d and %d seconds", minSecs, maxSecs)
	return apperrors.ValidationField("expiration", msg).
		WithDetail("min_seconds", minSecs).
		WithDetail("max_seconds", maxSecs)
}
