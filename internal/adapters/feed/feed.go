// Package feed reads the upstream disclosure feed and downloads the documents it references.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
)

const (
	defaultTimeout = 30 * time.Second
	// DefaultMaxDocumentBytes bounds a single document download.
	DefaultMaxDocumentBytes = 50 << 20
	maxListingBytes         = 8 << 20
)

// Options configures an HTTPFeed.
type Options struct {
	// Required: base URL of the feed. Listings are read from <BaseURL>/disclosures?date=YYYY-MM-DD.
	BaseURL string

	// Optional
	HTTPClient       *http.Client
	MaxDocumentBytes int64
	UserAgent        string
	Logger           *slog.Logger
}

// HTTPFeed is a JSON feed client.
type HTTPFeed struct {
	base      *url.URL
	http      *http.Client
	maxDoc    int64
	userAgent string
	logger    *slog.Logger
}

var _ core.DisclosureFeed = (*HTTPFeed)(nil)

// New constructs an HTTPFeed.
func New(opts Options) (*HTTPFeed, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("feed base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse feed base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("feed base URL must be http or https, got %q", opts.BaseURL)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	maxDoc := opts.MaxDocumentBytes
	if maxDoc <= 0 {
		maxDoc = DefaultMaxDocumentBytes
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "disclosure-collector/1.0"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFeed{
		base:      base,
		http:      client,
		maxDoc:    maxDoc,
		userAgent: ua,
		logger:    logger.With("component", "feed"),
	}, nil
}

type listing struct {
	Items []model.FeedItem `json:"items"`
}

// Fetch returns the disclosures published on day (UTC).
func (f *HTTPFeed) Fetch(ctx context.Context, day time.Time) ([]model.FeedItem, error) {
	u := f.base.JoinPath("disclosures")
	q := u.Query()
	q.Set("date", model.DateKeyFor(day))
	u.RawQuery = q.Encode()

	body, _, err := f.get(ctx, u.String(), maxListingBytes)
	if err != nil {
		return nil, err
	}
	var out listing
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode feed listing")
	}
	f.logger.DebugContext(ctx, "feed listing fetched", "date", model.DateKeyFor(day), "items", len(out.Items))
	return out.Items, nil
}

// Download returns the document at rawURL and its content type.
func (f *HTTPFeed) Download(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", apperrors.Validationf("invalid document URL %q", rawURL)
	}
	return f.get(ctx, u.String(), f.maxDoc)
}

func (f *HTTPFeed) get(ctx context.Context, target string, limit int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, "", classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp.StatusCode, target); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", classifyTransport(err)
	}
	if int64(len(data)) > limit {
		return nil, "", apperrors.Internalf("response from %s exceeds %d bytes", target, limit)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func statusError(code int, target string) error {
	if code >= 200 && code <= 299 {
		return nil
	}
	cause := fmt.Errorf("GET %s: unexpected status %d", target, code)
	switch {
	case code == http.StatusNotFound:
		return apperrors.Wrap(cause, apperrors.ErrCodeNotFound, "feed resource not found")
	case code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable:
		return apperrors.Throttled(cause, "feed throttled")
	case code >= http.StatusInternalServerError:
		return apperrors.Unavailable(cause, "feed unavailable")
	default:
		return apperrors.Wrap(cause, apperrors.ErrCodeInternal, "feed request rejected")
	}
}

func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperrors.Unavailable(err, "feed network error")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, "feed request failed")
}
