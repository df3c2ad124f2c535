// Package workerclient delivers launch requests to collection and export workers.
package workerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
)

const (
	defaultTimeout       = 30 * time.Second
	maxResponseBodyBytes = 64 << 10
	// DefaultAPIKeyHeader is the header the worker endpoint authenticates.
	DefaultAPIKeyHeader = "X-API-Key"
	// WorkerPathPrefix is the route workers are mounted under.
	WorkerPathPrefix = "/internal/workers/"
)

// CredentialSource returns the API key presented to the worker endpoint.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// HTTPInvokerOptions configures an HTTPInvoker.
type HTTPInvokerOptions struct {
	// Required: base URL of the worker service (e.g. http://worker:8080).
	BaseURL string
	// Required: source of the API key sent with each request.
	Credentials CredentialSource

	// Optional: header carrying the API key. Defaults to X-API-Key.
	HeaderName string
	// Optional: HTTP client. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// HTTPInvoker posts launch requests to a remote worker and waits for its synchronous reply.
type HTTPInvoker struct {
	base   *url.URL
	creds  CredentialSource
	header string
	http   *http.Client
	logger *slog.Logger
}

var _ core.WorkerInvoker = (*HTTPInvoker)(nil)

// NewHTTPInvoker constructs an HTTPInvoker.
func NewHTTPInvoker(opts HTTPInvokerOptions) (*HTTPInvoker, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("worker base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse worker base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("worker base URL must be http or https, got %q", opts.BaseURL)
	}
	if opts.Credentials == nil {
		return nil, errors.New("CredentialSource is required")
	}
	header := opts.HeaderName
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPInvoker{
		base:   base,
		creds:  opts.Credentials,
		header: header,
		http:   client,
		logger: logger.With("component", "worker_client"),
	}, nil
}

// Invoke sends req to the worker owning req.Kind. It makes exactly one request.
func (c *HTTPInvoker) Invoke(ctx context.Context, req model.WorkerRequest) (*model.WorkerResponse, error) {
	if !req.Kind.Valid() {
		return nil, apperrors.Validationf("unknown job kind %q", req.Kind)
	}
	key, err := c.creds.Credential(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve worker credential: %w", err)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode worker request: %w", err)
	}

	endpoint := c.base.JoinPath(WorkerPathPrefix, string(req.Kind)).String()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(c.header, key)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, apperrors.Unavailable(err, "send request")
	}
	body, readErr := readResponseBody(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil && readErr == nil {
		readErr = closeErr
	}
	if readErr != nil {
		return nil, fmt.Errorf("read response body: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "worker rejected launch",
			"kind", req.Kind,
			"status_code", resp.StatusCode,
			"body", truncate(body, 256))
		return nil, statusError(resp.StatusCode, body)
	}

	var out model.WorkerResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode worker response: %w", err)
	}
	return &out, nil
}

func statusError(code int, body []byte) error {
	cause := fmt.Errorf("unexpected status %d: %s", code, truncate(body, 256))
	switch {
	case code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable:
		return apperrors.Throttled(cause, "worker throttled")
	case code >= http.StatusInternalServerError:
		return apperrors.Unavailable(cause, "worker unavailable")
	default:
		return apperrors.Wrap(cause, apperrors.ErrCodeInternal, "worker rejected request")
	}
}

func readResponseBody(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(body, maxResponseBodyBytes+1))
	if len(data) > maxResponseBodyBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBodyBytes)
	}
	return data, err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
