// Package s3store implements core.ObjectStore on Amazon S3 or any S3-compatible endpoint.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/target/disclosure-collector/internal/core"
	apperrors "github.com/target/disclosure-collector/internal/errors"
)

// API is the subset of the S3 client the store uses.
type API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner is the subset of s3.PresignClient the store uses.
type Presigner interface {
	PresignGetObject(
		ctx context.Context,
		in *s3.GetObjectInput,
		optFns ...func(*s3.PresignOptions),
	) (*v4.PresignedHTTPRequest, error)
}

// Options configures a Store.
type Options struct {
	Client    API          // Required
	Presigner Presigner    // Required
	Bucket    string       // Required
	Logger    *slog.Logger // Optional
}

// Store reads and writes objects in a single bucket.
type Store struct {
	client    API
	presigner Presigner
	bucket    string
	logger    *slog.Logger
}

var _ core.ObjectStore = (*Store)(nil)

// New constructs a Store.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("s3 client is required")
	}
	if opts.Presigner == nil {
		return nil, errors.New("s3 presigner is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("bucket is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:    opts.Client,
		presigner: opts.Presigner,
		bucket:    opts.Bucket,
		logger:    logger.With("component", "s3store", "bucket", opts.Bucket),
	}, nil
}

// ClientConfig holds endpoint overrides for S3-compatible stores.
type ClientConfig struct {
	Endpoint       string
	ForcePathStyle bool
}

// NewFromConfig builds a Store from an AWS config.
func NewFromConfig(cfg aws.Config, bucket string, cc ClientConfig, logger *slog.Logger) (*Store, error) {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if cc.Endpoint != "" {
			o.BaseEndpoint = aws.String(cc.Endpoint)
		}
		o.UsePathStyle = cc.ForcePathStyle
	})
	return New(Options{
		Client:    client,
		Presigner: s3.NewPresignClient(client),
		Bucket:    bucket,
		Logger:    logger,
	})
}

// Exists returns nil if key is present and a not-found error if it is definitively absent.
func (s *Store) Exists(ctx context.Context, key string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return classify(err, "head object "+key)
}

// Put uploads body under key.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return classify(err, "put object "+key)
	}
	s.logger.DebugContext(ctx, "object stored", "key", key)
	return nil
}

// PresignGet returns a GET URL for key valid for ttl.
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "presign "+key)
	}
	return req.URL, nil
}

var throttleCodes = map[string]bool{
	"SlowDown":                      true,
	"Throttling":                    true,
	"ThrottlingException":           true,
	"RequestLimitExceeded":          true,
	"TooManyRequestsException":      true,
	"RequestThrottled":              true,
	"ProvisionedThroughputExceeded": true,
}

// classify maps SDK errors onto apperrors kinds so callers can decide whether to retry.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, op+": not found")
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.ErrorCode(); {
		case code == "NotFound" || code == "NoSuchKey":
			return apperrors.Wrap(err, apperrors.ErrCodeNotFound, op+": not found")
		case throttleCodes[code]:
			return apperrors.Throttled(err, op+": throttled")
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch status := respErr.HTTPStatusCode(); {
		case status == http.StatusNotFound:
			return apperrors.Wrap(err, apperrors.ErrCodeNotFound, op+": not found")
		case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
			return apperrors.Throttled(err, op+": throttled")
		case status >= http.StatusInternalServerError:
			return apperrors.Unavailable(err, op+": service error")
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperrors.Unavailable(err, op+": network error")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, fmt.Sprintf("%s failed", op))
}
