// Package secretsmanager resolves credentials stored in AWS Secrets Manager.
package secretsmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	sm "github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"

	"github.com/target/disclosure-collector/internal/core"
	apperrors "github.com/target/disclosure-collector/internal/errors"
)

// API is the subset of the Secrets Manager client the resolver uses.
type API interface {
	GetSecretValue(ctx context.Context, in *sm.GetSecretValueInput, optFns ...func(*sm.Options)) (*sm.GetSecretValueOutput, error)
}

// Resolver implements core.SecretResolver.
//
// A name of the form "secret-id#field" reads field from a JSON secret string.
type Resolver struct {
	client API
	logger *slog.Logger
}

var _ core.SecretResolver = (*Resolver)(nil)

// New constructs a Resolver.
func New(client API, logger *slog.Logger) (*Resolver, error) {
	if client == nil {
		return nil, errors.New("secrets manager client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: client, logger: logger.With("component", "secretsmanager")}, nil
}

// NewFromConfig builds a Resolver from an AWS config.
func NewFromConfig(cfg aws.Config, logger *slog.Logger) (*Resolver, error) {
	return New(sm.NewFromConfig(cfg), logger)
}

// Resolve returns the current value of the named secret.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	id, field, _ := strings.Cut(strings.TrimSpace(name), "#")
	if id == "" {
		return "", apperrors.Validation("secret name is required")
	}

	out, err := r.client.GetSecretValue(ctx, &sm.GetSecretValueInput{SecretId: aws.String(id)})
	if err != nil {
		return "", classify(err, id)
	}
	value := aws.ToString(out.SecretString)
	if value == "" && len(out.SecretBinary) > 0 {
		value = string(out.SecretBinary)
	}
	if field == "" {
		return value, nil
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		return "", apperrors.Wrapf(err, apperrors.ErrCodeInternal, "secret %s is not a JSON object", id)
	}
	v, ok := fields[field]
	if !ok {
		return "", apperrors.NotFoundf("field %s not found in secret %s", field, id)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

func classify(err error, id string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return apperrors.Wrapf(err, apperrors.ErrCodeNotFound, "secret %s not found", id)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return apperrors.Throttled(err, "secrets manager throttled")
		case "InternalServiceError":
			return apperrors.Unavailable(err, "secrets manager unavailable")
		}
	}
	return apperrors.Wrapf(err, apperrors.ErrCodeInternal, "get secret %s", id)
}
