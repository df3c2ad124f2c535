package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/observability/metrics"
	"github.com/target/disclosure-collector/internal/observability/statsd"
	"github.com/target/disclosure-collector/internal/retry"
)

// JobStatusServiceOptions groups dependencies for JobStatusService.
type JobStatusServiceOptions struct {
	Repo    core.JobStatusRepository // Required: Postgres or Redis job store
	Retry   *retry.Policy            // Optional: defaults to retry.DefaultPolicy()
	Metrics statsd.Sink              // Optional: metrics sink
	Logger  *slog.Logger             // Optional: structured logger
}

// JobStatusService tracks collection and export jobs. Only the worker that created a job
// updates it; readers never change state.
type JobStatusService struct {
	repo    core.JobStatusRepository
	policy  retry.Policy
	metrics statsd.Sink
	logger  *slog.Logger
}

// NewJobStatusService constructs a JobStatusService.
func NewJobStatusService(opts JobStatusServiceOptions) (*JobStatusService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobStatusRepository is required")
	}
	policy := retry.DefaultPolicy()
	if opts.Retry != nil {
		policy = *opts.Retry
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobStatusService{
		repo:    opts.Repo,
		policy:  policy,
		metrics: opts.Metrics,
		logger:  logger.With("component", "job_status_service"),
	}, nil
}

// Create stores the initial record for job.
func (s *JobStatusService) Create(ctx context.Context, job *model.Job) error {
	if job == nil {
		return apperrors.Validation("job is required")
	}
	if err := job.Validate(); err != nil {
		return apperrors.Validation(err.Error())
	}

	attempts := 0
	err := retry.Do(ctx, s.retryPolicy("job.create"), func(ctx context.Context) error {
		attempts++
		return s.repo.Create(ctx, job)
	})
	// A retried create may collide with its own earlier attempt that did land.
	if apperrors.IsConflict(err) && attempts > 1 {
		if existing, getErr := s.repo.Get(ctx, job.JobID); getErr == nil && existing.StartedAt.Equal(job.StartedAt) {
			err = nil
		}
	}
	if err != nil {
		return err
	}

	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Kind:       string(job.Kind),
		Transition: string(model.JobStatusPending),
		Result:     metrics.ResultSuccess,
	})
	s.logger.InfoContext(ctx, "job created", "job_id", job.JobID, "kind", job.Kind)
	return nil
}

// Update applies u to the job and returns the stored record.
// Terminal jobs reject updates with a conflict error.
func (s *JobStatusService) Update(ctx context.Context, jobID string, u model.JobUpdate) (*model.Job, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job_id is required")
	}
	job, err := retry.DoValue(ctx, s.retryPolicy("job.update"), func(ctx context.Context) (*model.Job, error) {
		return s.repo.Update(ctx, jobID, u)
	})
	if err != nil {
		return nil, err
	}

	if u.Status != nil {
		m := metrics.JobMetric{
			Kind:       string(job.Kind),
			Transition: string(*u.Status),
			Result:     metrics.ResultSuccess,
		}
		if job.Status == model.JobStatusFailed {
			m.Result = metrics.ResultError
		}
		if job.CompletedAt != nil {
			m.Duration = job.CompletedAt.Sub(job.StartedAt)
		}
		metrics.EmitJobLifecycle(s.metrics, m)
	}
	return job, nil
}

// Get returns the job with the given id.
func (s *JobStatusService) Get(ctx context.Context, jobID string) (*model.Job, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job_id is required")
	}
	return retry.DoValue(ctx, s.retryPolicy("job.get"), func(ctx context.Context) (*model.Job, error) {
		return s.repo.Get(ctx, jobID)
	})
}

// GetKind returns the job only when it belongs to kind, so a collection id is not found
// through the export endpoints and vice versa.
func (s *JobStatusService) GetKind(ctx context.Context, jobID string, kind model.JobKind) (*model.Job, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Kind != kind {
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}
	return job, nil
}

func (s *JobStatusService) retryPolicy(op string) retry.Policy {
	return withRetryHooks(s.policy, op, s.metrics, s.logger)
}
