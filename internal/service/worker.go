package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/target/disclosure-collector/internal/data"
	"github.com/target/disclosure-collector/internal/domain/model"
)

const (
	defaultWorkerTimeout = 15 * time.Minute
	finalizeTimeout      = 30 * time.Second
	maxErrorMessageLen   = 1024
)

// jobFunc performs the work for a registered job. It owns all progress updates.
type jobFunc func(ctx context.Context, job *model.Job) error

// jobRunner registers jobs and runs them in the background, detached from the request that
// started them. A job that returns an error or panics is marked failed.
type jobRunner struct {
	kind    model.JobKind
	jobs    *JobStatusService
	clock   data.TimeProvider
	timeout time.Duration
	logger  *slog.Logger

	wg sync.WaitGroup
}

func newJobRunner(
	kind model.JobKind,
	jobs *JobStatusService,
	clock data.TimeProvider,
	timeout time.Duration,
	logger *slog.Logger,
) *jobRunner {
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}
	if timeout <= 0 {
		timeout = defaultWorkerTimeout
	}
	return &jobRunner{kind: kind, jobs: jobs, clock: clock, timeout: timeout, logger: logger}
}

// start creates the pending job record and returns once it is stored.
func (r *jobRunner) start(ctx context.Context, params model.JobParams, message string, run jobFunc) (*model.WorkerResponse, error) {
	now := r.clock.Now()
	job := model.NewJob(model.NewJobID(r.kind, now), r.kind, params, now)
	if err := r.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		r.execute(bg, job, run)
	}()

	return &model.WorkerResponse{
		JobID:     job.JobID,
		Status:    job.Status,
		Message:   message,
		StartedAt: job.StartedAt,
	}, nil
}

func (r *jobRunner) execute(ctx context.Context, job *model.Job, run jobFunc) {
	logger := r.logger.With("job_id", job.JobID)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("job panicked", "panic", rec, "stack", string(debug.Stack()))
			r.fail(ctx, job, fmt.Errorf("panic: %v", rec))
		}
	}()

	if err := run(ctx, job); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("job exceeded %s: %w", r.timeout, err)
		}
		logger.Error("job failed", "error", err)
		r.fail(ctx, job, err)
	}
}

// fail marks the job failed. It uses a fresh deadline because ctx may already be expired.
func (r *jobRunner) fail(ctx context.Context, job *model.Job, cause error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	msg := cause.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	_, err := r.jobs.Update(fctx, job.JobID, model.JobUpdate{
		Status:       model.StatusPtr(model.JobStatusFailed),
		Outcome:      model.StringPtr(string(model.JobStatusFailed)),
		ErrorMessage: model.StringPtr(msg),
	})
	if err != nil {
		r.logger.Error("failed to record job failure", "job_id", job.JobID, "error", err)
	}
}

// wait blocks until every running job finished or ctx is done.
func (r *jobRunner) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// progressFor maps processed/total onto 0..99; 100 is reserved for completion.
func progressFor(processed, total int) int {
	if total <= 0 {
		return 0
	}
	p := processed * 100 / total
	if p > 99 {
		p = 99
	}
	return p
}
