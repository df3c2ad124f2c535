package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/data"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
)

const (
	defaultCollectMaxAge      = 365 * 24 * time.Hour
	defaultExportWindowDays   = 30
	maxCompanyCodeLength      = 16
	collectionLaunchedMessage = "Collection job started"
	exportLaunchedMessage     = "Export job started"
)

// LauncherOptions groups dependencies for Launcher.
type LauncherOptions struct {
	Invoker          core.WorkerInvoker // Required: delivers launch requests to workers
	TimeProvider     data.TimeProvider  // Optional: defaults to the system clock
	MaxAge           time.Duration      // Optional: oldest allowed collection start (default 365 days)
	ExportWindowDays int                // Optional: export range when no dates are given (default 30)
	Logger           *slog.Logger       // Optional: structured logger
}

// Launcher validates launch requests and hands them to the owning worker.
// Each launch makes exactly one synchronous worker call and returns the worker's job id.
type Launcher struct {
	invoker      core.WorkerInvoker
	clock        data.TimeProvider
	maxAge       time.Duration
	exportWindow int
	logger       *slog.Logger
}

// NewLauncher constructs a Launcher.
func NewLauncher(opts LauncherOptions) (*Launcher, error) {
	if opts.Invoker == nil {
		return nil, errors.New("WorkerInvoker is required")
	}
	clock := opts.TimeProvider
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = defaultCollectMaxAge
	}
	window := opts.ExportWindowDays
	if window <= 0 {
		window = defaultExportWindowDays
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		invoker:      opts.Invoker,
		clock:        clock,
		maxAge:       maxAge,
		exportWindow: window,
		logger:       logger.With("component", "launcher"),
	}, nil
}

// LaunchCollection starts a collection run over [StartDate, EndDate].
// The response status is always pending, even if the worker has already moved on.
func (l *Launcher) LaunchCollection(ctx context.Context, req model.CollectRequest) (*model.LaunchResponse, error) {
	rng, err := model.ParseDateRange(req.StartDate, req.EndDate, l.clock.Now(), l.maxAge)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	return l.launch(ctx, model.WorkerRequest{
		Kind:      model.JobKindCollect,
		StartDate: rng.StartKey(),
		EndDate:   rng.EndKey(),
	}, model.JobStatusPending, collectionLaunchedMessage)
}

// LaunchExport starts an export run. With no dates it covers the configured trailing window.
func (l *Launcher) LaunchExport(ctx context.Context, req model.ExportRequest) (*model.LaunchResponse, error) {
	now := l.clock.Now()
	start, end := req.StartDate, req.EndDate

	var rng model.DateRange
	if start == "" && end == "" {
		rng = model.LastDays(now, l.exportWindow)
	} else {
		var err error
		if rng, err = model.ParseDateRange(start, end, now, 0); err != nil {
			return nil, apperrors.Validation(err.Error())
		}
	}

	company := strings.ToUpper(strings.TrimSpace(req.CompanyCode))
	if len(company) > maxCompanyCodeLength {
		return nil, apperrors.ValidationField("company_code", "company_code is too long")
	}

	return l.launch(ctx, model.WorkerRequest{
		Kind:        model.JobKindExport,
		StartDate:   rng.StartKey(),
		EndDate:     rng.EndKey(),
		CompanyCode: company,
	}, model.JobStatusProcessing, exportLaunchedMessage)
}

func (l *Launcher) launch(
	ctx context.Context,
	req model.WorkerRequest,
	status model.JobStatus,
	message string,
) (*model.LaunchResponse, error) {
	resp, err := l.invoker.Invoke(ctx, req)
	if err != nil {
		l.logger.ErrorContext(ctx, "worker invocation failed", "kind", req.Kind, "error", err)
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "failed to start %s job", req.Kind)
	}
	if resp == nil || strings.TrimSpace(resp.JobID) == "" {
		l.logger.ErrorContext(ctx, "worker response missing job id", "kind", req.Kind)
		return nil, apperrors.Internalf("failed to start %s job: worker returned no job id", req.Kind)
	}

	startedAt := resp.StartedAt
	if startedAt.IsZero() {
		startedAt = l.clock.Now()
	}
	l.logger.InfoContext(ctx, "job launched",
		"kind", req.Kind,
		"job_id", resp.JobID,
		"start_date", req.StartDate,
		"end_date", req.EndDate,
	)
	return &model.LaunchResponse{
		JobID:     resp.JobID,
		Status:    status,
		Message:   message,
		StartedAt: startedAt.UTC(),
	}, nil
}
