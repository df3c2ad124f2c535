package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/data"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/observability/statsd"
	"github.com/target/disclosure-collector/internal/retry"
)

const (
	exportContentType = "text/csv"
	defaultExportRows = 10000
	maxExportRows     = 50000
)

var exportHeader = []string{
	"record_id", "company_code", "company_name", "title", "category",
	"disclosed_at", "date_key", "source_url", "storage_key", "job_id",
}

// ExportWorkerOptions groups dependencies for ExportWorker.
type ExportWorkerOptions struct {
	Jobs         *JobStatusService // Required: job status store
	Records      *RecordStore      // Required: record queries
	Objects      core.ObjectStore  // Required: artifact storage
	Grants       *GrantIssuer      // Required: signs the artifact link
	URLTTL       time.Duration     // Optional: lifetime of the export link (default: issuer default)
	MaxRows      int               // Optional: row limit per export (default 10000, at most 50000)
	Timeout      time.Duration     // Optional: wall clock limit per job (default 15m)
	Retry        *retry.Policy     // Optional: policy for object store writes
	TimeProvider data.TimeProvider // Optional: defaults to the system clock
	Metrics      statsd.Sink       // Optional: metrics sink
	Logger       *slog.Logger      // Optional: structured logger
}

// ExportWorker writes the records of a date range to a CSV artifact and links it from the job.
type ExportWorker struct {
	runner  *jobRunner
	jobs    *JobStatusService
	records *RecordStore
	objects core.ObjectStore
	grants  *GrantIssuer
	urlTTL  time.Duration
	maxRows int
	policy  retry.Policy
	clock   data.TimeProvider
	metrics statsd.Sink
	logger  *slog.Logger
}

var _ core.Worker = (*ExportWorker)(nil)

// NewExportWorker constructs an ExportWorker.
func NewExportWorker(opts ExportWorkerOptions) (*ExportWorker, error) {
	switch {
	case opts.Jobs == nil:
		return nil, errors.New("JobStatusService is required")
	case opts.Records == nil:
		return nil, errors.New("RecordStore is required")
	case opts.Objects == nil:
		return nil, errors.New("ObjectStore is required")
	case opts.Grants == nil:
		return nil, errors.New("GrantIssuer is required")
	}

	w := &ExportWorker{
		jobs:    opts.Jobs,
		records: opts.Records,
		objects: opts.Objects,
		grants:  opts.Grants,
		urlTTL:  opts.URLTTL,
		maxRows: opts.MaxRows,
		policy:  retry.DefaultPolicy(),
		clock:   opts.TimeProvider,
		metrics: opts.Metrics,
	}
	if w.maxRows <= 0 {
		w.maxRows = defaultExportRows
	}
	w.maxRows = min(w.maxRows, maxExportRows)
	if opts.Retry != nil {
		w.policy = *opts.Retry
	}
	if w.clock == nil {
		w.clock = &data.RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w.logger = logger.With("component", "export_worker")
	w.runner = newJobRunner(model.JobKindExport, opts.Jobs, w.clock, opts.Timeout, w.logger)
	return w, nil
}

// Start registers an export job for req and runs it in the background.
func (w *ExportWorker) Start(ctx context.Context, req model.WorkerRequest) (*model.WorkerResponse, error) {
	if req.Kind != "" && req.Kind != model.JobKindExport {
		return nil, apperrors.Validationf("export worker cannot run %s jobs", req.Kind)
	}
	rng, err := model.ParseDateRange(req.StartDate, req.EndDate, w.clock.Now(), 0)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	params := model.JobParams{StartDate: rng.StartKey(), EndDate: rng.EndKey(), CompanyCode: req.CompanyCode}
	return w.runner.start(ctx, params, "Export job accepted", func(ctx context.Context, job *model.Job) error {
		// One row past the cap tells a full export from a truncated one.
		return w.export(ctx, job, model.DisclosureQuery{Range: rng, CompanyCode: req.CompanyCode, Limit: w.maxRows + 1})
	})
}

// Wait blocks until background jobs finish or ctx is done.
func (w *ExportWorker) Wait(ctx context.Context) error {
	return w.runner.wait(ctx)
}

func (w *ExportWorker) export(ctx context.Context, job *model.Job, q model.DisclosureQuery) error {
	if _, err := w.jobs.Update(ctx, job.JobID, model.JobUpdate{
		Status:   model.StatusPtr(model.JobStatusProcessing),
		Progress: model.IntPtr(10),
	}); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	records, err := w.records.ListByDateRange(ctx, q)
	if err != nil {
		return fmt.Errorf("list disclosures: %w", err)
	}
	if len(records) > w.maxRows {
		return fmt.Errorf("export exceeds the %d row limit; narrow the date range or filter by company_code", w.maxRows)
	}
	if _, err := w.jobs.Update(ctx, job.JobID, model.JobUpdate{Progress: model.IntPtr(40)}); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}

	body, err := encodeCSV(records)
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	key := "exports/" + job.JobID + ".csv"
	err = retry.Do(ctx, withRetryHooks(w.policy, "object.put", w.metrics, w.logger), func(ctx context.Context) error {
		return w.objects.Put(ctx, key, bytes.NewReader(body), exportContentType)
	})
	if err != nil {
		return fmt.Errorf("upload export: %w", err)
	}
	if _, err := w.jobs.Update(ctx, job.JobID, model.JobUpdate{Progress: model.IntPtr(80)}); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}

	grant, err := w.grants.IssueForKey(ctx, key, w.urlTTL)
	if err != nil {
		return fmt.Errorf("sign export: %w", err)
	}

	if _, err := w.jobs.Update(ctx, job.JobID, model.JobUpdate{
		Status:  model.StatusPtr(model.JobStatusCompleted),
		Counts:  &model.JobCounts{Collected: len(records)},
		Outcome: model.StringPtr("success"),
		Result: &model.ResultReference{
			StorageKey:  key,
			DownloadURL: grant.URL,
			ExpiresAt:   grant.ExpiresAt,
			RecordCount: len(records),
		},
	}); err != nil {
		return fmt.Errorf("finalize job: %w", err)
	}
	w.logger.InfoContext(ctx, "export finished", "job_id", job.JobID, "records", len(records), "storage_key", key)
	return nil
}

func encodeCSV(records []*model.Disclosure) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, d := range records {
		storageKey := ""
		if d.StorageKey != nil {
			storageKey = *d.StorageKey
		}
		if err := cw.Write([]string{
			d.RecordID,
			d.CompanyCode,
			d.CompanyName,
			d.Title,
			d.Category,
			d.DisclosedAt.UTC().Format(time.RFC3339),
			d.DateKey,
			d.SourceURL,
			storageKey,
			d.JobID,
		}); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}
