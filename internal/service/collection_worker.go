package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/data"
	"github.com/target/disclosure-collector/internal/domain/model"
	"github.com/target/disclosure-collector/internal/domain/outcome"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/observability/metrics"
	"github.com/target/disclosure-collector/internal/observability/statsd"
	"github.com/target/disclosure-collector/internal/retry"
)

const (
	defaultBatchSize         = 50
	defaultUploadConcurrency = 8
)

// CollectionWorkerOptions groups dependencies for CollectionWorker.
type CollectionWorkerOptions struct {
	Jobs         *JobStatusService   // Required: job status store
	Records      *RecordStore        // Required: idempotent record store
	Objects      core.ObjectStore    // Required: document storage
	Feed         core.DisclosureFeed // Required: upstream disclosure feed
	BatchSize    int                 // Optional: records per progress update (default 50)
	Concurrency  int                 // Optional: concurrent document uploads (default 8)
	Timeout      time.Duration       // Optional: wall clock limit per job (default 15m)
	Retry        *retry.Policy       // Optional: policy for feed and object store calls
	TimeProvider data.TimeProvider   // Optional: defaults to the system clock
	Metrics      statsd.Sink         // Optional: metrics sink
	Logger       *slog.Logger        // Optional: structured logger
}

// CollectionWorker fetches disclosures for a date range, stores their metadata and documents,
// and reports progress on the job record after every batch.
type CollectionWorker struct {
	runner      *jobRunner
	jobs        *JobStatusService
	records     *RecordStore
	objects     core.ObjectStore
	feed        core.DisclosureFeed
	batchSize   int
	concurrency int
	policy      retry.Policy
	clock       data.TimeProvider
	metrics     statsd.Sink
	logger      *slog.Logger
}

var _ core.Worker = (*CollectionWorker)(nil)

// NewCollectionWorker constructs a CollectionWorker.
func NewCollectionWorker(opts CollectionWorkerOptions) (*CollectionWorker, error) {
	switch {
	case opts.Jobs == nil:
		return nil, errors.New("JobStatusService is required")
	case opts.Records == nil:
		return nil, errors.New("RecordStore is required")
	case opts.Objects == nil:
		return nil, errors.New("ObjectStore is required")
	case opts.Feed == nil:
		return nil, errors.New("DisclosureFeed is required")
	}

	w := &CollectionWorker{
		jobs:        opts.Jobs,
		records:     opts.Records,
		objects:     opts.Objects,
		feed:        opts.Feed,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		policy:      retry.DefaultPolicy(),
		clock:       opts.TimeProvider,
		metrics:     opts.Metrics,
	}
	if w.batchSize <= 0 {
		w.batchSize = defaultBatchSize
	}
	if w.concurrency <= 0 {
		w.concurrency = defaultUploadConcurrency
	}
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
	w.logger = logger.With("component", "collection_worker")
	w.runner = newJobRunner(model.JobKindCollect, opts.Jobs, w.clock, opts.Timeout, w.logger)
	return w, nil
}

// Start registers a collection job for req and runs it in the background.
func (w *CollectionWorker) Start(ctx context.Context, req model.WorkerRequest) (*model.WorkerResponse, error) {
	if req.Kind != "" && req.Kind != model.JobKindCollect {
		return nil, apperrors.Validationf("collection worker cannot run %s jobs", req.Kind)
	}
	rng, err := model.ParseDateRange(req.StartDate, req.EndDate, w.clock.Now(), 0)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	params := model.JobParams{StartDate: rng.StartKey(), EndDate: rng.EndKey()}
	return w.runner.start(ctx, params, "Collection job accepted", func(ctx context.Context, job *model.Job) error {
		return w.collect(ctx, job, rng)
	})
}

// Wait blocks until background jobs finish or ctx is done.
func (w *CollectionWorker) Wait(ctx context.Context) error {
	return w.runner.wait(ctx)
}

func (w *CollectionWorker) collect(ctx context.Context, job *model.Job, rng model.DateRange) error {
	if _, err := w.jobs.Update(ctx, job.JobID, model.JobUpdate{
		Status:   model.StatusPtr(model.JobStatusRunning),
		Progress: model.IntPtr(0),
	}); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	items, err := w.fetchRange(ctx, rng)
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "collecting disclosures",
		"job_id", job.JobID,
		"start_date", rng.StartKey(),
		"end_date", rng.EndKey(),
		"items", len(items),
	)

	var summary outcome.Summary
	summary.Status = outcome.StatusSuccess
	for start := 0; start < len(items); start += w.batchSize {
		end := min(start+w.batchSize, len(items))
		batch, duplicates := w.processBatch(ctx, job.JobID, items[start:end])
		metrics.EmitBatchOutcome(w.metrics, string(model.JobKindCollect), batch, duplicates)
		summary = summary.Merge(batch)

		if _, err := w.jobs.Update(ctx, job.JobID, model.JobUpdate{
			Progress: model.IntPtr(progressFor(end, len(items))),
			Counts:   &model.JobCounts{Collected: summary.Collected, Failed: summary.Failed},
		}); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
	}

	final := model.JobUpdate{
		Status:  model.StatusPtr(summary.JobStatus()),
		Counts:  &model.JobCounts{Collected: summary.Collected, Failed: summary.Failed},
		Outcome: model.StringPtr(string(summary.Status)),
	}
	if summary.JobStatus() == model.JobStatusFailed {
		final.ErrorMessage = model.StringPtr(fmt.Sprintf("all %d disclosures failed to store", summary.Failed))
	}
	if _, err := w.jobs.Update(ctx, job.JobID, final); err != nil {
		return fmt.Errorf("finalize job: %w", err)
	}
	w.logger.InfoContext(ctx, "collection finished",
		"job_id", job.JobID,
		"outcome", summary.Status,
		"collected", summary.Collected,
		"failed", summary.Failed,
	)
	return nil
}

func (w *CollectionWorker) fetchRange(ctx context.Context, rng model.DateRange) ([]model.FeedItem, error) {
	var items []model.FeedItem
	policy := withRetryHooks(w.policy, "feed.fetch", w.metrics, w.logger)
	for day := range rng.Days() {
		dayItems, err := retry.DoValue(ctx, policy, func(ctx context.Context) ([]model.FeedItem, error) {
			return w.feed.Fetch(ctx, day)
		})
		if err != nil {
			return nil, fmt.Errorf("fetch disclosures for %s: %w", day.Format(model.DateLayout), err)
		}
		items = append(items, dayItems...)
	}
	return items, nil
}

// processBatch stores one batch and returns its summary and the number of duplicates.
// A created record counts as collected once its document is stored and attached.
func (w *CollectionWorker) processBatch(ctx context.Context, jobID string, items []model.FeedItem) (outcome.Summary, int) {
	now := w.clock.Now()
	settled := make([]outcome.Settled, 0, len(items))
	records := make([]*model.Disclosure, 0, len(items))
	for _, item := range items {
		d, err := model.NewDisclosure(item, jobID, now)
		if err != nil {
			w.logger.WarnContext(ctx, "skipping invalid feed item", "job_id", jobID, "item_id", item.ID, "error", err)
			settled = append(settled, outcome.Rejected(item.ID, apperrors.Validation(err.Error())))
			continue
		}
		records = append(records, d)
	}

	res := w.records.PutMany(ctx, records)

	// Duplicates are left out of the aggregate. A duplicate whose earlier delivery never got
	// its document attached is repaired here so its storage key does not stay empty.
	docs := make([]outcome.Settled, len(records))
	counted := make([]bool, len(records))
	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for i, d := range records {
		switch {
		case !res.Settled[i].OK():
			docs[i], counted[i] = res.Settled[i], true
			continue
		case res.Results[i] == model.PutAlreadyExists:
			if d.SourceURL != "" {
				g.Go(func() error {
					w.repairDocument(ctx, jobID, d)
					return nil
				})
			}
			continue
		case d.SourceURL == "":
			docs[i], counted[i] = outcome.Fulfilled(d.RecordID), true
			continue
		}
		counted[i] = true
		g.Go(func() error {
			if err := w.storeDocument(ctx, d); err != nil {
				w.logger.ErrorContext(ctx, "document upload failed", "job_id", jobID, "record_id", d.RecordID, "error", err)
				docs[i] = outcome.Rejected(d.RecordID, err)
				return nil
			}
			docs[i] = outcome.Fulfilled(d.RecordID)
			return nil
		})
	}
	_ = g.Wait()

	for i, st := range docs {
		if counted[i] {
			settled = append(settled, st)
		}
	}
	return outcome.Classify(settled), res.Duplicates
}

// repairDocument stores the document of an already persisted record when it has no storage key.
// Failures are logged only; the record was not produced by this run.
func (w *CollectionWorker) repairDocument(ctx context.Context, jobID string, d *model.Disclosure) {
	existing, err := w.records.Get(ctx, d.RecordID)
	if err != nil {
		w.logger.WarnContext(ctx, "duplicate lookup failed", "job_id", jobID, "record_id", d.RecordID, "error", err)
		return
	}
	if existing.HasArtifact() {
		return
	}
	if existing.SourceURL == "" {
		existing.SourceURL = d.SourceURL
	}
	if err := w.storeDocument(ctx, existing); err != nil {
		w.logger.ErrorContext(ctx, "document repair failed", "job_id", jobID, "record_id", d.RecordID, "error", err)
		return
	}
	w.logger.InfoContext(ctx, "attached missing document", "job_id", jobID, "record_id", d.RecordID)
}

type document struct {
	body        []byte
	contentType string
}

// storeDocument copies the source document into the object store and then attaches its key.
func (w *CollectionWorker) storeDocument(ctx context.Context, d *model.Disclosure) error {
	doc, err := retry.DoValue(ctx, withRetryHooks(w.policy, "feed.download", w.metrics, w.logger),
		func(ctx context.Context) (document, error) {
			body, contentType, err := w.feed.Download(ctx, d.SourceURL)
			return document{body: body, contentType: contentType}, err
		})
	if err != nil {
		return fmt.Errorf("download document: %w", err)
	}

	key := d.DocumentKey()
	err = retry.Do(ctx, withRetryHooks(w.policy, "object.put", w.metrics, w.logger), func(ctx context.Context) error {
		return w.objects.Put(ctx, key, bytes.NewReader(doc.body), doc.contentType)
	})
	if err != nil {
		return fmt.Errorf("upload document: %w", err)
	}

	if _, err := w.records.AttachStorageKey(ctx, d.RecordID, key); err != nil {
		return fmt.Errorf("attach storage key: %w", err)
	}
	return nil
}
