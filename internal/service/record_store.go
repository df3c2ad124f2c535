package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/domain/model"
	"github.com/target/disclosure-collector/internal/domain/outcome"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/observability/metrics"
	"github.com/target/disclosure-collector/internal/observability/statsd"
	"github.com/target/disclosure-collector/internal/retry"
)

const defaultPutConcurrency = 16

// RecordStoreOptions groups dependencies for RecordStore.
type RecordStoreOptions struct {
	Repo        core.DisclosureRepository // Required: disclosure metadata store
	Retry       *retry.Policy             // Optional: defaults to retry.DefaultPolicy()
	Concurrency int                       // Optional: PutMany fan-out limit (default 16)
	Metrics     statsd.Sink               // Optional: metrics sink
	Logger      *slog.Logger              // Optional: structured logger
}

// RecordStore writes disclosure records idempotently. A record that already exists is reported
// as model.PutAlreadyExists and is never an error.
type RecordStore struct {
	repo        core.DisclosureRepository
	policy      retry.Policy
	concurrency int
	metrics     statsd.Sink
	logger      *slog.Logger
}

// BatchResult is the settled result of PutMany. Settled and Results share the input order.
type BatchResult struct {
	Settled    []outcome.Settled
	Results    []model.PutResult
	Created    int
	Duplicates int
}

// Summary classifies the batch. Duplicates were written by an earlier delivery, so they count
// as neither collected nor failed.
func (r BatchResult) Summary() outcome.Summary {
	counted := make([]outcome.Settled, 0, len(r.Settled))
	for i, st := range r.Settled {
		if st.OK() && r.Results[i] == model.PutAlreadyExists {
			continue
		}
		counted = append(counted, st)
	}
	return outcome.Classify(counted)
}

// NewRecordStore constructs a RecordStore.
func NewRecordStore(opts RecordStoreOptions) (*RecordStore, error) {
	if opts.Repo == nil {
		return nil, errors.New("DisclosureRepository is required")
	}
	policy := retry.DefaultPolicy()
	if opts.Retry != nil {
		policy = *opts.Retry
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultPutConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStore{
		repo:        opts.Repo,
		policy:      policy,
		concurrency: concurrency,
		metrics:     opts.Metrics,
		logger:      logger.With("component", "record_store"),
	}, nil
}

// Put writes d unless a record with the same id exists. Derived fields must already be set.
func (s *RecordStore) Put(ctx context.Context, d *model.Disclosure) (model.PutResult, error) {
	if d == nil {
		return 0, apperrors.Validation("disclosure is required")
	}
	if err := d.Validate(); err != nil {
		return 0, apperrors.Validation(err.Error())
	}

	res, err := retry.DoValue(ctx, s.retryPolicy("disclosure.insert"), func(ctx context.Context) (model.PutResult, error) {
		return s.repo.Insert(ctx, d)
	})
	// Some backends report the losing side of a concurrent insert as a conflict.
	if apperrors.IsConflict(err) {
		res, err = model.PutAlreadyExists, nil
	}
	if err != nil {
		return 0, err
	}

	if res == model.PutAlreadyExists {
		s.logger.WarnContext(ctx, "disclosure already exists",
			"record_id", d.RecordID,
			"job_id", d.JobID,
			"date_key", d.DateKey,
		)
	}
	return res, nil
}

// PutMany writes every record concurrently. One record's failure never cancels the others;
// each input gets a settled outcome keyed by record id. Duplicates settle as fulfilled.
func (s *RecordStore) PutMany(ctx context.Context, ds []*model.Disclosure) BatchResult {
	out := BatchResult{
		Settled: make([]outcome.Settled, len(ds)),
		Results: make([]model.PutResult, len(ds)),
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, d := range ds {
		g.Go(func() error {
			key := ""
			if d != nil {
				key = d.RecordID
			}
			res, err := s.Put(ctx, d)
			if err != nil {
				s.logger.ErrorContext(ctx, "disclosure write failed", "record_id", key, "error", err)
				out.Settled[i] = outcome.Rejected(key, err)
				return nil
			}
			out.Results[i] = res
			out.Settled[i] = outcome.Fulfilled(key)
			return nil
		})
	}
	_ = g.Wait()

	for i, st := range out.Settled {
		if st.Err != nil {
			continue
		}
		switch out.Results[i] {
		case model.PutCreated:
			out.Created++
		case model.PutAlreadyExists:
			out.Duplicates++
		}
	}
	return out
}

// AttachStorageKey records where the document for recordID was written.
// It reports false when a key was already attached.
func (s *RecordStore) AttachStorageKey(ctx context.Context, recordID, storageKey string) (bool, error) {
	if recordID == "" || storageKey == "" {
		return false, apperrors.Validation("record_id and storage_key are required")
	}
	return retry.DoValue(ctx, s.retryPolicy("disclosure.attach"), func(ctx context.Context) (bool, error) {
		return s.repo.AttachStorageKey(ctx, recordID, storageKey)
	})
}

// Get returns the record with the given id.
func (s *RecordStore) Get(ctx context.Context, recordID string) (*model.Disclosure, error) {
	if recordID == "" {
		return nil, apperrors.ValidationField("record_id", "record_id is required")
	}
	return retry.DoValue(ctx, s.retryPolicy("disclosure.get"), func(ctx context.Context) (*model.Disclosure, error) {
		return s.repo.GetByID(ctx, recordID)
	})
}

// ListByDateRange returns records whose partition key falls in q.Range.
func (s *RecordStore) ListByDateRange(ctx context.Context, q model.DisclosureQuery) ([]*model.Disclosure, error) {
	if q.Range.End.Before(q.Range.Start) {
		return nil, apperrors.Validation("start_date must be on or before end_date")
	}
	return retry.DoValue(ctx, s.retryPolicy("disclosure.list"), func(ctx context.Context) ([]*model.Disclosure, error) {
		return s.repo.ListByDateRange(ctx, q)
	})
}

func (s *RecordStore) retryPolicy(op string) retry.Policy {
	return withRetryHooks(s.policy, op, s.metrics, s.logger)
}

// withRetryHooks returns p with an OnRetry hook that logs and counts each retry.
func withRetryHooks(p retry.Policy, op string, sink statsd.Sink, logger *slog.Logger) retry.Policy {
	next := p.OnRetry
	p.OnRetry = func(err error, attempt int, delay time.Duration) {
		logger.Warn("retrying store operation",
			"op", op,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		metrics.EmitStoreRetry(sink, op, attempt, err)
		if next != nil {
			next(err, attempt, delay)
		}
	}
	return p
}
