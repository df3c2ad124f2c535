// Package core defines the ports between the disclosure collector's services and its adapters.
package core

import (
	"context"
	"io"
	"time"

	"github.com/target/disclosure-collector/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Service implementations depend on these interfaces, not concrete implementations.

// DisclosureRepository persists disclosure metadata.
type DisclosureRepository interface {
	// Insert writes d only if no record with the same RecordID exists.
	// A duplicate is reported as PutAlreadyExists, never as an error.
	Insert(ctx context.Context, d *model.Disclosure) (model.PutResult, error)
	GetByID(ctx context.Context, recordID string) (*model.Disclosure, error)
	// AttachStorageKey sets storage_key once. It returns false if the key was already set.
	AttachStorageKey(ctx context.Context, recordID, storageKey string) (bool, error)
	ListByDateRange(ctx context.Context, q model.DisclosureQuery) ([]*model.Disclosure, error)
}

// JobStatusRepository stores job records keyed by job id.
type JobStatusRepository interface {
	Create(ctx context.Context, job *model.Job) error
	// Update applies u to a non-terminal job and returns the stored result.
	// Updating a terminal job returns a conflict error.
	Update(ctx context.Context, jobID string, u model.JobUpdate) (*model.Job, error)
	Get(ctx context.Context, jobID string) (*model.Job, error)
}

// ObjectStore holds document payloads and export artifacts.
type ObjectStore interface {
	// Exists returns nil when the object is present and a not-found error when it is definitively absent.
	Exists(ctx context.Context, key string) error
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// WorkerInvoker delivers a launch request to the worker that owns the job kind and
// returns the worker's synchronous response.
type WorkerInvoker interface {
	Invoke(ctx context.Context, req model.WorkerRequest) (*model.WorkerResponse, error)
}

// Worker registers a job and runs it.
type Worker interface {
	Start(ctx context.Context, req model.WorkerRequest) (*model.WorkerResponse, error)
}

// DisclosureFeed reads the upstream disclosure source.
type DisclosureFeed interface {
	Fetch(ctx context.Context, day time.Time) ([]model.FeedItem, error)
	Download(ctx context.Context, url string) ([]byte, string, error)
}
