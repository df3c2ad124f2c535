package workerclient

import (
	"context"
	"errors"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
)

// LocalInvoker dispatches launch requests to workers running in the same process.
type LocalInvoker struct {
	workers map[model.JobKind]core.Worker
}

var _ core.WorkerInvoker = (*LocalInvoker)(nil)

// NewLocalInvoker constructs a LocalInvoker. Every registered kind must have a worker.
func NewLocalInvoker(workers map[model.JobKind]core.Worker) (*LocalInvoker, error) {
	if len(workers) == 0 {
		return nil, errors.New("at least one worker is required")
	}
	out := make(map[model.JobKind]core.Worker, len(workers))
	for kind, w := range workers {
		if !kind.Valid() {
			return nil, apperrors.Validationf("unknown job kind %q", kind)
		}
		if w == nil {
			return nil, apperrors.Validationf("worker for %q is nil", kind)
		}
		out[kind] = w
	}
	return &LocalInvoker{workers: out}, nil
}

// Invoke calls the worker registered for req.Kind.
func (l *LocalInvoker) Invoke(ctx context.Context, req model.WorkerRequest) (*model.WorkerResponse, error) {
	w, ok := l.workers[req.Kind]
	if !ok {
		return nil, apperrors.Internalf("no worker registered for %q", req.Kind)
	}
	return w.Start(ctx, req)
}
