package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/retry"
)

var t0 = time.Date(2024, 1, 14, 9, 30, 0, 0, time.UTC)

// fastPolicy retries without waiting.
func fastPolicy(maxRetries int) *retry.Policy {
	return &retry.Policy{MaxRetries: maxRetries, Multiplier: 2}
}

func errThrottled() error {
	return apperrors.Throttled(errors.New("ProvisionedThroughputExceeded"), "store throttled")
}

// logBuffer is a goroutine-safe sink for a JSON slog handler.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *logBuffer) Lines(substr string) []string {
	var out []string
	for _, line := range strings.Split(b.String(), "\n") {
		if strings.Contains(line, substr) {
			out = append(out, line)
		}
	}
	return out
}

func newTestLogger() (*slog.Logger, *logBuffer) {
	buf := &logBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func testDisclosure(id string) *model.Disclosure {
	d, err := model.NewDisclosure(model.FeedItem{
		ID:          id,
		CompanyCode: "7203",
		CompanyName: "Toyota Motor",
		Title:       "Quarterly report " + id,
		DisclosedAt: time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC),
		DocumentURL: "https://feed.example.com/docs/" + id + ".pdf",
	}, "collect_1_deadbeef", t0)
	if err != nil {
		panic(err)
	}
	return d
}

// memJobRepo is an in-memory JobStatusRepository that enforces the job lifecycle.
type memJobRepo struct {
	mu      sync.Mutex
	jobs    map[string]model.Job
	updates []model.JobUpdate
	clock   func() time.Time
}

func newMemJobRepo(clock func() time.Time) *memJobRepo {
	return &memJobRepo{jobs: make(map[string]model.Job), clock: clock}
}

func (r *memJobRepo) Create(_ context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.JobID]; ok {
		return apperrors.Conflict("job already exists")
	}
	r.jobs[job.JobID] = *job
	return nil
}

func (r *memJobRepo) Update(_ context.Context, jobID string, u model.JobUpdate) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.jobs[jobID]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}
	next, err := cur.Apply(u, r.clock())
	if errors.Is(err, model.ErrJobTerminal) {
		return nil, apperrors.Conflict(err.Error())
	}
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	r.jobs[jobID] = next
	r.updates = append(r.updates, u)
	return &next, nil
}

func (r *memJobRepo) Get(_ context.Context, jobID string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.jobs[jobID]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}
	return &cur, nil
}

func (r *memJobRepo) progressHistory() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, u := range r.updates {
		if u.Progress != nil {
			out = append(out, *u.Progress)
		}
	}
	return out
}
