// Package model defines the records exchanged between the disclosure collector's stores, workers and API.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// JobKind identifies which worker owns a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobKind string

// JobStatus represents the current lifecycle state of a job.
type JobStatus string

const (
	// JobKindCollect is a disclosure collection run.
	JobKindCollect JobKind = "collect"
	// JobKindExport is an export run over the collected corpus.
	JobKindExport JobKind = "export"

	// JobStatusPending indicates the worker registered the job but has not started work.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates a collection job is in progress.
	JobStatusRunning JobStatus = "running"
	// JobStatusProcessing indicates an export job is in progress.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates the job finished; Outcome tells whether every item succeeded.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed; ErrorMessage is set.
	JobStatusFailed JobStatus = "failed"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobKind to allow path and env parsing.
func (k *JobKind) UnmarshalText(text []byte) error {
	v := JobKind(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobKind: %q", v)
	}
	*k = v
	return nil
}

// Valid returns true if the JobKind is known.
func (k JobKind) Valid() bool {
	return k == JobKindCollect || k == JobKindExport
}

// ActiveStatus is the in-progress status used by workers of this kind.
func (k JobKind) ActiveStatus() JobStatus {
	if k == JobKindExport {
		return JobStatusProcessing
	}
	return JobStatusRunning
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further mutation is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// rank orders statuses so updates can refuse to move backwards.
func (s JobStatus) rank() int {
	switch s {
	case JobStatusPending:
		return 0
	case JobStatusRunning, JobStatusProcessing:
		return 1
	case JobStatusCompleted, JobStatusFailed:
		return 2
	default:
		return -1
	}
}

// JobCounts holds per-item tallies. Collected+Failed never exceeds the items attempted.
type JobCounts struct {
	Collected int `json:"collected"`
	Failed    int `json:"failed"`
}

// JobParams records the parameters the job was launched with.
type JobParams struct {
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	CompanyCode string `json:"company_code,omitempty"`
}

// ResultReference points to an export artifact and its current download link.
type ResultReference struct {
	StorageKey  string    `json:"storage_key"`
	DownloadURL string    `json:"download_url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	RecordCount int       `json:"record_count"`
}

// Job is the tracked state of one collection or export run.
type Job struct {
	JobID        string           `json:"job_id"`
	Kind         JobKind          `json:"kind"`
	Status       JobStatus        `json:"status"`
	Progress     int              `json:"progress"`
	Counts       JobCounts        `json:"counts"`
	Outcome      string           `json:"outcome,omitempty"`
	Params       JobParams        `json:"params"`
	StartedAt    time.Time        `json:"started_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	Result       *ResultReference `json:"result_reference,omitempty"`
}

// Validate checks the invariants of a stored job record.
func (j *Job) Validate() error {
	if strings.TrimSpace(j.JobID) == "" {
		return fmt.Errorf("job_id is required")
	}
	if !j.Kind.Valid() {
		return fmt.Errorf("invalid job kind %q", j.Kind)
	}
	if !j.Status.Valid() {
		return fmt.Errorf("invalid job status %q", j.Status)
	}
	if j.Progress < 0 || j.Progress > 100 {
		return fmt.Errorf("progress must be between 0 and 100")
	}
	if j.Counts.Collected < 0 || j.Counts.Failed < 0 {
		return fmt.Errorf("counts must be non-negative")
	}
	if j.Status.IsTerminal() != (j.CompletedAt != nil) {
		return fmt.Errorf("completed_at must be set exactly when status is terminal")
	}
	if j.ErrorMessage != nil && j.Status != JobStatusFailed {
		return fmt.Errorf("error_message is only allowed on failed jobs")
	}
	return nil
}

// JobUpdate is a partial update applied by the owning worker. Nil fields are left unchanged.
type JobUpdate struct {
	Status       *JobStatus       `json:"status,omitempty"`
	Progress     *int             `json:"progress,omitempty"`
	Counts       *JobCounts       `json:"counts,omitempty"`
	Outcome      *string          `json:"outcome,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	Result       *ResultReference `json:"result_reference,omitempty"`
}

var (
	// ErrJobTerminal is returned when an update targets a job that already completed or failed.
	ErrJobTerminal = errors.New("job is in a terminal state")
	// ErrInvalidUpdate is returned when an update would break the job lifecycle.
	ErrInvalidUpdate = errors.New("invalid job update")
)

// Apply returns a copy of j with u applied at time now, enforcing the job lifecycle:
// terminal jobs are immutable, status and progress never move backwards, updated_at never decreases,
// completed_at is set on entering a terminal status, and error_message only accompanies failure.
func (j Job) Apply(u JobUpdate, now time.Time) (Job, error) {
	if j.Status.IsTerminal() {
		return j, ErrJobTerminal
	}

	if u.Status != nil {
		if !u.Status.Valid() {
			return j, fmt.Errorf("%w: unknown status %q", ErrInvalidUpdate, *u.Status)
		}
		if u.Status.rank() < j.Status.rank() {
			return j, fmt.Errorf("%w: status cannot move from %s to %s", ErrInvalidUpdate, j.Status, *u.Status)
		}
		j.Status = *u.Status
	}
	if u.Progress != nil {
		p := clampProgress(*u.Progress)
		if p > j.Progress {
			j.Progress = p
		}
	}
	if u.Counts != nil {
		if u.Counts.Collected < 0 || u.Counts.Failed < 0 {
			return j, fmt.Errorf("%w: counts must be non-negative", ErrInvalidUpdate)
		}
		j.Counts = *u.Counts
	}
	if u.Outcome != nil {
		j.Outcome = *u.Outcome
	}
	if u.Result != nil {
		r := *u.Result
		j.Result = &r
	}
	if u.ErrorMessage != nil {
		if j.Status != JobStatusFailed {
			return j, fmt.Errorf("%w: error_message requires status %s", ErrInvalidUpdate, JobStatusFailed)
		}
		msg := *u.ErrorMessage
		j.ErrorMessage = &msg
	}

	if now.After(j.UpdatedAt) {
		j.UpdatedAt = now
	}
	if j.Status.IsTerminal() {
		completed := j.UpdatedAt
		j.CompletedAt = &completed
		if j.Status == JobStatusCompleted {
			j.Progress = 100
		}
	}
	return j, nil
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// NewJob builds the initial pending record for a job registered by a worker.
func NewJob(id string, kind JobKind, params JobParams, now time.Time) *Job {
	now = now.UTC()
	return &Job{
		JobID:     id,
		Kind:      kind,
		Status:    JobStatusPending,
		Params:    params,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// NewJobID returns an identifier of the form <prefix>_<unix millis>_<8 hex chars>.
func NewJobID(kind JobKind, now time.Time) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failures are fatal elsewhere; fall back to the clock's low bits.
		n := now.UnixNano()
		b = [4]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
	return string(kind) + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + hex.EncodeToString(b[:])
}

// StatusPtr returns a pointer to s.
func StatusPtr(s JobStatus) *JobStatus { return &s }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }
