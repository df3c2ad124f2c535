package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/target/disclosure-collector/internal/data/pgxutil"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
)

// JobStatusRepo stores job records in Postgres.
type JobStatusRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewJobStatusRepo creates a JobStatusRepo. A nil TimeProvider uses the system clock.
func NewJobStatusRepo(db *sql.DB, tp TimeProvider) *JobStatusRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &JobStatusRepo{DB: db, timeProvider: tp}
}

const jobStatusColumns = `
  job_id,
  kind,
  status,
  progress,
  collected,
  failed,
  outcome,
  params,
  result,
  error_message,
  started_at,
  updated_at,
  completed_at
`

// Create inserts a new job record. A duplicate job id is a conflict.
func (r *JobStatusRepo) Create(ctx context.Context, job *model.Job) error {
	if job == nil {
		return apperrors.Validation("job is required")
	}
	if err := job.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	params, result, err := marshalJobJSON(job)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO collector_jobs (
			job_id, kind, status, progress, collected, failed, outcome,
			params, result, error_message, started_at, updated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, job.JobID, job.Kind, job.Status, job.Progress, job.Counts.Collected, job.Counts.Failed, job.Outcome,
		params, result, job.ErrorMessage, job.StartedAt, job.UpdatedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("create job %s: %w", job.JobID, apperrors.MapDBError(err))
	}
	return nil
}

// Get loads a job by id. Reads never touch updated_at.
func (r *JobStatusRepo) Get(ctx context.Context, jobID string) (*model.Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, apperrors.ValidationField("job_id", "job_id is required")
	}

	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+jobStatusColumns+` FROM collector_jobs WHERE job_id = $1`, jobID)
		var scanErr error
		job, scanErr = scanJob(row)
		return scanErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("job %s not found", jobID)
		}
		return nil, fmt.Errorf("get job %s: %w", jobID, apperrors.MapDBError(err))
	}
	return job, nil
}

// Update applies u under a row lock so the lifecycle rules in model.Job.Apply hold even if
// a second writer appears.
func (r *JobStatusRepo) Update(ctx context.Context, jobID string, u model.JobUpdate) (*model.Job, error) {
	var updated model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			row := tx.QueryRow(ctx, `SELECT `+jobStatusColumns+` FROM collector_jobs WHERE job_id = $1 FOR UPDATE`, jobID)
			current, err := scanJob(row)
			if err != nil {
				return err
			}

			updated, err = current.Apply(u, r.timeProvider.Now())
			if err != nil {
				return err
			}

			params, result, err := marshalJobJSON(&updated)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				UPDATE collector_jobs SET
					status = $2,
					progress = $3,
					collected = $4,
					failed = $5,
					outcome = $6,
					params = $7,
					result = $8,
					error_message = $9,
					updated_at = $10,
					completed_at = $11
				WHERE job_id = $1
			`, updated.JobID, updated.Status, updated.Progress, updated.Counts.Collected, updated.Counts.Failed,
				updated.Outcome, params, result, updated.ErrorMessage, updated.UpdatedAt, updated.CompletedAt)
			return err
		},
	})
	if err != nil {
		return nil, mapJobUpdateErr(jobID, err)
	}
	return &updated, nil
}

func mapJobUpdateErr(jobID string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NotFoundf("job %s not found", jobID)
	case errors.Is(err, model.ErrJobTerminal):
		return apperrors.Wrapf(err, apperrors.ErrCodeConflict, "job %s is already finished", jobID)
	case errors.Is(err, model.ErrInvalidUpdate):
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	default:
		return fmt.Errorf("update job %s: %w", jobID, apperrors.MapDBError(err))
	}
}

func marshalJobJSON(job *model.Job) ([]byte, []byte, error) {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal job params: %w", err)
	}
	var result []byte
	if job.Result != nil {
		if result, err = json.Marshal(job.Result); err != nil {
			return nil, nil, fmt.Errorf("marshal job result: %w", err)
		}
	}
	return params, result, nil
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		job    model.Job
		params []byte
		result []byte
	)
	if err := row.Scan(
		&job.JobID,
		&job.Kind,
		&job.Status,
		&job.Progress,
		&job.Counts.Collected,
		&job.Counts.Failed,
		&job.Outcome,
		&params,
		&result,
		&job.ErrorMessage,
		&job.StartedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.Params); err != nil {
			return nil, fmt.Errorf("decode job params: %w", err)
		}
	}
	if len(result) > 0 {
		var ref model.ResultReference
		if err := json.Unmarshal(result, &ref); err != nil {
			return nil, fmt.Errorf("decode job result: %w", err)
		}
		job.Result = &ref
	}
	return &job, nil
}
