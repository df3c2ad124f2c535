package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
)

const (
	defaultJobKeyPrefix = "disclosure:job:"
	defaultJobTTL       = 7 * 24 * time.Hour
	maxOptimisticTries  = 5
)

// RedisJobStatusRepo stores job records as JSON documents in Redis.
// Each record expires after TTL, which replaces the table lifecycle policy used with Postgres.
type RedisJobStatusRepo struct {
	client       redis.UniversalClient
	ttl          time.Duration
	keyPrefix    string
	timeProvider TimeProvider
}

// RedisJobStatusRepoOptions configures NewRedisJobStatusRepo.
type RedisJobStatusRepoOptions struct {
	Client       redis.UniversalClient
	TTL          time.Duration
	KeyPrefix    string // Optional: defaults to "disclosure:job:"
	TimeProvider TimeProvider
}

// NewRedisJobStatusRepo creates a RedisJobStatusRepo.
func NewRedisJobStatusRepo(opts RedisJobStatusRepoOptions) *RedisJobStatusRepo {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultJobTTL
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultJobKeyPrefix
	}
	return &RedisJobStatusRepo{client: opts.Client, ttl: ttl, keyPrefix: prefix, timeProvider: tp}
}

func (r *RedisJobStatusRepo) key(jobID string) string { return r.keyPrefix + jobID }

// Create stores a new job. SET NX makes a duplicate id a conflict instead of an overwrite.
func (r *RedisJobStatusRepo) Create(ctx context.Context, job *model.Job) error {
	if job == nil {
		return apperrors.Validation("job is required")
	}
	if err := job.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	status, err := r.client.SetArgs(ctx, r.key(job.JobID), body, redis.SetArgs{Mode: "NX", TTL: r.ttl}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.Conflict(fmt.Sprintf("job %s already exists", job.JobID))
		}
		return mapRedisError(err)
	}
	if status != "OK" {
		return apperrors.Conflict(fmt.Sprintf("job %s already exists", job.JobID))
	}
	return nil
}

// Get loads a job by id.
func (r *RedisJobStatusRepo) Get(ctx context.Context, jobID string) (*model.Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, apperrors.ValidationField("job_id", "job_id is required")
	}
	raw, err := r.client.Get(ctx, r.key(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFoundf("job %s not found", jobID)
		}
		return nil, mapRedisError(err)
	}
	return decodeJob(raw)
}

// Update applies u inside WATCH/MULTI so a concurrent write forces a re-read instead of being lost.
func (r *RedisJobStatusRepo) Update(ctx context.Context, jobID string, u model.JobUpdate) (*model.Job, error) {
	key := r.key(jobID)
	var updated model.Job

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}
		current, err := decodeJob(raw)
		if err != nil {
			return err
		}
		updated, err = current.Apply(u, r.timeProvider.Now())
		if err != nil {
			return err
		}
		body, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, body, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}

	for range maxOptimisticTries {
		err := r.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return &updated, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, redis.Nil):
			return nil, apperrors.NotFoundf("job %s not found", jobID)
		case errors.Is(err, model.ErrJobTerminal):
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeConflict, "job %s is already finished", jobID)
		case errors.Is(err, model.ErrInvalidUpdate):
			return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
		default:
			return nil, mapRedisError(err)
		}
	}
	return nil, apperrors.Throttled(redis.TxFailedErr, fmt.Sprintf("job %s update contended", jobID))
}

func decodeJob(raw []byte) (*model.Job, error) {
	var job model.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

func mapRedisError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "redis call timed out")
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "redis call was canceled")
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			return apperrors.Unavailable(err, "redis unavailable")
		}
		// Server-side replies that clear up on their own.
		var redisErr redis.Error
		if errors.As(err, &redisErr) {
			msg := redisErr.Error()
			if strings.HasPrefix(msg, "LOADING") || strings.HasPrefix(msg, "BUSY") || strings.HasPrefix(msg, "TRYAGAIN") {
				return apperrors.Throttled(err, "redis busy")
			}
		}
		return fmt.Errorf("redis: %w", err)
	}
}
