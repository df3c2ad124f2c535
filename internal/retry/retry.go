// Package retry executes store-facing operations under an exponential backoff policy.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
	apperrors "github.com/target/disclosure-collector/internal/errors"
)

// Policy describes how an operation is retried.
// A Policy is a plain value; every Do call builds its own schedule so concurrent calls share nothing.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
	// MaxDelay caps the un-jittered wait. Zero means maxDelayCeiling.
	MaxDelay time.Duration
	Jitter   bool
	// ShouldRetry decides whether err is worth another attempt. Nil means apperrors.IsRetryable.
	ShouldRetry func(err error) bool
	// OnRetry is called before each wait with the failed attempt number (1-based) and the delay.
	OnRetry func(err error, attempt int, delay time.Duration)
	// Timer overrides the wait implementation. Tests use it to avoid sleeping.
	Timer backoff.Timer
}

// maxDelayCeiling bounds every wait so that adding jitter of up to the same amount cannot overflow.
const maxDelayCeiling = time.Duration(math.MaxInt64 / 2)

// DefaultPolicy returns the policy used for store calls when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     30 * time.Second,
		Jitter:       true,
	}
}

// Delay returns the un-jittered wait before retry number attempt (1-based), capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.InitialDelay <= 0 {
		return 0
	}
	ceiling := p.MaxDelay
	if ceiling <= 0 || ceiling > maxDelayCeiling {
		ceiling = maxDelayCeiling
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if math.IsNaN(d) || d >= float64(ceiling) {
		return ceiling
	}
	return time.Duration(d)
}

func (p Policy) shouldRetry(err error) bool {
	if p.ShouldRetry != nil {
		return p.ShouldRetry(err)
	}
	return apperrors.IsRetryable(err)
}

// schedule adapts Policy to backoff.BackOff.
type schedule struct {
	policy  Policy
	attempt int
}

func (s *schedule) NextBackOff() time.Duration {
	s.attempt++
	d := s.policy.Delay(s.attempt)
	if s.policy.Jitter && d > 0 {
		d += time.Duration(rand.Int64N(int64(d) + 1))
	}
	return d
}

func (s *schedule) Reset() { s.attempt = 0 }

// Do runs op until it succeeds, returns a non-retryable error, or exhausts MaxRetries.
// The error returned is the operation's own error, never wrapped, so callers can classify it.
// If ctx is canceled while waiting, ctx.Err() is returned.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	sched := &schedule{policy: p}
	b := backoff.WithContext(backoff.WithMaxRetries(sched, uint64(maxRetries)), ctx)

	operation := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !p.shouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if p.OnRetry != nil {
		notify = func(err error, d time.Duration) {
			p.OnRetry(err, sched.attempt, d)
		}
	}

	return backoff.RetryNotifyWithTimer(operation, b, notify, p.Timer)
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
