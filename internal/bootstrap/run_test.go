package bootstrap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeWaiter struct {
	block bool
	calls atomic.Int32
}

func (f *fakeWaiter) Wait(ctx context.Context) error {
	f.calls.Add(1)
	if !f.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestDrainWorkers(t *testing.T) {
	t.Run("no workers", func(t *testing.T) {
		assert.NoError(t, drainWorkers(context.Background(), nil, time.Second))
	})

	t.Run("all drained", func(t *testing.T) {
		a, b := &fakeWaiter{}, &fakeWaiter{}
		assert.NoError(t, drainWorkers(context.Background(), []waiter{a, b}, time.Second))
		assert.EqualValues(t, 1, a.calls.Load())
		assert.EqualValues(t, 1, b.calls.Load())
	})

	t.Run("timeout", func(t *testing.T) {
		stuck := &fakeWaiter{block: true}
		err := drainWorkers(context.Background(), []waiter{&fakeWaiter{}, stuck}, 20*time.Millisecond)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestRunServicesWithShutdown_RequiresConfig(t *testing.T) {
	assert.Error(t, RunServicesWithShutdown(nil))
	assert.Error(t, RunServicesWithShutdown(&ServiceOrchestrationConfig{}))
}

func TestShutdownHTTPServer_NilServer(t *testing.T) {
	assert.NoError(t, ShutdownHTTPServer(context.Background(), nil, nil))
}
