package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func waitDone(t *testing.T, job *Job) {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("job %s did not finish", job.Name)
	}
}

func startScheduler(t *testing.T, cfg Config, runners ...Runner) *Scheduler {
	t.Helper()
	s := NewScheduler(cfg, zap.NewNop(), runners...)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func TestScheduler_RunsSubmittedJob(t *testing.T) {
	var calls atomic.Int32
	s := startScheduler(t, DefaultConfig(), RunnerFunc{JobName: "count", Fn: func(context.Context) error {
		calls.Add(1)
		return nil
	}})

	job, err := s.Submit("count")
	require.NoError(t, err)
	waitDone(t, job)

	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_UnknownJob(t *testing.T) {
	s := startScheduler(t, DefaultConfig())

	_, err := s.Submit("missing")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestScheduler_RetriesFailedJob(t *testing.T) {
	var calls atomic.Int32
	cfg := DefaultConfig()
	cfg.RetryAttempts = 2
	cfg.RetryDelay = time.Millisecond
	s := startScheduler(t, cfg, RunnerFunc{JobName: "flaky", Fn: func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("temporary")
		}
		return nil
	}})

	job, err := s.Submit("flaky")
	require.NoError(t, err)
	waitDone(t, job)

	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.Equal(t, 2, job.RetryCount)
	assert.Equal(t, int32(3), calls.Load())
}

func TestScheduler_PanicFailsJob(t *testing.T) {
	s := startScheduler(t, DefaultConfig(), RunnerFunc{JobName: "bad", Fn: func(context.Context) error {
		panic("nil map")
	}})

	job, err := s.Submit("bad")
	require.NoError(t, err)
	waitDone(t, job)

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "panicked")
}

func TestScheduler_SubmitAfterStop(t *testing.T) {
	s := NewScheduler(DefaultConfig(), zap.NewNop(), RunnerFunc{JobName: "noop", Fn: func(context.Context) error { return nil }})

	_, err := s.Submit("noop")
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	_, err = s.Submit("noop")
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestIntervalTrigger_FiresRepeatedly(t *testing.T) {
	var calls atomic.Int32
	s := startScheduler(t, DefaultConfig(), RunnerFunc{JobName: "tick", Fn: func(context.Context) error {
		calls.Add(1)
		return nil
	}})

	trigger := NewIntervalTrigger("tick", 10*time.Millisecond, s, zap.NewNop())
	require.NoError(t, trigger.Start(context.Background()))
	defer trigger.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestIntervalTrigger_SkipsWhileRunning(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	s := startScheduler(t, DefaultConfig(), RunnerFunc{JobName: "slow", Fn: func(ctx context.Context) error {
		calls.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}})

	trigger := NewIntervalTrigger("slow", 5*time.Millisecond, s, zap.NewNop())
	require.NoError(t, trigger.Start(context.Background()))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	trigger.Stop()
}
