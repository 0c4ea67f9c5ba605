package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// IntervalTrigger submits a named job to the scheduler at a fixed interval.
// A tick is skipped while the previous execution is still queued.
type IntervalTrigger struct {
	name      string
	interval  time.Duration
	scheduler *Scheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	pending   *Job
}

// NewIntervalTrigger creates a trigger for the named job
func NewIntervalTrigger(name string, interval time.Duration, scheduler *Scheduler, logger *zap.Logger) *IntervalTrigger {
	return &IntervalTrigger{
		name:      name,
		interval:  interval,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Start fires once immediately and then every interval
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return nil
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Interval trigger started",
		zap.String("job", t.name),
		zap.Duration("interval", t.interval))
	return nil
}

// Stop stops the trigger loop
func (t *IntervalTrigger) Stop() {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = false
	t.cancel()
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.fire()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.fire()
		}
	}
}

func (t *IntervalTrigger) fire() {
	if t.pending != nil {
		select {
		case <-t.pending.Done():
		default:
			t.logger.Debug("Previous run still in progress, skipping tick", zap.String("job", t.name))
			return
		}
	}

	job, err := t.scheduler.Submit(t.name)
	if err != nil {
		if !errors.Is(err, ErrSchedulerNotRunning) {
			t.logger.Warn("Failed to submit job", zap.String("job", t.name), zap.Error(err))
		}
		return
	}
	t.pending = job
}
