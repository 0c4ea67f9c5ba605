package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Runner is a unit of background work registered under a name
type Runner interface {
	Name() string
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner
type RunnerFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name returns the job name
func (f RunnerFunc) Name() string { return f.JobName }

// Run calls the function
func (f RunnerFunc) Run(ctx context.Context) error { return f.Fn(ctx) }

// Job is one execution of a registered runner
type Job struct {
	ID          uuid.UUID
	Name        string
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time

	done     chan struct{}
	doneOnce sync.Once
}

// NewJob creates a pending job
func NewJob(name string, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Name:       name,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
		done:       make(chan struct{}),
	}
}

// Done is closed once the job finished for good, retries included
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) finish() {
	j.doneOnce.Do(func() { close(j.done) })
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry
func (j *Job) ScheduleRetry(delay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// Config holds scheduler configuration
type Config struct {
	Workers       int
	QueueSize     int
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Workers:       2,
		QueueSize:     100,
		JobTimeout:    5 * time.Minute,
		RetryAttempts: 0,
		RetryDelay:    30 * time.Second,
	}
}

// Scheduler runs submitted jobs on a fixed pool of workers
type Scheduler struct {
	config  Config
	runners map[string]Runner
	logger  *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a scheduler for the given runners
func NewScheduler(config Config, logger *zap.Logger, runners ...Runner) *Scheduler {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultConfig().JobTimeout
	}

	byName := make(map[string]Runner, len(runners))
	for _, r := range runners {
		byName[r.Name()] = r
	}
	return &Scheduler{
		config:  config,
		runners: byName,
		logger:  logger,
		jobs:    make(chan *Job, config.QueueSize),
	}
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := range s.config.Workers {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout))
	return nil
}

// Stop cancels running jobs and waits for the workers until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	close(s.jobs)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues an execution of the named runner
func (s *Scheduler) Submit(name string) (*Job, error) {
	if _, ok := s.runners[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	job := NewJob(name, s.config.RetryAttempts)
	return job, s.enqueue(job)
}

func (s *Scheduler) enqueue(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("job", job.Name))
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	if job.NextRetryAt != nil {
		select {
		case <-time.After(time.Until(*job.NextRetryAt)):
		case <-ctx.Done():
			job.finish()
			return
		}
	}

	job.Start()
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.run(jobCtx, job); err != nil {
		job.Fail(err.Error())
		s.logger.Error("Job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("job", job.Name),
			zap.Error(err))

		if job.ShouldRetry() {
			job.ScheduleRetry(s.config.RetryDelay)
			err := s.enqueue(job)
			if err == nil {
				return
			}
			s.logger.Warn("Failed to re-queue job for retry",
				zap.String("job_id", job.ID.String()),
				zap.Error(err))
		}
		job.finish()
		return
	}

	job.Complete()
	job.finish()
	s.logger.Debug("Job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job", job.Name),
		zap.Duration("duration", job.CompletedAt.Sub(*job.StartedAt)))
}

// run executes the runner, turning a panic into an error
func (s *Scheduler) run(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return s.runners[job.Name].Run(ctx)
}
