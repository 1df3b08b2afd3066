package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"newsfeed/internal/ports"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 60 * time.Second
)

// Job is one scheduled pipeline task.
type Job struct {
	Name   string
	Driver ports.Scheduler
	Run    func(ctx context.Context) error
}

// JobPolicy bounds every run: soft limit logs a warning, hard limit cancels
// the run's context, failures retry with a fixed delay.
type JobPolicy struct {
	SoftTimeLimit time.Duration
	HardTimeLimit time.Duration
	MaxAttempts   int
	RetryDelay    time.Duration
	// StartRate caps how often one job type may start, independent of its
	// schedule (default: once per minute).
	StartRate rate.Limit
}

// JobRunner drives the registered jobs under a shared retry/time-limit policy.
type JobRunner struct {
	jobs     []Job
	limiters map[string]*rate.Limiter
	policy   JobPolicy
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewJobRunner applies policy defaults and wires the optional ops notifier.
func NewJobRunner(policy JobPolicy, notifier ports.Notifier, logger *slog.Logger) *JobRunner {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = defaultMaxAttempts
	}
	if policy.RetryDelay <= 0 {
		policy.RetryDelay = defaultRetryDelay
	}
	if policy.HardTimeLimit <= 0 {
		policy.HardTimeLimit = 10 * time.Minute
	}
	if policy.SoftTimeLimit <= 0 || policy.SoftTimeLimit > policy.HardTimeLimit {
		policy.SoftTimeLimit = policy.HardTimeLimit * 8 / 10
	}
	if policy.StartRate == 0 {
		policy.StartRate = rate.Every(time.Minute)
	}
	return &JobRunner{
		limiters: make(map[string]*rate.Limiter),
		policy:   policy,
		notifier: notifier,
		logger:   logger,
	}
}

// Register adds a job to the runner. Not safe after Start.
func (r *JobRunner) Register(job Job) {
	r.jobs = append(r.jobs, job)
	r.limiters[job.Name] = rate.NewLimiter(r.policy.StartRate, 1)
}

// Start launches every registered job on its driver.
func (r *JobRunner) Start(ctx context.Context) error {
	for _, job := range r.jobs {
		job := job
		err := job.Driver.Start(ctx, func(time.Time) {
			r.execute(ctx, job)
		})
		if err != nil {
			return fmt.Errorf("start job %s: %w", job.Name, err)
		}
	}
	return nil
}

// Stop tears down every job driver.
func (r *JobRunner) Stop(ctx context.Context) error {
	var errs []error
	for _, job := range r.jobs {
		if err := job.Driver.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop job %s: %w", job.Name, err))
		}
	}
	return errors.Join(errs...)
}

// execute runs one trigger of a job: rate-gated start, bounded attempts with
// a fixed delay between them, and an ops report when all attempts fail.
func (r *JobRunner) execute(ctx context.Context, job Job) {
	limiter := r.limiters[job.Name]
	if limiter != nil && !limiter.Allow() {
		r.logger.Debug("job start rate-limited, skipping trigger", "job", job.Name)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		lastErr = r.runOnce(ctx, job)
		if lastErr == nil {
			return
		}

		r.logger.Error("job run failed", "job", job.Name, "attempt", attempt, "error", lastErr)

		if attempt == r.policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.policy.RetryDelay):
		}
	}

	r.logger.Error("job exhausted retries", "job", job.Name, "attempts", r.policy.MaxAttempts, "error", lastErr)
	if r.notifier != nil {
		msg := fmt.Sprintf("newsfeed: job %q failed after %d attempts: %v", job.Name, r.policy.MaxAttempts, lastErr)
		if err := r.notifier.Notify(ctx, msg); err != nil {
			r.logger.Warn("failure notification not delivered", "job", job.Name, "error", err)
		}
	}
}

// runOnce executes a single attempt under the hard wall-clock limit; crossing
// the soft limit only logs a warning.
func (r *JobRunner) runOnce(ctx context.Context, job Job) error {
	runCtx, cancel := context.WithTimeout(ctx, r.policy.HardTimeLimit)
	defer cancel()

	softTimer := time.AfterFunc(r.policy.SoftTimeLimit, func() {
		r.logger.Warn("job exceeded soft time limit", "job", job.Name, "soft_limit", r.policy.SoftTimeLimit)
	})
	defer softTimer.Stop()

	start := time.Now()
	err := job.Run(runCtx)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("killed after hard time limit %s: %w", r.policy.HardTimeLimit, err)
		}
		return err
	}

	r.logger.Debug("job run complete", "job", job.Name, "elapsed", elapsed)
	return nil
}
