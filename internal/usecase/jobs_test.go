package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// manualScheduler exposes the trigger callback so tests fire it directly.
type manualScheduler struct {
	mu  sync.Mutex
	job func(time.Time)
}

func (s *manualScheduler) Start(_ context.Context, job func(time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job = job
	return nil
}

func (s *manualScheduler) Stop(_ context.Context) error { return nil }

func (s *manualScheduler) trigger() {
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	job(time.Now())
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func TestJobRunnerRetriesAndNotifies(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	runner := NewJobRunner(JobPolicy{
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
		StartRate:   rate.Inf,
	}, notifier, testLogger())

	var runs int
	driver := &manualScheduler{}
	runner.Register(Job{
		Name:   "flaky",
		Driver: driver,
		Run: func(context.Context) error {
			runs++
			return errors.New("still broken")
		},
	})

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	driver.trigger()

	if runs != 3 {
		t.Fatalf("expected 3 attempts, got %d", runs)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected one failure notification, got %v", notifier.messages)
	}
}

func TestJobRunnerStopsRetryingOnSuccess(t *testing.T) {
	t.Parallel()

	runner := NewJobRunner(JobPolicy{
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
		StartRate:   rate.Inf,
	}, nil, testLogger())

	var runs int
	driver := &manualScheduler{}
	runner.Register(Job{
		Name:   "recovering",
		Driver: driver,
		Run: func(context.Context) error {
			runs++
			if runs < 2 {
				return errors.New("transient")
			}
			return nil
		},
	})

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	driver.trigger()

	if runs != 2 {
		t.Fatalf("expected success on attempt 2, got %d runs", runs)
	}
}

func TestJobRunnerRateLimitsStarts(t *testing.T) {
	t.Parallel()

	runner := NewJobRunner(JobPolicy{
		RetryDelay: time.Millisecond,
		StartRate:  rate.Every(time.Hour),
	}, nil, testLogger())

	var runs int
	driver := &manualScheduler{}
	runner.Register(Job{
		Name:   "limited",
		Driver: driver,
		Run: func(context.Context) error {
			runs++
			return nil
		},
	})

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	driver.trigger()
	driver.trigger()

	if runs != 1 {
		t.Fatalf("expected the second trigger dropped, got %d runs", runs)
	}
}

func TestJobRunnerHardTimeLimit(t *testing.T) {
	t.Parallel()

	runner := NewJobRunner(JobPolicy{
		MaxAttempts:   1,
		RetryDelay:    time.Millisecond,
		HardTimeLimit: 20 * time.Millisecond,
		SoftTimeLimit: 10 * time.Millisecond,
		StartRate:     rate.Inf,
	}, nil, testLogger())

	var sawDeadline bool
	driver := &manualScheduler{}
	runner.Register(Job{
		Name:   "slow",
		Driver: driver,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			sawDeadline = errors.Is(ctx.Err(), context.DeadlineExceeded)
			return ctx.Err()
		},
	})

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	driver.trigger()

	if !sawDeadline {
		t.Fatal("expected the run context to hit its deadline")
	}
}
