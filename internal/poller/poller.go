// Package poller tracks a remote generation job until it reaches a terminal
// status. Polling uses a fixed interval after an initial delay, with optional
// caps on the number of attempts and on the total elapsed time.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"postcreator/internal/domain"
	"postcreator/internal/infra"
)

// ErrExhausted is returned when the attempt or elapsed-time cap is reached
// before the job finishes.
var ErrExhausted = errors.New("poller: job did not finish in time")

const (
	DefaultInitialDelay = 1000 * time.Millisecond
	DefaultInterval     = 2000 * time.Millisecond
	DefaultMaxAttempts  = 450
	DefaultMaxElapsed   = 15 * time.Minute
)

// Policy describes when polls happen and when to give up. A zero MaxAttempts
// or MaxElapsed disables that cap.
type Policy struct {
	InitialDelay time.Duration
	Interval     time.Duration
	MaxAttempts  int
	MaxElapsed   time.Duration
}

// DefaultPolicy polls one second after submission, then every two seconds,
// for at most fifteen minutes.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: DefaultInitialDelay,
		Interval:     DefaultInterval,
		MaxAttempts:  DefaultMaxAttempts,
		MaxElapsed:   DefaultMaxElapsed,
	}
}

// PolicyFromConfig builds a Policy from the loaded configuration.
func PolicyFromConfig(cfg *infra.Config) Policy {
	if cfg == nil {
		return DefaultPolicy()
	}
	return Policy{
		InitialDelay: cfg.PollInitialDelay,
		Interval:     cfg.PollInterval,
		MaxAttempts:  cfg.PollMaxAttempts,
		MaxElapsed:   cfg.PollTimeout,
	}
}

// Step is the tracker's decision after one observation.
type Step struct {
	Done  bool
	Delay time.Duration
}

// Tracker accounts attempts and elapsed time for a single job. It holds no
// timers; event-loop callers schedule Step.Delay themselves.
type Tracker struct {
	policy   Policy
	started  time.Time
	attempts int
}

// Start begins tracking a job submitted at now.
func (p Policy) Start(now time.Time) *Tracker {
	return &Tracker{policy: p, started: now}
}

// FirstDelay is the wait between submission and the first poll.
func (t *Tracker) FirstDelay() time.Duration {
	return t.policy.InitialDelay
}

// Attempts reports how many observations have been recorded.
func (t *Tracker) Attempts() int {
	return t.attempts
}

// Next records one observation. A terminal job yields Done. Otherwise the
// next poll is due after the fixed interval, unless a cap has been reached,
// in which case ErrExhausted is returned.
func (t *Tracker) Next(job *domain.Job, now time.Time) (Step, error) {
	t.attempts++
	if job != nil && job.Status.Terminal() {
		return Step{Done: true}, nil
	}
	if t.policy.MaxAttempts > 0 && t.attempts >= t.policy.MaxAttempts {
		return Step{}, ErrExhausted
	}
	if t.policy.MaxElapsed > 0 && now.Sub(t.started)+t.policy.Interval > t.policy.MaxElapsed {
		return Step{}, ErrExhausted
	}
	return Step{Delay: t.policy.Interval}, nil
}

// FetchFunc retrieves the current state of the tracked job.
type FetchFunc func(ctx context.Context) (*domain.Job, error)

// ObserveFunc receives every successfully fetched job, terminal or not.
type ObserveFunc func(job *domain.Job)

// Run polls until the job is terminal, fetch fails, a cap is reached, or ctx
// is done. Fetch failures are not retried.
func Run(ctx context.Context, policy Policy, fetch FetchFunc, observe ObserveFunc) (*domain.Job, error) {
	tracker := policy.Start(time.Now())
	timer := time.NewTimer(tracker.FirstDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		job, err := fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("poller: fetch status: %w", err)
		}
		if observe != nil {
			observe(job)
		}
		step, err := tracker.Next(job, time.Now())
		if err != nil {
			return job, err
		}
		if step.Done {
			return job, nil
		}
		timer.Reset(step.Delay)
	}
}
