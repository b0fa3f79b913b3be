package scheduler

import (
	"context"
	"time"

	"newspulse/internal/ports"
)

const defaultInterval = 15 * time.Minute

// IntervalScheduler fires the job on a fixed interval. The job runs inline in
// the loop goroutine, so cycles never overlap; a tick that fires while a job
// is still running is dropped, not queued.
type IntervalScheduler struct {
	interval   time.Duration
	runOnStart bool
	stop       chan struct{}
	done       chan struct{}
	stopping   bool
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler with the given period. Non-positive
// intervals fall back to 15 minutes.
func NewIntervalScheduler(interval time.Duration, runOnStart bool) *IntervalScheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &IntervalScheduler{interval: interval, runOnStart: runOnStart}
}

// Start launches the ticking goroutine. Calling Start on a running scheduler
// is a no-op.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		if s.runOnStart {
			job(time.Now())
		}

		for {
			select {
			case t := <-ticker.C:
				job(t)
				// Drop the tick that may have fired while the job ran.
				select {
				case <-ticker.C:
				default:
				}
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()

	return nil
}

// Stop cancels future ticks and waits for any in-flight job to finish. The
// context bounds how long Stop itself blocks; a timed-out Stop may be retried
// and keeps waiting on the same shutdown.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}

	// The stop channel is closed exactly once, no matter how many Stop
	// attempts it takes to see the loop exit.
	if !s.stopping {
		s.stopping = true
		close(s.stop)
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.stop = nil
	s.done = nil
	s.stopping = false
	return nil
}
