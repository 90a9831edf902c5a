package daemon

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler triggers periodic regeneration so remote sources (git, feed)
// are re-enumerated even without filesystem events.
type Scheduler struct {
	inner    gocron.Scheduler
	interval time.Duration
}

// NewScheduler creates a scheduler that calls request with reason
// "interval" every interval. Intervals below one minute are raised to
// one minute to keep remote sources from being hammered.
func NewScheduler(interval time.Duration, request func(reason string)) (*Scheduler, error) {
	const minInterval = time.Minute
	if interval < minInterval {
		interval = minInterval
	}

	inner, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = inner.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { request("interval") }),
	)
	if err != nil {
		_ = inner.Shutdown()
		return nil, fmt.Errorf("schedule interval job: %w", err)
	}

	return &Scheduler{inner: inner, interval: interval}, nil
}

// Interval returns the effective tick interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Start begins ticking. The first tick fires after one full interval;
// the daemon already runs once at startup.
func (s *Scheduler) Start() { s.inner.Start() }

// Stop shuts the scheduler down and waits for a running task to finish.
func (s *Scheduler) Stop() error { return s.inner.Shutdown() }
