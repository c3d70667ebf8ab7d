// Package ptsflush provides the periodic-flush scheduler collaborator the
// store depends on to run a task at a fixed interval and cancel it
// promptly, without waiting for the next tick.
package ptsflush

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs task repeatedly at interval until Stop is called. Stop
// must not block waiting for the next scheduled tick.
type Scheduler interface {
	Start(interval time.Duration, task func()) error
	Stop()
}

// CronScheduler is a Scheduler backed by a robfig/cron runner holding one
// fixed-delay entry. It
// deliberately does not wait for an in-flight task on Stop — the task
// (the store's Flush) serializes its own re-entry, so the scheduler's only
// job is to stop scheduling new runs as soon as possible.
type CronScheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewCronScheduler creates a CronScheduler.
func NewCronScheduler(logger zerolog.Logger) *CronScheduler {
	return &CronScheduler{logger: logger.With().Str("component", "pts-flush-scheduler").Logger()}
}

// Start schedules task to run every interval. Calling Start twice replaces
// any previously scheduled task.
func (s *CronScheduler) Start(interval time.Duration, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("ptsflush: schedule periodic flush: interval must be positive, got %s", interval)
	}
	if s.cron != nil {
		s.cron.Stop()
	}
	s.cron = cron.New()
	s.cron.Schedule(fixedDelay(interval), cron.FuncJob(task))
	s.cron.Start()
	s.logger.Info().Dur("interval", interval).Msg("periodic flush scheduler started")
	return nil
}

// Stop cancels future runs immediately; it does not wait for a task
// currently in progress.
func (s *CronScheduler) Stop() {
	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.logger.Info().Msg("periodic flush scheduler stopped")
}

// fixedDelay is a cron.Schedule that fires every d exactly, without the
// whole-second rounding of cron's "@every" spec.
type fixedDelay time.Duration

func (d fixedDelay) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}
