// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/robfig/cron/v3"
)

// Job is one run of a scheduled task.
type Job func(ctx context.Context) error

// Scheduler runs a Job each time its schedule fires until the context ends.
// Runs never overlap: the next fire time is computed after a run finishes.
type Scheduler struct {
	name     string
	schedule cron.Schedule
	job      Job
	log      logging.Logger
	now      func() time.Time
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 1h") and returns a scheduler for job.
func New(name, spec string, job Job, log logging.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return newWithSchedule(name, schedule, job, log), nil
}

func newWithSchedule(name string, schedule cron.Schedule, job Job, log logging.Logger) *Scheduler {
	return &Scheduler{
		name:     name,
		schedule: schedule,
		job:      job,
		log:      log.With("module", "scheduler", "job", name),
		now:      time.Now,
	}
}

// Run blocks until ctx is done. Job errors are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info(ctx, "Starting scheduler")
	for {
		now := s.now()
		timer := time.NewTimer(s.schedule.Next(now).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info(ctx, "Stopping scheduler")
			return
		case <-timer.C:
			if err := s.job(ctx); err != nil {
				s.log.Error(ctx, "scheduled job failed", "error", err)
			}
		}
	}
}
