package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"seatwatch.app/internal/models"
)

// Cadence returns the firing schedule of a job, or nil for a one-shot job.
// A cron expression takes precedence over the interval.
func Cadence(job models.PollJob) (cron.Schedule, error) {
	if job.Cron != "" {
		schedule, err := cron.ParseStandard(job.Cron)
		if err != nil {
			return nil, fmt.Errorf("parse cron expression %q of job %s: %w", job.Cron, job.Name, err)
		}
		return schedule, nil
	}
	if job.Interval > 0 {
		return cron.Every(job.Interval), nil
	}
	return nil, nil
}

// nextFiring returns the first firing of schedule after both prev and now.
// Firings missed while a cycle ran are skipped. A zero time means the
// schedule never fires again.
func nextFiring(schedule cron.Schedule, prev, now time.Time) (next time.Time, skipped int) {
	next = schedule.Next(prev)
	for !next.IsZero() && !next.After(now) {
		next = schedule.Next(next)
		skipped++
	}
	return next, skipped
}
