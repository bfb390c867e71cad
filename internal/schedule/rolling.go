package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"seatwatch.app/internal/logging"
	"seatwatch.app/internal/models"
)

const (
	DefaultRerollEvery    = 24 * time.Hour
	DefaultRollingDaySpan = 7
)

// RollingJob polls a window of days starting tomorrow in both directions.
// Every RerollEvery the window moves forward to the new tomorrow.
type RollingJob struct {
	Name        string
	From        string
	To          string
	Interval    time.Duration
	Cron        string
	RerollEvery time.Duration
	DaySpan     int
	Priority    bool
}

func (r RollingJob) rerollEvery() time.Duration {
	if r.RerollEvery <= 0 {
		return DefaultRerollEvery
	}
	return r.RerollEvery
}

// PollJob is the inner job for a window rolled at now.
func (r RollingJob) PollJob(now time.Time) models.PollJob {
	span := r.DaySpan
	if span <= 0 {
		span = DefaultRollingDaySpan
	}
	return models.PollJob{
		Name:      r.Name,
		From:      r.From,
		To:        r.To,
		StartDate: Tomorrow(now),
		DaySpan:   span,
		BothWays:  true,
		Interval:  r.Interval,
		Cron:      r.Cron,
		Priority:  r.Priority,
	}
}

// Tomorrow is local midnight of the day after now.
func Tomorrow(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// rollingState is Idle while inner is nil and Polling otherwise.
type rollingState struct {
	inner *jobHandle
}

// reroll moves Idle or Polling(h) to Polling(h'). The previous loop has fully
// exited before the next one starts.
func (s *rollingState) reroll(start func() *jobHandle) {
	s.idle()
	s.inner = start()
}

// idle moves Polling(h) to Idle.
func (s *rollingState) idle() {
	if s.inner != nil {
		s.inner.stop()
		s.inner = nil
	}
}

func (m *Manager) runRolling(ctx context.Context, r RollingJob) {
	defer m.wg.Done()

	logger := m.logger.With(slog.String("rolling_job", r.Name))
	outer := cron.Every(r.rerollEvery())
	var state rollingState

	start := func() *jobHandle {
		job := r.PollJob(m.clock.Now())
		// Schedules were validated in Start.
		schedule, _ := Cadence(job)
		logging.LogOperation(logger, "rolling_window_moved",
			slog.String("start_date", job.StartDate.Format(models.DateLayout)),
			slog.String("sheet", job.SheetKey()))
		return m.spawn(ctx, job, schedule, true)
	}

	rolled := m.clock.Now()
	state.reroll(start)
	for {
		next, _ := nextFiring(outer, rolled, m.clock.Now())
		timer := m.clock.NewTimer(next.Sub(m.clock.Now()))
		select {
		case <-timer.C():
			rolled = next
			state.reroll(start)
		case <-ctx.Done():
			timer.Stop()
			state.idle()
			return
		}
	}
}
