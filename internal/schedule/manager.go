// Package schedule drives every configured poll job: fixed jobs on their own
// cadence and rolling jobs that move their date window forward every day.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"seatwatch.app/internal/logging"
	"seatwatch.app/internal/models"
)

// ErrStarted is returned by Start when the manager already runs jobs.
var ErrStarted = errors.New("schedule manager already started")

// CycleRunner runs one cycle of a job.
type CycleRunner interface {
	RunCycle(ctx context.Context, job models.PollJob) error
}

// JobStatus describes one active job.
type JobStatus struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	SheetKey  string    `json:"sheetKey"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	StartDate string    `json:"startDate"`
	DaySpan   int       `json:"daySpan"`
	BothWays  bool      `json:"bothWays"`
	Priority  bool      `json:"priority"`
	Rolling   bool      `json:"rolling"`
	Cycles    int       `json:"cycles"`
	Failures  int       `json:"failures"`
	LastCycle time.Time `json:"lastCycle"`
	NextCycle time.Time `json:"nextCycle"`
}

// Manager owns the job goroutines.
type Manager struct {
	clock        Clock
	runner       CycleRunner
	recorder     Recorder
	logger       *slog.Logger
	wg           sync.WaitGroup
	shutdownOnce sync.Once

	mu      sync.Mutex
	cancel  context.CancelFunc
	nextID  int
	handles map[int]*jobHandle
}

// jobHandle is one live job loop. done is closed when the loop exits.
type jobHandle struct {
	id      int
	job     models.PollJob
	rolling bool
	cancel  context.CancelFunc
	done    chan struct{}

	cycles    int
	failures  int
	lastCycle time.Time
	nextCycle time.Time
}

// stop cancels the loop and waits for it to exit.
func (h *jobHandle) stop() {
	h.cancel()
	<-h.done
}

// NewManager builds a manager. recorder may be nil when sheets need not be
// created ahead of their first row.
func NewManager(clock Clock, runner CycleRunner, recorder Recorder, logger *slog.Logger) *Manager {
	if clock == nil {
		clock = RealClock()
	}
	return &Manager{
		clock:    clock,
		runner:   runner,
		recorder: recorder,
		logger:   logging.Component(logger, "schedule_manager"),
		handles:  make(map[int]*jobHandle),
	}
}

// Start launches every job. Schedules are validated before anything runs.
func (m *Manager) Start(ctx context.Context, jobs []models.PollJob, rolling []RollingJob) error {
	schedules := make([]cron.Schedule, len(jobs))
	for i, job := range jobs {
		schedule, err := Cadence(job)
		if err != nil {
			return err
		}
		schedules[i] = schedule
	}
	for _, r := range rolling {
		if _, err := Cadence(r.PollJob(m.clock.Now())); err != nil {
			return err
		}
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return ErrStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	for i, job := range jobs {
		m.spawn(ctx, job, schedules[i], false)
	}
	for _, r := range rolling {
		m.wg.Add(1)
		go m.runRolling(ctx, r)
	}

	logging.LogOperation(m.logger, "schedule_started",
		slog.Int("jobs", len(jobs)),
		slog.Int("rolling_jobs", len(rolling)))
	return nil
}

// Shutdown cancels every job and waits for all of them to exit.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.mu.Lock()
		cancel := m.cancel
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		m.wg.Wait()
		logging.LogOperation(m.logger, "schedule_stopped")
	})
}

// Jobs lists the active jobs ordered by start.
func (m *Manager) Jobs() []JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]JobStatus, 0, len(m.handles))
	for _, h := range m.handles {
		out = append(out, JobStatus{
			ID:        h.id,
			Name:      h.job.Name,
			SheetKey:  h.job.SheetKey(),
			From:      h.job.From,
			To:        h.job.To,
			StartDate: h.job.StartDate.Format(models.DateLayout),
			DaySpan:   h.job.Days(),
			BothWays:  h.job.BothWays,
			Priority:  h.job.Priority,
			Rolling:   h.rolling,
			Cycles:    h.cycles,
			Failures:  h.failures,
			LastCycle: h.lastCycle,
			NextCycle: h.nextCycle,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// spawn starts the loop of one job under a child context of ctx.
func (m *Manager) spawn(ctx context.Context, job models.PollJob, schedule cron.Schedule, rolling bool) *jobHandle {
	jobCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.nextID++
	h := &jobHandle{
		id:      m.nextID,
		job:     job,
		rolling: rolling,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.handles[h.id] = h
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.EnsureSheet(job.SheetKey())
	}

	m.wg.Add(1)
	go m.runJob(jobCtx, h, schedule)
	return h
}

func (m *Manager) runJob(ctx context.Context, h *jobHandle, schedule cron.Schedule) {
	defer m.wg.Done()
	defer close(h.done)
	defer h.cancel()
	defer m.release(h)

	logger := m.logger.With(slog.String("job", h.job.Name), slog.String("sheet", h.job.SheetKey()))
	logging.LogOperation(logger, "job_started",
		slog.String("start_date", h.job.StartDate.Format(models.DateLayout)),
		slog.Int("day_span", h.job.Days()),
		slog.Bool("both_ways", h.job.BothWays))

	fired := m.clock.Now()
	m.cycle(ctx, h, logger)
	if schedule == nil {
		logging.LogOperation(logger, "one_shot_job_finished")
		return
	}

	for {
		next, skipped := nextFiring(schedule, fired, m.clock.Now())
		if next.IsZero() {
			logging.LogOperation(logger, "job_schedule_exhausted")
			return
		}
		if skipped > 0 {
			logger.Warn("skipped firings while a cycle was running", slog.Int("skipped", skipped))
		}
		m.setNext(h, next)

		timer := m.clock.NewTimer(next.Sub(m.clock.Now()))
		select {
		case <-timer.C():
			fired = next
			m.cycle(ctx, h, logger)
		case <-ctx.Done():
			timer.Stop()
			logging.LogOperation(logger, "job_stopped")
			return
		}
	}
}

// cycle runs one cycle and records its outcome. Failures never end the loop.
func (m *Manager) cycle(ctx context.Context, h *jobHandle, logger *slog.Logger) {
	err := m.runner.RunCycle(ctx, h.job)

	m.mu.Lock()
	h.cycles++
	h.lastCycle = m.clock.Now()
	if err != nil {
		h.failures++
	}
	m.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		logging.LogError(logger, "poll cycle failed", err)
	}
}

func (m *Manager) setNext(h *jobHandle, next time.Time) {
	m.mu.Lock()
	h.nextCycle = next
	m.mu.Unlock()
}

func (m *Manager) release(h *jobHandle) {
	m.mu.Lock()
	delete(m.handles, h.id)
	m.mu.Unlock()
}
