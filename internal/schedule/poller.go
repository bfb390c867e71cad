package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"seatwatch.app/internal/logging"
	"seatwatch.app/internal/models"
	"seatwatch.app/internal/query"
	"seatwatch.app/internal/workbook"
)

// Fetcher runs one query against the availability source.
type Fetcher interface {
	Fetch(ctx context.Context, q models.Query) models.RouteResult
}

// Aggregator reduces the results of one cycle to a row.
type Aggregator interface {
	Aggregate(ctx context.Context, results []models.RouteResult, sheetKey string, priority bool) models.SnapshotRow
}

// Recorder is where cycle rows end up.
type Recorder interface {
	EnsureSheet(key string) workbook.Handle
	AppendRow(ctx context.Context, key string, row models.SnapshotRow) error
}

// Poller runs single poll cycles.
type Poller struct {
	fetcher    Fetcher
	aggregator Aggregator
	recorder   Recorder
	logger     *slog.Logger
}

func NewPoller(fetcher Fetcher, aggregator Aggregator, recorder Recorder, logger *slog.Logger) *Poller {
	return &Poller{
		fetcher:    fetcher,
		aggregator: aggregator,
		recorder:   recorder,
		logger:     logging.Component(logger, "poller"),
	}
}

// RunCycle fetches every query of the job concurrently, waits for all of
// them, then aggregates and appends one row. A cycle whose context ends
// before the join completes is dropped and the context error returned.
func (p *Poller) RunCycle(ctx context.Context, job models.PollJob) error {
	start := time.Now()
	sheetKey := job.SheetKey()
	logger := p.logger.With(
		slog.String("cycle_id", uuid.NewString()),
		slog.String("job", job.Name),
		slog.String("sheet", sheetKey))
	ctx = logging.WithLogger(ctx, logger)

	queries := query.BuildQueries(job)
	results := make([]models.RouteResult, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q models.Query) {
			defer wg.Done()
			results[i] = p.fetcher.Fetch(ctx, q)
		}(i, q)
	}
	wg.Wait()

	// Check for context cancellation
	if err := ctx.Err(); err != nil {
		logger.Debug("dropping cancelled cycle", slog.Int("queries", len(queries)))
		return err
	}

	failed := 0
	for _, result := range results {
		if !result.OK() {
			failed++
		}
	}

	row := p.aggregator.Aggregate(ctx, results, sheetKey, job.Priority)
	if err := p.recorder.AppendRow(ctx, sheetKey, row); err != nil {
		return fmt.Errorf("record cycle of %s: %w", sheetKey, err)
	}

	logging.LogOperation(logger, "poll_cycle_completed",
		slog.Int("queries", len(queries)),
		slog.Int("failed_queries", failed),
		slog.Int("groups", len(row.Titles)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
