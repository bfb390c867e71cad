// Package aggregate turns the raw results of one poll cycle into a snapshot
// row.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"seatwatch.app/internal/logging"
	"seatwatch.app/internal/models"
)

// DefaultCutoff is the time of day before which a train must reach the
// arrival station to be counted.
const DefaultCutoff = 6 * time.Hour

const rowTimeLayout = "15:04:05"

// Notifier is told about individual priority trains with free seats.
type Notifier interface {
	Notify(ctx context.Context, train models.Train, seats int)
}

// Gate reports whether notifications are currently allowed.
type Gate interface {
	Enabled() bool
}

type Config struct {
	// ArrivalStation is the station whose arrival time is checked against
	// Cutoff. Trains not terminating there are checked by departure time.
	ArrivalStation string
	// Cutoff is a time of day expressed as an offset from midnight.
	Cutoff time.Duration
}

// Aggregator filters, groups and sums train results.
type Aggregator struct {
	config   Config
	notifier Notifier
	gate     Gate
	now      func() time.Time
	logger   *slog.Logger
}

// New builds an Aggregator. now supplies the row timestamp; it defaults to
// time.Now.
func New(config Config, notifier Notifier, gate Gate, now func() time.Time, logger *slog.Logger) *Aggregator {
	if config.Cutoff <= 0 {
		config.Cutoff = DefaultCutoff
	}
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		config:   config,
		notifier: notifier,
		gate:     gate,
		now:      now,
		logger:   logging.Component(logger, "aggregator"),
	}
}

// Aggregate combines all results of one cycle into a row. Error-tagged
// results are dropped; it never fails.
func (a *Aggregator) Aggregate(ctx context.Context, results []models.RouteResult, sheetKey string, priority bool) models.SnapshotRow {
	row := models.NewSnapshotRow(a.now().Format(rowTimeLayout))

	var trains []models.Train
	dropped := 0
	for _, result := range results {
		if !result.OK() {
			dropped++
			continue
		}
		trains = append(trains, result.Trains...)
	}

	kept := 0
	for _, train := range trains {
		if !a.inWindow(train) {
			continue
		}
		kept++

		seats := train.Seats()
		if priority && seats > 0 && a.notificationsAllowed() {
			a.notifier.Notify(ctx, train, seats)
		}
		row.Add(Title(train), models.SeatCount(seats))
	}

	a.logger.Debug("aggregated cycle",
		slog.String("sheet", sheetKey),
		slog.Int("results", len(results)),
		slog.Int("dropped_results", dropped),
		slog.Int("trains", len(trains)),
		slog.Int("trains_in_window", kept),
		slog.Int("groups", len(row.Titles)))

	return row
}

func (a *Aggregator) notificationsAllowed() bool {
	return a.notifier != nil && (a.gate == nil || a.gate.Enabled())
}

// inWindow applies the early-morning filter.
func (a *Aggregator) inWindow(train models.Train) bool {
	clock := train.From.Time
	if train.To.Code == a.config.ArrivalStation {
		clock = train.To.Time
	}
	offset, err := ParseClock(clock)
	if err != nil {
		return false
	}
	return offset < a.config.Cutoff
}

// Title is the grouping key for a train: "<from> - <to> <DD.MM>". It is built
// from display names, so stations sharing a name share a group.
func Title(train models.Train) string {
	return fmt.Sprintf("%s - %s %s", train.From.Station, train.To.Station, dayMonth(train.From.SourceDate))
}

// dayMonth turns "2019-01-03" into "03.01".
func dayMonth(sourceDate string) string {
	monthDay := ""
	if len(sourceDate) > 5 {
		monthDay = sourceDate[5:]
	}
	parts := strings.Split(monthDay, "-")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// ParseClock converts "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseClock(clock string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", clock)
	}

	limits := []int{24, 60, 60}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var offset time.Duration
	for i, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 || value >= limits[i] {
			return 0, fmt.Errorf("invalid time of day %q", clock)
		}
		offset += time.Duration(value) * units[i]
	}
	return offset, nil
}
