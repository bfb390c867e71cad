package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seatwatch.app/internal/models"
	"seatwatch.app/internal/notify"
)

const (
	odesa = "2208001"
	lviv  = "2218000"
)

type recordingNotifier struct {
	mu     sync.Mutex
	trains []string
}

func (n *recordingNotifier) Notify(_ context.Context, train models.Train, _ int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.trains = append(n.trains, train.Number)
}

func (n *recordingNotifier) calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.trains...)
}

func fixedNow() time.Time {
	return time.Date(2024, time.January, 9, 14, 3, 7, 0, time.Local)
}

func newAggregator(n Notifier, gate Gate) *Aggregator {
	return New(Config{ArrivalStation: lviv}, n, gate, fixedNow, slog.Default())
}

// overnight builds an Odesa to Lviv train arriving at arrival.
func overnight(number, srcDate, arrival string, places ...int) models.Train {
	train := models.Train{
		Number: number,
		From:   models.TrainEndpoint{Code: odesa, Station: "Одеса", StationTrain: "Одеса-Головна", Time: "21:00", SourceDate: srcDate},
		To:     models.TrainEndpoint{Code: lviv, Station: "Львів", StationTrain: "Львів", Time: arrival, SourceDate: srcDate},
	}
	for _, p := range places {
		train.SeatClasses = append(train.SeatClasses, models.SeatClass{Title: "Купе", Places: p})
	}
	return train
}

func ok(trains ...models.Train) models.RouteResult {
	return models.RouteResult{Trains: trains}
}

func TestAggregateScenario(t *testing.T) {
	agg := newAggregator(&recordingNotifier{}, notify.NewGate(true))

	results := []models.RouteResult{
		ok(overnight("091К", "2024-01-10", "05:10", 1, 2)),
		ok(overnight("091К", "2024-01-11", "05:10", 0, 0)),
	}

	row := agg.Aggregate(context.Background(), results, "10.01 O-D", false)

	assert.Equal(t, "14:03:07", row.Time)
	require.Equal(t, []string{"Одеса - Львів 10.01", "Одеса - Львів 11.01"}, row.Titles)

	value, _ := row.Cell("Одеса - Львів 10.01")
	assert.Equal(t, 3, value)
	value, _ = row.Cell("Одеса - Львів 11.01")
	assert.Equal(t, models.NoneAvailable, value)
}

func TestAggregateDropsErroredResults(t *testing.T) {
	agg := newAggregator(nil, nil)

	results := []models.RouteResult{
		{Err: errors.New("no service"), Trains: []models.Train{overnight("001", "2024-01-12", "05:00", 9)}},
		ok(overnight("002", "2024-01-10", "05:00", 1)),
	}

	row := agg.Aggregate(context.Background(), results, "key", false)

	assert.Equal(t, []string{"Одеса - Львів 10.01"}, row.Titles)
	assert.NotContains(t, row.Seats, "Одеса - Львів 12.01")
}

func TestAggregateEmptyCycle(t *testing.T) {
	agg := newAggregator(nil, nil)

	row := agg.Aggregate(context.Background(), []models.RouteResult{{Err: errors.New("timeout")}}, "key", true)

	assert.Equal(t, []string{models.TimeColumn}, row.Columns())
}

func TestAggregateTimeWindow(t *testing.T) {
	tests := []struct {
		name    string
		arrival string
		kept    bool
	}{
		{name: "one second before cutoff", arrival: "05:59:59", kept: true},
		{name: "exactly cutoff", arrival: "06:00:00", kept: false},
		{name: "minute precision at cutoff", arrival: "06:00", kept: false},
		{name: "midnight", arrival: "00:00", kept: true},
		{name: "afternoon", arrival: "14:30", kept: false},
		{name: "unparseable", arrival: "soon", kept: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := newAggregator(nil, nil).Aggregate(context.Background(),
				[]models.RouteResult{ok(overnight("1", "2024-01-10", tt.arrival, 5))}, "key", false)

			assert.Equal(t, tt.kept, len(row.Titles) == 1)
		})
	}

	t.Run("uses departure time when train does not end at arrival station", func(t *testing.T) {
		train := overnight("2", "2024-01-10", "23:00", 5)
		train.From, train.To = train.To, train.From
		train.From.Time = "04:15"
		train.To.Time = "13:00"

		row := newAggregator(nil, nil).Aggregate(context.Background(), []models.RouteResult{ok(train)}, "key", false)

		assert.Equal(t, []string{"Львів - Одеса 10.01"}, row.Titles)
	})
}

func TestAggregateGroupsByDisplayName(t *testing.T) {
	a := overnight("A", "2024-01-10", "05:00", 1)
	b := overnight("B", "2024-01-10", "04:00", 2)
	b.From.Code = "2208300"

	row := newAggregator(nil, nil).Aggregate(context.Background(), []models.RouteResult{ok(a), ok(b)}, "key", false)

	require.Len(t, row.Titles, 1)
	assert.Equal(t, models.SeatCount(3), row.Seats["Одеса - Львів 10.01"])
}

func TestAggregateIsAssociative(t *testing.T) {
	a := overnight("A", "2024-01-10", "05:00", 1)
	b := overnight("B", "2024-01-10", "04:00", 2, 3)
	c := overnight("C", "2024-01-10", "03:00", 4)
	agg := newAggregator(nil, nil)

	ab := agg.Aggregate(context.Background(), []models.RouteResult{ok(a, b)}, "key", false)
	onlyC := agg.Aggregate(context.Background(), []models.RouteResult{ok(c)}, "key", false)
	abc := agg.Aggregate(context.Background(), []models.RouteResult{ok(a, b, c)}, "key", false)

	for _, title := range abc.Titles {
		assert.Equal(t, abc.Seats[title], ab.Seats[title]+onlyC.Seats[title])
	}
}

func TestAggregateNotifications(t *testing.T) {
	results := func() []models.RouteResult {
		return []models.RouteResult{
			ok(overnight("A", "2024-01-10", "05:00", 2), overnight("B", "2024-01-10", "05:30", 0)),
			ok(overnight("C", "2024-01-10", "04:00", 1), overnight("D", "2024-01-10", "09:00", 7)),
		}
	}

	t.Run("one notification per qualifying train", func(t *testing.T) {
		n := &recordingNotifier{}
		newAggregator(n, notify.NewGate(true)).Aggregate(context.Background(), results(), "key", true)

		assert.Equal(t, []string{"A", "C"}, n.calls())
	})

	t.Run("non-priority jobs never notify", func(t *testing.T) {
		n := &recordingNotifier{}
		newAggregator(n, notify.NewGate(true)).Aggregate(context.Background(), results(), "key", false)

		assert.Empty(t, n.calls())
	})

	t.Run("closed gate suppresses every notification", func(t *testing.T) {
		n := &recordingNotifier{}
		newAggregator(n, notify.NewGate(false)).Aggregate(context.Background(), results(), "key", true)

		assert.Empty(t, n.calls())
	})
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Одеса - Львів 03.01", Title(overnight("1", "2019-01-03", "05:00")))
	assert.Equal(t, "Одеса - Львів ", Title(overnight("1", "", "05:00")))
}

func TestParseClock(t *testing.T) {
	offset, err := ParseClock("05:59:59")
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour-time.Second, offset)

	offset, err = ParseClock("21:25")
	require.NoError(t, err)
	assert.Equal(t, 21*time.Hour+25*time.Minute, offset)

	for _, bad := range []string{"", "5", "25:00", "12:60", "a:b", "1:2:3:4"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}
