package uz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seatwatch.app/internal/models"
)

const trainList = `{
  "data": {
    "list": [
      {
        "num": "091Л",
        "from": {"code": "2208001", "station": "Одеса-Головна", "stationTrain": "Одеса-Головна", "time": "21:30", "srcDate": "2019-01-03"},
        "to": {"code": "2218000", "station": ["Львів"], "stationTrain": "Львів", "time": "05:43", "srcDate": "2019-01-04"},
        "types": [{"id": "К", "title": "Купе", "letter": "К", "places": 4}, {"id": "П", "title": "Плацкарт", "letter": "П", "places": 2}]
      }
    ]
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{SearchURL: server.URL, Timeout: 2 * time.Second, RequestsPerSecond: 100}, slog.Default())
}

func testQuery() models.Query {
	return models.Query{From: "2208001", To: "2218000", Date: time.Date(2019, time.January, 3, 0, 0, 0, 0, time.Local)}
}

func TestFetchDecodesTrains(t *testing.T) {
	var form url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = io.WriteString(w, trainList)
	})

	result := client.Fetch(context.Background(), testQuery())

	require.True(t, result.OK(), "unexpected error: %v", result.Err)
	assert.Equal(t, testQuery(), result.Query)
	assert.Equal(t, "2208001", form.Get("from"))
	assert.Equal(t, "2218000", form.Get("to"))
	assert.Equal(t, "00:00", form.Get("time"))
	assert.Equal(t, "2019-01-03", form.Get("date"))

	require.Len(t, result.Trains, 1)
	train := result.Trains[0]
	assert.Equal(t, "091Л", train.Number)
	assert.Equal(t, models.DisplayName("Львів"), train.To.Station)
	assert.Equal(t, "05:43", train.To.Time)
	assert.Equal(t, 6, train.Seats())
}

func TestFetchErrorFlag(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "numeric flag", body: `{"error": 1, "data": "По заданому Вами напрямку місць немає"}`, wantErr: true},
		{name: "boolean flag", body: `{"error": true, "data": null}`, wantErr: true},
		{name: "string flag", body: `{"error": "yes"}`, wantErr: true},
		{name: "null flag", body: `{"error": null, "data": {"list": []}}`},
		{name: "false flag", body: `{"error": false, "data": {"list": []}}`},
		{name: "zero flag", body: `{"error": 0, "data": {"list": []}}`},
		{name: "empty string flag", body: `{"error": "", "data": {"list": []}}`},
		{name: "absent flag", body: `{"data": {"list": []}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})

			result := client.Fetch(context.Background(), testQuery())

			if tt.wantErr {
				require.Error(t, result.Err)
				assert.True(t, errors.Is(result.Err, ErrNoService))
				assert.Empty(t, result.Trains)
			} else {
				assert.NoError(t, result.Err)
				assert.Empty(t, result.Trains)
			}
		})
	}
}

func TestFetchErrorMessageIsKept(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error": 1, "data": "no seats"}`)
	})

	result := client.Fetch(context.Background(), testQuery())

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "no seats")
}

func TestFetchTransportFailures(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		})

		result := client.Fetch(context.Background(), testQuery())

		require.Error(t, result.Err)
		assert.Contains(t, result.Err.Error(), "502")
	})

	t.Run("malformed body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "<html>captcha</html>")
		})

		result := client.Fetch(context.Background(), testQuery())

		require.Error(t, result.Err)
		assert.False(t, errors.Is(result.Err, ErrNoService))
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		searchURL := server.URL
		server.Close()
		client := NewClient(Config{SearchURL: searchURL, Timeout: time.Second}, slog.Default())

		result := client.Fetch(context.Background(), testQuery())

		assert.Error(t, result.Err)
	})
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan models.RouteResult, 1)
	go func() { done <- client.Fetch(ctx, testQuery()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case result := <-done:
		assert.ErrorIs(t, result.Err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not return after cancellation")
	}
}

func TestFetchConcurrent(t *testing.T) {
	var mu sync.Mutex
	dates := map[string]int{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		mu.Lock()
		dates[r.PostForm.Get("date")]++
		mu.Unlock()
		_, _ = io.WriteString(w, `{"data": {"list": []}}`)
	})

	var wg sync.WaitGroup
	for i := 0; i < 7; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := testQuery()
			q.Date = q.Date.AddDate(0, 0, i)
			assert.NoError(t, client.Fetch(context.Background(), q).Err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, dates, 7)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{}, nil)

	assert.Equal(t, DefaultSearchURL, client.searchURL)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
	assert.NotNil(t, client.limiter)
}
