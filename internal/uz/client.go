// Package uz fetches train availability from the Ukrzaliznytsia booking
// search endpoint.
package uz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"seatwatch.app/internal/logging"
	"seatwatch.app/internal/models"
	"seatwatch.app/internal/query"
)

const (
	DefaultSearchURL         = "https://booking.uz.gov.ua/train_search/"
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 5
	maxResponseBytes         = 4 << 20
)

// ErrNoService is returned inside a RouteResult when the endpoint reports no
// trains for the query (no service that day, date out of the sales window).
var ErrNoService = errors.New("no service for query")

type Config struct {
	SearchURL         string
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
}

// Client is safe for concurrent use.
type Client struct {
	searchURL  string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	if config.SearchURL == "" {
		config.SearchURL = DefaultSearchURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = DefaultRequestsPerSecond
	}
	burst := int(config.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		searchURL:  config.SearchURL,
		userAgent:  config.UserAgent,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst),
		logger:     logging.Component(logger, "uz_fetcher"),
	}
}

type searchResponse struct {
	Error json.RawMessage `json:"error"`
	Data  json.RawMessage `json:"data"`
}

type searchData struct {
	List []models.Train `json:"list"`
}

// Fetch runs one query. It never returns an error directly: every failure is
// carried in the result's Err.
func (c *Client) Fetch(ctx context.Context, q models.Query) models.RouteResult {
	result := models.RouteResult{Query: q}
	start := time.Now()

	trains, err := c.search(ctx, q)
	if err != nil {
		result.Err = err
		c.logger.Debug("query failed",
			slog.String("query", q.String()),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return result
	}

	result.Trains = trains
	c.logger.Debug("query succeeded",
		slog.String("query", q.String()),
		slog.Int("trains", len(trains)),
		slog.Duration("duration", time.Since(start)))
	return result
}

func (c *Client) search(ctx context.Context, q models.Query) ([]models.Train, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	body := strings.NewReader(query.Form(q).Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", c.searchURL, err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, c.logger, "http_response_body")

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.searchURL)
	}

	return decodeSearch(b)
}

func decodeSearch(b []byte) ([]models.Train, error) {
	var resp searchResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if truthy(resp.Error) {
		if msg := message(resp.Data); msg != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoService, msg)
		}
		return nil, ErrNoService
	}

	var data searchData
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, fmt.Errorf("decode train list: %w", err)
		}
	}
	return data.List, nil
}

// truthy follows the endpoint's loose flag: absent, null, false, 0 and ""
// all mean no error.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

// message extracts the human readable reason the endpoint puts in data on
// error responses.
func message(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
