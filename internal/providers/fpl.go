package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when FPL answers 404, e.g. for an unknown entry.
var ErrNotFound = errors.New("fpl resource not found")

// FPLClientConfig configures the FPL API client.
type FPLClientConfig struct {
	BaseURL          string
	Timeout          time.Duration
	RateLimit        float64 // requests per second
	BreakerThreshold int
	BreakerTimeout   time.Duration
	MaxRetries       int
	InitialBackoff   time.Duration
}

// FPLClient talks to the public Fantasy Premier League API.
type FPLClient struct {
	baseURL        string
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	breaker        *gobreaker.CircuitBreaker
	logger         *logrus.Logger
	maxRetries     int
	initialBackoff time.Duration
}

// NewFPLClient creates a new FPL API client
func NewFPLClient(cfg FPLClientConfig, logger *logrus.Logger) *FPLClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}

	settings := gobreaker.Settings{
		Name:        "fpl-api",
		MaxRequests: uint32(cfg.BreakerThreshold),
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &FPLClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		rateLimiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		breaker:        gobreaker.NewCircuitBreaker(settings),
		logger:         logger,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
	}
}

// FetchBootstrap fetches players, clubs and gameweeks.
func (c *FPLClient) FetchBootstrap(ctx context.Context) (*BootstrapResponse, error) {
	var resp BootstrapResponse
	if err := c.getJSON(ctx, "/bootstrap-static/", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch bootstrap data: %w", err)
	}
	return &resp, nil
}

// FetchFixtures fetches every fixture of the season.
func (c *FPLClient) FetchFixtures(ctx context.Context) ([]FixtureResponse, error) {
	var resp []FixtureResponse
	if err := c.getJSON(ctx, "/fixtures/", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch fixtures: %w", err)
	}
	return resp, nil
}

// FetchEntry fetches a manager's entry summary.
func (c *FPLClient) FetchEntry(ctx context.Context, entryID int) (*EntryResponse, error) {
	var resp EntryResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/entry/%d/", entryID), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch entry %d: %w", entryID, err)
	}
	return &resp, nil
}

// FetchEntryPicks fetches a manager's picks for one gameweek.
func (c *FPLClient) FetchEntryPicks(ctx context.Context, entryID, gameweek int) (*PicksResponse, error) {
	var resp PicksResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/entry/%d/event/%d/picks/", entryID, gameweek), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch picks for entry %d gameweek %d: %w", entryID, gameweek, err)
	}
	return &resp, nil
}

// BreakerState reports the circuit breaker state for health checks.
func (c *FPLClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

func (c *FPLClient) getJSON(ctx context.Context, path string, target interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.makeRequest(ctx, c.baseURL+path, target)
	})
	return err
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// makeRequest performs the request with rate limiting and exponential backoff
func (c *FPLClient) makeRequest(ctx context.Context, url string, target interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			waitTime := time.Duration(math.Pow(2, float64(attempt-1))) * c.initialBackoff
			c.logger.WithFields(logrus.Fields{
				"url":     url,
				"attempt": attempt,
				"wait":    waitTime.String(),
			}).WithError(lastErr).Warn("FPL request failed, retrying")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitTime):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		err := c.doRequest(ctx, url, target)
		if err == nil {
			return nil
		}
		var retryable *retryableError
		if !errors.As(err, &retryable) {
			return err
		}
		lastErr = retryable.err
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *FPLClient) doRequest(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "fpl-optimizer/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &retryableError{err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &retryableError{err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
