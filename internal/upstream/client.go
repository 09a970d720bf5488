package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrSourceUnavailable wraps every failure of a single provider call. Callers
// treat it as "try the next provider".
var ErrSourceUnavailable = errors.New("source unavailable")

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
	errDecode        = errors.New("decode response")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// NoRetry performs a single attempt.
var NoRetry = BackoffConfig{MaxRetries: 0, InitialInterval: time.Millisecond}

// DefaultBackoff is used by weather providers.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// Client performs GET requests against one provider with a per-call timeout,
// retries with exponential backoff and a circuit breaker.
type Client struct {
	name    string
	http    *http.Client
	timeout time.Duration
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// New creates a provider client. A zero timeout leaves the deadline to ctx.
func New(name string, httpClient *http.Client, timeout time.Duration, backoff BackoffConfig, logger *zap.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		name:    name,
		http:    httpClient,
		timeout: timeout,
		backoff: backoff,
		circuit: cb,
		logger:  logger.Named("upstream").With(zap.String("provider", name)),
	}
}

func (c *Client) Name() string {
	return c.name
}

// GetJSON fetches rawURL and decodes the JSON body into target. Every error
// it returns wraps ErrSourceUnavailable.
func (c *Client) GetJSON(ctx context.Context, rawURL string, headers map[string]string, target any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := c.getJSON(ctx, rawURL, headers, target)
	requestDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

	if err != nil {
		requestsTotal.WithLabelValues(c.name, outcome(err)).Inc()
		c.logger.Debug("provider request failed", zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, c.name, err)
	}
	requestsTotal.WithLabelValues(c.name, "ok").Inc()
	return nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, headers map[string]string, target any) error {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}

	resp, err := c.doRequestWithResilience(ctx, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}

// doRequestWithResilience executes the HTTP request with retries, exponential backoff,
// and a circuit breaker. Client errors other than 429 are not retried.
func (c *Client) doRequestWithResilience(
	ctx context.Context,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if c.http == nil {
		return nil, errNoHTTPClient
	}
	if c.backoff.MaxRetries < 0 || c.backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.http.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				return nil, fmt.Errorf("%w: %w", errServerError, &StatusError{Code: resp.StatusCode})
			default:
				return nil, &StatusError{Code: resp.StatusCode}
			}
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		if !retryable(err) || attempt >= c.backoff.MaxRetries {
			return nil, err
		}

		delay := c.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.backoff.MaxInterval && c.backoff.MaxInterval > 0 {
			delay = c.backoff.MaxInterval
		}

		c.logger.Debug("retrying provider request",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func outcome(err error) string {
	var se *StatusError
	switch {
	case errors.Is(err, errCircuitOpen):
		return "circuit_open"
	case errors.Is(err, errRateLimited):
		return "rate_limited"
	case errors.As(err, &se):
		return fmt.Sprintf("status_%d", se.Code)
	case errors.Is(err, errDecode):
		return "decode_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport_error"
	}
}
