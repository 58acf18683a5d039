// Package provider fetches company content from external generation and
// search providers with timeout, retry, and circuit-breaker protection.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultBaseInterval = 500 * time.Millisecond
	defaultMaxInterval  = 5 * time.Second
	defaultJitter       = 0.2
)

// ErrCircuitOpen is returned when a call is short-circuited without any
// network attempt because the provider's breaker is open.
var ErrCircuitOpen = errors.New("provider circuit breaker is open")

// Statuses that indicate a transient upstream condition worth retrying.
var retryableStatuses = map[int]struct{}{
	http.StatusTooManyRequests:    {},
	http.StatusBadGateway:         {},
	http.StatusServiceUnavailable: {},
	http.StatusGatewayTimeout:     {},
}

// RequestBuilder creates a fresh request per attempt so bodies can be re-read
// on retry.
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// CallResult describes one resilient provider call.
type CallResult struct {
	Body       []byte
	StatusCode int
	Duration   time.Duration
	Retries    int
}

// HTTPDoer abstracts the underlying HTTP client for tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the shared resilience core under every provider adapter.
type Client struct {
	http     HTTPDoer
	breakers BreakerRegistry
	logger   *zap.Logger

	timeout      time.Duration
	baseInterval time.Duration
	maxInterval  time.Duration
	jitter       float64
}

// ClientOption configures optional Client behaviour.
type ClientOption func(*Client)

// WithTimeout overrides the per-call hard timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBackoff overrides the retry backoff tuning, mainly for tests.
func WithBackoff(base, max time.Duration) ClientOption {
	return func(c *Client) {
		if base > 0 {
			c.baseInterval = base
		}
		if max > 0 {
			c.maxInterval = max
		}
	}
}

// WithHTTPDoer substitutes the underlying HTTP client.
func WithHTTPDoer(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// NewClient builds a resilient provider client.
func NewClient(breakers BreakerRegistry, logger *zap.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		breakers:     breakers,
		logger:       logger,
		timeout:      defaultTimeout,
		baseInterval: defaultBaseInterval,
		maxInterval:  defaultMaxInterval,
		jitter:       defaultJitter,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Built after the options so the transport deadline matches a configured
	// timeout instead of silently capping it.
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Do performs one logical provider call with retry and breaker protection.
// Retries happen on network errors, timeouts, and the retryable status set;
// other HTTP failures return immediately.
func (c *Client) Do(ctx context.Context, name string, build RequestBuilder, maxRetries uint64) (*CallResult, error) {
	if !c.breakers.Allow(name) {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, name)
	}

	start := time.Now()
	attempts := 0
	result := &CallResult{}

	operation := func() error {
		attempts++

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := build(callCtx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build provider request: %w", err))
		}

		resp, err := c.http.Do(req)
		if err != nil {
			// Timeouts and network errors are indistinguishable for retry
			// purposes.
			return fmt.Errorf("provider request failed: %w", err)
		}
		defer resp.Body.Close()

		result.StatusCode = resp.StatusCode

		if _, retryable := retryableStatuses[resp.StatusCode]; retryable {
			c.logger.Warn("retryable provider status",
				zap.String("provider", name),
				zap.Int("status", resp.StatusCode))
			return fmt.Errorf("provider returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return backoff.Permanent(fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body)))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read provider response: %w", err)
		}
		result.Body = body
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.baseInterval
	policy.MaxInterval = c.maxInterval
	policy.RandomizationFactor = c.jitter
	policy.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))

	result.Duration = time.Since(start)
	result.Retries = attempts - 1

	if err != nil {
		c.breakers.RecordFailure(name)
		return result, err
	}

	c.breakers.RecordSuccess(name)
	return result, nil
}
