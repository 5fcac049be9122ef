// Package fetcher retrieves vendor pages over HTTP with rate limiting and retries.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sgryjp/cldb/internal/logger"
	"github.com/sgryjp/cldb/internal/retry"
)

// Status code boundaries used to classify responses.
const (
	statusSuccessLow      = 200
	statusSuccessHigh     = 299
	statusTooManyRequests = 429
	statusServerErrLow    = 500
)

// ErrBodyTooLarge is returned when a page exceeds the configured body limit.
var ErrBodyTooLarge = errors.New("response body too large")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %s", e.URL, e.Status)
}

// Retryable reports whether a later attempt may succeed: rate limiting and server errors.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == statusTooManyRequests || e.StatusCode >= statusServerErrLow
}

// Observer receives the outcome of every HTTP attempt.
type Observer interface {
	ObserveFetch(outcome string, elapsed time.Duration)
}

// Fetch outcomes passed to Observer.
const (
	OutcomeOK          = "ok"
	OutcomeStatusError = "status_error"
	OutcomeTransport   = "transport_error"
	OutcomeTooLarge    = "too_large"
)

// Fetcher retrieves pages. It is safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	retry    retry.Config
	cfg      Config
	log      logger.Logger
	observer Observer
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithObserver reports every attempt to o.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) {
		f.observer = o
	}
}

// New creates a Fetcher.
func New(cfg Config, log logger.Logger, opts ...Option) *Fetcher {
	cfg = cfg.WithDefaults()

	f := &Fetcher{
		client:  NewHTTPClient(cfg),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		retry: retry.Config{
			MaxAttempts:  cfg.MaxRetries,
			InitialDelay: cfg.RetryInitialDelay,
			MaxDelay:     cfg.RetryMaxDelay,
			Multiplier:   2.0,
			IsRetryable:  retry.DefaultIsRetryable,
		},
		cfg: cfg,
		log: log,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		f.log.Info("Retrying page fetch",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
	}

	return f
}

// Fetch returns the body of the page at url. Non-2xx responses yield a
// *StatusError; 429 and 5xx responses and transient network errors are retried.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	err := retry.Retry(ctx, f.retry, func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for rate limiter: %w", err)
		}

		b, err := f.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	return body, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		f.observe(OutcomeTransport, start)
		return nil, fmt.Errorf("http fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < statusSuccessLow || resp.StatusCode > statusSuccessHigh {
		f.observe(OutcomeStatusError, start)
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		f.observe(OutcomeTransport, start)
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > f.cfg.MaxBodyBytes {
		f.observe(OutcomeTooLarge, start)
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.cfg.MaxBodyBytes)
	}

	f.observe(OutcomeOK, start)
	f.log.Debug("Fetched page",
		logger.String("url", url),
		logger.Int("status", resp.StatusCode),
		logger.Int("bytes", len(body)),
		logger.Duration("elapsed", time.Since(start)),
	)

	return body, nil
}

func (f *Fetcher) observe(outcome string, start time.Time) {
	if f.observer != nil {
		f.observer.ObserveFetch(outcome, time.Since(start))
	}
}
