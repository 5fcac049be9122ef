package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgryjp/cldb/internal/fetcher"
	"github.com/sgryjp/cldb/internal/logger"
	"github.com/sgryjp/cldb/internal/retry"
)

const (
	testUserAgent = "cldb-test/1.0"
	testPage      = "<html><body><table><tr><th>焦点距離</th><td>50mm</td></tr></table></body></html>"
)

// mockObserver records fetch outcomes.
type mockObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (m *mockObserver) ObserveFetch(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockObserver) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.outcomes...)
}

func newFetcher(t *testing.T, srv *httptest.Server, opts ...fetcher.Option) *fetcher.Fetcher {
	t.Helper()

	cfg := fetcher.Config{
		UserAgent:         testUserAgent,
		RequestTimeout:    5 * time.Second,
		MaxRetries:        3,
		RetryInitialDelay: time.Millisecond,
		RetryMaxDelay:     5 * time.Millisecond,
		RateLimit:         1000,
		Burst:             10,
		MaxBodyBytes:      1024,
	}
	opts = append([]fetcher.Option{fetcher.WithHTTPClient(srv.Client())}, opts...)
	return fetcher.New(cfg, logger.NewNop(), opts...)
}

func TestFetch_ReturnsBody(t *testing.T) {
	t.Parallel()

	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(testPage))
	}))
	defer srv.Close()

	obs := &mockObserver{}
	body, err := newFetcher(t, srv, fetcher.WithObserver(obs)).Fetch(context.Background(), srv.URL+"/spec.html")

	require.NoError(t, err)
	assert.Equal(t, testPage, string(body))
	assert.Equal(t, testUserAgent, gotUA.Load())
	assert.Equal(t, []string{fetcher.OutcomeOK}, obs.snapshot())
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	_, err := newFetcher(t, srv).Fetch(context.Background(), srv.URL+"/missing/spec.html")

	var serr *fetcher.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
	assert.Contains(t, serr.URL, "/missing/spec.html")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(testPage))
	}))
	defer srv.Close()

	obs := &mockObserver{}
	body, err := newFetcher(t, srv, fetcher.WithObserver(obs)).Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, testPage, string(body))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{fetcher.OutcomeStatusError, fetcher.OutcomeStatusError, fetcher.OutcomeOK}, obs.snapshot())
}

func TestFetch_GivesUpOnPersistentServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newFetcher(t, srv).Fetch(context.Background(), srv.URL)

	require.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
	var serr *fetcher.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusInternalServerError, serr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_BodyTooLarge(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	_, err := newFetcher(t, srv).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, fetcher.ErrBodyTooLarge)
}

func TestFetch_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testPage))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFetcher(t, srv).Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStatusError_Retryable(t *testing.T) {
	t.Parallel()

	assert.True(t, (&fetcher.StatusError{StatusCode: http.StatusTooManyRequests}).Retryable())
	assert.True(t, (&fetcher.StatusError{StatusCode: http.StatusBadGateway}).Retryable())
	assert.False(t, (&fetcher.StatusError{StatusCode: http.StatusForbidden}).Retryable())
}

func TestRedirectPolicy(t *testing.T) {
	t.Parallel()

	policy := fetcher.RedirectPolicy(2)
	via := []*http.Request{{}, {}}

	require.ErrorIs(t, policy(nil, via), fetcher.ErrTooManyRedirects)
	require.NoError(t, policy(nil, via[:1]))
}
