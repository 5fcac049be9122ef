package fetcher

import (
	"errors"
	"net"
	"net/http"
	"time"
)

// Transport tuning for a handful of vendor hosts.
const (
	maxIdleConns          = 32
	maxIdleConnsPerHost   = 8
	idleConnTimeout       = 90 * time.Second
	responseHeaderTimeout = 20 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	dialTimeout           = 10 * time.Second
)

// ErrTooManyRedirects is returned when the redirect hop limit is exceeded.
var ErrTooManyRedirects = errors.New("too many redirects")

// NewHTTPClient creates the HTTP client used for page fetches.
func NewHTTPClient(cfg Config) *http.Client {
	cfg = cfg.WithDefaults()

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdleConnsPerHost,
		IdleConnTimeout:       idleConnTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:       cfg.RequestTimeout,
		Transport:     transport,
		CheckRedirect: RedirectPolicy(cfg.MaxRedirects),
	}
}

// RedirectPolicy returns a CheckRedirect function that follows redirects until
// the number of redirects reaches maxHops, then returns ErrTooManyRedirects.
func RedirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if maxHops > 0 && len(via) >= maxHops {
			return ErrTooManyRedirects
		}
		return nil
	}
}
