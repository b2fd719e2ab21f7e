// Package httpds fetches catalog dumps over HTTP with retry and backoff.
//
// Transport failures, 429 and 5xx responses are retried on an exponential
// schedule. Other statuses are returned to the caller as-is.
package httpds

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	back "github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Config configures the HTTP client. Zero values get defaults:
// HeaderTimeout 30s, MaxRetries 3, InitialBackoff 200ms, MaxBackoff 5s.
type Config struct {
	// HeaderTimeout bounds the wait for response headers. Body reads are
	// not bounded so large dumps can stream.
	HeaderTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// BaseHeaders are sent with every request; per-request headers win.
	BaseHeaders http.Header

	// Transport overrides the default *http.Transport.
	Transport http.RoundTripper
}

// Client wraps an http.Client with retry and backoff behavior.
type Client struct {
	httpClient  *http.Client
	maxRetries  int
	baseHeaders http.Header
	log         log.FieldLogger

	// newBackOff builds the schedule for one Do call.
	newBackOff func() back.BackOff
}

// NewClient constructs a Client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.HeaderTimeout <= 0 {
		cfg.HeaderTimeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: cfg.HeaderTimeout,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicitly configurable
			},
		}
	}

	hdr := http.Header{}
	for k, vs := range cfg.BaseHeaders {
		for _, v := range vs {
			hdr.Add(k, v)
		}
	}

	initial, maxInterval := cfg.InitialBackoff, cfg.MaxBackoff
	return &Client{
		httpClient:  &http.Client{Transport: transport},
		maxRetries:  cfg.MaxRetries,
		baseHeaders: hdr,
		log:         log.StandardLogger(),
		newBackOff: func() back.BackOff {
			bf := back.NewExponentialBackOff()
			bf.InitialInterval = initial
			bf.MaxInterval = maxInterval
			bf.MaxElapsedTime = 0
			return bf
		},
	}
}

// RetryableStatusError reports a response status that was retried until
// the attempts ran out.
type RetryableStatusError struct {
	Method string
	URL    string
	Status int
}

func (e *RetryableStatusError) Error() string {
	return fmt.Sprintf("httpds: retryable status %d from %s %s", e.Status, e.Method, e.URL)
}

// Do sends a request, retrying transient failures. body is a byte slice so
// it can be re-sent. The returned response body must be closed by the caller.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, headers http.Header) (*http.Response, error) {
	if method == "" {
		return nil, errors.New("httpds: method must not be empty")
	}
	if url == "" {
		return nil, errors.New("httpds: url must not be empty")
	}

	var resp *http.Response
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return back.Permanent(errors.Wrap(err, "httpds: build request"))
		}
		for k, vs := range c.baseHeaders {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}

		r, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return back.Permanent(ctx.Err())
			}
			return err
		}
		if IsRetryableStatus(r.StatusCode) {
			_ = r.Body.Close()
			return &RetryableStatusError{Method: method, URL: url, Status: r.StatusCode}
		}
		resp = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.WithFields(log.Fields{
			"url":     url,
			"attempt": attempt,
			"wait":    wait,
		}).WithError(err).Warn("http request failed, retrying")
	}

	policy := back.WithContext(back.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	if err := back.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return resp, nil
}

// Get is Do with GET.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, headers)
}

// IsRetryableStatus reports whether code is worth retrying: 429 and 5xx.
func IsRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}
