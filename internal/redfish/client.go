package redfish

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Redfish base paths on Dell iDRAC controllers.
const (
	managerURI     = "/redfish/v1/Managers/iDRAC.Embedded.1"
	taskServiceURI = "/redfish/v1/TaskService/Tasks"
)

// Options configures a Client.
type Options struct {
	Username  string
	Password  string
	VerifySSL bool          // verify the controller's certificate; off tolerates self-signed BMC certs
	Timeout   time.Duration // per-request timeout, 0 defaults to 30s
	Retries   int           // connection attempts per request, 0 defaults to 3
}

// Client talks to a single iDRAC over its Redfish API. Requests are retried
// on transport failures, timeouts included, with exponential backoff; HTTP
// error statuses are returned to the caller untouched.
type Client struct {
	host       string
	baseURL    string
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
	generation Generation

	// Seams for the retry loop, overridable in tests.
	backoffFunc func(attempt int) time.Duration
	sleepFunc   func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client for the controller at host (IP or IP:port).
// Certificate verification is controlled only by opts.VerifySSL; there is no
// process-wide TLS override.
func NewClient(host string, opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		host:    host,
		baseURL: "https://" + host,
		opts:    opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				TLSClientConfig:       &tls.Config{InsecureSkipVerify: !opts.VerifySSL},
				DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   15 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConnsPerHost:   4,
			},
		},
		logger:      logger,
		backoffFunc: defaultBackoff,
		sleepFunc:   sleepContext,
	}
}

// Host returns the controller address this client was built for.
func (c *Client) Host() string { return c.host }

// Get issues a GET against a Redfish path.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST with a JSON-encoded payload against a Redfish path.
func (c *Client) Post(ctx context.Context, path string, payload any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, payload)
}

// do performs a request with basic auth, retrying transport failures. A
// response of any HTTP status counts as a successful attempt. Cancellation of
// the caller's context stops the attempt loop immediately. The caller owns
// the response body.
func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s body: %w", path, err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.Retries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("building request for %s: %w", path, err)
		}
		req.SetBasicAuth(c.opts.Username, c.opts.Password)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.logger.Debug("redfish request", "method", method, "host", c.host, "path", path, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		lastErr = err
		if attempt < c.opts.Retries {
			delay := c.backoffFunc(attempt)
			c.logger.Warn("connection failed, retrying",
				"host", c.host, "attempt", attempt, "retries", c.opts.Retries, "delay", delay, "error", err)
			if err := c.sleepFunc(ctx, delay); err != nil {
				return nil, fmt.Errorf("retry wait cancelled: %w", err)
			}
		}
	}

	return nil, &ConnectError{Host: c.host, Attempts: c.opts.Retries, Err: lastErr}
}

// defaultBackoff doubles per failed attempt: 2s after the first, then 4s, 8s, ...
func defaultBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// sleepContext sleeps for d unless the context ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BodyPreview reads at most limit bytes of a response body for error messages.
func BodyPreview(r io.Reader, limit int64) string {
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return ""
	}
	return string(data)
}
