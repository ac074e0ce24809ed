package redfish

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newTestClient creates a client pointed at a TLS test server, with sleeps
// disabled so retry loops run instantly.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	host := strings.TrimPrefix(srv.URL, "https://")
	c := NewClient(host, Options{
		Username: "root",
		Password: "calvin",
		Timeout:  5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.sleepFunc = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

// flakyTransport fails the first n round trips with a connection error, then
// serves a canned 200 response.
type flakyTransport struct {
	failures int
	calls    int
}

func (t *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls++
	if t.calls <= t.failures {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(`{}`)),
		Request:    req,
	}, nil
}

// timeoutError satisfies net.Error with Timeout() == true.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type timeoutTransport struct{ calls int }

func (t *timeoutTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls++
	return nil, timeoutError{}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("10.0.0.5", Options{Username: "root", Password: "calvin"}, nil)

	if c.baseURL != "https://10.0.0.5" {
		t.Errorf("baseURL = %q, want %q", c.baseURL, "https://10.0.0.5")
	}
	if c.opts.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", c.opts.Timeout)
	}
	if c.opts.Retries != 3 {
		t.Errorf("Retries = %d, want 3", c.opts.Retries)
	}
	if c.Host() != "10.0.0.5" {
		t.Errorf("Host() = %q, want %q", c.Host(), "10.0.0.5")
	}
}

// TestDoRetriesConnectionFailures verifies the retry-with-backoff contract:
// two connection failures followed by a success must produce exactly three
// attempts with waits of 2s then 4s between them.
func TestDoRetriesConnectionFailures(t *testing.T) {
	transport := &flakyTransport{failures: 2}

	c := NewClient("10.0.0.5", Options{Username: "root", Password: "calvin", Retries: 3},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.httpClient = &http.Client{Transport: transport}

	var delays []time.Duration
	c.sleepFunc = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	resp, err := c.Get(context.Background(), managerURI)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	resp.Body.Close()

	if transport.calls != 3 {
		t.Errorf("attempts = %d, want 3", transport.calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	transport := &flakyTransport{failures: 99}

	c := NewClient("10.0.0.5", Options{Username: "root", Password: "calvin", Retries: 3},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.httpClient = &http.Client{Transport: transport}
	c.sleepFunc = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := c.Get(context.Background(), managerURI)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectError, got %T: %v", err, err)
	}
	if connErr.Host != "10.0.0.5" {
		t.Errorf("ConnectError.Host = %q, want %q", connErr.Host, "10.0.0.5")
	}
	if connErr.Attempts != 3 {
		t.Errorf("ConnectError.Attempts = %d, want 3", connErr.Attempts)
	}
	if transport.calls != 3 {
		t.Errorf("attempts = %d, want 3", transport.calls)
	}
}

// TestDoRetriesTimeouts verifies timeouts count as transport failures and
// burn retry attempts like a refused connection does.
func TestDoRetriesTimeouts(t *testing.T) {
	transport := &timeoutTransport{}

	c := NewClient("10.0.0.5", Options{Username: "root", Password: "calvin", Retries: 3},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.httpClient = &http.Client{Transport: transport}
	c.sleepFunc = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := c.Get(context.Background(), managerURI)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectError, got %T: %v", err, err)
	}
	if transport.calls != 3 {
		t.Errorf("attempts = %d, want 3", transport.calls)
	}
}

// TestDoStopsWhenContextCancelled verifies a dead caller context ends the
// attempt loop instead of retrying into it.
func TestDoStopsWhenContextCancelled(t *testing.T) {
	transport := &flakyTransport{failures: 99}

	c := NewClient("10.0.0.5", Options{Username: "root", Password: "calvin", Retries: 3},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.httpClient = &http.Client{Transport: transport}
	c.sleepFunc = func(ctx context.Context, d time.Duration) error { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, managerURI)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if transport.calls > 1 {
		t.Errorf("attempts = %d, want at most 1", transport.calls)
	}
}

// TestDoReturnsHTTPErrorsWithoutRetry verifies that an HTTP error status is a
// completed request, not a connection failure.
func TestDoReturnsHTTPErrorsWithoutRetry(t *testing.T) {
	var requests int
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	resp, err := c.Get(context.Background(), managerURI)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

// TestDoSendsBasicAuthAndJSONHeaders verifies request framing against a live
// TLS server with a self-signed certificate (VerifySSL off).
func TestDoSendsBasicAuthAndJSONHeaders(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "root" || pass != "calvin" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method == http.MethodPost {
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		}
		if accept := r.Header.Get("Accept"); accept != "application/json" {
			t.Errorf("Accept = %q, want application/json", accept)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	resp, err := c.Post(context.Background(), "/redfish/v1/test", map[string]string{"Key": "Value"})
	if err != nil {
		t.Fatalf("Post() failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestDefaultBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}
	for _, tt := range tests {
		if got := defaultBackoff(tt.attempt); got != tt.want {
			t.Errorf("defaultBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepContext(ctx, time.Minute); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
