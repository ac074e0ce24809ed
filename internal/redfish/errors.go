package redfish

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingJobLocation indicates a job submission was accepted but the
// response carried no Location header to poll.
var ErrMissingJobLocation = errors.New("no job location in response")

// ConnectError is returned when a controller could not be reached at all
// after the retry budget was spent. It wraps the last transport failure.
type ConnectError struct {
	Host     string
	Attempts int
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s after %d attempts: %v", e.Host, e.Attempts, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// AuthError indicates the controller rejected the supplied credentials.
type AuthError struct {
	Host string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s - check credentials", e.Host)
}

// StatusError represents an unexpected HTTP status from a controller. Body
// holds a bounded prefix of the response body for diagnostics.
type StatusError struct {
	Host       string
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: %s returned HTTP %d: %s", e.Op, e.Host, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %s returned HTTP %d", e.Op, e.Host, e.StatusCode)
}

// JobTimeoutError indicates a job did not reach a terminal state before the
// polling deadline. The job itself keeps running on the controller.
type JobTimeoutError struct {
	Host    string
	JobID   string
	Timeout time.Duration
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("job %s on %s did not complete within %s", e.JobID, e.Host, e.Timeout)
}
