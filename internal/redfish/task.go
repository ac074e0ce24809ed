package redfish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxTaskBodyBytes caps how much of a task response is read. Exported
// profiles ride inside task messages and run to a few MB on large systems.
const maxTaskBodyBytes = 16 << 20

// TaskState is the Redfish task state vocabulary reported by iDRAC jobs.
type TaskState string

const (
	TaskNew                 TaskState = "New"
	TaskStarting            TaskState = "Starting"
	TaskRunning             TaskState = "Running"
	TaskPending             TaskState = "Pending"
	TaskCompleted           TaskState = "Completed"
	TaskCompletedWithErrors TaskState = "CompletedWithErrors"
	TaskFailed              TaskState = "Failed"
	TaskException           TaskState = "Exception"
)

// Terminal reports whether the state ends a job. CompletedWithErrors, Failed
// and Exception are terminal outcomes, not transient states.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskCompleted, TaskCompletedWithErrors, TaskFailed, TaskException:
		return true
	}
	return false
}

// TaskMessage is one entry of a task's Messages array. Dell firmware tucks
// exported profile data into the Oem.Dell namespace of a message.
type TaskMessage struct {
	Message string `json:"Message"`
	Oem     struct {
		Dell struct {
			ServerConfigurationProfile json.RawMessage `json:"ServerConfigurationProfile"`
		} `json:"Dell"`
	} `json:"Oem"`
}

// Task is a Redfish task resource, decoded just far enough to track job
// progress and recover export payloads. Raw holds the undecoded body of the
// final poll for fallback payload scans.
type Task struct {
	ID        string        `json:"Id"`
	TaskState TaskState     `json:"TaskState"`
	Messages  []TaskMessage `json:"Messages"`
	Raw       []byte        `json:"-"`
}

// FirstMessage returns the first message text, or "" when the task has none.
func (t *Task) FirstMessage() string {
	if len(t.Messages) == 0 {
		return ""
	}
	return t.Messages[0].Message
}

// MessageText joins all non-empty message texts for error reporting.
func (t *Task) MessageText() string {
	var parts []string
	for _, m := range t.Messages {
		if m.Message != "" {
			parts = append(parts, m.Message)
		}
	}
	return strings.Join(parts, "; ")
}

// JobIDFromLocation extracts the job ID from a submission response's Location
// header. iDRAC returns the created task URI there; the ID is its final path
// segment.
func JobIDFromLocation(resp *http.Response) (string, error) {
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", ErrMissingJobLocation
	}
	parts := strings.Split(loc, "/")
	id := parts[len(parts)-1]
	if id == "" {
		return "", ErrMissingJobLocation
	}
	return id, nil
}

// PollTask polls a job until it reaches a terminal state, logging every
// iteration so long-running jobs stay observable. The timeout is client-side
// abandonment only: the job keeps running on the controller. A missing or
// unrecognized TaskState counts as non-terminal and is bounded by the timeout.
func (c *Client) PollTask(ctx context.Context, jobID string, interval, timeout time.Duration) (*Task, error) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	c.logger.Info("polling job", "host", c.host, "job_id", jobID, "interval", interval, "timeout", timeout)
	start := time.Now()

	for {
		elapsed := time.Since(start)
		if elapsed > timeout {
			return nil, &JobTimeoutError{Host: c.host, JobID: jobID, Timeout: timeout}
		}

		task, err := c.getTask(ctx, jobID)
		if err != nil {
			return nil, err
		}

		c.logger.Info("job status",
			"host", c.host,
			"job_id", jobID,
			"state", string(task.TaskState),
			"message", task.FirstMessage(),
			"elapsed", elapsed.Round(time.Second),
		)

		if task.TaskState.Terminal() {
			return task, nil
		}

		if err := c.sleepFunc(ctx, interval); err != nil {
			return nil, fmt.Errorf("polling job %s: %w", jobID, err)
		}
	}
}

// getTask fetches a task resource, keeping the raw body alongside the decoded
// fields. The body is decoded regardless of HTTP status; controllers report
// transient states with varying statuses and the poll loop owns the deadline.
func (c *Client) getTask(ctx context.Context, jobID string) (*Task, error) {
	resp, err := c.Get(ctx, taskServiceURI+"/"+jobID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTaskBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading task %s from %s: %w", jobID, c.host, err)
	}
	if len(body) > maxTaskBodyBytes {
		return nil, fmt.Errorf("task %s response from %s exceeds %d bytes", jobID, c.host, maxTaskBodyBytes)
	}

	task := &Task{Raw: body}
	if err := json.Unmarshal(body, task); err != nil {
		return nil, fmt.Errorf("decoding task %s from %s: %w", jobID, c.host, err)
	}
	return task, nil
}
