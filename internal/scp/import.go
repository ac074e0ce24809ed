package scp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bmcfleet/goldfish/internal/redfish"
)

// ImportOptions control how a profile is applied.
type ImportOptions struct {
	Target         string // component selector, same vocabulary as export
	ShutdownType   string // Graceful, Forced, or NoReboot
	HostPowerState string // On or Off after the import finishes
}

// ImportResult is the outcome of one import job. Succeeded reflects the job's
// terminal state; request-submission and polling faults are returned as
// errors instead, so callers can tell "this job ran and failed" apart from
// "the request never went through".
type ImportResult struct {
	JobID     string
	State     redfish.TaskState
	Message   string
	Succeeded bool
}

// Importer pushes Server Configuration Profiles onto controllers.
type Importer struct {
	Client       *redfish.Client
	Logger       *slog.Logger
	PollInterval time.Duration
	JobTimeout   time.Duration
}

type importRequest struct {
	ImportBuffer    string          `json:"ImportBuffer"`
	ShutdownType    string          `json:"ShutdownType"`
	HostPowerState  string          `json:"HostPowerState"`
	ShareParameters shareParameters `json:"ShareParameters"`
}

// Import applies a profile buffer (single-line form, see ReadProfile) to the
// controller and waits for the job to reach a terminal state.
func (im *Importer) Import(ctx context.Context, buffer string, opts ImportOptions) (*ImportResult, error) {
	log := im.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Target == "" {
		opts.Target = "ALL"
	}
	if opts.ShutdownType == "" {
		opts.ShutdownType = "Graceful"
	}
	if opts.HostPowerState == "" {
		opts.HostPowerState = "On"
	}

	host := im.Client.Host()

	gen, err := im.Client.Generation(ctx)
	if err != nil {
		return nil, err
	}

	log.Info("importing configuration",
		"host", host, "target", opts.Target,
		"shutdown_type", opts.ShutdownType, "host_power_state", opts.HostPowerState)

	req := importRequest{
		ImportBuffer:    buffer,
		ShutdownType:    opts.ShutdownType,
		HostPowerState:  opts.HostPowerState,
		ShareParameters: shareParameters{Target: opts.Target},
	}

	resp, err := im.Client.Post(ctx, gen.ActionURI("ImportSystemConfiguration"), req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, &redfish.StatusError{
			Host:       host,
			Op:         "import request",
			StatusCode: resp.StatusCode,
			Body:       redfish.BodyPreview(resp.Body, 500),
		}
	}

	jobID, err := redfish.JobIDFromLocation(resp)
	if err != nil {
		return nil, fmt.Errorf("import request on %s: %w", host, err)
	}
	log.Info("import job created", "host", host, "job_id", jobID)

	task, err := im.Client.PollTask(ctx, jobID, im.PollInterval, im.JobTimeout)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		JobID:     jobID,
		State:     task.TaskState,
		Message:   task.MessageText(),
		Succeeded: task.TaskState == redfish.TaskCompleted,
	}

	if result.Succeeded {
		log.Info("import succeeded", "host", host, "job_id", jobID, "message", result.Message)
	} else {
		log.Error("import failed", "host", host, "job_id", jobID,
			"state", string(result.State), "message", result.Message)
	}

	return result, nil
}
