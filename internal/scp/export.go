package scp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bmcfleet/goldfish/internal/redfish"
)

// ExportOptions select what an export covers and how it is delivered.
type ExportOptions struct {
	Target  string // component selector: ALL, BIOS, IDRAC, NIC, RAID, ...
	Format  string // XML or JSON
	Include string // Default, IncludeReadOnly, IncludePasswordHashValues
}

// Exporter pulls Server Configuration Profiles off a controller.
type Exporter struct {
	Client       *redfish.Client
	Logger       *slog.Logger
	PollInterval time.Duration
	JobTimeout   time.Duration
}

type shareParameters struct {
	Target string `json:"Target"`
}

type exportRequest struct {
	ExportFormat    string          `json:"ExportFormat"`
	ShareParameters shareParameters `json:"ShareParameters"`
	IncludeInExport string          `json:"IncludeInExport,omitempty"`
}

// Export runs a full export: submit the OEM action, poll the job to
// completion, and extract the profile document from the final task. It
// returns the profile content; writing it anywhere is the caller's business.
func (e *Exporter) Export(ctx context.Context, opts ExportOptions) (string, error) {
	log := e.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Target == "" {
		opts.Target = "ALL"
	}
	if opts.Format == "" {
		opts.Format = "XML"
	}
	if opts.Include == "" {
		opts.Include = "Default"
	}

	host := e.Client.Host()

	gen, err := e.Client.Generation(ctx)
	if err != nil {
		return "", err
	}

	req := exportRequest{
		ExportFormat:    opts.Format,
		ShareParameters: shareParameters{Target: opts.Target},
	}
	// IncludeInExport is only understood by iDRAC9 and newer.
	if opts.Include != "Default" && gen >= redfish.Gen9 {
		req.IncludeInExport = opts.Include
	}

	log.Info("exporting configuration",
		"host", host, "target", opts.Target, "format", opts.Format, "include", opts.Include)

	resp, err := e.Client.Post(ctx, gen.ActionURI("ExportSystemConfiguration"), req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", &redfish.StatusError{
			Host:       host,
			Op:         "export request",
			StatusCode: resp.StatusCode,
			Body:       redfish.BodyPreview(resp.Body, 500),
		}
	}

	jobID, err := redfish.JobIDFromLocation(resp)
	if err != nil {
		return "", fmt.Errorf("export request on %s: %w", host, err)
	}
	log.Info("export job created", "host", host, "job_id", jobID)

	task, err := e.Client.PollTask(ctx, jobID, e.PollInterval, e.JobTimeout)
	if err != nil {
		return "", err
	}

	if task.TaskState != redfish.TaskCompleted {
		return "", fmt.Errorf("export job %s on %s finished with state %q: %s",
			jobID, host, task.TaskState, task.MessageText())
	}

	content := extractProfile(task, opts.Format)
	if content == "" {
		return "", fmt.Errorf("export job %s on %s: %w", jobID, host, ErrEmptyExportPayload)
	}

	log.Info("export complete", "host", host, "job_id", jobID, "bytes", len(content))
	return content, nil
}
