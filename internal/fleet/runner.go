package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bmcfleet/goldfish/internal/config"
	"github.com/bmcfleet/goldfish/internal/redfish"
	"github.com/bmcfleet/goldfish/internal/scp"
	"github.com/bmcfleet/goldfish/internal/store"
)

// Runner wires controller clients, profile operations and run history
// together for the commands. A nil store disables history recording without
// affecting the operations themselves.
type Runner struct {
	creds  config.Credentials
	conn   config.ConnectionConfig
	store  *store.Store
	logger *slog.Logger

	clientFunc func(host string) *redfish.Client // replaceable for testing
}

// ExportReport summarizes a profile export from a source controller.
type ExportReport struct {
	Source      string
	ProfilePath string
	Format      string
	Duration    time.Duration
	RunID       int64
}

// ImportReport summarizes a fleet import run.
type ImportReport struct {
	GroupName   string
	ProfilePath string
	Results     []TargetResult
	Succeeded   int
	Failed      int
	Duration    time.Duration
	RunID       int64
}

// ValidateReport summarizes a reachability and generation probe across a
// group's endpoints.
type ValidateReport struct {
	GroupName string
	Results   []TargetResult
	Succeeded int
	Failed    int
	RunID     int64
}

// NewRunner creates a Runner.
func NewRunner(creds config.Credentials, conn config.ConnectionConfig, st *store.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		creds:  creds,
		conn:   conn,
		store:  st,
		logger: logger,
	}
	r.clientFunc = r.newClient
	return r
}

// newClient builds a fresh controller client. Every target gets its own
// client: connections and cached generation tags are never shared.
func (r *Runner) newClient(host string) *redfish.Client {
	return redfish.NewClient(host, redfish.Options{
		Username:  r.creds.Username,
		Password:  r.creds.Password,
		VerifySSL: r.conn.VerifySSL,
		Timeout:   r.conn.TimeoutDuration(),
		Retries:   r.conn.Retries,
	}, r.logger)
}

// Export pulls the configuration profile from the group's source controller
// and writes it to disk. outputPath overrides the auto-generated file name
// when non-empty.
func (r *Runner) Export(ctx context.Context, group config.Group, exportCfg config.ExportConfig, outputPath string) (*ExportReport, error) {
	if group.SourceIP == "" {
		return nil, fmt.Errorf("group %q has no source controller configured", group.Name)
	}

	r.logger.Info("starting export", "group", group.Name, "source", group.SourceIP, "format", exportCfg.Format)

	run := r.startRun("export", group, "", 1)
	startTime := time.Now()

	exporter := &scp.Exporter{
		Client:       r.clientFunc(group.SourceIP),
		Logger:       r.logger,
		PollInterval: r.conn.PollIntervalDuration(),
		JobTimeout:   r.conn.JobTimeoutDuration(),
	}
	content, err := exporter.Export(ctx, scp.ExportOptions{
		Target:  exportCfg.Target,
		Format:  exportCfg.Format,
		Include: exportCfg.Include,
	})
	if err != nil {
		r.finishRun(run, []TargetResult{{Address: group.SourceIP, Err: err}}, err.Error())
		return nil, err
	}

	path, err := scp.WriteProfile(exportCfg.OutputDir, outputPath, group.SourceIP, exportCfg.Format, content)
	if err != nil {
		r.finishRun(run, []TargetResult{{Address: group.SourceIP, Err: err}}, err.Error())
		return nil, fmt.Errorf("writing exported profile: %w", err)
	}

	duration := time.Since(startTime)
	if run != nil {
		run.ProfilePath = path
	}
	r.finishRun(run, []TargetResult{{
		Address: group.SourceIP,
		OK:      true,
		Message: "profile exported",
		Elapsed: duration,
	}}, "")

	r.logger.Info("export completed", "group", group.Name, "source", group.SourceIP, "path", path, "duration", duration.Round(time.Millisecond))

	report := &ExportReport{
		Source:      group.SourceIP,
		ProfilePath: path,
		Format:      exportCfg.Format,
		Duration:    duration,
	}
	if run != nil {
		report.RunID = run.ID
	}
	return report, nil
}

// Import pushes the profile at profilePath to every target in the group.
// Individual target failures are recorded in the report, never returned as
// errors: only configuration-level faults (no targets, unreadable profile)
// abort the run.
func (r *Runner) Import(ctx context.Context, group config.Group, importCfg config.ImportConfig, profilePath string) (*ImportReport, error) {
	targets, err := ExpandTargets(group.Targets)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("group %q has no targets configured", group.Name)
	}

	buffer, err := scp.ReadProfile(profilePath)
	if err != nil {
		return nil, err
	}

	r.logger.Info("starting import",
		"group", group.Name,
		"profile", profilePath,
		"targets", len(targets),
		"workers", importCfg.Workers,
		"shutdown_type", importCfg.ShutdownType,
	)

	run := r.startRun("import", group, profilePath, len(targets))
	startTime := time.Now()

	orch := NewOrchestrator(importCfg.Workers, r.logger)
	results := orch.Run(ctx, targets, func(ctx context.Context, address string) TargetResult {
		importer := &scp.Importer{
			Client:       r.clientFunc(address),
			Logger:       r.logger,
			PollInterval: r.conn.PollIntervalDuration(),
			JobTimeout:   r.conn.JobTimeoutDuration(),
		}
		res, err := importer.Import(ctx, buffer, scp.ImportOptions{
			Target:         importCfg.Target,
			ShutdownType:   importCfg.ShutdownType,
			HostPowerState: importCfg.HostPowerState,
		})
		if err != nil {
			return TargetResult{Err: err}
		}
		return TargetResult{
			OK:      res.Succeeded,
			JobID:   res.JobID,
			State:   res.State,
			Message: res.Message,
		}
	})

	succeeded, failed := tally(results)
	r.finishRun(run, results, "")

	duration := time.Since(startTime)
	r.logger.Info("import completed",
		"group", group.Name,
		"targets", len(targets),
		"succeeded", succeeded,
		"failed", failed,
		"duration", duration.Round(time.Millisecond),
	)

	report := &ImportReport{
		GroupName:   group.Name,
		ProfilePath: profilePath,
		Results:     results,
		Succeeded:   succeeded,
		Failed:      failed,
		Duration:    duration,
	}
	if run != nil {
		report.RunID = run.ID
	}
	return report, nil
}

// Validate probes the group's source and every target, reporting
// reachability and detected controller generation per endpoint.
func (r *Runner) Validate(ctx context.Context, group config.Group, workers int) (*ValidateReport, error) {
	targets, err := ExpandTargets(group.Targets)
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(targets)+1)
	if group.SourceIP != "" {
		addrs = append(addrs, group.SourceIP)
	}
	addrs = append(addrs, targets...)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("group %q has no endpoints to validate", group.Name)
	}

	r.logger.Info("starting validation", "group", group.Name, "endpoints", len(addrs))

	run := r.startRun("validate", group, "", len(addrs))
	results := r.Probe(ctx, addrs, workers)
	succeeded, failed := tally(results)
	r.finishRun(run, results, "")

	r.logger.Info("validation completed", "group", group.Name, "reachable", succeeded, "unreachable", failed)

	report := &ValidateReport{
		GroupName: group.Name,
		Results:   results,
		Succeeded: succeeded,
		Failed:    failed,
	}
	if run != nil {
		report.RunID = run.ID
	}
	return report, nil
}

// Probe checks each address for reachability and reports the detected
// generation in the result message.
func (r *Runner) Probe(ctx context.Context, addresses []string, workers int) []TargetResult {
	orch := NewOrchestrator(workers, r.logger)
	return orch.Run(ctx, addresses, func(ctx context.Context, address string) TargetResult {
		gen, err := r.clientFunc(address).Generation(ctx)
		if err != nil {
			return TargetResult{Err: err}
		}
		return TargetResult{OK: true, Message: gen.String()}
	})
}

// tally counts successful and failed results.
func tally(results []TargetResult) (succeeded, failed int) {
	for _, res := range results {
		if res.OK {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// startRun records the beginning of a run, returning nil when history is
// disabled or unavailable.
func (r *Runner) startRun(kind string, group config.Group, profilePath string, targetCount int) *store.Run {
	if r.store == nil {
		return nil
	}
	run := &store.Run{
		Kind:        kind,
		GroupName:   group.Name,
		Source:      group.SourceIP,
		ProfilePath: profilePath,
		TargetCount: targetCount,
		Status:      "running",
		StartTime:   time.Now(),
	}
	if err := r.store.CreateRun(run); err != nil {
		r.logger.Error("failed to create run record", "kind", kind, "group", group.Name, "error", err)
		return nil
	}
	return run
}

// finishRun persists per-target outcomes and the final run status. History
// failures are logged, never fatal to the operation itself.
func (r *Runner) finishRun(run *store.Run, results []TargetResult, errMsg string) {
	if run == nil {
		return
	}

	for i, res := range results {
		rec := &store.TargetResult{
			RunID:     run.ID,
			Position:  i,
			Address:   res.Address,
			OK:        res.OK,
			JobID:     res.JobID,
			TaskState: string(res.State),
			Message:   res.Detail(),
			ElapsedMs: res.Elapsed.Milliseconds(),
		}
		if err := r.store.AddTargetResult(rec); err != nil {
			r.logger.Error("failed to record target result", "target", res.Address, "error", err)
		}
	}

	succeeded, failed := tally(results)
	run.Succeeded = succeeded
	run.Failed = failed
	run.ErrorMessage = errMsg
	run.EndTime = time.Now()

	switch {
	case errMsg != "":
		run.Status = "failed"
	case failed == 0:
		run.Status = "success"
	case succeeded == 0:
		run.Status = "failed"
	default:
		run.Status = "partial"
	}

	if err := r.store.UpdateRun(run); err != nil {
		r.logger.Error("failed to update run record", "run", run.ID, "error", err)
	}
}
