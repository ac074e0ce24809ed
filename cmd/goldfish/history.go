package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyKind  string
	historyRunID int64
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded fleet runs",
		Long: `Show recent runs from the history database, newest first. Use --run to
show the per-target results of a single run.`,
		Example: `  goldfish history
  goldfish history --limit 5 --kind import
  goldfish history --run 12`,
		RunE: historyRun,
	}

	cmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().StringVar(&historyKind, "kind", "", "only show runs of this kind (export, import, validate, apply)")
	cmd.Flags().Int64Var(&historyRunID, "run", 0, "show per-target detail for one run")

	return cmd
}

func historyRun(cmd *cobra.Command, args []string) error {
	if globalStore == nil {
		return fmt.Errorf("run history is disabled (no database configured)")
	}

	if historyRunID > 0 {
		return showRunDetail(historyRunID)
	}

	runs, err := globalStore.ListRuns(historyKind, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-5s %-9s %-12s %-20s %-8s %8s %5s %7s\n",
		"ID", "KIND", "GROUP", "STARTED", "STATUS", "TARGETS", "OK", "FAILED")
	fmt.Println(strings.Repeat("-", 82))
	for _, run := range runs {
		fmt.Printf("%-5d %-9s %-12s %-20s %-8s %8d %5d %7d\n",
			run.ID,
			run.Kind,
			run.GroupName,
			run.StartTime.Format("2006-01-02 15:04:05"),
			run.Status,
			run.TargetCount,
			run.Succeeded,
			run.Failed,
		)
	}

	return nil
}

func showRunDetail(id int64) error {
	run, err := globalStore.GetRun(id)
	if err != nil {
		return err
	}

	fmt.Printf("Run %d: %s (group %q)\n", run.ID, run.Kind, run.GroupName)
	fmt.Printf("  Status:   %s\n", run.Status)
	fmt.Printf("  Started:  %s\n", run.StartTime.Format("2006-01-02 15:04:05"))
	if !run.EndTime.IsZero() {
		fmt.Printf("  Finished: %s\n", run.EndTime.Format("2006-01-02 15:04:05"))
	}
	if run.Source != "" {
		fmt.Printf("  Source:   %s\n", run.Source)
	}
	if run.ProfilePath != "" {
		fmt.Printf("  Profile:  %s\n", run.ProfilePath)
	}
	if run.ErrorMessage != "" {
		fmt.Printf("  Error:    %s\n", run.ErrorMessage)
	}
	fmt.Printf("  Targets:  %d total, %d succeeded, %d failed\n", run.TargetCount, run.Succeeded, run.Failed)

	results, err := globalStore.ListTargetResults(id)
	if err != nil {
		return fmt.Errorf("failed to list target results: %w", err)
	}
	if len(results) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Printf("  %-20s %-7s %-12s %-10s %s\n", "ADDRESS", "RESULT", "JOB", "STATE", "MESSAGE")
	fmt.Println("  " + strings.Repeat("-", 70))
	for _, tr := range results {
		result := "OK"
		if !tr.OK {
			result = "FAILED"
		}
		fmt.Printf("  %-20s %-7s %-12s %-10s %s\n", tr.Address, result, tr.JobID, tr.TaskState, tr.Message)
	}

	return nil
}
