package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bmcfleet/goldfish/internal/config"
	"github.com/bmcfleet/goldfish/internal/fleet"
)

var validateWorkers int

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check configuration and connectivity for every configured controller",
		Long: `Expand every selected group's target list, then probe each source and
target controller over Redfish. Config mistakes (malformed addresses,
inverted ranges) surface before any network traffic; reachability problems
are reported per controller with the detected generation on success.

Exits nonzero if any controller is unreachable.`,
		Example: `  goldfish validate
  goldfish validate --group rack-a
  goldfish validate --workers 8`,
		RunE: validateRun,
	}

	cmd.Flags().IntVar(&validateWorkers, "workers", 0, "concurrent probes per group (default from config)")

	return cmd
}

func validateRun(cmd *cobra.Command, args []string) error {
	groups, err := selectedGroups()
	if err != nil {
		return err
	}

	// Expand everything up front so configuration errors surface before
	// the first probe.
	type groupPlan struct {
		group   config.Group
		targets []string
	}
	plans := make([]groupPlan, 0, len(groups))
	total := 0
	for _, group := range groups {
		targets, err := fleet.ExpandTargets(group.Targets)
		if err != nil {
			return err
		}
		if group.SourceIP != "" {
			total++
		}
		total += len(targets)
		plans = append(plans, groupPlan{group: group, targets: targets})
	}
	if total == 0 {
		return fmt.Errorf("no controllers configured to validate")
	}

	runner, err := newRunner()
	if err != nil {
		return err
	}

	workers := validateWorkers
	if workers <= 0 {
		workers = globalCfg.Import.Workers
	}

	fmt.Printf("Validating connectivity to %d controller(s)...\n", total)

	failures := 0
	for _, plan := range plans {
		if plan.group.SourceIP == "" && len(plan.targets) == 0 {
			continue
		}

		report, err := runner.Validate(cmd.Context(), plan.group, workers)
		if err != nil {
			return err
		}

		for i, res := range report.Results {
			role := "target"
			if plan.group.SourceIP != "" && i == 0 {
				role = "source"
			}
			if res.OK {
				fmt.Printf("  [%s] [%-6s] %-20s OK    (%s)\n", plan.group.Name, role, res.Address, res.Message)
			} else {
				fmt.Printf("  [%s] [%-6s] %-20s FAIL  (%s)\n", plan.group.Name, role, res.Address, res.Detail())
				failures++
			}
		}
	}

	if failures > 0 {
		fmt.Printf("\n%d controller(s) unreachable.\n", failures)
		return fmt.Errorf("validation failed: %d of %d controllers unreachable", failures, total)
	}

	fmt.Println("\nAll controllers reachable.")
	return nil
}
