package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bmcfleet/goldfish/internal/fleet"
)

var (
	importShutdownType string
	importPowerState   string
	importSPTarget     string
	importWorkers      int
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Propagate a configuration profile to each group's target controllers",
		Long: `Import a Server Configuration Profile into every target controller of the
selected groups. The file argument wins when given; otherwise each group
imports its configured template.

Targets are applied one at a time unless import.workers (or --workers)
raises the concurrency. A failing target never stops the rest of the
fleet; the command exits nonzero if any target failed.`,
		Example: `  goldfish import golden.xml
  goldfish import --group rack-a
  goldfish import golden.xml --shutdown-type Forced --power-state Off
  goldfish import --workers 4`,
		Args: cobra.MaximumNArgs(1),
		RunE: importRun,
	}

	cmd.Flags().StringVar(&importShutdownType, "shutdown-type", "", "host shutdown during apply (Graceful, Forced, NoReboot)")
	cmd.Flags().StringVar(&importPowerState, "power-state", "", "host power state after apply (On or Off)")
	cmd.Flags().StringVar(&importSPTarget, "sp-target", "", "profile scope (ALL, BIOS, iDRAC, NIC, RAID)")
	cmd.Flags().IntVar(&importWorkers, "workers", 0, "concurrent imports per group (default from config, 1 = sequential)")

	return cmd
}

func importRun(cmd *cobra.Command, args []string) error {
	groups, err := selectedGroups()
	if err != nil {
		return err
	}

	var profileArg string
	if len(args) == 1 {
		profileArg = args[0]
	}
	if profileArg != "" {
		if _, err := os.Stat(profileArg); err != nil {
			return fmt.Errorf("profile file not found: %s", profileArg)
		}
	}

	runner, err := newRunner()
	if err != nil {
		return err
	}

	importCfg := globalCfg.Import
	if importShutdownType != "" {
		importCfg.ShutdownType = importShutdownType
	}
	if importPowerState != "" {
		importCfg.HostPowerState = importPowerState
	}
	if importSPTarget != "" {
		importCfg.Target = importSPTarget
	}
	if importWorkers > 0 {
		importCfg.Workers = importWorkers
	}

	allOK := true
	for _, group := range groups {
		profilePath := profileArg
		if profilePath == "" {
			profilePath = group.Template
		}
		if profilePath == "" {
			return fmt.Errorf("no profile for group %q: pass a file argument or set the group's template path", group.Name)
		}

		targets, err := fleet.ExpandTargets(group.Targets)
		if err != nil {
			return err
		}

		fmt.Printf("\n--- Importing group %q (%d targets) from %s ---\n", group.Name, len(targets), profilePath)
		fmt.Printf("Targets: %s\n", strings.Join(targets, ", "))

		report, err := runner.Import(cmd.Context(), group, importCfg, profilePath)
		if err != nil {
			return fmt.Errorf("import failed for group %q: %w", group.Name, err)
		}

		printSummary(group.Name, report.Results)
		if report.Failed > 0 {
			allOK = false
		}
	}

	if !allOK {
		return fmt.Errorf("import completed with failures")
	}
	return nil
}

// printSummary prints the per-target results table for one group.
func printSummary(groupName string, results []fleet.TargetResult) {
	banner := strings.Repeat("=", 60)

	fmt.Println()
	fmt.Println(banner)
	fmt.Printf("RESULTS - %s\n", groupName)
	fmt.Println(banner)

	succeeded := 0
	failed := 0
	for _, res := range results {
		if res.OK {
			succeeded++
			fmt.Printf("  %-20s OK\n", res.Address)
		} else {
			failed++
			fmt.Printf("  %-20s FAILED  (%s)\n", res.Address, res.Detail())
		}
	}

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("  Total: %d  |  Succeeded: %d  |  Failed: %d\n", len(results), succeeded, failed)
	fmt.Println(banner)
}
