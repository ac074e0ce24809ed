package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var applyWorkers int

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Export from each group's source and import the fresh profile to its targets",
		Long: `Run the full golden-configuration propagation for each selected group:
export a fresh profile from the group's source controller, then import it
into every target.

A group without a source controller falls back to importing its configured
template, so template-only fleets can share one config file with exporting
fleets.`,
		Example: `  goldfish apply
  goldfish apply --group rack-a
  goldfish apply --workers 4`,
		RunE: applyRun,
	}

	cmd.Flags().IntVar(&applyWorkers, "workers", 0, "concurrent imports per group (default from config, 1 = sequential)")

	return cmd
}

func applyRun(cmd *cobra.Command, args []string) error {
	groups, err := selectedGroups()
	if err != nil {
		return err
	}

	runner, err := newRunner()
	if err != nil {
		return err
	}

	importCfg := globalCfg.Import
	if applyWorkers > 0 {
		importCfg.Workers = applyWorkers
	}

	allOK := true
	for _, group := range groups {
		profilePath := group.Template

		if group.SourceIP != "" {
			fmt.Printf("\n--- Exporting group %q from %s ---\n", group.Name, group.SourceIP)

			report, err := runner.Export(cmd.Context(), group, globalCfg.Export, group.Template)
			if err != nil {
				return fmt.Errorf("export failed for group %q: %w", group.Name, err)
			}
			profilePath = report.ProfilePath
			fmt.Printf("Exported profile: %s (%s)\n", report.ProfilePath, report.Duration.Round(time.Second))
		} else if profilePath == "" {
			return fmt.Errorf("group %q has neither a source controller nor a template", group.Name)
		}

		fmt.Printf("\n--- Importing group %q from %s ---\n", group.Name, profilePath)

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
		return fmt.Errorf("apply completed with failures")
	}
	return nil
}
