package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	exportOutput   string
	exportFormat   string
	exportSPTarget string
	exportInclude  string
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a golden configuration profile from each group's source controller",
		Long: `Export a Server Configuration Profile from the source controller of each
selected group. The profile is written to the group's template path when one
is configured, otherwise to an auto-named file under export.output_dir.

The exported file is the golden copy later imports propagate to the group's
targets.`,
		Example: `  goldfish export
  goldfish export --group rack-a
  goldfish export --group rack-a --output golden/rack-a.xml
  goldfish export --format JSON --include IncludeReadOnly`,
		RunE: exportRun,
	}

	cmd.Flags().StringVar(&exportOutput, "output", "", "write the profile to this path instead of the group template")
	cmd.Flags().StringVar(&exportFormat, "format", "", "profile format (XML or JSON)")
	cmd.Flags().StringVar(&exportSPTarget, "sp-target", "", "profile scope (ALL, BIOS, iDRAC, NIC, RAID)")
	cmd.Flags().StringVar(&exportInclude, "include", "", "attribute classes to include (Default, IncludeReadOnly, IncludePasswordHashValues)")

	return cmd
}

func exportRun(cmd *cobra.Command, args []string) error {
	groups, err := selectedGroups()
	if err != nil {
		return err
	}
	if exportOutput != "" && len(groups) > 1 {
		return fmt.Errorf("--output names a single file but %d groups are selected", len(groups))
	}

	runner, err := newRunner()
	if err != nil {
		return err
	}

	exportCfg := globalCfg.Export
	if exportFormat != "" {
		exportCfg.Format = strings.ToUpper(exportFormat)
		if exportCfg.Format != "XML" && exportCfg.Format != "JSON" {
			return fmt.Errorf("format %q not supported (use XML or JSON)", exportFormat)
		}
	}
	if exportSPTarget != "" {
		exportCfg.Target = exportSPTarget
	}
	if exportInclude != "" {
		exportCfg.Include = exportInclude
	}

	exported := 0
	for _, group := range groups {
		outputPath := exportOutput
		if outputPath == "" {
			outputPath = group.Template
		}

		fmt.Printf("\n--- Exporting group %q from %s ---\n", group.Name, group.SourceIP)

		report, err := runner.Export(cmd.Context(), group, exportCfg, outputPath)
		if err != nil {
			return fmt.Errorf("export failed for group %q: %w", group.Name, err)
		}

		fmt.Printf("Exported profile for group %q: %s (%s)\n",
			group.Name, report.ProfilePath, report.Duration.Round(time.Second))
		exported++
	}

	fmt.Printf("\nExported %d profile(s).\n", exported)
	return nil
}
