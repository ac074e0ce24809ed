package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the steps configured under pipeline.steps, in order",
		Long: `Run the steps listed under pipeline.steps in the config file, stopping at
the first failure. Valid steps are validate, export, import and apply.

An export step writes each group's profile to its template path, so a
following import step picks up exactly what was just exported.`,
		Example: `  goldfish pipeline
  goldfish pipeline --group rack-a`,
		RunE: pipelineRun,
	}

	return cmd
}

func pipelineRun(cmd *cobra.Command, args []string) error {
	steps := globalCfg.Pipeline.Steps
	if len(steps) == 0 {
		fmt.Println("pipeline.steps is empty, nothing to do.")
		fmt.Println("Add steps to the config file, e.g.: steps: [validate, export, import]")
		return nil
	}

	fmt.Printf("Pipeline steps: %s\n", strings.Join(steps, ", "))

	banner := strings.Repeat("=", 60)
	for _, step := range steps {
		fmt.Printf("\n%s\nSTEP: %s\n%s\n", banner, strings.ToUpper(step), banner)

		var err error
		switch step {
		case "validate":
			err = validateRun(cmd, nil)
		case "export":
			err = exportRun(cmd, nil)
		case "import":
			err = importRun(cmd, nil)
		case "apply":
			err = applyRun(cmd, nil)
		default:
			err = fmt.Errorf("unknown pipeline step %q (valid steps: apply, export, import, validate)", step)
		}
		if err != nil {
			return fmt.Errorf("pipeline stopped at step %q: %w", step, err)
		}
	}

	fmt.Printf("\nAll %d pipeline step(s) completed.\n", len(steps))
	return nil
}
