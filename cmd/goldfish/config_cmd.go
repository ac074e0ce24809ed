package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Inspect the resolved configuration or write a commented starter file.
Credentials never appear here: they are read from GOLDFISH_USERNAME and
GOLDFISH_PASSWORD at runtime.`,
		Example: `  goldfish config show
  goldfish config init
  goldfish config init /etc/goldfish/goldfish.yaml`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the resolved configuration",
		Long: `Display the configuration the other commands would run with: file values
merged over defaults, with environment overrides applied.`,
		Example: `  goldfish config show
  goldfish config show --config /etc/goldfish/goldfish.yaml`,
		RunE: configShowRun,
	}

	return cmd
}

func configShowRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	data, err := yaml.Marshal(globalCfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println(string(data))

	return nil
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a commented starter config file",
		Long: `Write a commented starter configuration to the given path (default
goldfish.yaml in the current directory). Refuses to overwrite an existing
file.`,
		Example: `  goldfish config init
  goldfish config init /etc/goldfish/goldfish.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: configInitRun,
	}

	return cmd
}

func configInitRun(cmd *cobra.Command, args []string) error {
	path := "goldfish.yaml"
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing %s", path)
	}

	if err := os.WriteFile(path, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Wrote starter config to %s\n", path)
	fmt.Printf("Set %s and %s before running fleet commands.\n", "GOLDFISH_USERNAME", "GOLDFISH_PASSWORD")
	return nil
}

const exampleConfig = `# goldfish configuration.
#
# Credentials are never stored here. Set GOLDFISH_USERNAME and
# GOLDFISH_PASSWORD in the environment instead.

# The controller whose configuration is the golden copy, and the fleet it
# propagates to. Targets may be single IPv4 addresses or dash ranges.
source:
  ip: 10.0.0.120

targets:
  - 10.0.0.121
  - 10.0.0.130-10.0.0.140

# Named groups replace the top-level source/targets pair when present.
# Each group pairs a source controller with its own fleet; template is
# where exports land and where imports read from by default.
#groups:
#  rack-a:
#    source_ip: 10.0.0.120
#    template: templates/rack-a.xml
#    targets:
#      - 10.0.0.121-10.0.0.126
#  rack-b:
#    source_ip: 10.0.1.120
#    template: templates/rack-b.xml
#    targets:
#      - 10.0.1.121-10.0.1.126

connection:
  verify_ssl: false
  timeout: 30        # per-request seconds
  retries: 3
  poll_interval: 15  # seconds between job status polls
  job_timeout: 1800  # wall-clock budget per remote job, seconds

export:
  target: ALL        # ALL, BIOS, iDRAC, NIC, RAID
  format: XML        # XML or JSON
  include: Default   # Default, IncludeReadOnly, IncludePasswordHashValues
  output_dir: templates

import:
  target: ALL
  shutdown_type: Graceful  # Graceful, Forced, NoReboot
  host_power_state: "On"   # On or Off
  workers: 1               # concurrent imports per group, 1 = sequential

pipeline:
  steps: [validate, export, import]

history:
  db_path: goldfish.db

server:
  listen: 0.0.0.0:8080
`
