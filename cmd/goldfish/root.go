package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bmcfleet/goldfish/internal/config"
	"github.com/bmcfleet/goldfish/internal/fleet"
	"github.com/bmcfleet/goldfish/internal/store"
)

const version = "0.1.0"

var (
	// Global flags
	cfgPath    string
	groupNames []string
	logLevel   string
	logFormat  string
	quiet      bool
	globalCfg  *config.Config
	logger     *slog.Logger

	// Global components
	globalStore *store.Store
)

// initializeStore opens the run history database. A failure here disables
// history rather than blocking the fleet operation itself.
func initializeStore() {
	if globalCfg == nil || globalCfg.History.DBPath == "" {
		return
	}

	st, err := store.New(globalCfg.History.DBPath, logger)
	if err != nil {
		logger.Warn("run history disabled", "error", err, "db", globalCfg.History.DBPath)
		return
	}
	globalStore = st
}

// newRunner resolves credentials from the environment and wires a fleet
// runner to the global store.
func newRunner() (*fleet.Runner, error) {
	if globalCfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	creds, err := config.CredentialsFromEnv()
	if err != nil {
		return nil, err
	}
	return fleet.NewRunner(creds, globalCfg.Connection, globalStore, logger), nil
}

// selectedGroups resolves the --group selection against the config.
func selectedGroups() ([]config.Group, error) {
	if globalCfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	return globalCfg.ResolveGroups(groupNames)
}

// shouldSkipConfig checks if a command should skip config loading
func shouldSkipConfig(cmdName string) bool {
	skipConfigCmds := map[string]bool{
		"help":    true,
		"version": true,
		"init":    true,
	}
	return skipConfigCmds[cmdName]
}

// shouldSkipStore checks if a command should skip opening the history database
func shouldSkipStore(cmdName string) bool {
	skipStoreCmds := map[string]bool{
		"help":    true,
		"version": true,
		"config":  true,
		"init":    true,
		"show":    true,
	}
	return skipStoreCmds[cmdName]
}

// closeStore closes the global store connection
func closeStore() {
	if globalStore != nil {
		if err := globalStore.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goldfish",
		Short: "Propagate golden Server Configuration Profiles across controller fleets",
		Long: `goldfish exports a Server Configuration Profile from a source management
controller and imports it into fleets of target controllers over Redfish.
Fleets are described as named groups in the config file; credentials come
from the GOLDFISH_USERNAME and GOLDFISH_PASSWORD environment variables.`,
		Example: `  goldfish export --group rack-a
  goldfish import golden.xml --group rack-a
  goldfish apply
  goldfish validate
  goldfish history --limit 10
  goldfish serve --listen 0.0.0.0:8080`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logging
			setupLogging()

			// Skip config loading for commands that don't need it
			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			// Load config: flag, then environment, then well-known paths
			if cfgPath == "" {
				cfgPath = os.Getenv(config.EnvConfig)
			}
			if cfgPath == "" {
				var err error
				cfgPath, err = config.FindConfigFile()
				if err != nil && cmd.Name() != "config" {
					logger.Warn("config file not found, using defaults", "error", err)
				}
			}

			if cfgPath != "" {
				var err error
				globalCfg, err = config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			} else {
				globalCfg = config.DefaultConfig()
			}

			globalCfg.ApplyEnvOverrides()

			if err := globalCfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			if !quiet {
				logger.Debug("config loaded", "path", cfgPath, "groups", globalCfg.GroupNames())
			}

			// Open the history database after config is loaded
			if !shouldSkipStore(cmd.Name()) {
				initializeStore()
			}

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeStore()
		},
	}

	// Add persistent flags
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringSliceVarP(&groupNames, "group", "g", nil, "server group(s) to operate on (default: all groups)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	// Add subcommands
	cmd.AddCommand(
		newExportCmd(),
		newImportCmd(),
		newApplyCmd(),
		newValidateCmd(),
		newPipelineCmd(),
		newHistoryCmd(),
		newServeCmd(),
		newConfigCmd(),
	)

	return cmd
}

// setupLogging initializes the slog logger based on flags
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if quiet {
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}
