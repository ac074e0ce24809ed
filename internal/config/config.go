package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by every command. Credentials are
// deliberately environment-only and have no config file equivalent.
const (
	EnvUsername  = "GOLDFISH_USERNAME"
	EnvPassword  = "GOLDFISH_PASSWORD"
	EnvConfig    = "GOLDFISH_CONFIG"
	EnvSourceIP  = "GOLDFISH_SOURCE_IP"
	EnvTargetIPs = "GOLDFISH_TARGET_IPS"
)

// Config is the top-level configuration
type Config struct {
	Source     SourceConfig           `yaml:"source"`
	Targets    []string               `yaml:"targets"`
	Groups     map[string]GroupConfig `yaml:"groups"`
	Connection ConnectionConfig       `yaml:"connection"`
	Export     ExportConfig           `yaml:"export"`
	Import     ImportConfig           `yaml:"import"`
	Pipeline   PipelineConfig         `yaml:"pipeline"`
	History    HistoryConfig          `yaml:"history"`
	Server     ServerConfig           `yaml:"server"`
}

// SourceConfig names the controller whose configuration is the golden copy
type SourceConfig struct {
	IP string `yaml:"ip"`
}

// GroupConfig is a named fleet: one source controller and the targets its
// profile propagates to
type GroupConfig struct {
	SourceIP string   `yaml:"source_ip"`
	Template string   `yaml:"template"`
	Targets  []string `yaml:"targets"`
}

// ConnectionConfig holds per-controller HTTP settings. Durations are plain
// seconds in YAML.
type ConnectionConfig struct {
	VerifySSL    bool `yaml:"verify_ssl"`
	Timeout      int  `yaml:"timeout"`
	Retries      int  `yaml:"retries"`
	PollInterval int  `yaml:"poll_interval"`
	JobTimeout   int  `yaml:"job_timeout"`
}

// TimeoutDuration returns the per-request timeout.
func (c ConnectionConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// PollIntervalDuration returns the delay between job status polls.
func (c ConnectionConfig) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// JobTimeoutDuration returns the wall-clock budget for one remote job.
func (c ConnectionConfig) JobTimeoutDuration() time.Duration {
	return time.Duration(c.JobTimeout) * time.Second
}

// ExportConfig holds profile export settings
type ExportConfig struct {
	Target    string `yaml:"target"`
	Format    string `yaml:"format"`
	Include   string `yaml:"include"`
	OutputDir string `yaml:"output_dir"`
}

// ImportConfig holds profile import settings
type ImportConfig struct {
	Target         string `yaml:"target"`
	ShutdownType   string `yaml:"shutdown_type"`
	HostPowerState string `yaml:"host_power_state"`
	Workers        int    `yaml:"workers"`
}

// PipelineConfig lists the steps the pipeline command runs per group
type PipelineConfig struct {
	Steps []string `yaml:"steps"`
}

// HistoryConfig holds run history storage settings
type HistoryConfig struct {
	DBPath string `yaml:"db_path"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// Group is a resolved fleet group ready for a run.
type Group struct {
	Name     string
	SourceIP string
	Template string
	Targets  []string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Groups: make(map[string]GroupConfig),
		Connection: ConnectionConfig{
			VerifySSL:    false,
			Timeout:      30,
			Retries:      3,
			PollInterval: 15,
			JobTimeout:   1800,
		},
		Export: ExportConfig{
			Target:    "ALL",
			Format:    "XML",
			Include:   "Default",
			OutputDir: "templates",
		},
		Import: ImportConfig{
			Target:         "ALL",
			ShutdownType:   "Graceful",
			HostPowerState: "On",
			Workers:        1,
		},
		Pipeline: PipelineConfig{
			Steps: []string{"export", "import"},
		},
		History: HistoryConfig{
			DBPath: "goldfish.db",
		},
		Server: ServerConfig{
			Listen: "0.0.0.0:8080",
		},
	}
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"goldfish.yaml",
		"/etc/goldfish/goldfish.yaml",
	}

	// Add user config path
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "goldfish", "goldfish.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// ApplyEnvOverrides lets the environment replace the configured source
// address and target list.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvSourceIP); v != "" {
		c.Source.IP = v
	}
	if v := os.Getenv(EnvTargetIPs); v != "" {
		var targets []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				targets = append(targets, part)
			}
		}
		c.Targets = targets
	}
}

// GroupNames returns the configured group names, sorted.
func (c *Config) GroupNames() []string {
	names := make([]string, 0, len(c.Groups))
	for name := range c.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveGroups returns the groups selected by names, or every configured
// group (sorted by name) when names is empty. A config without a groups
// section exposes its top-level source/targets pair as the "default" group.
func (c *Config) ResolveGroups(names []string) ([]Group, error) {
	if len(c.Groups) == 0 {
		for _, name := range names {
			if name != "default" {
				return nil, fmt.Errorf("unknown group %q (no groups configured)", name)
			}
		}
		return []Group{{
			Name:     "default",
			SourceIP: c.Source.IP,
			Targets:  c.Targets,
		}}, nil
	}

	if len(names) == 0 {
		names = c.GroupNames()
	}

	groups := make([]Group, 0, len(names))
	for _, name := range names {
		gc, ok := c.Groups[name]
		if !ok {
			return nil, fmt.Errorf("unknown group %q (available: %s)", name, strings.Join(c.GroupNames(), ", "))
		}
		groups = append(groups, Group{
			Name:     name,
			SourceIP: gc.SourceIP,
			Template: gc.Template,
			Targets:  gc.Targets,
		})
	}
	return groups, nil
}

// Validate checks for values no command can work with.
func (c *Config) Validate() error {
	switch c.Export.Format {
	case "XML", "JSON":
	default:
		return fmt.Errorf("export.format %q not supported (use XML or JSON)", c.Export.Format)
	}

	switch c.Export.Include {
	case "Default", "IncludeReadOnly", "IncludePasswordHashValues":
	default:
		return fmt.Errorf("export.include %q not supported (use Default, IncludeReadOnly or IncludePasswordHashValues)", c.Export.Include)
	}

	switch c.Import.ShutdownType {
	case "Graceful", "Forced", "NoReboot":
	default:
		return fmt.Errorf("import.shutdown_type %q not supported (use Graceful, Forced or NoReboot)", c.Import.ShutdownType)
	}

	switch c.Import.HostPowerState {
	case "On", "Off":
	default:
		return fmt.Errorf("import.host_power_state %q not supported (use On or Off)", c.Import.HostPowerState)
	}

	if c.Import.Workers < 0 {
		return fmt.Errorf("import.workers must not be negative, got %d", c.Import.Workers)
	}
	if c.Connection.Retries < 1 {
		return fmt.Errorf("connection.retries must be at least 1, got %d", c.Connection.Retries)
	}
	if c.Connection.PollInterval < 1 {
		return fmt.Errorf("connection.poll_interval must be at least 1 second, got %d", c.Connection.PollInterval)
	}

	for _, step := range c.Pipeline.Steps {
		switch step {
		case "validate", "export", "import", "apply":
		default:
			return fmt.Errorf("pipeline step %q not supported (use validate, export, import or apply)", step)
		}
	}

	return nil
}

// Credentials is the controller login, supplied through the environment.
type Credentials struct {
	Username string
	Password string
}

// CredentialsFromEnv reads the controller login from GOLDFISH_USERNAME and
// GOLDFISH_PASSWORD.
func CredentialsFromEnv() (Credentials, error) {
	user := os.Getenv(EnvUsername)
	pass := os.Getenv(EnvPassword)
	if user == "" || pass == "" {
		return Credentials{}, fmt.Errorf("credentials not set: export %s and %s", EnvUsername, EnvPassword)
	}
	return Credentials{Username: user, Password: pass}, nil
}
