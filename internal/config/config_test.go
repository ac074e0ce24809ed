package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDefaultConfig verifies that DefaultConfig returns sensible defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		getValue func(*Config) string
		want     string
	}{
		{"export target", func(c *Config) string { return c.Export.Target }, "ALL"},
		{"export format", func(c *Config) string { return c.Export.Format }, "XML"},
		{"export include", func(c *Config) string { return c.Export.Include }, "Default"},
		{"export output dir", func(c *Config) string { return c.Export.OutputDir }, "templates"},
		{"import target", func(c *Config) string { return c.Import.Target }, "ALL"},
		{"import shutdown type", func(c *Config) string { return c.Import.ShutdownType }, "Graceful"},
		{"import power state", func(c *Config) string { return c.Import.HostPowerState }, "On"},
		{"history db path", func(c *Config) string { return c.History.DBPath }, "goldfish.db"},
		{"listen address", func(c *Config) string { return c.Server.Listen }, "0.0.0.0:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.getValue(cfg)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if cfg.Connection.VerifySSL {
		t.Error("Connection.VerifySSL = true, want false for self-signed controller certs")
	}
	if cfg.Connection.Timeout != 30 {
		t.Errorf("Connection.Timeout = %d, want 30", cfg.Connection.Timeout)
	}
	if cfg.Connection.Retries != 3 {
		t.Errorf("Connection.Retries = %d, want 3", cfg.Connection.Retries)
	}
	if cfg.Connection.PollInterval != 15 {
		t.Errorf("Connection.PollInterval = %d, want 15", cfg.Connection.PollInterval)
	}
	if cfg.Connection.JobTimeout != 1800 {
		t.Errorf("Connection.JobTimeout = %d, want 1800", cfg.Connection.JobTimeout)
	}
	if cfg.Import.Workers != 1 {
		t.Errorf("Import.Workers = %d, want 1 (sequential by default)", cfg.Import.Workers)
	}
	if cfg.Groups == nil {
		t.Error("Groups = nil, want non-nil map")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

// TestLoad tests loading a valid config file
func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "goldfish.yaml")

	configContent := `
source:
  ip: "10.0.0.5"
targets:
  - "10.0.0.10"
  - "10.0.0.20-10.0.0.29"
connection:
  verify_ssl: true
  timeout: 60
  retries: 5
  poll_interval: 5
  job_timeout: 600
export:
  target: "BIOS"
  format: "JSON"
  include: "IncludeReadOnly"
  output_dir: "/srv/goldfish/templates"
import:
  shutdown_type: "Forced"
  host_power_state: "Off"
  workers: 4
groups:
  rack-a:
    source_ip: "10.1.0.5"
    targets:
      - "10.1.0.10-10.1.0.19"
  rack-b:
    source_ip: "10.2.0.5"
    template: "templates/rack-b.xml"
    targets:
      - "10.2.0.10"
history:
  db_path: "/var/lib/goldfish/history.db"
server:
  listen: "127.0.0.1:9090"
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Source.IP != "10.0.0.5" {
		t.Errorf("Source.IP = %q, want %q", cfg.Source.IP, "10.0.0.5")
	}
	if len(cfg.Targets) != 2 || cfg.Targets[1] != "10.0.0.20-10.0.0.29" {
		t.Errorf("Targets = %v", cfg.Targets)
	}

	if !cfg.Connection.VerifySSL {
		t.Error("Connection.VerifySSL = false, want true")
	}
	if cfg.Connection.Timeout != 60 {
		t.Errorf("Connection.Timeout = %d, want 60", cfg.Connection.Timeout)
	}
	if cfg.Connection.JobTimeout != 600 {
		t.Errorf("Connection.JobTimeout = %d, want 600", cfg.Connection.JobTimeout)
	}

	if cfg.Export.Target != "BIOS" {
		t.Errorf("Export.Target = %q, want BIOS", cfg.Export.Target)
	}
	if cfg.Export.Format != "JSON" {
		t.Errorf("Export.Format = %q, want JSON", cfg.Export.Format)
	}
	if cfg.Export.Include != "IncludeReadOnly" {
		t.Errorf("Export.Include = %q, want IncludeReadOnly", cfg.Export.Include)
	}

	if cfg.Import.ShutdownType != "Forced" {
		t.Errorf("Import.ShutdownType = %q, want Forced", cfg.Import.ShutdownType)
	}
	if cfg.Import.Workers != 4 {
		t.Errorf("Import.Workers = %d, want 4", cfg.Import.Workers)
	}
	// Unset import fields keep their defaults.
	if cfg.Import.Target != "ALL" {
		t.Errorf("Import.Target = %q, want default ALL", cfg.Import.Target)
	}

	if len(cfg.Groups) != 2 {
		t.Fatalf("Groups length = %d, want 2", len(cfg.Groups))
	}
	rackA, ok := cfg.Groups["rack-a"]
	if !ok {
		t.Fatal("rack-a group not found")
	}
	if rackA.SourceIP != "10.1.0.5" {
		t.Errorf("rack-a SourceIP = %q, want 10.1.0.5", rackA.SourceIP)
	}
	rackB := cfg.Groups["rack-b"]
	if rackB.Template != "templates/rack-b.xml" {
		t.Errorf("rack-b Template = %q", rackB.Template)
	}

	if cfg.History.DBPath != "/var/lib/goldfish/history.db" {
		t.Errorf("History.DBPath = %q", cfg.History.DBPath)
	}
	if cfg.Server.Listen != "127.0.0.1:9090" {
		t.Errorf("Server.Listen = %q, want 127.0.0.1:9090", cfg.Server.Listen)
	}
}

// TestLoadInvalidYAML tests that Load returns an error for invalid YAML
func TestLoadInvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "invalid.yaml")

	invalidContent := `
source:
  ip: "10.0.0.5"
  invalid: [unclosed bracket
`

	if err := os.WriteFile(configFile, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configFile)
	if err == nil {
		t.Error("Load() succeeded, want error for invalid YAML")
	}
}

// TestLoadNonexistentFile tests that Load returns an error for missing files
func TestLoadNonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Error("Load() succeeded, want error for nonexistent file")
	}
}

// TestFindConfigFileFound tests that FindConfigFile returns the found config
func TestFindConfigFileFound(t *testing.T) {
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	tempDir := t.TempDir()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})

	configFile := filepath.Join(tempDir, "goldfish.yaml")
	if err := os.WriteFile(configFile, []byte("source:\n  ip: \"10.0.0.5\""), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	found, err := FindConfigFile()
	if err != nil {
		t.Fatalf("FindConfigFile() failed: %v", err)
	}
	if found != "goldfish.yaml" {
		t.Errorf("FindConfigFile() = %q, want goldfish.yaml", found)
	}
}

// TestApplyEnvOverrides tests source and target overrides from the environment
func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.IP = "10.0.0.5"
	cfg.Targets = []string{"10.0.0.10"}

	t.Setenv(EnvSourceIP, "192.168.0.120")
	t.Setenv(EnvTargetIPs, "192.168.0.130, 192.168.0.131,192.168.0.140-192.168.0.149")

	cfg.ApplyEnvOverrides()

	if cfg.Source.IP != "192.168.0.120" {
		t.Errorf("Source.IP = %q, want env override", cfg.Source.IP)
	}
	want := []string{"192.168.0.130", "192.168.0.131", "192.168.0.140-192.168.0.149"}
	if len(cfg.Targets) != len(want) {
		t.Fatalf("Targets = %v, want %v", cfg.Targets, want)
	}
	for i := range want {
		if cfg.Targets[i] != want[i] {
			t.Errorf("Targets[%d] = %q, want %q", i, cfg.Targets[i], want[i])
		}
	}
}

func TestApplyEnvOverridesNoEnv(t *testing.T) {
	t.Setenv(EnvSourceIP, "")
	t.Setenv(EnvTargetIPs, "")

	cfg := DefaultConfig()
	cfg.Source.IP = "10.0.0.5"
	cfg.Targets = []string{"10.0.0.10"}
	cfg.ApplyEnvOverrides()

	if cfg.Source.IP != "10.0.0.5" {
		t.Errorf("Source.IP = %q, want config value kept", cfg.Source.IP)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0] != "10.0.0.10" {
		t.Errorf("Targets = %v, want config value kept", cfg.Targets)
	}
}

// TestResolveGroupsDefault tests the implicit default group
func TestResolveGroupsDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.IP = "10.0.0.5"
	cfg.Targets = []string{"10.0.0.10", "10.0.0.11"}

	groups, err := cfg.ResolveGroups(nil)
	if err != nil {
		t.Fatalf("ResolveGroups() failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("ResolveGroups() returned %d groups, want 1", len(groups))
	}
	g := groups[0]
	if g.Name != "default" {
		t.Errorf("Name = %q, want default", g.Name)
	}
	if g.SourceIP != "10.0.0.5" {
		t.Errorf("SourceIP = %q, want top-level source", g.SourceIP)
	}
	if len(g.Targets) != 2 {
		t.Errorf("Targets = %v", g.Targets)
	}

	// Asking for the default group by name works too.
	if _, err := cfg.ResolveGroups([]string{"default"}); err != nil {
		t.Errorf("ResolveGroups(default) failed: %v", err)
	}

	// Any other name is unknown when no groups are configured.
	if _, err := cfg.ResolveGroups([]string{"rack-a"}); err == nil {
		t.Error("ResolveGroups(rack-a) succeeded, want error")
	}
}

// TestResolveGroupsNamed tests selection and ordering of configured groups
func TestResolveGroupsNamed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Groups = map[string]GroupConfig{
		"rack-b": {SourceIP: "10.2.0.5", Targets: []string{"10.2.0.10"}},
		"rack-a": {SourceIP: "10.1.0.5", Targets: []string{"10.1.0.10"}},
	}

	// Empty selection resolves every group sorted by name.
	groups, err := cfg.ResolveGroups(nil)
	if err != nil {
		t.Fatalf("ResolveGroups() failed: %v", err)
	}
	if len(groups) != 2 || groups[0].Name != "rack-a" || groups[1].Name != "rack-b" {
		t.Errorf("ResolveGroups() order = %v", []string{groups[0].Name, groups[1].Name})
	}

	// Explicit selection keeps the requested order.
	groups, err = cfg.ResolveGroups([]string{"rack-b"})
	if err != nil {
		t.Fatalf("ResolveGroups(rack-b) failed: %v", err)
	}
	if len(groups) != 1 || groups[0].SourceIP != "10.2.0.5" {
		t.Errorf("ResolveGroups(rack-b) = %+v", groups)
	}

	_, err = cfg.ResolveGroups([]string{"rack-z"})
	if err == nil {
		t.Fatal("ResolveGroups(rack-z) succeeded, want error")
	}
	if !strings.Contains(err.Error(), "rack-a, rack-b") {
		t.Errorf("error %q does not list available groups", err)
	}
}

// TestValidate tests rejection of unsupported enum values
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad format", func(c *Config) { c.Export.Format = "CSV" }},
		{"bad include", func(c *Config) { c.Export.Include = "Everything" }},
		{"bad shutdown type", func(c *Config) { c.Import.ShutdownType = "PullThePlug" }},
		{"bad power state", func(c *Config) { c.Import.HostPowerState = "Maybe" }},
		{"negative workers", func(c *Config) { c.Import.Workers = -1 }},
		{"zero retries", func(c *Config) { c.Connection.Retries = 0 }},
		{"zero poll interval", func(c *Config) { c.Connection.PollInterval = 0 }},
		{"bad pipeline step", func(c *Config) { c.Pipeline.Steps = []string{"export", "reboot"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Pipeline.Steps = []string{"validate", "export", "import", "apply"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() rejected valid pipeline steps: %v", err)
	}
}

// TestCredentialsFromEnv tests environment-only credential handling
func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv(EnvUsername, "root")
	t.Setenv(EnvPassword, "calvin")

	creds, err := CredentialsFromEnv()
	if err != nil {
		t.Fatalf("CredentialsFromEnv() failed: %v", err)
	}
	if creds.Username != "root" || creds.Password != "calvin" {
		t.Errorf("CredentialsFromEnv() = %+v", creds)
	}
}

func TestCredentialsFromEnvMissing(t *testing.T) {
	t.Setenv(EnvUsername, "root")
	t.Setenv(EnvPassword, "")

	_, err := CredentialsFromEnv()
	if err == nil {
		t.Fatal("CredentialsFromEnv() succeeded with missing password")
	}
	if !strings.Contains(err.Error(), EnvPassword) {
		t.Errorf("error %q does not name the missing variable", err)
	}
}
