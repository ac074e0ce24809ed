package scp

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// tagGapRE matches whitespace between adjacent XML tags.
var tagGapRE = regexp.MustCompile(`>\s+<`)

// ReadProfile reads a profile file and collapses it into the single-line form
// the ImportBuffer field expects: inter-tag whitespace removed, newlines
// stripped, surrounding whitespace trimmed.
func ReadProfile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading profile %s: %w", path, err)
	}

	content := tagGapRE.ReplaceAllString(string(data), "><")
	content = strings.ReplaceAll(content, "\n", "")
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("profile %s is empty", path)
	}
	return content, nil
}

// ProfileFileName builds the auto-generated name for an exported profile:
// scp_<host with dots replaced by underscores>_<UTC timestamp>.<format>.
func ProfileFileName(host, format string, now time.Time) string {
	safeHost := strings.NewReplacer(".", "_", ":", "_").Replace(host)
	stamp := now.UTC().Format("20060102_150405")
	return fmt.Sprintf("scp_%s_%s.%s", safeHost, stamp, strings.ToLower(format))
}

// WriteProfile writes exported profile content to explicitPath when set
// (creating parent directories), otherwise to an auto-named file inside dir.
// Returns the path written.
func WriteProfile(dir, explicitPath, host, format, content string) (string, error) {
	path := explicitPath
	if path == "" {
		if dir == "" {
			dir = "templates"
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("creating output directory %s: %w", dir, err)
		}
		path = filepath.Join(dir, ProfileFileName(host, format, time.Now()))
	} else if parent := filepath.Dir(path); parent != "" && parent != "." {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return "", fmt.Errorf("creating directory %s: %w", parent, err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("writing profile %s: %w", path, err)
	}
	return path, nil
}
