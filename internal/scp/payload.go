package scp

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/bmcfleet/goldfish/internal/redfish"
)

// ErrEmptyExportPayload indicates a completed export job carried no profile
// data in any of the shapes Dell firmware is known to use.
var ErrEmptyExportPayload = errors.New("export job returned no configuration data")

var systemConfigurationRE = regexp.MustCompile(`(?s)(<SystemConfiguration.*</SystemConfiguration>)`)

// extractProfile pulls the exported profile out of a finished export task.
// Firmware families deliver the document in different places, so the shapes
// are tried in a fixed order:
//
//  1. a ServerConfigurationProfile value under a message's Oem.Dell namespace
//  2. a message whose text is the raw XML or JSON document itself
//  3. a SystemConfiguration element anywhere in the raw task body (XML only)
//
// Returns "" when the task carries no profile data.
func extractProfile(task *redfish.Task, format string) string {
	upper := strings.ToUpper(format)

	for _, msg := range task.Messages {
		raw := msg.Oem.Dell.ServerConfigurationProfile
		if len(raw) == 0 {
			continue
		}
		if upper == "JSON" {
			var buf bytes.Buffer
			if err := json.Indent(&buf, raw, "", "  "); err == nil {
				return buf.String()
			}
			return string(raw)
		}
		// XML arrives as a JSON string value; unquoting preserves it exactly.
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	}

	for _, msg := range task.Messages {
		trimmed := strings.TrimSpace(msg.Message)
		if upper == "XML" && strings.HasPrefix(trimmed, "<") {
			return msg.Message
		}
		if upper == "JSON" && strings.HasPrefix(trimmed, "{") {
			return msg.Message
		}
	}

	if upper == "XML" {
		if m := systemConfigurationRE.FindSubmatch(task.Raw); m != nil {
			return string(m[1])
		}
	}

	return ""
}
