package scp

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/bmcfleet/goldfish/internal/redfish"
)

// taskFromJSON builds a Task the same way the poller does: decoded fields
// plus the raw body kept alongside.
func taskFromJSON(t *testing.T, body string) *redfish.Task {
	t.Helper()
	task := &redfish.Task{Raw: []byte(body)}
	if err := json.Unmarshal([]byte(body), task); err != nil {
		t.Fatalf("failed to decode task body: %v", err)
	}
	return task
}

func TestExtractProfileVendorFieldXML(t *testing.T) {
	const profile = `<SystemConfiguration Model="PowerEdge R650"><Component FQDD="BIOS.Setup.1-1"/></SystemConfiguration>`

	raw, _ := json.Marshal(map[string]any{
		"TaskState": "Completed",
		"Messages": []map[string]any{
			{
				"Message": "Export completed",
				"Oem": map[string]any{
					"Dell": map[string]any{"ServerConfigurationProfile": profile},
				},
			},
		},
	})

	got := extractProfile(taskFromJSON(t, string(raw)), "XML")
	if got != profile {
		t.Errorf("extractProfile() = %q, want the vendor field verbatim", got)
	}
}

func TestExtractProfileVendorFieldJSON(t *testing.T) {
	inner := map[string]any{
		"SystemConfiguration": map[string]any{"Model": "PowerEdge R650"},
	}
	raw, _ := json.Marshal(map[string]any{
		"TaskState": "Completed",
		"Messages": []map[string]any{
			{
				"Message": "Export completed",
				"Oem":     map[string]any{"Dell": map[string]any{"ServerConfigurationProfile": inner}},
			},
		},
	})

	got := extractProfile(taskFromJSON(t, string(raw)), "JSON")

	innerRaw, _ := json.Marshal(inner)
	var want bytes.Buffer
	if err := json.Indent(&want, innerRaw, "", "  "); err != nil {
		t.Fatalf("indenting expected payload: %v", err)
	}
	if got != want.String() {
		t.Errorf("extractProfile() = %q, want indented JSON %q", got, want.String())
	}
}

func TestExtractProfileMessageFallback(t *testing.T) {
	const doc = `  <SystemConfiguration><Component/></SystemConfiguration>`

	raw, _ := json.Marshal(map[string]any{
		"TaskState": "Completed",
		"Messages": []map[string]any{
			{"Message": "Export ran"},
			{"Message": doc},
		},
	})

	got := extractProfile(taskFromJSON(t, string(raw)), "XML")
	if got != doc {
		t.Errorf("extractProfile() = %q, want the message text untrimmed", got)
	}
}

func TestExtractProfileMessageFallbackJSON(t *testing.T) {
	const doc = `{"SystemConfiguration": {"Model": "R650"}}`

	raw, _ := json.Marshal(map[string]any{
		"TaskState": "Completed",
		"Messages":  []map[string]any{{"Message": doc}},
	})

	got := extractProfile(taskFromJSON(t, string(raw)), "JSON")
	if got != doc {
		t.Errorf("extractProfile() = %q, want the message text", got)
	}

	// An XML-looking message must not satisfy a JSON export.
	rawXML, _ := json.Marshal(map[string]any{
		"TaskState": "Completed",
		"Messages":  []map[string]any{{"Message": "<SystemConfiguration/>"}},
	})
	if got := extractProfile(taskFromJSON(t, string(rawXML)), "JSON"); got != "" {
		t.Errorf("extractProfile() = %q, want \"\" for format mismatch", got)
	}
}

func TestExtractProfileRawBodyFallback(t *testing.T) {
	// Hand-built body: firmware sends the angle brackets unescaped, and
	// json.Marshal would escape them out of the raw scan's reach.
	const doc = `<SystemConfiguration><Component FQDD='NIC.Integrated.1'/></SystemConfiguration>`
	body := `{"TaskState": "Completed",` +
		` "Messages": [{"Message": "Details in Oem section"}],` +
		` "Oem": {"Dell": {"Output": "` + doc + `"}}}`

	got := extractProfile(taskFromJSON(t, body), "XML")
	if got != doc {
		t.Errorf("extractProfile() = %q, want document scanned from raw body", got)
	}

	// The raw-body scan is XML-only.
	if got := extractProfile(taskFromJSON(t, body), "JSON"); got != "" {
		t.Errorf("extractProfile() = %q, want \"\" for JSON format", got)
	}
}

// TestExtractProfileCascadeOrder verifies the vendor-namespaced field wins
// over a document-shaped message when both are present.
func TestExtractProfileCascadeOrder(t *testing.T) {
	const fromVendor = `<SystemConfiguration Source="vendor"/>`
	const fromMessage = `<SystemConfiguration Source="message"/>`

	raw, _ := json.Marshal(map[string]any{
		"TaskState": "Completed",
		"Messages": []map[string]any{
			{"Message": fromMessage},
			{
				"Message": "Export completed",
				"Oem":     map[string]any{"Dell": map[string]any{"ServerConfigurationProfile": fromVendor}},
			},
		},
	})

	got := extractProfile(taskFromJSON(t, string(raw)), "XML")
	if got != fromVendor {
		t.Errorf("extractProfile() = %q, want vendor field to win the cascade", got)
	}
}

func TestExtractProfileEmpty(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"TaskState": "Completed",
		"Messages":  []map[string]any{{"Message": "Export completed successfully"}},
	})

	if got := extractProfile(taskFromJSON(t, string(raw)), "XML"); got != "" {
		t.Errorf("extractProfile() = %q, want \"\"", got)
	}
}
