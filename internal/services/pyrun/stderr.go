package pyrun

import (
	"encoding/json"
	"strings"
)

// SummarizeStderr reduces Python stderr to a one-line failure summary: a JSON
// {"error": ...} payload when the script printed one, otherwise the last
// exception line, otherwise the last non-empty line.
func SummarizeStderr(stderr string) string {
	text := strings.TrimSpace(stderr)
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal([]byte(line), &payload) == nil && payload.Error != "" {
			return payload.Error
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.Contains(line, "Error:") || strings.Contains(line, "Exception:") {
			return line
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

var modelLoadMarkers = []string{
	"GatedRepoError",
	"401 Client Error",
	"Unauthorized",
	"Cannot access gated repo",
	"RepositoryNotFoundError",
	"LocalEntryNotFoundError",
	"HF_HUB_OFFLINE",
	"outgoing traffic has been disabled",
	"checkpoint",
	"UnpicklingError",
	"Failed to download",
	"ConnectionError",
	"MODEL_LOAD_FAILED",
}

// IndicatesModelLoadFailure reports whether stderr points at a model that
// could not be fetched or deserialized (authentication, gated access, missing
// offline snapshot, corrupt checkpoint, network).
func IndicatesModelLoadFailure(stderr string) bool {
	for _, marker := range modelLoadMarkers {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}
