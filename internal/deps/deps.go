package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary diarscribe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Path is the resolved executable when Available.
	Path   string
	Detail string
}

// Requirements lists the binaries a run may execute. ffmpeg is optional
// because PCM WAV input is decoded without it.
func Requirements(uvxBinary, ffmpegBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "uvx",
			Command:     uvxBinary,
			Description: "Launches the pyannote and Whisper Python environments",
		},
		{
			Name:        "FFmpeg",
			Command:     ffmpegBinary,
			Description: "Decodes non-WAV audio input",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = resolved
		results = append(results, status)
	}
	return results
}
