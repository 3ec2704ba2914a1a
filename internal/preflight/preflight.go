package preflight

import (
	"fmt"
	"strings"

	"diarscribe/internal/config"
	"diarscribe/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromDependency(status))
	}
	results = append(results,
		CheckWritableTarget("Output directory", cfg.Paths.OutputDir),
		CheckModelCache(cfg),
		CheckCredential(cfg),
	)
	return results
}

// Failures returns the results that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summary joins failed results into a single line for error messages.
func Summary(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return strings.Join(parts, "; ")
}

// Optional dependencies pass even when missing; the detail still says so.
func fromDependency(status deps.Status) Result {
	detail := status.Path
	if !status.Available {
		detail = status.Detail
		if status.Optional {
			detail += " (optional)"
		}
	}
	return Result{
		Name:   status.Name,
		Passed: status.Available || status.Optional,
		Detail: detail,
	}
}
