// Package main hosts the diarscribe CLI entrypoint and command graph.
//
// The root command turns one audio file into a speaker-attributed transcript.
// Subcommands populate the offline model cache, report host readiness and
// scaffold configuration. Configuration resolution, flag overrides and
// logger setup live here so the internal packages stay free of CLI concerns.
package main
