// Package pyrun launches the Python model helpers through uvx.
//
// It builds uvx argument lists (dependency sets, CUDA wheel indexes, offline
// mode), layers environment overrides, runs one-shot scripts through an
// Executor, and manages long-lived workers that exchange line-delimited JSON
// over stdin and stdout. SummarizeStderr and IndicatesModelLoadFailure turn
// Python tracebacks into operator-facing messages.
package pyrun
