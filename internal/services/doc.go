// Package services defines shared utilities consumed by the pipeline stages
// and the model adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and stage names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into missing input, configuration, model load, and processing errors.
//
// Subpackages hold the process plumbing used to drive the Python model
// runtimes.
package services
