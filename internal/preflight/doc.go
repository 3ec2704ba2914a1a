// Package preflight provides readiness checks for the binaries, directories
// and model cache that diarscribe depends on.
//
// These checks run in two contexts:
//   - The root command calls RunAll before loading any model so a missing
//     uvx binary or unwritable output directory fails fast.
//   - The CLI "diarscribe status" command renders every result, including
//     the informational ones, as a table.
package preflight
