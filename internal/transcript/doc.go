// Package transcript defines the speaker-labelled transcript model and its
// JSON, plain-text and SRT encodings.
//
// Statistics preserve the order in which speakers first appear so the JSON
// document lists them the same way every time. All file writers are atomic.
package transcript
