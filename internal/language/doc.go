// Package language normalizes operator-supplied language codes into the base
// ISO 639-1 codes the transcription model accepts.
package language
