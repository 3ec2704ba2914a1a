// Package diarization answers "who spoke when" by running a pyannote
// speaker-diarization pipeline in a Python subprocess.
//
// New performs every configuration check up front (offline cache presence,
// online credentials) so misconfiguration fails before any model loads.
// Diarize runs the pipeline once per audio file and returns turns sorted by
// start time; Statistics aggregates them per speaker.
package diarization
