// Package pipeline runs one diarized transcription end to end.
//
// A Runner validates the input, loads audio, diarizes it, transcribes every
// speaker turn in order, aggregates per-speaker statistics and writes the
// result document. Any stage failure aborts the run and nothing is written.
package pipeline
