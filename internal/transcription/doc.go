// Package transcription converts speech to text with OpenAI Whisper.
//
// The model runs in a persistent Python worker (WorkerEngine) that loads the
// checkpoint once; the Transcriber hands it one waveform slice at a time,
// sequentially, and applies the language defaults.
package transcription
