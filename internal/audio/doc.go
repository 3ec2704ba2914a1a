// Package audio loads recordings into normalized mono waveforms at the model
// sample rate and slices them by time.
//
// PCM WAV input is decoded in-process; other containers are converted to WAV
// with ffmpeg first. Waveforms are immutable once loaded: Extract always
// returns a copy.
package audio
