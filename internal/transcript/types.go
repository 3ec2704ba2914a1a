package transcript

import (
	"path/filepath"
	"time"
)

// TimestampLayout is the local ISO-8601 layout used for Document.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Segment is one speaker turn reported by diarization, in seconds.
type Segment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Duration returns End minus Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// TranscribedSegment is a speaker turn with its recognized text.
type TranscribedSegment struct {
	Segment
	Text string `json:"text"`
}

// Document is the persisted result of one run.
type Document struct {
	AudioFile  string               `json:"audio_file"`
	Duration   float64              `json:"duration"`
	Speakers   int                  `json:"speakers"`
	Segments   []TranscribedSegment `json:"segments"`
	Statistics Statistics           `json:"statistics"`
	Timestamp  string               `json:"timestamp"`
}

// NewDocument assembles a result document. The audio path is made absolute
// and the speaker count is taken from the statistics.
func NewDocument(audioPath string, duration float64, segments []TranscribedSegment, stats Statistics, now time.Time) Document {
	if abs, err := filepath.Abs(audioPath); err == nil {
		audioPath = abs
	}
	if segments == nil {
		segments = []TranscribedSegment{}
	}
	return Document{
		AudioFile:  audioPath,
		Duration:   duration,
		Speakers:   stats.Len(),
		Segments:   segments,
		Statistics: stats,
		Timestamp:  now.Format(TimestampLayout),
	}
}
