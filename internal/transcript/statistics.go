package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SpeakerStatistics aggregates one speaker's turns.
type SpeakerStatistics struct {
	TotalDuration float64 `json:"total_duration"`
	SegmentCount  int     `json:"segment_count"`
}

// Statistics maps speakers to their aggregates, keeping the order in which
// speakers first appeared. The order survives JSON encoding and decoding.
type Statistics struct {
	order   []string
	entries map[string]SpeakerStatistics
}

// ComputeStatistics sums duration and turn count per speaker.
func ComputeStatistics(segments []Segment) Statistics {
	var stats Statistics
	for _, seg := range segments {
		stats.Add(seg.Speaker, seg.Duration())
	}
	return stats
}

// Add records one turn of the given duration for speaker.
func (s *Statistics) Add(speaker string, duration float64) {
	if s.entries == nil {
		s.entries = make(map[string]SpeakerStatistics)
	}
	entry, ok := s.entries[speaker]
	if !ok {
		s.order = append(s.order, speaker)
	}
	entry.TotalDuration += duration
	entry.SegmentCount++
	s.entries[speaker] = entry
}

// Speakers returns speaker ids in first-appearance order.
func (s Statistics) Speakers() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns the aggregate for speaker.
func (s Statistics) Get(speaker string) (SpeakerStatistics, bool) {
	entry, ok := s.entries[speaker]
	return entry, ok
}

// Len returns the number of distinct speakers.
func (s Statistics) Len() int {
	return len(s.order)
}

// MarshalJSON encodes the statistics as an object with keys in
// first-appearance order.
func (s Statistics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	buf.WriteByte('{')
	for i, speaker := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(speaker); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(s.entries[speaker]); err != nil {
			return nil, err
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, recording keys in document order.
func (s *Statistics) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = Statistics{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("statistics: expected object, got %v", tok)
	}
	out := Statistics{entries: make(map[string]SpeakerStatistics)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("statistics: expected string key, got %v", keyTok)
		}
		var entry SpeakerStatistics
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("statistics[%s]: %w", key, err)
		}
		if _, seen := out.entries[key]; !seen {
			out.order = append(out.order, key)
		}
		out.entries[key] = entry
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
