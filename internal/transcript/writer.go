package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"diarscribe/internal/fileutil"
)

// Format selects the result document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatSRT  Format = "srt"
)

// ParseFormat accepts json, text (or txt) and srt, case-insensitively.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "json":
		return FormatJSON, nil
	case "text", "txt":
		return FormatText, nil
	case "srt":
		return FormatSRT, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected json, text or srt)", value)
	}
}

// Extension returns the file extension for the format, without a dot.
func (f Format) Extension() string {
	switch f {
	case FormatText:
		return "txt"
	case FormatSRT:
		return "srt"
	default:
		return "json"
	}
}

// DefaultOutputPath returns <dir>/result_YYYYMMDD_HHMMSS.<ext>.
func DefaultOutputPath(dir string, format Format, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("result_%s.%s", now.Format("20060102_150405"), format.Extension()))
}

// Write dispatches to the writer for format.
func Write(doc Document, format Format, path string) error {
	switch format {
	case FormatJSON:
		return WriteJSON(doc, path)
	case FormatText:
		return WriteText(doc, path)
	case FormatSRT:
		return WriteSRT(doc, path)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteJSON writes the document as indented UTF-8 JSON with non-ASCII and
// HTML characters left literal.
func WriteJSON(doc Document, path string) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return EncodeJSON(w, doc)
	})
}

// EncodeJSON writes the JSON form of doc to w.
func EncodeJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// WriteText writes a human-readable transcript with a summary header.
func WriteText(doc Document, path string) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return EncodeText(w, doc)
	})
}

// EncodeText writes the plain-text form of doc to w.
func EncodeText(w io.Writer, doc Document) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Audio file: %s\n", doc.AudioFile)
	fmt.Fprintf(&b, "Duration: %s\n", FormatTime(doc.Duration))
	fmt.Fprintf(&b, "Speakers: %d\n", doc.Speakers)
	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n\n")
	for _, seg := range doc.Segments {
		fmt.Fprintf(&b, "[%s] %s --> %s\n", seg.Speaker, FormatTime(seg.Start), FormatTime(seg.End))
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSRT writes the segments as SubRip cues labelled with the speaker.
func WriteSRT(doc Document, path string) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return EncodeSRT(w, doc)
	})
}

// EncodeSRT writes the SubRip form of doc to w.
func EncodeSRT(w io.Writer, doc Document) error {
	var b strings.Builder
	for i, seg := range doc.Segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", FormatSRTTime(seg.Start), FormatSRTTime(seg.End))
		fmt.Fprintf(&b, "[%s] %s\n\n", seg.Speaker, seg.Text)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
