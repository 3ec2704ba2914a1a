package transcription_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"diarscribe/internal/audio"
	"diarscribe/internal/services"
	"diarscribe/internal/transcript"
	"diarscribe/internal/transcription"
)

type fakeEngine struct {
	requests []transcription.Request
	samples  []int
	texts    map[int]string
	failAt   int
	closed   bool
}

func (f *fakeEngine) Transcribe(_ context.Context, req transcription.Request) (string, error) {
	f.requests = append(f.requests, req)
	n := len(f.requests)
	if f.failAt == n {
		return "", errors.New("decoder crashed")
	}
	info, err := os.Stat(req.AudioPath)
	if err != nil {
		return "", err
	}
	f.samples = append(f.samples, int(info.Size()))
	if text, ok := f.texts[n]; ok {
		return text, nil
	}
	return "  text  ", nil
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

func newTranscriber(t *testing.T, engine transcription.Engine, lang string) *transcription.Transcriber {
	t.Helper()
	tr, err := transcription.New(transcription.Options{DefaultLanguage: lang, WorkDir: t.TempDir()}, engine)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return tr
}

func tone(seconds float64) audio.Waveform {
	n := int(seconds * 16000)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.1
	}
	return audio.Waveform{Samples: samples, SampleRate: 16000}
}

func TestNewRejectsUnknownModel(t *testing.T) {
	_, err := transcription.New(transcription.Options{Model: "huge"}, &fakeEngine{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTranscribeInjectsChinesePrompt(t *testing.T) {
	engine := &fakeEngine{}
	tr := newTranscriber(t, engine, "")

	text, err := tr.Transcribe(context.Background(), transcription.FromWaveform(tone(0.5)), "", "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if text != "text" {
		t.Fatalf("expected trimmed text, got %q", text)
	}
	req := engine.requests[0]
	if req.Language != "zh" || req.InitialPrompt != transcription.ChinesePrompt {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestTranscribeRespectsExplicitPromptAndLanguage(t *testing.T) {
	engine := &fakeEngine{}
	tr := newTranscriber(t, engine, "zh")

	if _, err := tr.Transcribe(context.Background(), transcription.FromWaveform(tone(0.1)), "zh", "会议记录"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Transcribe(context.Background(), transcription.FromWaveform(tone(0.1)), "en-US", ""); err != nil {
		t.Fatal(err)
	}
	if got := engine.requests[0].InitialPrompt; got != "会议记录" {
		t.Fatalf("explicit prompt overridden: %q", got)
	}
	if got := engine.requests[1]; got.Language != "en" || got.InitialPrompt != "" {
		t.Fatalf("unexpected english request %+v", got)
	}
}

func TestTranscribeFromPath(t *testing.T) {
	engine := &fakeEngine{}
	tr := newTranscriber(t, engine, "en")
	path := t.TempDir() + "/clip.wav"
	if err := audio.WriteWAV(path, tone(0.2)); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Transcribe(context.Background(), transcription.FromPath(path), "", ""); err != nil {
		t.Fatal(err)
	}
	if engine.requests[0].AudioPath != path {
		t.Fatalf("expected path passed through, got %q", engine.requests[0].AudioPath)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("caller-owned file must not be removed")
	}
}

func TestTranscribeSegmentsPreservesOrder(t *testing.T) {
	engine := &fakeEngine{texts: map[int]string{1: " 你好 ", 2: "再见", 3: "hello"}}
	tr := newTranscriber(t, engine, "zh")
	segments := []transcript.Segment{
		{Speaker: "SPEAKER_00", Start: 0, End: 1},
		{Speaker: "SPEAKER_01", Start: 0.5, End: 2},
		{Speaker: "SPEAKER_00", Start: 2, End: 2.25},
	}
	results, err := tr.TranscribeSegments(context.Background(), tone(3), segments)
	if err != nil {
		t.Fatalf("TranscribeSegments returned error: %v", err)
	}
	if len(results) != len(segments) {
		t.Fatalf("got %d results, want %d", len(results), len(segments))
	}
	wantText := []string{"你好", "再见", "hello"}
	for i, r := range results {
		if r.Segment != segments[i] {
			t.Fatalf("result %d segment %+v, want %+v", i, r.Segment, segments[i])
		}
		if r.Text != wantText[i] {
			t.Fatalf("result %d text %q, want %q", i, r.Text, wantText[i])
		}
	}
	if engine.samples[1] <= engine.samples[2] {
		t.Fatalf("expected longer slice to produce larger file: %v", engine.samples)
	}
}

func TestTranscribeRemovesSliceFiles(t *testing.T) {
	engine := &fakeEngine{}
	workDir := t.TempDir()
	tr, err := transcription.New(transcription.Options{WorkDir: workDir, Progress: &bytes.Buffer{}}, engine)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.TranscribeSegments(context.Background(), tone(2), []transcript.Segment{
		{Speaker: "A", Start: 0, End: 1},
		{Speaker: "B", Start: 1, End: 2},
	}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected slices to be removed, found %d files", len(entries))
	}
}

func TestTranscribeSegmentsSkipsEmptySlices(t *testing.T) {
	engine := &fakeEngine{}
	tr := newTranscriber(t, engine, "zh")
	results, err := tr.TranscribeSegments(context.Background(), tone(1), []transcript.Segment{
		{Speaker: "A", Start: 0.5, End: 0.5},
		{Speaker: "B", Start: 5, End: 6},
	})
	if err != nil {
		t.Fatalf("TranscribeSegments returned error: %v", err)
	}
	if len(engine.requests) != 0 {
		t.Fatalf("empty slices must not reach the engine, got %d requests", len(engine.requests))
	}
	if len(results) != 2 || results[0].Text != "" || results[1].Text != "" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestTranscribeSegmentsAbortsOnFailure(t *testing.T) {
	engine := &fakeEngine{failAt: 2}
	tr := newTranscriber(t, engine, "zh")
	_, err := tr.TranscribeSegments(context.Background(), tone(3), []transcript.Segment{
		{Speaker: "A", Start: 0, End: 1},
		{Speaker: "B", Start: 1, End: 2},
		{Speaker: "A", Start: 2, End: 3},
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if len(engine.requests) != 2 {
		t.Fatalf("expected processing to stop at the failing segment, got %d requests", len(engine.requests))
	}
}

func TestTranscribeSegmentsHonoursCancellation(t *testing.T) {
	engine := &fakeEngine{}
	tr := newTranscriber(t, engine, "zh")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.TranscribeSegments(ctx, tone(1), []transcript.Segment{{Speaker: "A", Start: 0, End: 1}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCloseReleasesEngine(t *testing.T) {
	engine := &fakeEngine{}
	tr := newTranscriber(t, engine, "zh")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if !engine.closed {
		t.Fatal("expected engine to be closed")
	}
}
