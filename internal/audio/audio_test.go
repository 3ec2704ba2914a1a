package audio_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"diarscribe/internal/audio"
	"diarscribe/internal/services"
)

func writeStereoWAV(t *testing.T, path string, rate int, left, right []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data := make([]int, 0, len(left)*2)
	for i := range left {
		data = append(data, left[i], right[i])
	}
	enc := wav.NewEncoder(f, rate, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	left := []int{16384, 16384, -16384, 0}
	right := []int{0, 16384, -16384, 32767}
	writeStereoWAV(t, path, 16000, left, right)

	wf, err := audio.Load(context.Background(), path, audio.LoadOptions{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if wf.SampleRate != 16000 || len(wf.Samples) != 4 {
		t.Fatalf("unexpected waveform rate=%d len=%d", wf.SampleRate, len(wf.Samples))
	}
	want := []float64{0.25, 0.5, -0.5, 0.5}
	for i, w := range want {
		if math.Abs(float64(wf.Samples[i])-w) > 1e-3 {
			t.Fatalf("sample %d = %f, want %f", i, wf.Samples[i], w)
		}
	}
}

func TestLoadResamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "low.wav")
	frames := 8000
	left := make([]int, frames)
	right := make([]int, frames)
	writeStereoWAV(t, path, 8000, left, right)

	wf, err := audio.Load(context.Background(), path, audio.LoadOptions{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if wf.SampleRate != audio.DefaultSampleRate {
		t.Fatalf("expected default rate, got %d", wf.SampleRate)
	}
	if len(wf.Samples) != 16000 {
		t.Fatalf("expected 16000 samples after resample, got %d", len(wf.Samples))
	}
	if math.Abs(wf.Duration()-1.0) > 1e-9 {
		t.Fatalf("unexpected duration %f", wf.Duration())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := audio.Load(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), audio.LoadOptions{})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = audio.Load(context.Background(), t.TempDir(), audio.LoadOptions{})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
}

func TestLoadConvertsNonWAV(t *testing.T) {
	src := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(src, []byte("ID3 not really audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	called := false
	convert := func(_ context.Context, gotSrc, dst string) error {
		called = true
		if gotSrc != src {
			t.Fatalf("unexpected source %q", gotSrc)
		}
		return audio.WriteWAV(dst, audio.Waveform{Samples: []float32{0, 0.5, -0.5}, SampleRate: 16000})
	}

	wf, err := audio.Load(context.Background(), src, audio.LoadOptions{Convert: convert, TempDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !called {
		t.Fatal("expected converter to run for non-WAV input")
	}
	if len(wf.Samples) != 3 {
		t.Fatalf("unexpected sample count %d", len(wf.Samples))
	}
}

func TestLoadConverterFailure(t *testing.T) {
	src := filepath.Join(t.TempDir(), "clip.m4a")
	if err := os.WriteFile(src, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	convert := func(context.Context, string, string) error {
		return services.Wrap(services.ErrExternalTool, "audio", "convert", "ffmpeg missing", nil)
	}
	_, err := audio.Load(context.Background(), src, audio.LoadOptions{Convert: convert, TempDir: t.TempDir()})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestWriteWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slices", "seg.wav")
	in := audio.Waveform{Samples: []float32{0, 0.25, -0.25, 1, -1}, SampleRate: 16000}
	if err := audio.WriteWAV(path, in); err != nil {
		t.Fatalf("WriteWAV returned error: %v", err)
	}
	out, err := audio.Load(context.Background(), path, audio.LoadOptions{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("length mismatch %d != %d", len(out.Samples), len(in.Samples))
	}
	for i := range in.Samples {
		if math.Abs(float64(out.Samples[i]-in.Samples[i])) > 1e-3 {
			t.Fatalf("sample %d = %f, want %f", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestExtract(t *testing.T) {
	samples := make([]float32, 100)
	for i := range samples {
		samples[i] = float32(i)
	}
	wf := audio.Waveform{Samples: samples, SampleRate: 10}

	tests := []struct {
		name       string
		start, end float64
		wantLen    int
		wantFirst  float32
	}{
		{"inside", 1.0, 2.5, 15, 10},
		{"truncates", 1.09, 1.19, 1, 10},
		{"clamps end", 9.0, 20.0, 10, 90},
		{"clamps negative start", -1.0, 0.5, 5, 0},
		{"start after end", 5.0, 4.0, 0, 0},
		{"beyond audio", 12.0, 15.0, 0, 0},
		{"zero length", 3.0, 3.0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wf.Extract(tt.start, tt.end)
			if len(got.Samples) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got.Samples), tt.wantLen)
			}
			if tt.wantLen > 0 && got.Samples[0] != tt.wantFirst {
				t.Fatalf("first = %f, want %f", got.Samples[0], tt.wantFirst)
			}
			if got.SampleRate != 10 {
				t.Fatalf("rate = %d", got.SampleRate)
			}
		})
	}
}

func TestExtractCopies(t *testing.T) {
	wf := audio.Waveform{Samples: []float32{1, 2, 3, 4}, SampleRate: 1}
	slice := wf.Extract(0, 2)
	slice.Samples[0] = 99
	if wf.Samples[0] != 1 {
		t.Fatal("Extract must not alias the source waveform")
	}
}

func TestResample(t *testing.T) {
	in := []float32{0, 1, 2, 3}
	out := audio.Resample(in, 4, 8)
	if len(out) != 8 {
		t.Fatalf("expected 8 samples, got %d", len(out))
	}
	if out[1] != 0.5 || out[2] != 1 {
		t.Fatalf("unexpected interpolation %v", out)
	}
	if out[len(out)-1] != 3 {
		t.Fatalf("expected last sample preserved, got %v", out[len(out)-1])
	}
	if got := audio.Resample(in, 16000, 16000); len(got) != len(in) {
		t.Fatal("same-rate resample must be identity")
	}
	if got := audio.Resample(nil, 8000, 16000); len(got) != 0 {
		t.Fatal("empty input must stay empty")
	}
}
