package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"diarscribe/internal/logging"
	"diarscribe/internal/services"
)

const (
	// DefaultSampleRate is the rate both models expect.
	DefaultSampleRate = 16000

	wavFormatPCM = 1
)

// Converter transcodes src into a 16-bit PCM WAV at dst.
type Converter func(ctx context.Context, src, dst string) error

// LoadOptions configures Load.
type LoadOptions struct {
	SampleRate   int
	FFmpegBinary string
	// TempDir holds intermediate WAV files for non-WAV input.
	TempDir string
	// Convert overrides the ffmpeg conversion step.
	Convert Converter
	Logger  *slog.Logger
}

// Load reads an audio file, downmixes it to mono and resamples it to the
// target rate. PCM WAV files are decoded directly; everything else is
// converted with ffmpeg first.
func Load(ctx context.Context, path string, opts LoadOptions) (Waveform, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	targetRate := opts.SampleRate
	if targetRate <= 0 {
		targetRate = DefaultSampleRate
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Waveform{}, services.Wrap(services.ErrNotFound, "audio", "load", fmt.Sprintf("Audio file not found: %s", path), nil)
		}
		return Waveform{}, services.Wrap(services.ErrNotFound, "audio", "load", "Stat audio file", err)
	}
	if info.IsDir() {
		return Waveform{}, services.Wrap(services.ErrNotFound, "audio", "load", fmt.Sprintf("Audio path is a directory: %s", path), nil)
	}

	logger.Info("loading audio", logging.String("path", path), logging.Int("target_sample_rate", targetRate))

	samples, rate, channels, err := decodeWAV(path)
	if errors.Is(err, errNotPCMWAV) {
		samples, rate, channels, err = convertAndDecode(ctx, path, opts, logger)
	}
	if err != nil {
		return Waveform{}, err
	}

	mono := Downmix(samples, channels)
	if rate != targetRate {
		logger.Debug("resampling audio", logging.Int("source_sample_rate", rate), logging.Int("target_sample_rate", targetRate))
		mono = Resample(mono, rate, targetRate)
	}
	wf := Waveform{Samples: mono, SampleRate: targetRate}
	logger.Info("audio loaded",
		logging.Float64("duration_seconds", wf.Duration()),
		logging.Int("source_channels", channels),
		logging.Int("source_sample_rate", rate),
	)
	return wf, nil
}

var errNotPCMWAV = errors.New("not a PCM wav file")

func decodeWAV(path string) ([]float32, int, int, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, services.Wrap(services.ErrNotFound, "audio", "open", path, err)
	}
	defer fh.Close()

	dec := wav.NewDecoder(fh)
	if !dec.IsValidFile() || dec.WavAudioFormat != wavFormatPCM {
		return nil, 0, 0, errNotPCMWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, services.Wrap(services.ErrValidation, "audio", "decode wav", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, 0, 0, services.Wrap(services.ErrValidation, "audio", "decode wav", fmt.Sprintf("%s has no usable format header", path), nil)
	}
	return normalizeInts(buf, int(dec.BitDepth)), buf.Format.SampleRate, buf.Format.NumChannels, nil
}

// normalizeInts scales integer PCM into [-1, 1]. 8-bit WAV is unsigned.
func normalizeInts(buf *goaudio.IntBuffer, bitDepth int) []float32 {
	out := make([]float32, len(buf.Data))
	if bitDepth == 8 {
		for i, v := range buf.Data {
			out[i] = float32(v-128) / 128
		}
		return out
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))
	for i, v := range buf.Data {
		out[i] = float32(v) / scale
	}
	return out
}

func convertAndDecode(ctx context.Context, path string, opts LoadOptions, logger *slog.Logger) ([]float32, int, int, error) {
	convert := opts.Convert
	if convert == nil {
		convert = ffmpegConverter(opts.FFmpegBinary)
	}
	tmpDir, err := os.MkdirTemp(opts.TempDir, "diarscribe-audio-")
	if err != nil {
		return nil, 0, 0, services.Wrap(services.ErrExternalTool, "audio", "convert", "Create temp directory", err)
	}
	defer os.RemoveAll(tmpDir)

	dst := filepath.Join(tmpDir, "converted.wav")
	logger.Debug("converting audio with ffmpeg", logging.String("source", path), logging.String("destination", dst))
	if err := convert(ctx, path, dst); err != nil {
		return nil, 0, 0, err
	}
	samples, rate, channels, err := decodeWAV(dst)
	if errors.Is(err, errNotPCMWAV) {
		return nil, 0, 0, services.Wrap(services.ErrValidation, "audio", "convert", fmt.Sprintf("Converter produced an unreadable file for %s", path), nil)
	}
	return samples, rate, channels, err
}

func ffmpegConverter(binary string) Converter {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return func(ctx context.Context, src, dst string) error {
		if _, err := exec.LookPath(binary); err != nil {
			return services.Wrap(services.ErrExternalTool, "audio", "convert", fmt.Sprintf("%s is required to decode non-WAV input", binary), err)
		}
		args := []string{"-nostdin", "-hide_banner", "-loglevel", "error", "-y", "-i", src, "-vn", "-acodec", "pcm_s16le", dst}
		cmd := exec.CommandContext(ctx, binary, args...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			detail := strings.TrimSpace(string(out))
			if detail == "" {
				detail = "ffmpeg conversion failed"
			}
			return services.Wrap(services.ErrExternalTool, "audio", "convert", detail, err)
		}
		return nil
	}
}
