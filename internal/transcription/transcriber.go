package transcription

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"diarscribe/internal/audio"
	"diarscribe/internal/language"
	"diarscribe/internal/logging"
	"diarscribe/internal/services"
	"diarscribe/internal/transcript"
)

const stage = "transcription"

// Defaults for the Whisper model.
const (
	DefaultModel    = "medium"
	DefaultLanguage = "zh"
	// ChinesePrompt biases decoding toward Simplified Chinese output.
	ChinesePrompt = "以下是普通话的句子。"
)

// Models lists the accepted Whisper model sizes.
var Models = []string{"tiny", "base", "small", "medium", "large"}

// Options configures a Transcriber.
type Options struct {
	Model           string
	DefaultLanguage string
	// InitialPrompt applies to every segment; empty selects the language default.
	InitialPrompt   string
	WorkDir         string
	Logger          *slog.Logger
	// Progress receives a progress bar during TranscribeSegments when it is a
	// terminal.
	Progress io.Writer
}

// Input is either an in-memory waveform or an audio file path.
type Input struct {
	Path     string
	Waveform *audio.Waveform
}

// FromPath wraps an audio file path.
func FromPath(path string) Input { return Input{Path: path} }

// FromWaveform wraps a waveform slice.
func FromWaveform(w audio.Waveform) Input { return Input{Waveform: &w} }

// Transcriber turns audio into text with a model loaded once per run.
type Transcriber struct {
	engine   Engine
	model    string
	language string
	prompt   string
	workDir  string
	logger   *slog.Logger
	progress io.Writer
}

// New wraps a loaded engine. The model size is validated even though the
// engine already holds the model so misconfiguration is reported uniformly.
func New(opts Options, engine Engine) (*Transcriber, error) {
	model := strings.ToLower(strings.TrimSpace(opts.Model))
	if model == "" {
		model = DefaultModel
	}
	if !slices.Contains(Models, model) {
		return nil, services.Wrap(services.ErrConfiguration, stage, "model", fmt.Sprintf("Unsupported Whisper model %q (expected %s)", opts.Model, strings.Join(Models, ", ")), nil)
	}
	if engine == nil {
		return nil, services.Wrap(services.ErrConfiguration, stage, "engine", "No transcription engine", nil)
	}
	lang, err := language.Normalize(opts.DefaultLanguage)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stage, "language", "", err)
	}
	if lang == "" {
		lang = DefaultLanguage
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Transcriber{
		engine:   engine,
		model:    model,
		language: lang,
		prompt:   strings.TrimSpace(opts.InitialPrompt),
		workDir:  workDir,
		logger:   logging.NewComponentLogger(opts.Logger, "transcriber"),
		progress: terminalOnly(opts.Progress),
	}, nil
}

// Transcribe returns the whitespace-trimmed text for input. An empty language
// selects the configured default. For Chinese without an explicit prompt the
// Simplified Chinese prompt is injected.
func (t *Transcriber) Transcribe(ctx context.Context, input Input, lang, initialPrompt string) (string, error) {
	effective := t.language
	if strings.TrimSpace(lang) != "" {
		normalized, err := language.Normalize(lang)
		if err != nil {
			return "", services.Wrap(services.ErrConfiguration, stage, "language", "", err)
		}
		effective = normalized
	}
	prompt := strings.TrimSpace(initialPrompt)
	if prompt == "" && effective == "zh" {
		prompt = ChinesePrompt
	}

	path := input.Path
	if input.Waveform != nil {
		if len(input.Waveform.Samples) == 0 {
			t.logger.DebugContext(ctx, "skipping empty audio slice")
			return "", nil
		}
		tmp, err := os.CreateTemp(t.workDir, "diarscribe-slice-*.wav")
		if err != nil {
			return "", services.Wrap(services.ErrExternalTool, stage, "write slice", "", err)
		}
		path = tmp.Name()
		_ = tmp.Close()
		defer os.Remove(path)
		if err := audio.WriteWAV(path, *input.Waveform); err != nil {
			return "", services.Wrap(services.ErrExternalTool, stage, "write slice", "", err)
		}
	} else if strings.TrimSpace(path) == "" {
		return "", services.Wrap(services.ErrValidation, stage, "transcribe", "No audio input", nil)
	}

	text, err := t.engine.Transcribe(ctx, Request{
		AudioPath:     path,
		Language:      effective,
		InitialPrompt: prompt,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// TranscribeSegments transcribes each segment's slice of waveform in order,
// one at a time, and returns the annotated segments in the same order.
func (t *Transcriber) TranscribeSegments(ctx context.Context, waveform audio.Waveform, segments []transcript.Segment) ([]transcript.TranscribedSegment, error) {
	total := len(segments)
	results := make([]transcript.TranscribedSegment, 0, total)
	t.logger.InfoContext(ctx, "transcribing segments", logging.Int("count", total), logging.String("model", t.model))

	var bar *progressbar.ProgressBar
	if t.progress != nil && total > 0 {
		bar = progressbar.NewOptions(
			total,
			progressbar.OptionSetWriter(t.progress),
			progressbar.OptionSetDescription("transcribing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t.logger.InfoContext(ctx, "transcribing segment",
			logging.String("position", fmt.Sprintf("%d/%d", i+1, total)),
			logging.String("speaker", seg.Speaker),
		)
		text, err := t.Transcribe(ctx, FromWaveform(waveform.Extract(seg.Start, seg.End)), "", t.prompt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, services.Wrap(services.ErrExternalTool, stage, "segment", fmt.Sprintf("Segment %d/%d (%s)", i+1, total, seg.Speaker), err)
		}
		t.logger.InfoContext(ctx, "segment transcribed",
			logging.String("speaker", seg.Speaker),
			logging.String("start", transcript.FormatTime(seg.Start)),
			logging.String("end", transcript.FormatTime(seg.End)),
			logging.String("text", text),
		)
		results = append(results, transcript.TranscribedSegment{Segment: seg, Text: text})
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return results, nil
}

// Close releases the engine.
func (t *Transcriber) Close() error {
	return t.engine.Close()
}

// terminalOnly drops w when it is a file that is not a terminal.
func terminalOnly(w io.Writer) io.Writer {
	f, ok := w.(*os.File)
	if !ok {
		return w
	}
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return w
	}
	return nil
}
