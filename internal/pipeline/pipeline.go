package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"diarscribe/internal/audio"
	"diarscribe/internal/logging"
	"diarscribe/internal/services"
	"diarscribe/internal/transcript"
)

// TotalStages is the number of steps reported through Reporter.
const TotalStages = 4

// Diarizer produces speaker turns for an audio file.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]transcript.Segment, error)
}

// SegmentTranscriber transcribes speaker turns against a loaded waveform.
type SegmentTranscriber interface {
	TranscribeSegments(ctx context.Context, waveform audio.Waveform, segments []transcript.Segment) ([]transcript.TranscribedSegment, error)
}

// Reporter receives stage progress. step is 1-based.
type Reporter func(step, total int, title string)

// Request describes a single run.
type Request struct {
	AudioPath string
	// OutputPath overrides the generated result_<timestamp> path.
	OutputPath string
	OutputDir  string
	Format     transcript.Format
}

// Result is what a successful run produced.
type Result struct {
	RunID      string
	Document   transcript.Document
	OutputPath string
}

// Runner wires the stages together.
type Runner struct {
	Diarizer    Diarizer
	Transcriber SegmentTranscriber
	LoadOptions audio.LoadOptions
	// WorkDir holds the normalized WAV handed to the diarizer for non-WAV input.
	WorkDir  string
	Logger   *slog.Logger
	Reporter Reporter
	Now      func() time.Time
}

// ValidateInput checks that path names a readable regular file. It runs
// before any model is loaded.
func ValidateInput(path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, "input", "validate", "No audio file given", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "input", "validate", fmt.Sprintf("Audio file not found: %s", path), nil)
		}
		return services.Wrap(services.ErrNotFound, "input", "validate", "Stat audio file", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrNotFound, "input", "validate", fmt.Sprintf("Audio path is a directory: %s", path), nil)
	}
	return nil
}

// Run executes the full pipeline for req.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	if r.Diarizer == nil || r.Transcriber == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "pipeline", "run", "Runner is missing a diarizer or transcriber", nil)
	}
	if err := ValidateInput(req.AudioPath); err != nil {
		return Result{}, err
	}
	format := req.Format
	if format == "" {
		format = transcript.FormatJSON
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.NewComponentLogger(r.Logger, "pipeline")
	now := r.Now
	if now == nil {
		now = time.Now
	}
	started := now()

	logger.InfoContext(ctx, "run started",
		logging.String("audio", req.AudioPath),
		logging.String("format", string(format)),
	)

	r.report(1, "Loading audio")
	stageCtx := services.WithStage(ctx, "audio")
	loadOpts := r.LoadOptions
	if loadOpts.TempDir == "" {
		loadOpts.TempDir = r.WorkDir
	}
	waveform, err := audio.Load(stageCtx, req.AudioPath, loadOpts)
	if err != nil {
		return Result{}, r.fail(stageCtx, logger, "audio", err)
	}

	r.report(2, "Speaker diarization")
	stageCtx = services.WithStage(ctx, "diarization")
	diarizeInput, cleanup, err := r.diarizationInput(req.AudioPath, waveform)
	if err != nil {
		return Result{}, r.fail(stageCtx, logger, "diarization", err)
	}
	segments, err := r.Diarizer.Diarize(stageCtx, diarizeInput)
	cleanup()
	if err != nil {
		return Result{}, r.fail(stageCtx, logger, "diarization", err)
	}
	stats := transcript.ComputeStatistics(segments)

	r.report(3, "Transcribing segments")
	stageCtx = services.WithStage(ctx, "transcription")
	transcribed, err := r.Transcriber.TranscribeSegments(stageCtx, waveform, segments)
	if err != nil {
		return Result{}, r.fail(stageCtx, logger, "transcription", err)
	}

	r.report(4, "Saving results")
	stageCtx = services.WithStage(ctx, "output")
	doc := transcript.NewDocument(req.AudioPath, waveform.Duration(), transcribed, stats, now())
	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = transcript.DefaultOutputPath(req.OutputDir, format, now())
	}
	if err := transcript.Write(doc, format, outputPath); err != nil {
		return Result{}, r.fail(stageCtx, logger, "output", services.Wrap(services.ErrExternalTool, "output", "write", "Write result", err))
	}

	logger.InfoContext(ctx, "run complete",
		logging.String("output", outputPath),
		logging.Int("speakers", doc.Speakers),
		logging.Int("segments", len(doc.Segments)),
		logging.Duration("elapsed", now().Sub(started)),
	)
	return Result{RunID: runID, Document: doc, OutputPath: outputPath}, nil
}

// diarizationInput returns a path pyannote can read. WAV input is passed
// through; anything else is written out as the normalized mono waveform.
func (r *Runner) diarizationInput(path string, waveform audio.Waveform) (string, func(), error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return path, func() {}, nil
	}
	dir, err := os.MkdirTemp(r.WorkDir, "diarscribe-diarize-")
	if err != nil {
		return "", func() {}, services.Wrap(services.ErrExternalTool, "diarization", "prepare input", "Create temp dir", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	wavPath := filepath.Join(dir, "input.wav")
	if err := audio.WriteWAV(wavPath, waveform); err != nil {
		cleanup()
		return "", func() {}, services.Wrap(services.ErrExternalTool, "diarization", "prepare input", "Write normalized WAV", err)
	}
	return wavPath, cleanup, nil
}

func (r *Runner) report(step int, title string) {
	if r.Reporter != nil {
		r.Reporter(step, TotalStages, title)
	}
}

// fail logs processing failures in full. Setup and model-load failures carry
// their own remediation and are returned as is.
func (r *Runner) fail(ctx context.Context, logger *slog.Logger, stage string, err error) error {
	if services.IsSetupFailure(err) || errors.Is(err, services.ErrModelLoad) || errors.Is(err, context.Canceled) {
		return err
	}
	logging.ErrorWithContext(logging.WithContext(ctx, logger), "stage failed", "stage_failure",
		logging.String("failed_stage", stage),
		logging.String("error_category", services.Category(err)),
		logging.Error(err),
	)
	return err
}
