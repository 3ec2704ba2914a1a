package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"diarscribe/internal/audio"
	"diarscribe/internal/config"
	"diarscribe/internal/device"
	"diarscribe/internal/diarization"
	"diarscribe/internal/language"
	"diarscribe/internal/logging"
	"diarscribe/internal/modelcache"
	"diarscribe/internal/pipeline"
	"diarscribe/internal/preflight"
	"diarscribe/internal/services"
	"diarscribe/internal/transcript"
	"diarscribe/internal/transcription"
)

// applyRunFlags copies cfg and layers the command-line overrides on top.
func applyRunFlags(cfg *config.Config, flags runFlags) (config.Config, error) {
	run := *cfg
	if flags.offline {
		run.Diarization.Offline = true
	}
	if v := strings.TrimSpace(flags.hfToken); v != "" {
		run.Diarization.HFToken = v
	}
	if v := strings.TrimSpace(flags.whisperModel); v != "" {
		run.Transcription.Model = v
	}
	if v := strings.TrimSpace(flags.format); v != "" {
		run.Output.Format = v
	}
	if v := strings.TrimSpace(flags.logLevel); v != "" {
		run.Logging.Level = v
	}
	if v := strings.TrimSpace(flags.language); v != "" {
		run.Transcription.Language = v
	}
	if v := strings.TrimSpace(flags.device); v != "" {
		run.Runtime.Device = v
	}
	if err := run.Refresh(); err != nil {
		return config.Config{}, err
	}
	return run, nil
}

func runTranscription(cmd *cobra.Command, ctx *commandContext, flags runFlags) error {
	base, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := applyRunFlags(base, flags)
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(&cfg, "")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	out := cmd.OutOrStdout()

	if err := pipeline.ValidateInput(flags.audio); err != nil {
		return err
	}
	format, err := transcript.ParseFormat(cfg.Output.Format)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "startup", "format", "", err)
	}
	dev, err := device.Resolve(cfg.Runtime.Device, ctx.runtime.probe)
	if err != nil {
		return err
	}
	cache := modelcache.New(cfg.Paths.ModelCacheDir)

	diarizer, err := diarization.New(diarization.Options{
		Model:       cfg.Diarization.Model,
		Offline:     cfg.Diarization.Offline,
		HFToken:     cfg.Diarization.HFToken,
		Cache:       cache,
		Device:      dev,
		NumSpeakers: cfg.Diarization.NumSpeakers,
		MinSpeakers: cfg.Diarization.MinSpeakers,
		MaxSpeakers: cfg.Diarization.MaxSpeakers,
		UVXBinary:   cfg.Runtime.UVXBinary,
		WorkDir:     cfg.WorkDir(),
		Logger:      logger,
	}, ctx.runtime.executor)
	if err != nil {
		return err
	}

	if failed := preflight.Failures(ctx.runtime.preflight(&cfg)); len(failed) > 0 {
		return services.Wrap(services.ErrConfiguration, "startup", "preflight", preflight.Summary(failed), nil)
	}

	fmt.Fprintf(out, "Language: %s (%s)\n", language.DisplayName(cfg.Transcription.Language), cfg.Transcription.Language)
	fmt.Fprintf(out, "Loading Whisper %s model on %s...\n", cfg.Transcription.Model, dev)
	engine, err := ctx.runtime.startEngine(cmd.Context(), transcription.WorkerOptions{
		Model:     cfg.Transcription.Model,
		Device:    dev,
		Offline:   cfg.Diarization.Offline,
		Cache:     cache,
		UVXBinary: cfg.Runtime.UVXBinary,
		WorkDir:   cfg.WorkDir(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	transcriber, err := transcription.New(transcription.Options{
		Model:           cfg.Transcription.Model,
		DefaultLanguage: cfg.Transcription.Language,
		InitialPrompt:   cfg.Transcription.InitialPrompt,
		WorkDir:         cfg.WorkDir(),
		Logger:          logger,
		Progress:        cmd.ErrOrStderr(),
	}, engine)
	if err != nil {
		_ = engine.Close()
		return err
	}
	defer func() {
		if err := transcriber.Close(); err != nil {
			logger.Warn("failed to stop whisper worker", logging.Error(err))
		}
	}()

	runner := &pipeline.Runner{
		Diarizer:    diarizer,
		Transcriber: transcriber,
		LoadOptions: audio.LoadOptions{
			SampleRate:   cfg.Audio.SampleRate,
			FFmpegBinary: cfg.Audio.FFmpegBinary,
			Logger:       logging.NewComponentLogger(logger, "audio"),
		},
		WorkDir: cfg.WorkDir(),
		Logger:  logger,
		Reporter: func(step, total int, title string) {
			fmt.Fprintf(out, "\n[%d/%d] %s...\n", step, total, title)
		},
	}
	result, err := runner.Run(cmd.Context(), pipeline.Request{
		AudioPath:  flags.audio,
		OutputPath: flags.output,
		OutputDir:  cfg.Paths.OutputDir,
		Format:     format,
	})
	if err != nil {
		return err
	}

	printSummary(out, result)
	return nil
}

func printSummary(out io.Writer, result pipeline.Result) {
	doc := result.Document
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Results saved to: %s\n", result.OutputPath)
	fmt.Fprintf(out, "Duration: %s\n", transcript.FormatTime(doc.Duration))
	fmt.Fprintf(out, "Speakers: %d\n", doc.Speakers)
	fmt.Fprintf(out, "Segments: %d\n", len(doc.Segments))
	if doc.Statistics.Len() == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderStatistics(doc))
}
