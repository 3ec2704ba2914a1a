package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"diarscribe/internal/logging"
	"diarscribe/internal/modelcache"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the offline model cache",
	}
	modelsCmd.AddCommand(newModelsDownloadCommand(ctx))
	return modelsCmd
}

func newModelsDownloadCommand(ctx *commandContext) *cobra.Command {
	var withWhisper bool
	var whisperModel string
	var hfToken string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download models into the cache so later runs can use --offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg, "")
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			token := strings.TrimSpace(hfToken)
			if token == "" {
				token = cfg.Diarization.HFToken
			}
			opts := modelcache.DownloadOptions{
				Token:            token,
				DiarizationModel: cfg.Diarization.Model,
				UVXBinary:        cfg.Runtime.UVXBinary,
				WorkDir:          cfg.WorkDir(),
				Executor:         ctx.runtime.executor,
				Logger:           logging.NewComponentLogger(logger, "models"),
				Progress:         cmd.ErrOrStderr(),
			}
			if withWhisper {
				opts.WhisperModel = cfg.Transcription.Model
				if v := strings.TrimSpace(whisperModel); v != "" {
					opts.WhisperModel = strings.ToLower(v)
				}
			}

			cache := modelcache.New(cfg.Paths.ModelCacheDir)
			manifest, err := cache.Download(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Models cached in %s\n", cache.Dir)
			fmt.Fprintf(out, "  Diarization: %s\n", manifest.DiarizationModel)
			if manifest.WhisperModel != "" {
				fmt.Fprintf(out, "  Whisper:     %s\n", manifest.WhisperModel)
			}
			fmt.Fprintln(out, "Run with --offline to use the cached models without network access.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&withWhisper, "whisper", false, "Also download the configured Whisper checkpoint")
	cmd.Flags().StringVar(&whisperModel, "whisper-model", "", "Whisper model size to download (implies the configured one when empty)")
	cmd.Flags().StringVar(&hfToken, "hf-token", "", "Hugging Face access token (default $HF_TOKEN)")
	return cmd
}
