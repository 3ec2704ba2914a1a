package main

import (
	"github.com/spf13/cobra"
)

// runFlags are the root command's per-run overrides of the configuration.
type runFlags struct {
	audio        string
	output       string
	offline      bool
	hfToken      string
	whisperModel string
	format       string
	logLevel     string
	language     string
	device       string
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(defaultRuntime())
}

func newRootCommandWith(runtime runtimeDeps) *cobra.Command {
	var configFlag string
	var flags runFlags

	ctx := newCommandContext(&configFlag, runtime)

	rootCmd := &cobra.Command{
		Use:   "diarscribe [--audio] <file>",
		Short: "Speaker-diarized transcription with pyannote and Whisper",
		Long: "diarscribe splits a recording into speaker turns with pyannote, transcribes\n" +
			"each turn with Whisper and writes one JSON, text or SRT result file.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.audio == "" && len(args) == 1 {
				flags.audio = args[0]
			}
			if flags.audio == "" {
				return cmd.Help()
			}
			return runTranscription(cmd, ctx, flags)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	f := rootCmd.Flags()
	f.StringVarP(&flags.audio, "audio", "a", "", "Audio file to transcribe")
	f.StringVarP(&flags.output, "output", "o", "", "Result file path (default <output_dir>/result_<timestamp>.<ext>)")
	f.BoolVar(&flags.offline, "offline", false, "Load models only from the local model cache")
	f.StringVar(&flags.hfToken, "hf-token", "", "Hugging Face access token (default $HF_TOKEN)")
	f.StringVar(&flags.whisperModel, "whisper-model", "", "Whisper model size: tiny, base, small, medium, large")
	f.StringVar(&flags.format, "format", "", "Output format: json, text, srt")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level: DEBUG, INFO, WARNING, ERROR")
	f.StringVar(&flags.language, "language", "", "Spoken language code (default zh)")
	f.StringVar(&flags.device, "device", "", "Compute device: auto, cpu, cuda")

	rootCmd.AddCommand(newModelsCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
