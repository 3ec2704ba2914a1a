package config

import (
	"fmt"
	"os"
	"strings"

	"diarscribe/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDiarization()
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeAudio()
	if err := c.normalizeRuntime(); err != nil {
		return err
	}
	c.Output.Format = NormalizeFormat(c.Output.Format)
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
	return c.normalizeLogging()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ModelCacheDir) == "" {
		c.Paths.ModelCacheDir = defaultModelCacheDir
	}
	if c.Paths.ModelCacheDir, err = expandPath(c.Paths.ModelCacheDir); err != nil {
		return fmt.Errorf("paths.model_cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiarization() {
	c.Diarization.Model = strings.TrimSpace(c.Diarization.Model)
	if c.Diarization.Model == "" {
		c.Diarization.Model = defaultDiarizationModel
	}
	c.Diarization.HFToken = strings.TrimSpace(c.Diarization.HFToken)
	if c.Diarization.HFToken == "" {
		for _, key := range []string{huggingFaceTokenEnvVar, huggingFaceTokenAltEnvVar} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.Diarization.HFToken = strings.TrimSpace(value)
				break
			}
		}
	}
}

func (c *Config) normalizeTranscription() error {
	c.Transcription.Model = strings.ToLower(strings.TrimSpace(c.Transcription.Model))
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	lang, err := language.Normalize(c.Transcription.Language)
	if err != nil {
		return fmt.Errorf("transcription.language: %w", err)
	}
	if lang == "" {
		lang = defaultLanguage
	}
	c.Transcription.Language = lang
	c.Transcription.InitialPrompt = strings.TrimSpace(c.Transcription.InitialPrompt)
	return nil
}

func (c *Config) normalizeAudio() {
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = defaultSampleRate
	}
	c.Audio.FFmpegBinary = strings.TrimSpace(c.Audio.FFmpegBinary)
	if c.Audio.FFmpegBinary == "" {
		c.Audio.FFmpegBinary = defaultFFmpegBinary
	}
}

func (c *Config) normalizeRuntime() error {
	c.Runtime.Device = strings.ToLower(strings.TrimSpace(c.Runtime.Device))
	if c.Runtime.Device == "" {
		c.Runtime.Device = defaultDevice
	}
	c.Runtime.UVXBinary = strings.TrimSpace(c.Runtime.UVXBinary)
	if c.Runtime.UVXBinary == "" {
		c.Runtime.UVXBinary = defaultUVXBinary
	}
	if strings.TrimSpace(c.Runtime.WorkDir) != "" {
		var err error
		if c.Runtime.WorkDir, err = expandPath(c.Runtime.WorkDir); err != nil {
			return fmt.Errorf("runtime.work_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "text", "console":
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		var err error
		if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	return nil
}

// NormalizeFormat lowercases an output format and maps "txt" to "text".
func NormalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "txt" {
		return "text"
	}
	return format
}
