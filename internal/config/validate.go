package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDiarization(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateRuntime(); err != nil {
		return err
	}
	if !slices.Contains(OutputFormats, c.Output.Format) {
		return fmt.Errorf("output.format must be one of %s, got %q", strings.Join(OutputFormats, ", "), c.Output.Format)
	}
	return c.validateLogging()
}

func (c *Config) validateDiarization() error {
	d := c.Diarization
	if d.NumSpeakers < 0 || d.MinSpeakers < 0 || d.MaxSpeakers < 0 {
		return errors.New("diarization speaker counts must not be negative")
	}
	if d.MinSpeakers > 0 && d.MaxSpeakers > 0 && d.MinSpeakers > d.MaxSpeakers {
		return fmt.Errorf("diarization.min_speakers (%d) exceeds diarization.max_speakers (%d)", d.MinSpeakers, d.MaxSpeakers)
	}
	if d.NumSpeakers > 0 && (d.MinSpeakers > 0 || d.MaxSpeakers > 0) {
		return errors.New("diarization.num_speakers cannot be combined with min_speakers or max_speakers")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if !slices.Contains(WhisperModels, c.Transcription.Model) {
		return fmt.Errorf("transcription.model must be one of %s, got %q", strings.Join(WhisperModels, ", "), c.Transcription.Model)
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.SampleRate < 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	return nil
}

func (c *Config) validateRuntime() error {
	if !slices.Contains(Devices, c.Runtime.Device) {
		return fmt.Errorf("runtime.device must be one of %s, got %q", strings.Join(Devices, ", "), c.Runtime.Device)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error", "critical":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}
