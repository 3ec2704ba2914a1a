package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output and cache directory configuration.
type Paths struct {
	OutputDir     string `toml:"output_dir"`
	ModelCacheDir string `toml:"model_cache_dir"`
}

// Diarization contains configuration for the pyannote speaker pipeline.
type Diarization struct {
	Model   string `toml:"model"`
	Offline bool   `toml:"offline"`
	HFToken string `toml:"hf_token"`
	// Speaker count hints forwarded to the pipeline when positive.
	NumSpeakers int `toml:"num_speakers"`
	MinSpeakers int `toml:"min_speakers"`
	MaxSpeakers int `toml:"max_speakers"`
}

// Transcription contains configuration for the Whisper model.
type Transcription struct {
	Model         string `toml:"model"`
	Language      string `toml:"language"`
	InitialPrompt string `toml:"initial_prompt"`
}

// Audio contains configuration for decoding input audio.
type Audio struct {
	SampleRate   int    `toml:"sample_rate"`
	FFmpegBinary string `toml:"ffmpeg_binary"`
}

// Runtime contains configuration for the Python model processes.
type Runtime struct {
	Device    string `toml:"device"`
	UVXBinary string `toml:"uvx_binary"`
	WorkDir   string `toml:"work_dir"`
}

// Output contains configuration for the result document.
type Output struct {
	Format string `toml:"format"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for diarscribe.
//
// Configuration sections by subsystem:
//   - Paths: output directory and model cache
//   - Diarization: pyannote model, offline switch, credentials, speaker hints
//   - Transcription: Whisper model size, language, and prompt
//   - Audio: target sample rate and converter binary
//   - Runtime: compute device and uvx launcher
//   - Output: result document format
//   - Logging: log format, level, and optional file directory
type Config struct {
	Paths         Paths         `toml:"paths"`
	Diarization   Diarization   `toml:"diarization"`
	Transcription Transcription `toml:"transcription"`
	Audio         Audio         `toml:"audio"`
	Runtime       Runtime       `toml:"runtime"`
	Output        Output        `toml:"output"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file is not an error; defaults apply.
// Any .env file in the working directory or beside the config file is loaded
// first so HF_TOKEN can be supplied that way.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(resolvedPath); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv applies .env files without overriding variables already set in
// the process environment.
func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load %s: %w", abs, err)
		}
	}
	return nil
}

// EnsureDirectories creates the output directory.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.OutputDir, err)
	}
	return nil
}

// WorkDir returns the scratch directory for helper scripts and audio slices.
func (c *Config) WorkDir() string {
	if strings.TrimSpace(c.Runtime.WorkDir) != "" {
		return c.Runtime.WorkDir
	}
	return os.TempDir()
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Refresh re-normalizes and validates the config after callers apply
// command-line overrides.
func (c *Config) Refresh() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}
