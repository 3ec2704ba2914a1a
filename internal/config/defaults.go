package config

const (
	defaultConfigPath         = "~/.config/diarscribe/config.toml"
	projectConfigName         = "diarscribe.toml"
	defaultOutputDir          = "output"
	defaultModelCacheDir      = "~/.cache/diarscribe/models"
	defaultDiarizationModel   = "pyannote/speaker-diarization-3.1"
	defaultWhisperModel       = "medium"
	defaultLanguage           = "zh"
	defaultSampleRate         = 16000
	defaultFFmpegBinary       = "ffmpeg"
	defaultDevice             = "auto"
	defaultUVXBinary          = "uvx"
	defaultOutputFormat       = "json"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	huggingFaceTokenEnvVar    = "HF_TOKEN"
	huggingFaceTokenAltEnvVar = "HUGGING_FACE_HUB_TOKEN"
)

// WhisperModels lists the accepted Whisper model sizes.
var WhisperModels = []string{"tiny", "base", "small", "medium", "large"}

// OutputFormats lists the accepted result document formats.
var OutputFormats = []string{"json", "text", "srt"}

// Devices lists the accepted compute device preferences.
var Devices = []string{"auto", "cpu", "cuda"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:     defaultOutputDir,
			ModelCacheDir: defaultModelCacheDir,
		},
		Diarization: Diarization{
			Model: defaultDiarizationModel,
		},
		Transcription: Transcription{
			Model:    defaultWhisperModel,
			Language: defaultLanguage,
		},
		Audio: Audio{
			SampleRate:   defaultSampleRate,
			FFmpegBinary: defaultFFmpegBinary,
		},
		Runtime: Runtime{
			Device:    defaultDevice,
			UVXBinary: defaultUVXBinary,
		},
		Output: Output{
			Format: defaultOutputFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
