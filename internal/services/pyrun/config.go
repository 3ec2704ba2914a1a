package pyrun

// uvx and index configuration shared by every Python helper.
const (
	UVXCommand   = "uvx"
	CUDAIndexURL = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL = "https://pypi.org/simple"

	// Torch 2.6 changed torch.load default to weights_only=true, which breaks
	// pyannote and Whisper checkpoints.
	torchWeightsEnv = "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD"
)

// Package sets installed into the ephemeral uvx environments.
var (
	DiarizationPackages = []string{
		"pyannote.audio>=3.1,<4",
		"numpy<2",
		"torchaudio",
		"soundfile",
		"omegaconf",
	}
	WhisperPackages = []string{
		"openai-whisper",
		"numpy<2",
		"soundfile",
	}
	DownloadPackages = []string{
		"pyannote.audio>=3.1,<4",
		"numpy<2",
		"huggingface_hub",
		"omegaconf",
	}
)
