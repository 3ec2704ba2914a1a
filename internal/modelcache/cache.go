package modelcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"diarscribe/internal/fileutil"
	"diarscribe/internal/services"
)

const (
	lockFileName     = ".download.lock"
	manifestFileName = "manifest.json"
	huggingFaceDir   = "huggingface"
	whisperDir       = "whisper"
)

// Cache is the on-disk model cache used in offline mode.
type Cache struct {
	Dir string
}

// New returns a cache rooted at dir.
func New(dir string) Cache {
	return Cache{Dir: dir}
}

// Exists reports whether the cache directory is present.
func (c Cache) Exists() bool {
	if strings.TrimSpace(c.Dir) == "" {
		return false
	}
	info, err := os.Stat(c.Dir)
	return err == nil && info.IsDir()
}

// HuggingFaceDir is the HF_HOME used for pyannote snapshots.
func (c Cache) HuggingFaceDir() string {
	return filepath.Join(c.Dir, huggingFaceDir)
}

// WhisperDir holds Whisper checkpoints.
func (c Cache) WhisperDir() string {
	return filepath.Join(c.Dir, whisperDir)
}

// LockPath is the file guarding concurrent downloads.
func (c Cache) LockPath() string {
	return filepath.Join(c.Dir, lockFileName)
}

// HasWhisperModel reports whether a checkpoint for the model size is cached.
func (c Cache) HasWhisperModel(model string) bool {
	matches, err := filepath.Glob(filepath.Join(c.WhisperDir(), model+"*.pt"))
	return err == nil && len(matches) > 0
}

// CacheEnv points pyannote and Hugging Face at the cache without forcing
// offline mode.
func (c Cache) CacheEnv() []string {
	return []string{
		"PYANNOTE_CACHE=" + c.Dir,
		"HF_HOME=" + c.HuggingFaceDir(),
	}
}

// OfflineEnv is CacheEnv plus the switches that stop the Hugging Face
// libraries from reaching the network.
func (c Cache) OfflineEnv() []string {
	return append(c.CacheEnv(),
		"HF_HUB_OFFLINE=1",
		"TRANSFORMERS_OFFLINE=1",
	)
}

// RequireOffline fails with a configuration error when the cache is missing.
func (c Cache) RequireOffline() error {
	if c.Exists() {
		return nil
	}
	return services.Wrap(
		services.ErrConfiguration,
		"diarization",
		"offline mode",
		fmt.Sprintf("Model cache not found at %s. Run 'diarscribe models download' once with network access, or drop --offline to load models online", c.Dir),
		nil,
	)
}

// Manifest records what the last successful download fetched.
type Manifest struct {
	DiarizationModel string    `json:"diarization_model"`
	WhisperModel     string    `json:"whisper_model,omitempty"`
	DownloadedAt     time.Time `json:"downloaded_at"`
}

// Manifest reads the download manifest, if any.
func (c Cache) Manifest() (Manifest, bool) {
	data, err := os.ReadFile(filepath.Join(c.Dir, manifestFileName))
	if err != nil {
		return Manifest{}, false
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, false
	}
	return m, true
}

func (c Cache) writeManifest(m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(filepath.Join(c.Dir, manifestFileName), append(data, '\n'), 0o644)
}
