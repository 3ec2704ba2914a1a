package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"diarscribe/internal/config"
	"diarscribe/internal/deps"
	"diarscribe/internal/modelcache"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritableTarget verifies that path can be created: either it already
// is a writable directory or its nearest existing ancestor is.
func CheckWritableTarget(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	check := CheckDirectoryAccess(name, parent)
	if !check.Passed {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s)", path, parent)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckModelCache reports whether the offline cache has been populated.
// Online runs pass even when the cache is empty.
func CheckModelCache(cfg *config.Config) Result {
	const name = "Model cache"
	cache := modelcache.New(cfg.Paths.ModelCacheDir)
	if !cache.Exists() {
		if cfg.Diarization.Offline {
			return Result{Name: name, Detail: fmt.Sprintf("%s (missing; run 'diarscribe models download')", cache.Dir)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not populated, online mode)", cache.Dir)}
	}
	manifest, ok := cache.Manifest()
	if !ok {
		return Result{Name: name, Passed: !cfg.Diarization.Offline, Detail: fmt.Sprintf("%s (no download manifest)", cache.Dir)}
	}
	parts := []string{manifest.DiarizationModel}
	if manifest.WhisperModel != "" {
		parts = append(parts, "whisper "+manifest.WhisperModel)
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s (%s, downloaded %s)", cache.Dir, strings.Join(parts, ", "), manifest.DownloadedAt.Local().Format(time.DateTime)),
	}
}

// CheckCredential verifies that online runs have a Hugging Face token.
func CheckCredential(cfg *config.Config) Result {
	const name = "Hugging Face token"
	switch {
	case cfg.Diarization.Offline:
		return Result{Name: name, Passed: true, Detail: "not needed (offline mode)"}
	case strings.TrimSpace(cfg.Diarization.HFToken) == "":
		return Result{Name: name, Detail: "missing (set HF_TOKEN or pass --hf-token)"}
	default:
		return Result{Name: name, Passed: true, Detail: "configured"}
	}
}

// CheckSystemDeps evaluates all binaries the configuration will execute.
// Both the root command and the status command use this to avoid
// duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg.Runtime.UVXBinary, cfg.Audio.FFmpegBinary))
}
