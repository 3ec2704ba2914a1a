package modelcache

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"

	"diarscribe/internal/fileutil"
	"diarscribe/internal/logging"
	"diarscribe/internal/services"
	"diarscribe/internal/services/pyrun"
)

//go:embed download_models.py
var downloadScript string

// DefaultDiarizationModel is the pyannote pipeline fetched by default.
const DefaultDiarizationModel = "pyannote/speaker-diarization-3.1"

// ErrDownloadInProgress is returned when another process holds the cache lock.
var ErrDownloadInProgress = errors.New("another model download is in progress")

// DownloadOptions configures Download.
type DownloadOptions struct {
	Token            string
	DiarizationModel string
	// WhisperModel, when set, is also fetched into WhisperDir.
	WhisperModel string
	UVXBinary    string
	WorkDir      string
	Executor     pyrun.Executor
	Logger       *slog.Logger
	// Progress receives a progress bar when non-nil.
	Progress io.Writer
}

// Download populates the cache with the diarization pipeline (and optionally a
// Whisper checkpoint) so later runs can use offline mode. Only one download
// may run per cache directory at a time.
func (c Cache) Download(ctx context.Context, opts DownloadOptions) (Manifest, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return Manifest{}, services.Wrap(services.ErrConfiguration, "models", "download", missingTokenHelp, nil)
	}
	model := strings.TrimSpace(opts.DiarizationModel)
	if model == "" {
		model = DefaultDiarizationModel
	}
	if strings.TrimSpace(c.Dir) == "" {
		return Manifest{}, services.Wrap(services.ErrConfiguration, "models", "download", "Model cache directory is not configured", nil)
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return Manifest{}, services.Wrap(services.ErrConfiguration, "models", "download", "Create model cache directory", err)
	}

	lock := flock.New(c.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return Manifest{}, services.Wrap(services.ErrExternalTool, "models", "download", "Acquire cache lock", err)
	}
	if !locked {
		return Manifest{}, services.Wrap(services.ErrExternalTool, "models", "download", c.LockPath(), ErrDownloadInProgress)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release cache lock", logging.Error(err))
		}
	}()

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	scriptPath := filepath.Join(workDir, "diarscribe_download_models.py")
	if err := fileutil.WriteFileAtomic(scriptPath, []byte(downloadScript), 0o644); err != nil {
		return Manifest{}, services.Wrap(services.ErrExternalTool, "models", "download", "Write download script", err)
	}
	defer os.Remove(scriptPath)

	packages := append([]string(nil), pyrun.DownloadPackages...)
	args := []string{"--model", model}
	if opts.WhisperModel != "" {
		packages = append(packages, "openai-whisper")
		args = append(args, "--whisper-model", opts.WhisperModel, "--whisper-dir", c.WhisperDir())
	}
	launch := pyrun.Launch{
		Binary:   opts.UVXBinary,
		Packages: packages,
		Refresh:  true,
		Script:   scriptPath,
		Args:     args,
		Env:      append(c.CacheEnv(), "HF_TOKEN="+token),
	}

	steps := 1
	if opts.WhisperModel != "" {
		steps = 2
	}
	bar := newBar(opts.Progress, steps)
	logger.Info("downloading models",
		logging.String("cache_dir", c.Dir),
		logging.String("diarization_model", model),
		logging.String("whisper_model", opts.WhisperModel),
	)

	executor := opts.Executor
	if executor == nil {
		executor = pyrun.CommandExecutor{}
	}
	out, err := executor.Run(ctx, launch.Command(), func(line string) {
		if done, label, ok := parseProgress(line); ok {
			if bar != nil {
				bar.Describe("downloading " + label)
				_ = bar.Set(done)
			}
			logger.Debug("download progress", logging.Int("completed", done), logging.String("item", label))
			return
		}
		logger.Debug("download output", logging.String("line", line))
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Manifest{}, ctxErr
		}
		summary := pyrun.SummarizeStderr(out.Stderr)
		if pyrun.IndicatesModelLoadFailure(out.Stderr) || strings.HasPrefix(summary, "diarization:") {
			return Manifest{}, services.Wrap(services.ErrModelLoad, "models", "download", summary+"\n"+downloadFailedHelp, err)
		}
		return Manifest{}, services.Wrap(services.ErrExternalTool, "models", "download", summary, err)
	}

	manifest := Manifest{
		DiarizationModel: model,
		WhisperModel:     opts.WhisperModel,
		DownloadedAt:     time.Now().UTC(),
	}
	if err := c.writeManifest(manifest); err != nil {
		logger.Warn("failed to write cache manifest", logging.Error(err))
	}
	logger.Info("models downloaded", logging.String("cache_dir", c.Dir))
	return manifest, nil
}

func newBar(w io.Writer, steps int) *progressbar.ProgressBar {
	if w == nil {
		return nil
	}
	return progressbar.NewOptions(
		steps,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("downloading models"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// parseProgress reads "PROGRESS <done>/<total> <label>" lines.
func parseProgress(line string) (int, string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "PROGRESS ")
	if !ok {
		return 0, "", false
	}
	counts, label, _ := strings.Cut(rest, " ")
	doneText, _, ok := strings.Cut(counts, "/")
	if !ok {
		return 0, "", false
	}
	done, err := strconv.Atoi(doneText)
	if err != nil {
		return 0, "", false
	}
	return done, label, true
}

const missingTokenHelp = `A Hugging Face token is required to download the models:
  1. Create a token at https://huggingface.co/settings/tokens
  2. Accept the terms at https://huggingface.co/pyannote/speaker-diarization-3.1
  3. Accept the terms at https://huggingface.co/pyannote/segmentation-3.0
  4. Set HF_TOKEN (environment or .env file) or pass --hf-token`

const downloadFailedHelp = `Check that:
  1. the network connection works
  2. the Hugging Face token is valid
  3. the model terms have been accepted for speaker-diarization-3.1 and segmentation-3.0`
