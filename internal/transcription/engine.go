package transcription

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"diarscribe/internal/device"
	"diarscribe/internal/fileutil"
	"diarscribe/internal/logging"
	"diarscribe/internal/modelcache"
	"diarscribe/internal/services"
	"diarscribe/internal/services/pyrun"
)

//go:embed whisper_worker.py
var workerScript string

// Request is one transcription call handed to an Engine.
type Request struct {
	AudioPath     string
	Language      string
	InitialPrompt string
}

// Engine transcribes audio files with an already-loaded model.
type Engine interface {
	Transcribe(ctx context.Context, req Request) (string, error)
	Close() error
}

// WorkerOptions configures the Whisper worker process.
type WorkerOptions struct {
	Model     string
	Device    device.Device
	Offline   bool
	Cache     modelcache.Cache
	UVXBinary string
	WorkDir   string
	Logger    *slog.Logger
}

// WorkerEngine is an Engine backed by a persistent Python process that loads
// the Whisper model once and serves requests over line-delimited JSON.
type WorkerEngine struct {
	worker     *pyrun.Worker
	scriptPath string
	logger     *slog.Logger

	mu     sync.Mutex
	nextID int
}

type workerRequest struct {
	ID            int    `json:"id"`
	Audio         string `json:"audio"`
	Language      string `json:"language,omitempty"`
	InitialPrompt string `json:"initial_prompt,omitempty"`
}

type workerResponse struct {
	ID    *int   `json:"id"`
	Ready bool   `json:"ready"`
	Text  string `json:"text"`
	Error string `json:"error"`
}

// StartWorkerEngine launches the worker and waits until the model is loaded.
// Any failure before the worker reports ready is a model load error.
func StartWorkerEngine(ctx context.Context, opts WorkerOptions) (*WorkerEngine, error) {
	logger := logging.NewComponentLogger(opts.Logger, "whisper")
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	if opts.Device == "" {
		opts.Device = device.CPU
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	scriptPath := filepath.Join(workDir, "diarscribe_whisper_worker.py")
	if err := fileutil.WriteFileAtomic(scriptPath, []byte(workerScript), 0o644); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "write worker", scriptPath, err)
	}

	args := []string{"--model", model, "--device", opts.Device.String()}
	if opts.Cache.HasWhisperModel(model) {
		args = append(args, "--download-root", opts.Cache.WhisperDir())
	}
	launch := pyrun.Launch{
		Binary:   opts.UVXBinary,
		Packages: pyrun.WhisperPackages,
		CUDA:     opts.Device.IsCUDA(),
		Offline:  opts.Offline,
		Script:   scriptPath,
		Args:     args,
	}

	logger.Info("loading whisper model", logging.String("model", model), logging.String("device", opts.Device.String()))
	worker, err := pyrun.StartWorker(ctx, launch.Command(), func(line string) {
		logger.Debug("whisper", logging.String("line", line))
	})
	if err != nil {
		_ = os.Remove(scriptPath)
		return nil, services.Wrap(services.ErrModelLoad, stage, "start worker", "", err)
	}

	var hello workerResponse
	if err := worker.Receive(&hello); err != nil {
		_ = worker.Close()
		_ = os.Remove(scriptPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrModelLoad, stage, "load model", loadHelp(model), err)
	}
	if !hello.Ready {
		_ = worker.Close()
		_ = os.Remove(scriptPath)
		msg := hello.Error
		if msg == "" {
			msg = "worker did not report ready"
		}
		return nil, services.Wrap(services.ErrModelLoad, stage, "load model", msg+"\n"+loadHelp(model), nil)
	}
	logger.Info("whisper model loaded", logging.String("model", model))

	return &WorkerEngine{worker: worker, scriptPath: scriptPath, logger: logger}, nil
}

// Transcribe sends one request and waits for its response.
func (e *WorkerEngine) Transcribe(ctx context.Context, req Request) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.nextID++
	id := e.nextID
	if err := e.worker.Send(workerRequest{
		ID:            id,
		Audio:         req.AudioPath,
		Language:      req.Language,
		InitialPrompt: req.InitialPrompt,
	}); err != nil {
		return "", e.failure(ctx, err)
	}
	for {
		var resp workerResponse
		if err := e.worker.Receive(&resp); err != nil {
			return "", e.failure(ctx, err)
		}
		if resp.ID == nil || *resp.ID != id {
			e.logger.Debug("ignoring stale worker response")
			continue
		}
		if resp.Error != "" {
			return "", errors.New(resp.Error)
		}
		return resp.Text, nil
	}
}

// Close stops the worker and removes its script.
func (e *WorkerEngine) Close() error {
	err := e.worker.Close()
	_ = os.Remove(e.scriptPath)
	return err
}

func (e *WorkerEngine) failure(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return services.Wrap(services.ErrExternalTool, stage, "worker", "Whisper worker failed", err)
}

func loadHelp(model string) string {
	return fmt.Sprintf("Could not load Whisper model %q. Check the network connection (first use downloads the checkpoint) or pre-fetch it with 'diarscribe models download --whisper'", model)
}
