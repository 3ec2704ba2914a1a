package modelcache_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"diarscribe/internal/modelcache"
	"diarscribe/internal/services"
	"diarscribe/internal/services/pyrun"
)

type fakeExecutor struct {
	calls   []pyrun.Command
	stderr  []string
	output  pyrun.Output
	err     error
	onStart func(pyrun.Command)
}

func (f *fakeExecutor) Run(_ context.Context, cmd pyrun.Command, onStderr func(string)) (pyrun.Output, error) {
	f.calls = append(f.calls, cmd)
	if f.onStart != nil {
		f.onStart(cmd)
	}
	for _, line := range f.stderr {
		if onStderr != nil {
			onStderr(line)
		}
	}
	return f.output, f.err
}

func TestOfflineEnvAndRequireOffline(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	cache := modelcache.New(dir)

	err := cache.RequireOffline()
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing cache, got %v", err)
	}
	if !strings.Contains(err.Error(), "diarscribe models download") {
		t.Fatalf("expected remediation in error, got %v", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := cache.RequireOffline(); err != nil {
		t.Fatalf("expected cache to satisfy offline mode: %v", err)
	}

	env := cache.OfflineEnv()
	for _, want := range []string{
		"PYANNOTE_CACHE=" + dir,
		"HF_HOME=" + filepath.Join(dir, "huggingface"),
		"HF_HUB_OFFLINE=1",
	} {
		found := false
		for _, kv := range env {
			if kv == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("offline env missing %q: %v", want, env)
		}
	}
}

func TestDownloadRequiresToken(t *testing.T) {
	exec := &fakeExecutor{}
	cache := modelcache.New(filepath.Join(t.TempDir(), "models"))
	_, err := cache.Download(context.Background(), modelcache.DownloadOptions{Executor: exec, WorkDir: t.TempDir()})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "segmentation-3.0") {
		t.Fatalf("expected remediation steps, got %v", err)
	}
	if len(exec.calls) != 0 {
		t.Fatal("executor must not run without a token")
	}
}

func TestDownloadRunsScriptAndWritesManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	workDir := t.TempDir()
	exec := &fakeExecutor{
		stderr: []string{"PROGRESS 0/2 diarization", "PROGRESS 1/2 diarization", "PROGRESS 2/2 whisper"},
		onStart: func(cmd pyrun.Command) {
			for i, arg := range cmd.Args {
				if arg == "python" && i+1 < len(cmd.Args) {
					if _, err := os.Stat(cmd.Args[i+1]); err != nil {
						t.Errorf("expected script to exist while running: %v", err)
					}
				}
			}
		},
	}
	cache := modelcache.New(dir)
	var progress bytes.Buffer

	manifest, err := cache.Download(context.Background(), modelcache.DownloadOptions{
		Token:        "hf_test",
		WhisperModel: "medium",
		WorkDir:      workDir,
		Executor:     exec,
		Progress:     &progress,
	})
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected one executor call, got %d", len(exec.calls))
	}
	cmd := exec.calls[0]
	args := strings.Join(cmd.Args, " ")
	for _, want := range []string{"--with openai-whisper", "--model pyannote/speaker-diarization-3.1", "--whisper-model medium", "--whisper-dir " + cache.WhisperDir()} {
		if !strings.Contains(args, want) {
			t.Fatalf("args missing %q: %s", want, args)
		}
	}
	if v, _ := pyrun.LookupEnv(cmd.Env, "HF_TOKEN"); v != "hf_test" {
		t.Fatalf("expected token in env, got %q", v)
	}
	if v, _ := pyrun.LookupEnv(cmd.Env, "PYANNOTE_CACHE"); v != dir {
		t.Fatalf("expected PYANNOTE_CACHE=%s, got %q", dir, v)
	}
	if strings.Contains(args, "hf_test") {
		t.Fatal("token must not appear on the command line")
	}

	if manifest.DiarizationModel != modelcache.DefaultDiarizationModel || manifest.WhisperModel != "medium" {
		t.Fatalf("unexpected manifest %+v", manifest)
	}
	stored, ok := cache.Manifest()
	if !ok || stored.DiarizationModel != manifest.DiarizationModel {
		t.Fatalf("manifest not persisted: %+v %v", stored, ok)
	}
	if _, err := os.Stat(filepath.Join(workDir, "diarscribe_download_models.py")); !os.IsNotExist(err) {
		t.Fatalf("expected script to be removed, stat err=%v", err)
	}
}

func TestDownloadFailsFastWhenLocked(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	cache := modelcache.New(dir)
	held := flock.New(cache.LockPath())
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("could not take lock: %v", err)
	}
	defer held.Unlock()

	exec := &fakeExecutor{}
	_, err := cache.Download(context.Background(), modelcache.DownloadOptions{Token: "t", Executor: exec, WorkDir: t.TempDir()})
	if !errors.Is(err, modelcache.ErrDownloadInProgress) {
		t.Fatalf("expected ErrDownloadInProgress, got %v", err)
	}
	if len(exec.calls) != 0 {
		t.Fatal("executor must not run while locked")
	}
}

func TestDownloadClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		marker error
	}{
		{"gated", "huggingface_hub.errors.GatedRepoError: 401 Client Error\n", services.ErrModelLoad},
		{"script error", `{"error": "diarization: RuntimeError: pipeline download returned nothing"}` + "\n", services.ErrModelLoad},
		{"other", "uv: failed to resolve torch\n", services.ErrExternalTool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{output: pyrun.Output{Stderr: tt.stderr}, err: errors.New("exit status 2")}
			cache := modelcache.New(filepath.Join(t.TempDir(), "models"))
			_, err := cache.Download(context.Background(), modelcache.DownloadOptions{Token: "t", Executor: exec, WorkDir: t.TempDir()})
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			if _, ok := cache.Manifest(); ok {
				t.Fatal("manifest must not be written on failure")
			}
		})
	}
}

func TestHasWhisperModel(t *testing.T) {
	cache := modelcache.New(t.TempDir())
	if cache.HasWhisperModel("medium") {
		t.Fatal("expected no checkpoint")
	}
	if err := os.MkdirAll(cache.WhisperDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cache.WhisperDir(), "medium.pt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !cache.HasWhisperModel("medium") {
		t.Fatal("expected checkpoint to be found")
	}
}
