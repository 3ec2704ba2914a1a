package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"diarscribe/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckWritableTarget_Creatable(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b")
	result := CheckWritableTarget("out", target)
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("expected creatable target, got %+v", result)
	}
}

func TestCheckWritableTarget_UnderFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckWritableTarget("out", filepath.Join(f, "sub"))
	if result.Passed {
		t.Fatalf("expected failure under a regular file, got %+v", result)
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.ModelCacheDir = filepath.Join(t.TempDir(), "models")
	cfg.Runtime.UVXBinary = "clearly-not-present-uvx"
	cfg.Audio.FFmpegBinary = "clearly-not-present-ffmpeg"
	return cfg
}

func TestCheckModelCache(t *testing.T) {
	cfg := testConfig(t)
	if result := CheckModelCache(&cfg); !result.Passed {
		t.Fatalf("online mode should pass without cache: %+v", result)
	}
	cfg.Diarization.Offline = true
	if result := CheckModelCache(&cfg); result.Passed {
		t.Fatalf("offline mode should fail without cache: %+v", result)
	}

	manifest := `{"diarization_model":"pyannote/speaker-diarization-3.1","whisper_model":"small","downloaded_at":"2026-01-02T03:04:05Z"}`
	if err := os.MkdirAll(cfg.Paths.ModelCacheDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Paths.ModelCacheDir, "manifest.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckModelCache(&cfg)
	if !result.Passed || !strings.Contains(result.Detail, "whisper small") {
		t.Fatalf("expected populated cache, got %+v", result)
	}
}

func TestCheckCredential(t *testing.T) {
	cfg := testConfig(t)
	cfg.Diarization.HFToken = ""
	if CheckCredential(&cfg).Passed {
		t.Fatal("online mode without token should fail")
	}
	cfg.Diarization.HFToken = "hf_abc"
	if !CheckCredential(&cfg).Passed {
		t.Fatal("token should satisfy the check")
	}
	cfg.Diarization.HFToken = ""
	cfg.Diarization.Offline = true
	if !CheckCredential(&cfg).Passed {
		t.Fatal("offline mode does not need a token")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportsMissingUVX(t *testing.T) {
	cfg := testConfig(t)
	cfg.Diarization.HFToken = "hf_abc"

	results := RunAll(&cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	failed := Failures(results)
	if len(failed) != 1 || failed[0].Name != "uvx" {
		t.Fatalf("expected only uvx to fail, got %+v", failed)
	}
	if !strings.Contains(Summary(failed), "uvx:") {
		t.Fatalf("unexpected summary %q", Summary(failed))
	}
	for _, r := range results {
		if r.Name == "FFmpeg" && !strings.Contains(r.Detail, "optional") {
			t.Fatalf("ffmpeg detail should mark it optional: %q", r.Detail)
		}
	}
}
