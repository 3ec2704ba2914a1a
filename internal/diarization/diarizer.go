package diarization

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"diarscribe/internal/device"
	"diarscribe/internal/fileutil"
	"diarscribe/internal/logging"
	"diarscribe/internal/modelcache"
	"diarscribe/internal/services"
	"diarscribe/internal/services/pyrun"
	"diarscribe/internal/transcript"
)

//go:embed diarize.py
var diarizeScript string

// DefaultModel is the pyannote pipeline used when none is configured.
const DefaultModel = modelcache.DefaultDiarizationModel

const stage = "diarization"

// Options configures a Diarizer.
type Options struct {
	Model   string
	Offline bool
	// HFToken is the already-resolved credential (flag, config, or env).
	HFToken string
	Cache   modelcache.Cache
	Device  device.Device
	// Speaker count hints, forwarded when positive.
	NumSpeakers int
	MinSpeakers int
	MaxSpeakers int
	UVXBinary   string
	WorkDir     string
	Logger      *slog.Logger
}

// Diarizer runs the pyannote pipeline as a one-shot Python process.
type Diarizer struct {
	opts   Options
	exec   pyrun.Executor
	env    []string
	logger *slog.Logger
}

// New validates the configuration before any model is loaded. Offline mode
// needs the model cache; online mode needs a Hugging Face token. A nil
// executor runs real processes.
func New(opts Options, exec pyrun.Executor) (*Diarizer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "diarizer")
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = DefaultModel
	}
	if opts.Device == "" {
		opts.Device = device.CPU
	}
	if exec == nil {
		exec = pyrun.CommandExecutor{}
	}

	var env []string
	if opts.Offline {
		if err := opts.Cache.RequireOffline(); err != nil {
			return nil, err
		}
		env = opts.Cache.OfflineEnv()
		logger.Info("using offline diarization models",
			logging.String("cache_dir", opts.Cache.Dir),
			logging.String("device", opts.Device.String()),
		)
	} else {
		token := strings.TrimSpace(opts.HFToken)
		if token == "" {
			return nil, services.Wrap(services.ErrConfiguration, stage, "online mode", missingTokenHelp, nil)
		}
		env = []string{"HF_TOKEN=" + token}
		logger.Info("using online diarization models",
			logging.String("model", opts.Model),
			logging.String("device", opts.Device.String()),
		)
	}

	return &Diarizer{opts: opts, exec: exec, env: env, logger: logger}, nil
}

type scriptOutput struct {
	Segments []transcript.Segment `json:"segments"`
}

// Diarize runs the pipeline once over audioPath and returns speaker turns
// sorted by start time. Turns whose end precedes their start are dropped.
func (d *Diarizer) Diarize(ctx context.Context, audioPath string) ([]transcript.Segment, error) {
	workDir := d.opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	scriptPath := filepath.Join(workDir, "diarscribe_diarize.py")
	if err := fileutil.WriteFileAtomic(scriptPath, []byte(diarizeScript), 0o644); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "write script", scriptPath, err)
	}
	defer os.Remove(scriptPath)

	launch := pyrun.Launch{
		Binary:   d.opts.UVXBinary,
		Packages: pyrun.DiarizationPackages,
		CUDA:     d.opts.Device.IsCUDA(),
		Offline:  d.opts.Offline,
		Script:   scriptPath,
		Args:     d.scriptArgs(audioPath),
		Env:      d.env,
	}

	d.logger.InfoContext(ctx, "starting speaker diarization", logging.String("audio", audioPath))
	out, err := d.exec.Run(ctx, launch.Command(), func(line string) {
		d.logger.DebugContext(ctx, "pyannote", logging.String("line", line))
	})
	if err != nil {
		return nil, d.classifyFailure(ctx, out, err)
	}

	segments, err := parseSegments(out.Stdout)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "parse output", "", err)
	}
	segments = d.normalize(segments)

	speakers := make(map[string]struct{}, len(segments))
	for _, seg := range segments {
		speakers[seg.Speaker] = struct{}{}
	}
	d.logger.InfoContext(ctx, "speaker diarization complete",
		logging.Int("speakers", len(speakers)),
		logging.Int("segments", len(segments)),
	)
	return segments, nil
}

// Statistics aggregates per-speaker duration and turn count without touching
// the model.
func (d *Diarizer) Statistics(segments []transcript.Segment) transcript.Statistics {
	return transcript.ComputeStatistics(segments)
}

func (d *Diarizer) scriptArgs(audioPath string) []string {
	args := []string{
		"--audio", audioPath,
		"--model", d.opts.Model,
		"--device", d.opts.Device.String(),
	}
	if d.opts.NumSpeakers > 0 {
		args = append(args, "--num-speakers", strconv.Itoa(d.opts.NumSpeakers))
	}
	if d.opts.MinSpeakers > 0 {
		args = append(args, "--min-speakers", strconv.Itoa(d.opts.MinSpeakers))
	}
	if d.opts.MaxSpeakers > 0 {
		args = append(args, "--max-speakers", strconv.Itoa(d.opts.MaxSpeakers))
	}
	return args
}

func (d *Diarizer) normalize(segments []transcript.Segment) []transcript.Segment {
	kept := segments[:0]
	for _, seg := range segments {
		if seg.End < seg.Start {
			logging.WarnWithContext(d.logger, "dropping malformed speaker turn", "diarization_malformed_turn",
				logging.String("speaker", seg.Speaker),
				logging.Float64("start", seg.Start),
				logging.Float64("end", seg.End),
				logging.String(logging.FieldImpact, "turn is not transcribed"),
			)
			continue
		}
		kept = append(kept, seg)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Start < kept[j].Start
	})
	return kept
}

func (d *Diarizer) classifyFailure(ctx context.Context, out pyrun.Output, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	summary := pyrun.SummarizeStderr(out.Stderr)
	if pyrun.IndicatesModelLoadFailure(out.Stderr) {
		help := onlineLoadHelp
		if d.opts.Offline {
			help = offlineLoadHelp
		}
		return services.Wrap(services.ErrModelLoad, stage, "load pipeline", summary+"\n"+help, err)
	}
	return services.Wrap(services.ErrExternalTool, stage, "run pipeline", summary, err)
}

// parseSegments decodes the last JSON object line of stdout.
func parseSegments(stdout []byte) ([]transcript.Segment, error) {
	lines := bytes.Split(bytes.TrimSpace(stdout), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var payload scriptOutput
		if err := json.Unmarshal(line, &payload); err != nil {
			return nil, fmt.Errorf("decode diarization output: %w", err)
		}
		if payload.Segments == nil {
			payload.Segments = []transcript.Segment{}
		}
		return payload.Segments, nil
	}
	return nil, fmt.Errorf("diarization produced no result")
}

const missingTokenHelp = `Online mode requires a Hugging Face token.

Option 1 - offline mode (recommended):
  1. Run 'diarscribe models download' once with network access
  2. Run with --offline afterwards

Option 2 - online mode:
  1. Create a token at https://huggingface.co/settings/tokens
  2. Accept the terms at https://huggingface.co/pyannote/speaker-diarization-3.1
  3. Set HF_TOKEN in the environment or a .env file, or pass --hf-token`

const offlineLoadHelp = `Loading the cached pipeline failed. Either:
  1. re-download the models with 'diarscribe models download'
  2. or use online mode (requires HF_TOKEN)`

const onlineLoadHelp = `Loading the pipeline from Hugging Face failed. Check that:
  1. the network connection works
  2. the token is valid
  3. the terms for pyannote/speaker-diarization-3.1 and pyannote/segmentation-3.0 are accepted`
