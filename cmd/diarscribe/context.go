package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"diarscribe/internal/config"
	"diarscribe/internal/device"
	"diarscribe/internal/preflight"
	"diarscribe/internal/services/pyrun"
	"diarscribe/internal/transcription"
)

// runtimeDeps are the seams between the CLI and real processes.
type runtimeDeps struct {
	executor    pyrun.Executor
	startEngine func(context.Context, transcription.WorkerOptions) (transcription.Engine, error)
	probe       device.Probe
	preflight   func(*config.Config) []preflight.Result
}

func defaultRuntime() runtimeDeps {
	return runtimeDeps{
		executor: pyrun.CommandExecutor{},
		startEngine: func(ctx context.Context, opts transcription.WorkerOptions) (transcription.Engine, error) {
			return transcription.StartWorkerEngine(ctx, opts)
		},
		probe:     device.HostGPUs,
		preflight: preflight.RunAll,
	}
}

type commandContext struct {
	configFlag *string
	runtime    runtimeDeps

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string, runtime runtimeDeps) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		runtime:    runtime,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
