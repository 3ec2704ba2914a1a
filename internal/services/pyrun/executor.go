package pyrun

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Output captures what a finished process wrote.
type Output struct {
	Stdout []byte
	Stderr string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, cmd Command, onStderr func(string)) (Output, error)
}

// CommandExecutor runs commands with os/exec, streaming stderr line by line.
type CommandExecutor struct{}

// Run executes cmd to completion. Stdout is buffered; stderr lines are
// forwarded to onStderr as they arrive and also returned in Output.
func (CommandExecutor) Run(ctx context.Context, c Command, onStderr func(string)) (Output, error) {
	cmd := exec.CommandContext(ctx, c.Binary, c.Args...) //nolint:gosec
	cmd.Env = c.Env
	cmd.Dir = c.Dir
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Output{}, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Output{}, fmt.Errorf("start %s: %w", c.Binary, err)
	}

	var captured strings.Builder
	drainLines(stderr, func(line string) {
		captured.WriteString(line)
		captured.WriteByte('\n')
		if onStderr != nil {
			onStderr(line)
		}
	})

	waitErr := cmd.Wait()
	out := Output{Stdout: stdout.Bytes(), Stderr: captured.String()}
	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		return out, fmt.Errorf("%s: %w", c.Binary, waitErr)
	}
	return out, nil
}

func drainLines(r io.Reader, forward func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		forward(scanner.Text())
	}
	// Keep the pipe drained so the child never blocks on a full buffer.
	_, _ = io.Copy(io.Discard, r)
}
