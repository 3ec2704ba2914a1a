package pyrun

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	stderrTailLines  = 40
	workerCloseGrace = 10 * time.Second
)

// ErrWorkerExited is returned when the worker process ends while a response
// is still expected.
var ErrWorkerExited = errors.New("worker exited")

// Worker is a long-lived helper process speaking line-delimited JSON over
// stdin and stdout. Stderr is drained in the background and its tail kept for
// failure summaries.
type Worker struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Scanner
	stdoutR *os.File
	enc     *json.Encoder
	onNoise func(string)

	mu      sync.Mutex
	tail    []string
	exited  chan struct{}
	waitErr error
}

// StartWorker launches cmd. onStderr receives every stderr line and every
// non-JSON stdout line; it may be nil.
func StartWorker(ctx context.Context, c Command, onStderr func(string)) (*Worker, error) {
	cmd := exec.CommandContext(ctx, c.Binary, c.Args...) //nolint:gosec
	cmd.Env = c.Env
	cmd.Dir = c.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	// A plain os.Pipe keeps stdout readable after the child exits, so a final
	// error line is never lost to Wait closing the pipe.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		return nil, fmt.Errorf("start %s: %w", c.Binary, err)
	}
	_ = stdoutW.Close()

	scanner := bufio.NewScanner(stdoutR)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	w := &Worker{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  scanner,
		stdoutR: stdoutR,
		enc:     json.NewEncoder(stdin),
		onNoise: onStderr,
		exited:  make(chan struct{}),
	}
	w.enc.SetEscapeHTML(false)

	go func() {
		drainLines(stderr, func(line string) {
			w.remember(line)
			if onStderr != nil {
				onStderr(line)
			}
		})
		err := cmd.Wait()
		w.mu.Lock()
		w.waitErr = err
		w.mu.Unlock()
		close(w.exited)
	}()
	return w, nil
}

// Send writes v as one JSON line.
func (w *Worker) Send(v any) error {
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("write request: %w", w.exitCause(err))
	}
	return nil
}

// Receive decodes the next JSON line from stdout into v. Lines that are not
// JSON objects are treated as noise from the Python libraries.
func (w *Worker) Receive(v any) error {
	for w.stdout.Scan() {
		line := bytes.TrimSpace(w.stdout.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] != '{' {
			if w.onNoise != nil {
				w.onNoise(string(line))
			}
			continue
		}
		if err := json.Unmarshal(line, v); err != nil {
			return fmt.Errorf("decode response %q: %w", truncate(string(line), 200), err)
		}
		return nil
	}
	if err := w.stdout.Err(); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return w.exitCause(ErrWorkerExited)
}

// Close ends the worker by closing its stdin, killing it if it does not exit
// within a grace period.
func (w *Worker) Close() error {
	_ = w.stdin.Close()
	select {
	case <-w.exited:
	case <-time.After(workerCloseGrace):
		_ = w.cmd.Process.Kill()
		<-w.exited
	}
	_ = w.stdoutR.Close()
	w.mu.Lock()
	defer w.mu.Unlock()
	var exitErr *exec.ExitError
	if w.waitErr != nil && !errors.As(w.waitErr, &exitErr) {
		return w.waitErr
	}
	return nil
}

// StderrTail returns the most recent stderr lines.
func (w *Worker) StderrTail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Join(w.tail, "\n")
}

func (w *Worker) remember(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tail = append(w.tail, line)
	if len(w.tail) > stderrTailLines {
		w.tail = w.tail[len(w.tail)-stderrTailLines:]
	}
}

// exitCause waits briefly for the process to finish and folds its exit
// status and stderr summary into err.
func (w *Worker) exitCause(err error) error {
	select {
	case <-w.exited:
	case <-time.After(2 * time.Second):
		return err
	}
	w.mu.Lock()
	waitErr := w.waitErr
	w.mu.Unlock()
	summary := SummarizeStderr(w.StderrTail())
	switch {
	case waitErr != nil && summary != "":
		return fmt.Errorf("%w (%v): %s", err, waitErr, summary)
	case waitErr != nil:
		return fmt.Errorf("%w: %v", err, waitErr)
	case summary != "":
		return fmt.Errorf("%w: %s", err, summary)
	default:
		return err
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
