package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"media-converter/internal/apperror"
	"media-converter/internal/logging"
	"media-converter/internal/metrics"
	"media-converter/internal/pipeline"
)

// Runner starts one external process and blocks until it exits. The
// process's diagnostic stream is written to stderr.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stderr io.Writer) error
}

// Transcoder executes pipelines stage by stage with a per-stage time bound.
type Transcoder struct {
	binary  string
	timeout time.Duration
	runner  Runner
}

// New creates a Transcoder invoking binary through runner. A zero timeout
// leaves stages unbounded.
func New(binary string, timeout time.Duration, runner Runner) *Transcoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Transcoder{
		binary:  binary,
		timeout: timeout,
		runner:  runner,
	}
}

// Binary returns the tool path this Transcoder invokes.
func (t *Transcoder) Binary() string {
	return t.binary
}

func (t *Transcoder) toolName() string {
	if base := filepath.Base(t.binary); strings.EqualFold(base, "ffmpeg") || strings.EqualFold(base, "ffmpeg.exe") {
		return "FFmpeg"
	}
	return filepath.Base(t.binary)
}

// Run executes every stage of p in order. The first failing stage ends the
// pipeline; nothing is retried. Removing the artifacts a failed pipeline
// leaves behind is the caller's job.
func (t *Transcoder) Run(ctx context.Context, p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return apperror.Wrap(apperror.Internal, err, "invalid pipeline")
	}

	for i, stage := range p.Stages {
		logging.Debug("Running stage %d/%d %s", i+1, p.Len(), stage)
		if err := t.runStage(ctx, stage); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transcoder) runStage(ctx context.Context, stage pipeline.Stage) error {
	stageCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	start := time.Now()
	err := t.runner.Run(stageCtx, t.binary, stage.Args, &stderr)
	metrics.ToolInvocationDuration.WithLabelValues(stage.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case ctx.Err() != nil:
			metrics.ToolInvocationsTotal.WithLabelValues(stage.Name, "canceled").Inc()
			return apperror.Wrap(apperror.ToolExecutionFailure, ctx.Err(), "%s stage canceled", stage.Name)
		case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
			metrics.ToolInvocationsTotal.WithLabelValues(stage.Name, "timeout").Inc()
			logging.Warn("Stage %s exceeded %s for %s", stage.Name, t.timeout, stage.Input)
			return apperror.Wrap(apperror.ToolTimeout, err, "%s stage did not finish within %s", stage.Name, t.timeout)
		}

		metrics.ToolInvocationsTotal.WithLabelValues(stage.Name, "failure").Inc()
		logging.Error("%s stderr: %s", t.toolName(), stderr.String())
		detail := stderr.String()
		if strings.TrimSpace(detail) == "" {
			detail = fmt.Sprintf("%s stage exited with %v", stage.Name, err)
		}
		return apperror.Wrap(apperror.ToolExecutionFailure, err, "%s failed: %s", t.toolName(), detail)
	}

	info, err := os.Stat(stage.Output)
	if err != nil || info.IsDir() || info.Size() == 0 {
		metrics.ToolInvocationsTotal.WithLabelValues(stage.Name, "failure").Inc()
		detail := stderr.String()
		if strings.TrimSpace(detail) == "" {
			detail = fmt.Sprintf("%s stage produced no output at %s", stage.Name, stage.Output)
		}
		return apperror.New(apperror.ToolExecutionFailure, "%s failed: %s", t.toolName(), detail)
	}

	metrics.ToolInvocationsTotal.WithLabelValues(stage.Name, "success").Inc()
	return nil
}

// ErrRunnerClosed is returned by ExecRunner.Run once Cleanup has been called.
var ErrRunnerClosed = errors.New("tool runner is shutting down")

// ExecRunner runs tools as child processes and tracks them so they can be
// killed on shutdown. After Cleanup it refuses to start new processes, so
// a request between two stages cannot outlive the shutdown.
type ExecRunner struct {
	processes map[*exec.Cmd]string
	processMu sync.Mutex
	closed    bool
}

// NewExecRunner creates an ExecRunner with no tracked processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		processes: make(map[*exec.Cmd]string),
	}
}

// Run starts name with args and waits for it. Cancelling ctx kills the
// process.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = nil
	cmd.Stderr = stderr
	cmd.WaitDelay = 5 * time.Second

	r.processMu.Lock()
	if r.closed {
		r.processMu.Unlock()
		return ErrRunnerClosed
	}
	if err := cmd.Start(); err != nil {
		r.processMu.Unlock()
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	r.processes[cmd] = strings.Join(append([]string{name}, args...), " ")
	r.processMu.Unlock()
	metrics.ToolProcessesRunning.Inc()

	defer func() {
		r.processMu.Lock()
		delete(r.processes, cmd)
		r.processMu.Unlock()
		metrics.ToolProcessesRunning.Dec()
	}()

	return cmd.Wait()
}

// Active returns the number of running child processes.
func (r *ExecRunner) Active() int {
	r.processMu.Lock()
	defer r.processMu.Unlock()
	return len(r.processes)
}

// Cleanup kills every running child process and closes the runner.
func (r *ExecRunner) Cleanup() {
	r.processMu.Lock()
	defer r.processMu.Unlock()

	r.closed = true
	for cmd, line := range r.processes {
		if cmd.Process != nil {
			logging.Info("Killing tool process: %s", line)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill tool process %q: %v", line, err)
			}
		}
	}
}

// CheckBinary runs binary with -version and reports whether it is usable.
func CheckBinary(ctx context.Context, binary string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("%s not available: %w", binary, err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}
