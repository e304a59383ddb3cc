package transcription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"media-converter/internal/apperror"
	"media-converter/internal/logging"
	"media-converter/internal/metrics"
	"media-converter/internal/transcoder"
)

const transcribeStage = "transcribe"

// Transcriber turns a 16 kHz mono WAV file into text. transcriptPath is a
// reserved ".txt" path the backend may write to. An empty language asks
// the backend to detect it.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, transcriptPath, language string) (string, error)
}

// Whisper runs a whisper.cpp style command line tool.
type Whisper struct {
	binary  string
	model   string
	timeout time.Duration
	runner  transcoder.Runner
}

// NewWhisper creates a Whisper transcriber. Processes are started through
// runner so they are tracked and killed on shutdown with the transcoder's.
func NewWhisper(binary, model string, timeout time.Duration, runner transcoder.Runner) *Whisper {
	if binary == "" {
		binary = "whisper-cli"
	}
	return &Whisper{binary: binary, model: model, timeout: timeout, runner: runner}
}

// Binary returns the configured executable.
func (w *Whisper) Binary() string {
	return w.binary
}

// Model returns the configured model path.
func (w *Whisper) Model() string {
	return w.model
}

// Args builds the command line for one transcription.
func (w *Whisper) Args(audioPath, transcriptPath, language string) []string {
	args := []string{
		"-m", w.model,
		"-f", audioPath,
		"-of", strings.TrimSuffix(transcriptPath, ".txt"),
		"-otxt",
	}
	if language != "" {
		args = append(args, "-l", language)
	}
	return args
}

// Transcribe implements Transcriber.
func (w *Whisper) Transcribe(ctx context.Context, audioPath, transcriptPath, language string) (string, error) {
	if !strings.HasSuffix(transcriptPath, ".txt") {
		return "", apperror.New(apperror.Internal, "transcript path %s must end in .txt", transcriptPath)
	}

	runCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	args := w.Args(audioPath, transcriptPath, language)
	logging.Debug("Running %s %s", w.binary, strings.Join(args, " "))

	var stderr bytes.Buffer
	start := time.Now()
	err := w.runner.Run(runCtx, w.binary, args, &stderr)
	metrics.ToolInvocationDuration.WithLabelValues(transcribeStage).Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case ctx.Err() != nil:
			metrics.ToolInvocationsTotal.WithLabelValues(transcribeStage, "canceled").Inc()
			return "", apperror.Wrap(apperror.ToolExecutionFailure, ctx.Err(), "transcription canceled")
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			metrics.ToolInvocationsTotal.WithLabelValues(transcribeStage, "timeout").Inc()
			return "", apperror.Wrap(apperror.ToolTimeout, err, "transcription did not finish within %s", w.timeout)
		}
		metrics.ToolInvocationsTotal.WithLabelValues(transcribeStage, "failure").Inc()
		logging.Error("Whisper stderr: %s", stderr.String())
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = fmt.Sprintf("exited with %v", err)
		}
		return "", apperror.Wrap(apperror.ToolExecutionFailure, err, "Failed to transcribe audio: %s", detail)
	}

	content, err := os.ReadFile(transcriptPath)
	if err != nil {
		metrics.ToolInvocationsTotal.WithLabelValues(transcribeStage, "failure").Inc()
		return "", apperror.Wrap(apperror.ToolExecutionFailure, err, "Failed to transcribe audio: transcript file is missing")
	}

	metrics.ToolInvocationsTotal.WithLabelValues(transcribeStage, "success").Inc()
	return strings.TrimSpace(string(content)), nil
}
