package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"media-converter/internal/apperror"
)

// fakeWhisper writes the transcript where whisper.cpp would: the -of base
// with ".txt" appended.
type fakeWhisper struct {
	args   []string
	text   string
	stderr string
	fail   bool
	block  bool
	skip   bool
}

func (f *fakeWhisper) Run(ctx context.Context, _ string, args []string, stderr io.Writer) error {
	f.args = args
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.fail {
		fmt.Fprint(stderr, f.stderr)
		return errors.New("exit status 2")
	}
	if f.skip {
		return nil
	}
	for i, arg := range args {
		if arg == "-of" {
			return os.WriteFile(args[i+1]+".txt", []byte(f.text), 0o644)
		}
	}
	return errors.New("no -of argument")
}

func TestWhisperArgs(t *testing.T) {
	w := NewWhisper("", "models/base.bin", 0, nil)
	if w.Binary() != "whisper-cli" {
		t.Errorf("Binary() = %q", w.Binary())
	}

	got := w.Args("/work/a.wav", "/work/b.txt", "de")
	want := []string{"-m", "models/base.bin", "-f", "/work/a.wav", "-of", "/work/b", "-otxt", "-l", "de"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %v, want %v", got, want)
	}

	if got := w.Args("/work/a.wav", "/work/b.txt", ""); len(got) != 7 {
		t.Errorf("auto-detect should omit -l, got %v", got)
	}
}

func TestWhisperTranscribe(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeWhisper{text: "  hello there \n"}
	w := NewWhisper("whisper-cli", "model.bin", time.Second, runner)

	transcript := filepath.Join(dir, "t.txt")
	text, err := w.Transcribe(context.Background(), filepath.Join(dir, "a.wav"), transcript, "")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hello there" {
		t.Errorf("text = %q", text)
	}
	if _, err := os.Stat(transcript); err != nil {
		t.Errorf("transcript not written at reserved path: %v", err)
	}
}

func TestWhisperFailures(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeWhisper
		reason apperror.Reason
	}{
		{"non-zero exit", &fakeWhisper{fail: true, stderr: "failed to load model"}, apperror.ToolExecutionFailure},
		{"no transcript", &fakeWhisper{skip: true}, apperror.ToolExecutionFailure},
		{"timeout", &fakeWhisper{block: true}, apperror.ToolTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			w := NewWhisper("whisper-cli", "model.bin", 20*time.Millisecond, tt.runner)
			_, err := w.Transcribe(context.Background(), filepath.Join(dir, "a.wav"), filepath.Join(dir, "t.txt"), "en")
			if got := apperror.ReasonOf(err); got != tt.reason {
				t.Errorf("reason = %s, want %s (%v)", got, tt.reason, err)
			}
		})
	}
}

func TestWhisperRejectsNonTextPath(t *testing.T) {
	w := NewWhisper("whisper-cli", "model.bin", 0, &fakeWhisper{})
	if _, err := w.Transcribe(context.Background(), "a.wav", "t.srt", ""); !apperror.Is(err, apperror.Internal) {
		t.Errorf("expected Internal error, got %v", err)
	}
}
