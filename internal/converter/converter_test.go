package converter

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/disintegration/imaging"

	"media-converter/internal/apperror"
	"media-converter/internal/artifacts"
	"media-converter/internal/database"
	"media-converter/internal/mapping"
	"media-converter/internal/mediatypes"
	"media-converter/internal/naming"
	"media-converter/internal/params"
	"media-converter/internal/pipeline"
)

// fakeExecutor plays the part of FFmpeg: it writes each stage's output,
// as a real PNG when the output is a .png file.
type fakeExecutor struct {
	mu        sync.Mutex
	pipelines []pipeline.Pipeline
	failStage int // 1-based stage index to fail, 0 never
	panicNow  bool
	sawFiles  map[string]bool
}

func (f *fakeExecutor) Run(_ context.Context, p pipeline.Pipeline) error {
	f.mu.Lock()
	f.pipelines = append(f.pipelines, p)
	f.mu.Unlock()

	if f.panicNow {
		panic("executor exploded")
	}

	for i, stage := range p.Stages {
		if _, err := os.Stat(stage.Input); err != nil {
			return errors.New("stage input missing: " + stage.Input)
		}
		if i+1 == f.failStage {
			return apperror.New(apperror.ToolExecutionFailure, "FFmpeg failed: Invalid argument")
		}
		if strings.HasSuffix(stage.Output, ".png") {
			img := imaging.New(40, 20, color.NRGBA{G: 255, A: 255})
			if err := imaging.Save(img, stage.Output); err != nil {
				return err
			}
		} else if err := os.WriteFile(stage.Output, []byte("converted"), 0o644); err != nil {
			return err
		}
		f.mu.Lock()
		if f.sawFiles != nil {
			f.sawFiles[stage.Output] = true
		}
		f.mu.Unlock()
	}
	return nil
}

type fakeHistory struct {
	mu   sync.Mutex
	rows []database.Conversion
}

func (h *fakeHistory) RecordConversion(_ context.Context, c database.Conversion) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rows = append(h.rows, c)
	return nil
}

type testEnv struct {
	svc      *Service
	exec     *fakeExecutor
	history  *fakeHistory
	storage  *artifacts.Storage
	registry *mapping.Registry
	root     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	storage, err := artifacts.NewStorage(
		filepath.Join(root, "uploads"),
		filepath.Join(root, "work"),
		filepath.Join(root, "outputs"),
		naming.New(),
	)
	if err != nil {
		t.Fatal(err)
	}
	exec := &fakeExecutor{sawFiles: map[string]bool{}}
	history := &fakeHistory{}
	registry := mapping.NewRegistry(mapping.NewMemoryStore())
	return &testEnv{
		svc:      New(storage, pipeline.NewBuilder(4), exec, registry, history),
		exec:     exec,
		history:  history,
		storage:  storage,
		registry: registry,
		root:     root,
	}
}

func (e *testEnv) files(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(e.root, dir))
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func input(filename string, values map[string]string) params.Input {
	in := params.Input{HasFile: true, Filename: filename, Values: map[string][]string{}}
	for k, v := range values {
		in.Values[k] = []string{v}
	}
	return in
}

func TestConvertAudio(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Convert(ctx, mediatypes.KindAudio,
		input("test.mp3", map[string]string{"output_format": "wav", "bitrate": "192k"}),
		strings.NewReader("ID3 audio"), mapping.ProcessScope)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if res.Message != "File converted to wav successfully" {
		t.Errorf("Message = %q", res.Message)
	}
	if !naming.IsGenerated(res.OutputFile) || !strings.HasSuffix(res.OutputFile, ".wav") {
		t.Errorf("OutputFile = %q", res.OutputFile)
	}
	if res.OutputName != "test.wav" || res.Stages != 1 {
		t.Errorf("OutputName/Stages = %q/%d", res.OutputName, res.Stages)
	}

	if got := env.files(t, "uploads"); len(got) != 0 {
		t.Errorf("upload artifacts left behind: %v", got)
	}
	if got := env.files(t, "outputs"); len(got) != 1 || got[0] != res.OutputFile {
		t.Errorf("outputs = %v, want [%s]", got, res.OutputFile)
	}

	entry, err := env.registry.Resolve(ctx, mapping.ProcessScope, res.OutputFile)
	if err != nil || entry.OriginalName != "test.wav" {
		t.Errorf("Resolve() = %+v, %v", entry, err)
	}

	if len(env.history.rows) != 1 || env.history.rows[0].Status != "success" {
		t.Errorf("history = %+v", env.history.rows)
	}
}

func TestConvertImageTwoStage(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.svc.Convert(context.Background(), mediatypes.KindImage,
		input("photo.jpg", map[string]string{"output_format": "png", "rotation": "90", "flip": "h"}),
		strings.NewReader("jpeg bytes"), mapping.ProcessScope)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if res.Stages != 2 {
		t.Fatalf("Stages = %d, want 2", res.Stages)
	}
	p := env.exec.pipelines[0]
	intermediate := p.Stages[0].Output
	if filepath.Dir(intermediate) != filepath.Join(env.root, "work") {
		t.Errorf("intermediate written to %s", intermediate)
	}
	if !env.exec.sawFiles[intermediate] {
		t.Error("intermediate never produced")
	}
	if _, err := os.Stat(intermediate); !os.IsNotExist(err) {
		t.Error("intermediate survived the conversion")
	}
	if got := env.files(t, "work"); len(got) != 0 {
		t.Errorf("work dir not empty: %v", got)
	}
	if res.Image == nil || res.Image.Width != 40 || res.Image.Height != 20 {
		t.Errorf("Image = %+v", res.Image)
	}
	if res.OutputName != "photo.png" {
		t.Errorf("OutputName = %q", res.OutputName)
	}
}

func TestConvertValidationLeavesNoArtifacts(t *testing.T) {
	tests := []struct {
		name   string
		kind   mediatypes.Kind
		in     params.Input
		reason apperror.Reason
	}{
		{"dotted output format", mediatypes.KindAudio,
			input("test.mp3", map[string]string{"output_format": "w.av"}), apperror.InvalidOutputFormat},
		{"quality above range", mediatypes.KindImage,
			input("a.png", map[string]string{"output_format": "jpg", "quality": "32"}), apperror.InvalidParameterValue},
		{"bad flip", mediatypes.KindImage,
			input("a.png", map[string]string{"output_format": "jpg", "flip": "x"}), apperror.InvalidFlipDirection},
		{"unsupported input", mediatypes.KindAudio,
			input("movie.mkv", map[string]string{"output_format": "wav"}), apperror.UnsupportedInputFormat},
		{"no file", mediatypes.KindAudio,
			params.Input{Values: map[string][]string{"output_format": {"wav"}}}, apperror.MissingFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.svc.Convert(context.Background(), tt.kind, tt.in, strings.NewReader("x"), mapping.ProcessScope)
			if got := apperror.ReasonOf(err); got != tt.reason {
				t.Errorf("reason = %s, want %s (%v)", got, tt.reason, err)
			}
			if len(env.exec.pipelines) != 0 {
				t.Error("executor ran for an invalid request")
			}
			for _, dir := range []string{"uploads", "work", "outputs"} {
				if got := env.files(t, dir); len(got) != 0 {
					t.Errorf("%s not empty: %v", dir, got)
				}
			}
			if len(env.history.rows) != 1 || env.history.rows[0].Status != string(tt.reason) {
				t.Errorf("history = %+v", env.history.rows)
			}
		})
	}
}

func TestConvertQualityBoundary(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Convert(context.Background(), mediatypes.KindImage,
		input("a.png", map[string]string{"output_format": "jpg", "quality": "31"}),
		strings.NewReader("x"), mapping.ProcessScope)
	if err != nil {
		t.Errorf("quality=31 rejected: %v", err)
	}
}

func TestConvertStageFailureCleansUp(t *testing.T) {
	for _, failStage := range []int{1, 2} {
		t.Run("stage "+strconv.Itoa(failStage), func(t *testing.T) {
			env := newTestEnv(t)
			env.exec.failStage = failStage

			_, err := env.svc.Convert(context.Background(), mediatypes.KindImage,
				input("a.png", map[string]string{"output_format": "jpg", "width": "10", "height": "10", "flip": "v"}),
				strings.NewReader("x"), mapping.ProcessScope)

			if !apperror.Is(err, apperror.ToolExecutionFailure) {
				t.Fatalf("expected ToolExecutionFailure, got %v", err)
			}
			for _, dir := range []string{"uploads", "work", "outputs"} {
				if got := env.files(t, dir); len(got) != 0 {
					t.Errorf("%s not empty after failure: %v", dir, got)
				}
			}
			if n, _ := env.registry.Count(context.Background()); n != 0 {
				t.Errorf("failed conversion recorded %d mapping(s)", n)
			}
		})
	}
}

func TestConvertPanicStillCleansUp(t *testing.T) {
	env := newTestEnv(t)
	env.exec.panicNow = true

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_, _ = env.svc.Convert(context.Background(), mediatypes.KindAudio,
			input("a.mp3", map[string]string{"output_format": "wav"}),
			strings.NewReader("x"), mapping.ProcessScope)
	}()

	for _, dir := range []string{"uploads", "work", "outputs"} {
		if got := env.files(t, dir); len(got) != 0 {
			t.Errorf("%s not empty after panic: %v", dir, got)
		}
	}
}

func TestConvertConcurrentSameFilename(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.svc.Convert(ctx, mediatypes.KindAudio,
				input("test.mp3", map[string]string{"output_format": "wav"}),
				strings.NewReader("same bytes"), mapping.ProcessScope)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("conversion %d failed: %v", i, err)
		}
	}
	if results[0].OutputFile == results[1].OutputFile {
		t.Fatalf("both conversions returned %s", results[0].OutputFile)
	}
	for _, res := range results {
		d, err := env.svc.Open(ctx, mapping.ProcessScope, res.OutputFile)
		if err != nil {
			t.Fatalf("Open(%s) error = %v", res.OutputFile, err)
		}
		if d.Name != "test.wav" {
			t.Errorf("Name = %q", d.Name)
		}
		d.File.Close()
	}
}

func TestOpenAndDeliver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Convert(ctx, mediatypes.KindAudio,
		input("voice.ogg", map[string]string{"output_format": "mp3"}),
		strings.NewReader("x"), mapping.ProcessScope)
	if err != nil {
		t.Fatal(err)
	}

	d, err := env.svc.Open(ctx, mapping.ProcessScope, res.OutputFile)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if d.Name != "voice.mp3" || d.Info.Size() != int64(len("converted")) {
		t.Errorf("Download = %q, %d bytes", d.Name, d.Info.Size())
	}
	d.File.Close()

	if err := env.svc.Delivered(d); err != nil {
		t.Fatalf("Delivered() error = %v", err)
	}
	if _, err := env.svc.Open(ctx, mapping.ProcessScope, res.OutputFile); !apperror.Is(err, apperror.NotFound) {
		t.Errorf("Open() after delivery = %v, want NotFound", err)
	}
}

func TestOpenUnrecordedIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A file with a generated-looking name that the registry never saw.
	stray := naming.New().WithExt("wav")
	if err := os.WriteFile(env.storage.OutputPath(stray), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{stray, "../uploads/x.wav", "not-an-id"} {
		if _, err := env.svc.Open(ctx, mapping.ProcessScope, id); !apperror.Is(err, apperror.NotFound) {
			t.Errorf("Open(%q) = %v, want NotFound", id, err)
		}
	}
}

func TestOpenOtherScopeIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Convert(ctx, mediatypes.KindAudio,
		input("a.wav", map[string]string{"output_format": "mp3"}),
		strings.NewReader("x"), mapping.SessionScope("one"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.svc.Open(ctx, mapping.SessionScope("two"), res.OutputFile); !apperror.Is(err, apperror.NotFound) {
		t.Errorf("cross-scope Open() = %v, want NotFound", err)
	}
}
