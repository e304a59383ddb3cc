package naming

import (
	"strings"
	"sync"
	"testing"

	"media-converter/internal/params"
)

func TestNextKeepsExtension(t *testing.T) {
	t.Parallel()

	n := New()
	tests := []struct {
		input   string
		wantExt string
	}{
		{"test.mp3", ".mp3"},
		{"PHOTO.JPEG", ".jpeg"},
		{"archive.tar.gz", ".gz"},
	}
	for _, tt := range tests {
		got := n.Next(tt.input)
		if !strings.HasSuffix(got, tt.wantExt) {
			t.Errorf("Next(%q) = %q, want suffix %q", tt.input, got, tt.wantExt)
		}
		if !IsGenerated(got) {
			t.Errorf("Next(%q) = %q, not recognised by IsGenerated", tt.input, got)
		}
	}

	if got := n.Next("README"); strings.Contains(got, ".") || len(got) != 32 {
		t.Errorf("Next(README) = %q, want bare 32 char token", got)
	}
}

func TestWithExt(t *testing.T) {
	t.Parallel()

	n := &Namer{token: func() string { return "0123456789abcdef0123456789abcdef" }}
	tests := map[string]string{
		"wav":  "0123456789abcdef0123456789abcdef.wav",
		".PNG": "0123456789abcdef0123456789abcdef.png",
		"":     "0123456789abcdef0123456789abcdef",
	}
	for ext, want := range tests {
		if got := n.WithExt(ext); got != want {
			t.Errorf("WithExt(%q) = %q, want %q", ext, got, want)
		}
	}
}

func TestConcurrentNamesAreUnique(t *testing.T) {
	t.Parallel()

	const workers = 16
	const perWorker = 500

	n := New()
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				local = append(local, n.Next("test.mp3"))
			}
			mu.Lock()
			defer mu.Unlock()
			for _, name := range local {
				if _, dup := seen[name]; dup {
					t.Errorf("duplicate name %q", name)
				}
				seen[name] = struct{}{}
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("got %d unique names, want %d", len(seen), workers*perWorker)
	}
}

func TestIsGenerated(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"0123456789abcdef0123456789abcdef.wav": true,
		"0123456789abcdef0123456789abcdef":     true,
		"0123456789ABCDEF0123456789ABCDEF.wav": false,
		"0123456789abcdef0123456789abcdef.":    false,
		"0123456789abcdef.wav":                 false,
		"../etc/passwd":                        false,
		"0123456789abcdef0123456789abcdef.w/v": false,
		"test.mp3":                             false,
		"0123456789abcdef0123456789abcdef.m+v": false,
	}
	for name, want := range tests {
		if got := IsGenerated(name); got != want {
			t.Errorf("IsGenerated(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestGeneratedNamesMatchAcceptedFormats(t *testing.T) {
	t.Parallel()

	n := New()
	for _, raw := range []string{"mp3", "WAV", " ogg ", "x-ms_wma", "mp3+x", "wäv", "a.b"} {
		format, err := params.OutputFormat(raw)
		name := n.WithExt(strings.TrimSpace(raw))
		if got := IsGenerated(name); got != (err == nil) {
			t.Errorf("format %q: OutputFormat err = %v (normalised %q), IsGenerated(%q) = %v",
				raw, err, format, name, got)
		}
	}
}
