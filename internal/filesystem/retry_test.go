package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "remove", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT", syscall.ENOENT, false},
		{"generic", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isStaleError(tt.err); got != tt.want {
				t.Errorf("isStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"uploads": "/data/uploads",
		"work":    "/data/work",
		"outputs": "/data/outputs",
		"data":    "/data",
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{"upload file", "/data/uploads/abc.mp3", "uploads"},
		{"outputs root", "/data/outputs", "outputs"},
		{"longest prefix wins", "/data/work/x.png", "work"},
		{"parent volume", "/data/database/converter.db", "data"},
		{"sibling with shared prefix", "/data/uploadsX/a", "data"},
		{"unknown", "/etc/hosts", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_NilResolver(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/data/uploads/a"); got != "unknown" {
		t.Errorf("nil resolver returned %q", got)
	}
}

func TestRetryConfig_ResolveVolume(t *testing.T) {
	config := DefaultRetryConfig()
	if got := config.resolveVolume("/out/a.wav"); got != "unknown" {
		t.Errorf("config without resolver gave %q", got)
	}

	config.VolumeResolver = NewVolumeResolver(map[string]string{"outputs": "/out"})
	if got := config.resolveVolume("/out/a.wav"); got != "outputs" {
		t.Errorf("config resolver gave %q", got)
	}
}

func TestWithRetry(t *testing.T) {
	stale := &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}

	tests := []struct {
		name      string
		failures  int
		failErr   error
		wantCalls int
		wantErr   bool
	}{
		{"first try", 0, nil, 1, false},
		{"recovers after stale handles", 2, stale, 3, false},
		{"gives up after max retries", 10, stale, 4, true},
		{"other errors are not retried", 10, errors.New("permission denied"), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := withRetry("stat", "/x", fastRetry(), func() error {
				calls++
				if calls <= tt.failures {
					return tt.failErr
				}
				return nil
			})

			if (err != nil) != tt.wantErr {
				t.Errorf("withRetry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestStatAndOpenWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(path, fastRetry())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Size() = %d, want 5", info.Size())
	}

	f, err := OpenWithRetry(path, fastRetry())
	if err != nil {
		t.Fatalf("OpenWithRetry() error = %v", err)
	}
	f.Close()

	if _, err := StatWithRetry(filepath.Join(dir, "missing"), fastRetry()); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
	if _, err := OpenWithRetry(filepath.Join(dir, "missing"), fastRetry()); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestRemoveWithRetry(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		path := filepath.Join(dir, fmt.Sprintf("f%d", i))
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := RemoveWithRetry(path, fastRetry()); err != nil {
			t.Errorf("RemoveWithRetry() error = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s still exists", path)
		}
	}

	if err := RemoveWithRetry(filepath.Join(dir, "never-existed"), fastRetry()); err != nil {
		t.Errorf("removing a missing file should succeed, got %v", err)
	}
}
