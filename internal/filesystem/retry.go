// Package filesystem provides filesystem operations that retry transient
// network-volume errors.
package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// VolumeResolver maps file paths to known volume names for metric labeling.
// It uses longest-prefix matching on absolute paths.
type VolumeResolver struct {
	// mounts is sorted by path length descending for longest-prefix matching
	mounts []volumeMount
}

type volumeMount struct {
	path string // absolute path with trailing slash
	name string // volume label (e.g., "uploads")
}

// NewVolumeResolver creates a resolver from a map of volume name to path.
//
//	NewVolumeResolver(map[string]string{
//	    "uploads": "/data/uploads",
//	    "work":    "/data/work",
//	    "outputs": "/data/outputs",
//	})
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		if !strings.HasSuffix(absPath, "/") {
			absPath += "/"
		}
		mounts = append(mounts, volumeMount{path: absPath, name: name})
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})

	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the volume name for path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return "unknown"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}

	for _, mount := range vr.mounts {
		if strings.HasPrefix(absPath+"/", mount.path) {
			return mount.name
		}
	}

	return "unknown"
}

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// VolumeResolver labels metrics. Nil labels every path "unknown".
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig returns the defaults used for storage operations.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c *RetryConfig) resolveVolume(path string) string {
	return c.VolumeResolver.Resolve(path)
}

// isStaleError checks for ESTALE, the stale file handle error of network
// filesystems.
func isStaleError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// withRetry runs fn until it succeeds, fails with a non-stale error, or
// MaxRetries is exhausted.
func withRetry(op, path string, config RetryConfig, fn func() error) error {
	start := time.Now()
	volume := config.resolveVolume(path)
	backoff := config.InitialBackoff
	defer func() {
		metrics.FilesystemRetryDuration.WithLabelValues(op, volume).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("%s succeeded on retry %d for %s", op, attempt, path)
				metrics.FilesystemRetrySuccess.WithLabelValues(op, volume).Inc()
			}
			return nil
		}

		lastErr = err
		if !isStaleError(err) {
			return err
		}

		metrics.FilesystemStaleErrors.WithLabelValues(op, volume).Inc()

		if attempt < config.MaxRetries {
			metrics.FilesystemRetryAttempts.WithLabelValues(op, volume).Inc()
			logging.Debug("%s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("%s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	metrics.FilesystemRetryFailures.WithLabelValues(op, volume).Inc()
	return lastErr
}

// StatWithRetry performs os.Stat, retrying stale file handle errors.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("stat", path, config, func() error {
		var statErr error
		info, statErr = os.Stat(path)
		return statErr
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// OpenWithRetry performs os.Open, retrying stale file handle errors.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	var file *os.File
	err := withRetry("open", path, config, func() error {
		var openErr error
		file, openErr = os.Open(path)
		return openErr
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// RemoveWithRetry removes path, retrying stale file handle errors. A path
// that no longer exists is not an error.
func RemoveWithRetry(path string, config RetryConfig) error {
	err := withRetry("remove", path, config, func() error {
		return os.Remove(path)
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
