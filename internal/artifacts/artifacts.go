package artifacts

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
	"media-converter/internal/metrics"
	"media-converter/internal/naming"
)

// Role describes where an artifact sits in a request's lifecycle.
type Role string

const (
	RoleUpload       Role = "upload"
	RoleIntermediate Role = "intermediate"
	RoleOutput       Role = "output"
	// RoleTranscript is text written by the speech recognizer. It lives in
	// the work directory and is released like an intermediate.
	RoleTranscript Role = "transcript"
)

// ErrOutsideStorage is returned when a path does not belong to the
// directory it is supposed to live in.
var ErrOutsideStorage = errors.New("path is outside the storage area")

// Storage owns the upload, work and output directories.
type Storage struct {
	uploadDir string
	workDir   string
	outputDir string
	namer     *naming.Namer
	retry     filesystem.RetryConfig
}

// NewStorage creates the three directories if needed.
func NewStorage(uploadDir, workDir, outputDir string, namer *naming.Namer) (*Storage, error) {
	for _, dir := range []string{uploadDir, workDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	if namer == nil {
		namer = naming.New()
	}
	s := &Storage{
		uploadDir: uploadDir,
		workDir:   workDir,
		outputDir: outputDir,
		namer:     namer,
		retry:     filesystem.DefaultRetryConfig(),
	}
	s.retry.VolumeResolver = filesystem.NewVolumeResolver(s.Dirs())
	return s, nil
}

// Dirs returns the storage directories keyed by metric label.
func (s *Storage) Dirs() map[string]string {
	return map[string]string{
		"uploads": s.uploadDir,
		"work":    s.workDir,
		"outputs": s.outputDir,
	}
}

// NewSet starts tracking the artifacts of one request.
func (s *Storage) NewSet() *Set {
	return &Set{storage: s}
}

// OutputPath returns the location of the output artifact named id.
func (s *Storage) OutputPath(id string) string {
	return filepath.Join(s.outputDir, filepath.Base(id))
}

// Stat returns file info for a path, retrying stale handles.
func (s *Storage) Stat(path string) (os.FileInfo, error) {
	return filesystem.StatWithRetry(path, s.retry)
}

// Open opens a path for reading, retrying stale handles.
func (s *Storage) Open(path string) (*os.File, error) {
	return filesystem.OpenWithRetry(path, s.retry)
}

// RemoveOutput deletes a delivered output artifact. Only paths directly
// inside the output directory are accepted.
func (s *Storage) RemoveOutput(path string) error {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(s.outputDir) {
		return fmt.Errorf("%w: %s", ErrOutsideStorage, path)
	}
	return s.remove(path, RoleOutput)
}

func (s *Storage) remove(path string, role Role) error {
	var size int64
	if info, err := os.Lstat(path); err == nil {
		size = info.Size()
	}

	if err := filesystem.RemoveWithRetry(path, s.retry); err != nil {
		metrics.ArtifactRemovalErrors.WithLabelValues(string(role)).Inc()
		logging.Warn("failed to remove %s artifact %s: %v", role, path, err)
		return err
	}

	metrics.ArtifactsRemovedTotal.WithLabelValues(string(role)).Inc()
	metrics.ArtifactBytesFreed.Add(float64(size))
	logging.Debug("Removed %s artifact %s", role, path)
	return nil
}

// Purge removes everything in the storage directories and returns the
// number of bytes freed.
func (s *Storage) Purge() (int64, error) {
	var freedBytes int64
	var errs []error

	for _, dir := range []string{s.uploadDir, s.workDir, s.outputDir} {
		freed, err := clearDir(dir)
		freedBytes += freed
		if err != nil {
			errs = append(errs, err)
		}
	}

	metrics.ArtifactBytesFreed.Add(float64(freedBytes))
	logging.Info("Purged storage area: freed %d bytes", freedBytes)
	return freedBytes, errors.Join(errs...)
}

// Usage returns the bytes held in each storage directory.
func (s *Storage) Usage() map[string]int64 {
	usage := make(map[string]int64, 3)
	for label, dir := range s.Dirs() {
		size, err := dirSize(dir)
		if err != nil && !os.IsNotExist(err) {
			logging.Debug("failed to size %s: %v", dir, err)
		}
		usage[label] = size
	}
	return usage
}

// Writable reports whether every storage directory accepts new files.
func (s *Storage) Writable() error {
	for _, dir := range []string{s.uploadDir, s.workDir, s.outputDir} {
		f, err := os.CreateTemp(dir, ".writecheck-*")
		if err != nil {
			return fmt.Errorf("%s is not writable: %w", dir, err)
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
	}
	return nil
}

// clearDir removes every entry of dir, keeping dir itself.
func clearDir(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read storage directory %s: %w", dir, err)
	}

	var freedBytes int64
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			size, _ := dirSize(path)
			if err := os.RemoveAll(path); err != nil {
				logging.Warn("failed to remove directory %s: %v", path, err)
				continue
			}
			freedBytes += size
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logging.Warn("failed to get info for %s: %v", path, err)
			continue
		}
		if err := os.Remove(path); err != nil {
			logging.Warn("failed to remove file %s: %v", path, err)
			continue
		}
		freedBytes += info.Size()
	}
	return freedBytes, nil
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

type artifact struct {
	path    string
	role    Role
	removed bool
}

// Set is the artifact list of a single request. It is the only place a
// request's files are deleted, and each file is deleted at most once.
type Set struct {
	storage  *Storage
	mu       sync.Mutex
	items    []*artifact
	released bool
}

func (s *Set) track(path string, role Role) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, &artifact{path: path, role: role})
	metrics.ArtifactsCreatedTotal.WithLabelValues(string(role)).Inc()
	return path
}

// SaveUpload streams r into a new upload artifact with extension ext and
// returns its path and size. A partially written upload is still tracked
// so Release removes it.
func (s *Set) SaveUpload(r io.Reader, ext string) (string, int64, error) {
	path := s.track(filepath.Join(s.storage.uploadDir, s.storage.namer.WithExt(ext)), RoleUpload)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return path, 0, fmt.Errorf("failed to create upload: %w", err)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return path, n, fmt.Errorf("failed to store upload: %w", err)
	}
	return path, n, nil
}

// Intermediate reserves a tracked path in the work directory.
func (s *Set) Intermediate(ext string) string {
	return s.track(filepath.Join(s.storage.workDir, s.storage.namer.WithExt(ext)), RoleIntermediate)
}

// Transcript reserves a tracked path in the work directory for
// recognizer output.
func (s *Set) Transcript(ext string) string {
	return s.track(filepath.Join(s.storage.workDir, s.storage.namer.WithExt(ext)), RoleTranscript)
}

// SaveOutput writes r into a new output artifact. It is used when the
// output is produced in-process rather than by the transcoding tool.
func (s *Set) SaveOutput(r io.Reader, ext string) (path, id string, n int64, err error) {
	path, id = s.Output(ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return path, id, 0, fmt.Errorf("failed to create output: %w", err)
	}
	n, err = io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return path, id, n, fmt.Errorf("failed to write output: %w", err)
	}
	return path, id, n, nil
}

// Output reserves a tracked path in the output directory and returns the
// path together with its identifier.
func (s *Set) Output(ext string) (path, id string) {
	id = s.storage.namer.WithExt(ext)
	return s.track(filepath.Join(s.storage.outputDir, id), RoleOutput), id
}

// Paths returns the tracked paths with the given role, in creation order.
func (s *Set) Paths(role Role) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var paths []string
	for _, a := range s.items {
		if a.role == role {
			paths = append(paths, a.path)
		}
	}
	return paths
}

// Release ends the request. Upload and intermediate artifacts are always
// removed. Output artifacts are kept only when keepOutputs is true, which
// callers set once the output is recorded and handed to the client.
// Calls after the first are no-ops.
func (s *Set) Release(keepOutputs bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil
	}
	s.released = true

	var errs []error
	for _, a := range s.items {
		if a.removed || (keepOutputs && a.role == RoleOutput) {
			continue
		}
		a.removed = true
		if err := s.storage.remove(a.path, a.role); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Released reports whether Release has run.
func (s *Set) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// String lists tracked artifacts for debug logging.
func (s *Set) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	parts := make([]string, 0, len(s.items))
	for _, a := range s.items {
		parts = append(parts, fmt.Sprintf("%s=%s", a.role, filepath.Base(a.path)))
	}
	return strings.Join(parts, ",")
}
