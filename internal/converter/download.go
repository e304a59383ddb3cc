package converter

import (
	"context"
	"os"

	"media-converter/internal/apperror"
	"media-converter/internal/mapping"
	"media-converter/internal/naming"
)

// Download is a resolved, openable output.
type Download struct {
	File     *os.File
	Info     os.FileInfo
	Name     string
	OutputID string
	path     string
}

// Open resolves outputID in scope and opens the output. Identifiers that
// were never recorded are NotFound even when a file of that name exists.
// The caller closes Download.File.
func (s *Service) Open(ctx context.Context, scope mapping.Scope, outputID string) (*Download, error) {
	if !naming.IsGenerated(outputID) {
		return nil, apperror.New(apperror.NotFound, "File not found")
	}

	entry, err := s.registry.Resolve(ctx, scope, outputID)
	if err != nil {
		return nil, err
	}

	path := s.storage.OutputPath(entry.OutputID)
	f, err := s.storage.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperror.New(apperror.NotFound, "File not found")
		}
		return nil, apperror.Wrap(apperror.Internal, err, "Failed to download file")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperror.Wrap(apperror.Internal, err, "Failed to download file")
	}

	return &Download{
		File:     f,
		Info:     info,
		Name:     entry.OriginalName,
		OutputID: entry.OutputID,
		path:     path,
	}, nil
}

// Delivered removes a downloaded output. The mapping is kept: entries are
// only dropped when the whole store is torn down.
func (s *Service) Delivered(d *Download) error {
	return s.storage.RemoveOutput(d.path)
}
