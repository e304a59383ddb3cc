package handlers

import (
	"time"

	"media-converter/internal/artifacts"
	"media-converter/internal/converter"
	"media-converter/internal/database"
	"media-converter/internal/mapping"
	"media-converter/internal/transcription"
)

// Options tune request handling.
type Options struct {
	// MaxUploadSize bounds multipart bodies in bytes.
	MaxUploadSize int64
	// DeleteAfterDownload removes an output once it has been served.
	DeleteAfterDownload bool
	// SessionScope keys output mappings by a per-client cookie instead of
	// the whole process.
	SessionScope bool
	// UnderPressure, when set, fails readiness while it returns true.
	UnderPressure func() bool
}

type Handlers struct {
	converter     *converter.Service
	transcription *transcription.Service
	storage       *artifacts.Storage
	registry      *mapping.Registry
	db            *database.Database
	opts          Options
	startTime     time.Time
}

// New wires the services behind the HTTP API. db may be nil, in which case
// /api/stats only reports storage usage.
func New(conv *converter.Service, trans *transcription.Service, storage *artifacts.Storage,
	registry *mapping.Registry, db *database.Database, opts Options) *Handlers {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 512 << 20
	}
	return &Handlers{
		converter:     conv,
		transcription: trans,
		storage:       storage,
		registry:      registry,
		db:            db,
		opts:          opts,
		startTime:     time.Now(),
	}
}
