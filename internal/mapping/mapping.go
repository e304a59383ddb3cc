package mapping

import (
	"context"
	"errors"
	"time"

	"media-converter/internal/apperror"
	"media-converter/internal/database"
	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// Scope isolates mappings. An identifier recorded in one scope never
// resolves in another.
type Scope string

// ProcessScope is shared by every request served from the same storage
// area, across workers and processes.
const ProcessScope Scope = "process"

// SessionScope returns the scope of one client session.
func SessionScope(sessionID string) Scope {
	return Scope("session:" + sessionID)
}

// Entry is one recorded output.
type Entry struct {
	OutputID     string
	OriginalName string
	Path         string
	Kind         string
	CreatedAt    time.Time
}

var (
	// ErrExists is returned by stores when an identifier is recorded twice.
	ErrExists = errors.New("mapping already exists")
	// ErrNotFound is returned by stores for unknown identifiers.
	ErrNotFound = errors.New("mapping not found")
)

// Store is the key-value backend of a Registry. Implementations must be
// safe for concurrent use and never overwrite an entry.
type Store interface {
	Insert(ctx context.Context, scope Scope, e Entry) error
	Lookup(ctx context.Context, scope Scope, outputID string) (Entry, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Registry records successful outputs and resolves them at download time.
type Registry struct {
	store Store
}

// NewRegistry creates a Registry over store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Record inserts e into scope.
func (r *Registry) Record(ctx context.Context, scope Scope, e Entry) error {
	if e.OutputID == "" || e.OriginalName == "" {
		metrics.MappingOperationsTotal.WithLabelValues("record", "error").Inc()
		return apperror.New(apperror.Internal, "output mapping needs an identifier and a name")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	if err := r.store.Insert(ctx, scope, e); err != nil {
		metrics.MappingOperationsTotal.WithLabelValues("record", "error").Inc()
		if errors.Is(err, ErrExists) {
			return apperror.Wrap(apperror.Internal, err, "output identifier %s already recorded", e.OutputID)
		}
		return apperror.Wrap(apperror.Internal, err, "failed to record output mapping")
	}

	metrics.MappingOperationsTotal.WithLabelValues("record", "success").Inc()
	logging.Debug("Recorded output %s as %q in scope %s", e.OutputID, e.OriginalName, scope)
	return nil
}

// Resolve returns the entry for outputID in scope, or a NotFound error.
func (r *Registry) Resolve(ctx context.Context, scope Scope, outputID string) (Entry, error) {
	e, err := r.store.Lookup(ctx, scope, outputID)
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.MappingOperationsTotal.WithLabelValues("resolve", "not_found").Inc()
		return Entry{}, apperror.New(apperror.NotFound, "file not found")
	case err != nil:
		metrics.MappingOperationsTotal.WithLabelValues("resolve", "error").Inc()
		return Entry{}, apperror.Wrap(apperror.Internal, err, "failed to resolve output mapping")
	}

	metrics.MappingOperationsTotal.WithLabelValues("resolve", "success").Inc()
	return e, nil
}

// Count returns the number of recorded entries.
func (r *Registry) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

// Teardown removes every entry. It is only called when the storage area
// itself is purged.
func (r *Registry) Teardown(ctx context.Context) error {
	return r.store.Clear(ctx)
}

// SQLStore keeps mappings in the SQLite database so every process sharing
// the data directory sees them.
type SQLStore struct {
	db *database.Database
}

// NewSQLStore creates a Store over db.
func NewSQLStore(db *database.Database) *SQLStore {
	return &SQLStore{db: db}
}

// Insert implements Store.
func (s *SQLStore) Insert(ctx context.Context, scope Scope, e Entry) error {
	err := s.db.InsertMapping(ctx, database.Mapping{
		Scope:        string(scope),
		OutputID:     e.OutputID,
		Path:         e.Path,
		OriginalName: e.OriginalName,
		Kind:         e.Kind,
		CreatedAt:    e.CreatedAt,
	})
	if errors.Is(err, database.ErrMappingExists) {
		return ErrExists
	}
	return err
}

// Lookup implements Store.
func (s *SQLStore) Lookup(ctx context.Context, scope Scope, outputID string) (Entry, error) {
	m, err := s.db.GetMapping(ctx, string(scope), outputID)
	if errors.Is(err, database.ErrMappingNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		OutputID:     m.OutputID,
		OriginalName: m.OriginalName,
		Path:         m.Path,
		Kind:         m.Kind,
		CreatedAt:    m.CreatedAt,
	}, nil
}

// Count implements Store.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	return s.db.CountMappings(ctx)
}

// Clear implements Store.
func (s *SQLStore) Clear(ctx context.Context) error {
	_, err := s.db.DeleteMappings(ctx, "")
	return err
}
