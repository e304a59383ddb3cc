package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"
)

// InsertMapping records m. Mappings are insert-only: recording an
// identifier that already exists in the scope fails with ErrMappingExists.
func (d *Database) InsertMapping(ctx context.Context, m Mapping) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_mapping", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO output_mappings (scope, output_id, path, original_name, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.Scope, m.OutputID, m.Path, m.OriginalName, m.Kind, createdAt.Unix())

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		err = ErrMappingExists
	}
	return err
}

// GetMapping looks up outputID in scope.
func (d *Database) GetMapping(ctx context.Context, scope, outputID string) (Mapping, error) {
	start := time.Now()
	var err error
	defer func() {
		if errors.Is(err, ErrMappingNotFound) {
			recordQuery("get_mapping", start, nil)
			return
		}
		recordQuery("get_mapping", start, err)
	}()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	m := Mapping{Scope: scope, OutputID: outputID}
	var createdAt int64
	err = d.db.QueryRowContext(ctx, `
		SELECT path, original_name, kind, created_at
		FROM output_mappings WHERE scope = ? AND output_id = ?
	`, scope, outputID).Scan(&m.Path, &m.OriginalName, &m.Kind, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrMappingNotFound
		return Mapping{}, err
	}
	if err != nil {
		return Mapping{}, err
	}

	m.CreatedAt = time.Unix(createdAt, 0)
	return m, nil
}

// CountMappings returns the number of recorded mappings across all scopes.
func (d *Database) CountMappings(ctx context.Context) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count_mappings", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM output_mappings").Scan(&n)
	return n, err
}

// DeleteMappings removes every mapping in scope, or every mapping when
// scope is empty. It is only used when the whole store is torn down.
func (d *Database) DeleteMappings(ctx context.Context, scope string) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_mappings", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	if scope == "" {
		result, err = d.db.ExecContext(ctx, "DELETE FROM output_mappings")
	} else {
		result, err = d.db.ExecContext(ctx, "DELETE FROM output_mappings WHERE scope = ?", scope)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
