package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database stores output mappings and conversion history.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New opens (creating if needed) the database FILE at dbPath. The parent
// directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout lets concurrent writers from several processes queue
	// instead of failing with "database is locked".
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	-- Output mappings: generated identifier -> human-facing filename.
	-- Rows are only inserted, never updated.
	CREATE TABLE IF NOT EXISTS output_mappings (
		scope TEXT NOT NULL,
		output_id TEXT NOT NULL,
		path TEXT NOT NULL,
		original_name TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (scope, output_id)
	);

	CREATE INDEX IF NOT EXISTS idx_output_mappings_created ON output_mappings(created_at);

	-- Conversion history
	CREATE TABLE IF NOT EXISTS conversions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		input_name TEXT NOT NULL,
		output_id TEXT NOT NULL DEFAULT '',
		output_format TEXT NOT NULL DEFAULT '',
		stages INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_conversions_kind ON conversions(kind);
	CREATE INDEX IF NOT EXISTS idx_conversions_created ON conversions(created_at);

	-- Metadata table
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	_, err = d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Ping checks that the database answers.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates database connection and file size metrics
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))

	for label, path := range map[string]string{
		"main": d.dbPath,
		"wal":  d.dbPath + "-wal",
		"shm":  d.dbPath + "-shm",
	} {
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		metrics.DBSizeBytes.WithLabelValues(label).Set(float64(size))
	}
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("%s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
			if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
				logging.Error("Failed to fix permissions on %s: %v", path, chmodErr)
			} else {
				logging.Info("Fixed permissions on %s", path)
			}
		}
	}

	return nil
}
