package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const lastPurgeKey = "last_purge"

// PurgeRecord describes the most recent teardown of the storage area.
type PurgeRecord struct {
	At         time.Time `json:"at"`
	Source     string    `json:"source"` // "shutdown" or "cli"
	FreedBytes int64     `json:"freedBytes"`
}

// GetMetadata retrieves a metadata value by key.
// Returns sql.ErrNoRows if the key doesn't exist.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	if err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value); err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata upserts a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// LastPurge returns the most recent purge. ok is false if the storage area
// was never purged.
func (d *Database) LastPurge(ctx context.Context) (rec PurgeRecord, ok bool, err error) {
	value, err := d.GetMetadata(ctx, lastPurgeKey)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && value == "") {
		return PurgeRecord{}, false, nil
	}
	if err != nil {
		return PurgeRecord{}, false, err
	}
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return PurgeRecord{}, false, fmt.Errorf("corrupt %s metadata: %w", lastPurgeKey, err)
	}
	return rec, true, nil
}

// RecordPurge replaces the stored purge record. A zero At is set to now.
func (d *Database) RecordPurge(ctx context.Context, rec PurgeRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	rec.At = rec.At.UTC().Truncate(time.Second)

	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return d.SetMetadata(ctx, lastPurgeKey, string(value))
}
