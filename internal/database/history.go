package database

import (
	"context"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// RecordConversion appends c to the conversion history.
func (d *Database) RecordConversion(ctx context.Context, c Conversion) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_conversion", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO conversions (kind, input_name, output_id, output_format, stages, status, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.Kind, c.InputName, c.OutputID, c.OutputFormat, c.Stages, c.Status, c.DurationMS, createdAt.Unix())
	return err
}

// RecentConversions returns up to limit history rows, newest first.
func (d *Database) RecentConversions(ctx context.Context, limit int) ([]Conversion, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("recent_conversions", start, err) }()

	if limit <= 0 {
		limit = 50
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, kind, input_name, output_id, output_format, stages, status, duration_ms, created_at
		FROM conversions ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversions []Conversion
	for rows.Next() {
		var c Conversion
		var createdAt int64
		if err = rows.Scan(&c.ID, &c.Kind, &c.InputName, &c.OutputID, &c.OutputFormat,
			&c.Stages, &c.Status, &c.DurationMS, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(createdAt, 0)
		conversions = append(conversions, c)
	}
	err = rows.Err()
	return conversions, err
}

// ConversionStats aggregates the history by kind and status.
func (d *Database) ConversionStats(ctx context.Context) (ConversionStats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("conversion_stats", start, err) }()

	stats := ConversionStats{
		ByKind:   make(map[string]int),
		ByStatus: make(map[string]map[string]int),
	}

	d.mu.RLock()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT kind, status, COUNT(*) FROM conversions GROUP BY kind, status
	`)
	if err != nil {
		d.mu.RUnlock()
		return stats, err
	}

	for rows.Next() {
		var kind, status string
		var n int
		if err = rows.Scan(&kind, &status, &n); err != nil {
			rows.Close()
			d.mu.RUnlock()
			return stats, err
		}
		stats.Total += n
		stats.ByKind[kind] += n
		if status != "success" {
			stats.Failed += n
		}
		if stats.ByStatus[kind] == nil {
			stats.ByStatus[kind] = make(map[string]int)
		}
		stats.ByStatus[kind][status] = n
	}
	err = rows.Err()
	rows.Close()
	d.mu.RUnlock()
	if err != nil {
		return stats, err
	}

	stats.Mappings, err = d.CountMappings(ctx)
	return stats, err
}

// GetStats implements metrics.StatsProvider.
func (d *Database) GetStats() metrics.Stats {
	d.UpdateDBMetrics()

	stats, err := d.ConversionStats(context.Background())
	if err != nil {
		logging.Warn("failed to collect conversion stats: %v", err)
	}
	return metrics.Stats{
		TotalConversions:  stats.Total,
		FailedConversions: stats.Failed,
		ByKind:            stats.ByKind,
		StoredMappings:    stats.Mappings,
	}
}
