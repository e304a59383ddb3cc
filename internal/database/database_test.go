package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func setupTestDB(t testing.TB) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"successful query", nil},
		{"failed query", errors.New("test error")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// Must not panic for either status label.
			recordQuery("test_operation", time.Now(), tt.err)
		})
	}
}

func TestNewDatabase(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if filepath.Base(db.Path()) != "test.db" {
		t.Errorf("Path() = %s", db.Path())
	}
}

func TestNewDatabaseMissingDirectory(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "test.db"))
	if err == nil {
		t.Error("expected error for a database in a missing directory")
	}
}

func TestMappingInsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := Mapping{
		Scope:        "process",
		OutputID:     "0123456789abcdef0123456789abcdef.wav",
		Path:         "/data/outputs/0123456789abcdef0123456789abcdef.wav",
		OriginalName: "test.wav",
		Kind:         "audio",
	}
	if err := db.InsertMapping(ctx, m); err != nil {
		t.Fatalf("InsertMapping() error = %v", err)
	}

	got, err := db.GetMapping(ctx, "process", m.OutputID)
	if err != nil {
		t.Fatalf("GetMapping() error = %v", err)
	}
	if got.OriginalName != "test.wav" || got.Path != m.Path || got.Kind != "audio" {
		t.Errorf("GetMapping() = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestMappingInsertOnly(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := Mapping{Scope: "process", OutputID: "a.wav", Path: "/p/a.wav", OriginalName: "first.wav"}
	if err := db.InsertMapping(ctx, m); err != nil {
		t.Fatal(err)
	}

	m.OriginalName = "second.wav"
	if err := db.InsertMapping(ctx, m); !errors.Is(err, ErrMappingExists) {
		t.Fatalf("expected ErrMappingExists, got %v", err)
	}

	got, _ := db.GetMapping(ctx, "process", "a.wav")
	if got.OriginalName != "first.wav" {
		t.Errorf("mapping was overwritten: %s", got.OriginalName)
	}
}

func TestMappingScopes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.InsertMapping(ctx, Mapping{Scope: "session:a", OutputID: "x.png", Path: "/p/x.png", OriginalName: "a.png"}); err != nil {
		t.Fatal(err)
	}

	if _, err := db.GetMapping(ctx, "session:b", "x.png"); !errors.Is(err, ErrMappingNotFound) {
		t.Errorf("identifier resolved across scopes: %v", err)
	}

	// Same identifier in another scope is a distinct row.
	if err := db.InsertMapping(ctx, Mapping{Scope: "session:b", OutputID: "x.png", Path: "/p/x.png", OriginalName: "b.png"}); err != nil {
		t.Errorf("InsertMapping() in second scope error = %v", err)
	}

	n, err := db.CountMappings(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountMappings() = %d, %v; want 2", n, err)
	}

	deleted, err := db.DeleteMappings(ctx, "session:a")
	if err != nil || deleted != 1 {
		t.Errorf("DeleteMappings(session:a) = %d, %v", deleted, err)
	}
	deleted, err = db.DeleteMappings(ctx, "")
	if err != nil || deleted != 1 {
		t.Errorf("DeleteMappings(all) = %d, %v", deleted, err)
	}
}

func TestMappingConcurrentInsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("%032d.wav", i)
			errs <- db.InsertMapping(ctx, Mapping{Scope: "process", OutputID: id, Path: "/p/" + id, OriginalName: "test.wav"})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent InsertMapping() error = %v", err)
		}
	}
	if n, _ := db.CountMappings(ctx); n != 40 {
		t.Errorf("CountMappings() = %d, want 40", n)
	}
}

func TestConversionHistory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rows := []Conversion{
		{Kind: "audio", InputName: "a.mp3", OutputID: "1.wav", OutputFormat: "wav", Stages: 1, Status: "success", DurationMS: 120},
		{Kind: "image", InputName: "b.png", OutputID: "2.jpg", OutputFormat: "jpg", Stages: 2, Status: "success", DurationMS: 80},
		{Kind: "image", InputName: "c.png", OutputFormat: "jpg", Stages: 2, Status: "ToolExecutionFailure"},
	}
	for _, c := range rows {
		if err := db.RecordConversion(ctx, c); err != nil {
			t.Fatalf("RecordConversion() error = %v", err)
		}
	}
	if err := db.InsertMapping(ctx, Mapping{Scope: "process", OutputID: "1.wav", Path: "/p/1.wav", OriginalName: "a.wav"}); err != nil {
		t.Fatal(err)
	}

	recent, err := db.RecentConversions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentConversions() error = %v", err)
	}
	if len(recent) != 2 || recent[0].InputName != "c.png" {
		t.Errorf("RecentConversions() = %+v", recent)
	}

	stats, err := db.ConversionStats(ctx)
	if err != nil {
		t.Fatalf("ConversionStats() error = %v", err)
	}
	if stats.Total != 3 || stats.Failed != 1 {
		t.Errorf("Total/Failed = %d/%d, want 3/1", stats.Total, stats.Failed)
	}
	if stats.ByKind["image"] != 2 || stats.ByStatus["image"]["ToolExecutionFailure"] != 1 {
		t.Errorf("ByKind/ByStatus = %v / %v", stats.ByKind, stats.ByStatus)
	}
	if stats.Mappings != 1 {
		t.Errorf("Mappings = %d, want 1", stats.Mappings)
	}

	ms := db.GetStats()
	if ms.TotalConversions != 3 || ms.StoredMappings != 1 {
		t.Errorf("GetStats() = %+v", ms)
	}
}

func TestLastPurge(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.LastPurge(ctx); err != nil || ok {
		t.Fatalf("LastPurge() on empty db = %v, %v", ok, err)
	}

	when := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	if err := db.RecordPurge(ctx, PurgeRecord{At: when, Source: "cli", FreedBytes: 4096}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.LastPurge(ctx)
	if err != nil || !ok {
		t.Fatalf("LastPurge() = %v, %v", ok, err)
	}
	if !got.At.Equal(when.Truncate(time.Second)) || got.Source != "cli" || got.FreedBytes != 4096 {
		t.Errorf("LastPurge() = %+v", got)
	}
}

func TestLastPurgeCorrupt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.SetMetadata(ctx, lastPurgeKey, "2026-03-01T12:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := db.LastPurge(ctx); err == nil {
		t.Error("LastPurge() accepted a non-JSON value")
	}
}

func TestRecordPurgeDefaultsTime(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	if err := db.RecordPurge(ctx, PurgeRecord{Source: "shutdown"}); err != nil {
		t.Fatal(err)
	}
	got, _, err := db.LastPurge(ctx)
	if err != nil || got.At.Before(before) {
		t.Errorf("LastPurge() = %+v, %v", got, err)
	}
}
