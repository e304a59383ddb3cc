package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"media-converter/internal/artifacts"
	"media-converter/internal/converter"
	"media-converter/internal/database"
	"media-converter/internal/handlers"
	"media-converter/internal/mapping"
	"media-converter/internal/metrics"
	"media-converter/internal/naming"
	"media-converter/internal/pipeline"
	"media-converter/internal/startup"
	"media-converter/internal/transcoder"
	"media-converter/internal/transcription"
)

type mockStatsDatabase struct {
	stats metrics.Stats
}

func (m *mockStatsDatabase) GetStats() metrics.Stats {
	return m.stats
}

type noopExecutor struct{}

func (noopExecutor) Run(context.Context, pipeline.Pipeline) error { return nil }

type noopTranscriber struct{}

func (noopTranscriber) Transcribe(context.Context, string, string, string) (string, error) {
	return "", nil
}

type noopTranslator struct{}

func (noopTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

func newTestStorage(t *testing.T) *artifacts.Storage {
	t.Helper()
	root := t.TempDir()
	storage, err := artifacts.NewStorage(
		filepath.Join(root, "uploads"),
		filepath.Join(root, "work"),
		filepath.Join(root, "outputs"),
		naming.New(),
	)
	if err != nil {
		t.Fatal(err)
	}
	return storage
}

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	storage := newTestStorage(t)
	registry := mapping.NewRegistry(mapping.NewMemoryStore())
	builder := pipeline.NewBuilder(1)
	conv := converter.New(storage, builder, noopExecutor{}, registry, nil)
	trans := transcription.NewService(storage, builder, noopExecutor{}, noopTranscriber{}, noopTranslator{},
		transcription.ParseLanguages(transcription.DefaultLanguages), registry)
	return setupRouter(handlers.New(conv, trans, storage, registry, nil, handlers.Options{}))
}

func TestStatsAdapter(t *testing.T) {
	storage := newTestStorage(t)
	registry := mapping.NewRegistry(mapping.NewMemoryStore())
	if err := registry.Record(context.Background(), mapping.ProcessScope, mapping.Entry{
		OutputID:     "abc.wav",
		OriginalName: "song.wav",
		Path:         "/tmp/abc.wav",
		Kind:         "audio",
	}); err != nil {
		t.Fatal(err)
	}

	adapter := &statsAdapter{
		db: &mockStatsDatabase{stats: metrics.Stats{
			TotalConversions:  7,
			FailedConversions: 2,
			ByKind:            map[string]int{"audio": 5, "image": 2},
		}},
		storage:  storage,
		registry: registry,
	}

	var _ metrics.StatsProvider = adapter

	stats := adapter.GetStats()
	if stats.TotalConversions != 7 || stats.FailedConversions != 2 {
		t.Errorf("conversion counts = %d/%d, want 7/2", stats.TotalConversions, stats.FailedConversions)
	}
	if stats.StoredMappings != 1 {
		t.Errorf("StoredMappings = %d, want 1", stats.StoredMappings)
	}
	if len(stats.StorageBytes) != 3 {
		t.Errorf("StorageBytes = %v, want 3 directories", stats.StorageBytes)
	}
}

func TestSetupRouter(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/healthz"},
		{"GET", "/livez"},
		{"HEAD", "/livez"},
		{"GET", "/readyz"},
		{"GET", "/version"},
		{"POST", "/audio/convert_audio"},
		{"POST", "/image/convert_image"},
		{"GET", "/download/abc.wav"},
		{"HEAD", "/download/abc.wav"},
		{"POST", "/transcribe/transcribe_audio"},
		{"POST", "/transcribe/transcribe_video"},
		{"POST", "/transcribe/save_transcription"},
		{"POST", "/transcribe/translate_text"},
		{"GET", "/api/stats"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			var match mux.RouteMatch
			if !router.Match(req, &match) || match.MatchErr != nil {
				t.Errorf("no route for %s %s", tt.method, tt.path)
			}
		})
	}
}

func TestRouterRejectsWrongMethod(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audio/convert_audio", http.NoBody))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /audio/convert_audio = %d, want 405", rr.Code)
	}
}

func TestBuildHandlerCORS(t *testing.T) {
	router := newTestRouter(t)
	handler := buildHandler(router, &startup.Config{
		CORSOrigins: []string{"http://localhost:3000"},
	})

	tests := []struct {
		name       string
		origin     string
		wantHeader string
	}{
		{"allowed origin", "http://localhost:3000", "http://localhost:3000"},
		{"other origin", "http://evil.example", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/version", http.NoBody)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantHeader)
			}
		})
	}
}

func TestNewMappingStore(t *testing.T) {
	if _, ok := newMappingStore(startup.MappingStoreMemory, nil).(*mapping.MemoryStore); !ok {
		t.Error("memory store not selected")
	}
	if _, ok := newMappingStore(startup.MappingStoreSQLite, nil).(*mapping.SQLStore); !ok {
		t.Error("sqlite store not selected")
	}
}

func TestMetricsServer(t *testing.T) {
	storage := newTestStorage(t)
	registry := mapping.NewRegistry(mapping.NewMemoryStore())
	h := handlers.New(nil, nil, storage, registry, nil, handlers.Options{})

	srv := newMetricsServer("0", h)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Errorf("/metrics = %d", rr.Code)
	}
}

func TestShutdownKillsToolsThenPurges(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	ctx := context.Background()
	storage := newTestStorage(t)
	db, err := database.New(ctx, filepath.Join(t.TempDir(), "converter.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	registry := mapping.NewRegistry(mapping.NewSQLStore(db))
	if err := registry.Record(ctx, mapping.ProcessScope, mapping.Entry{
		OutputID:     naming.New().WithExt("wav"),
		OriginalName: "song.wav",
	}); err != nil {
		t.Fatal(err)
	}

	runner := transcoder.NewExecRunner()
	started := make(chan struct{})
	handlerDone := make(chan error, 1)
	serveMux := http.NewServeMux()
	serveMux.HandleFunc("/convert", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		handlerDone <- runner.Run(r.Context(), sh, []string{"-c", "exec sleep 60"}, io.Discard)
		w.WriteHeader(http.StatusInternalServerError)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &http.Server{Handler: serveMux}
	go func() { _ = srv.Serve(ln) }()

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/convert")
		if err == nil {
			resp.Body.Close()
		}
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the handler")
	}
	deadline := time.Now().Add(2 * time.Second)
	for runner.Active() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	begin := time.Now()
	shutdown(shutdownDeps{
		srv:      srv,
		runner:   runner,
		storage:  storage,
		registry: registry,
		db:       db,
		purge:    true,
	}, 10*time.Second)

	if elapsed := time.Since(begin); elapsed > 8*time.Second {
		t.Errorf("shutdown took %v, tools were not killed during the drain", elapsed)
	}
	select {
	case err := <-handlerDone:
		if err == nil {
			t.Error("tool run survived shutdown")
		}
	default:
		t.Error("handler still running after shutdown returned")
	}

	if n, err := registry.Count(ctx); err != nil || n != 0 {
		t.Errorf("Count() after shutdown = %d, %v; want 0", n, err)
	}
	if rec, ok, err := db.LastPurge(ctx); err != nil || !ok || rec.Source != "shutdown" {
		t.Errorf("LastPurge() = %+v, %v, %v", rec, ok, err)
	}
}

func TestShutdownWithoutPurgeKeepsMappings(t *testing.T) {
	ctx := context.Background()
	registry := mapping.NewRegistry(mapping.NewMemoryStore())
	if err := registry.Record(ctx, mapping.ProcessScope, mapping.Entry{
		OutputID:     naming.New().WithExt("png"),
		OriginalName: "a.png",
	}); err != nil {
		t.Fatal(err)
	}

	shutdown(shutdownDeps{
		srv:      &http.Server{},
		runner:   transcoder.NewExecRunner(),
		storage:  newTestStorage(t),
		registry: registry,
	}, time.Second)

	if n, _ := registry.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}
