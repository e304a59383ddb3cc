package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"media-converter/internal/artifacts"
	"media-converter/internal/converter"
	"media-converter/internal/database"
	"media-converter/internal/handlers"
	"media-converter/internal/logging"
	"media-converter/internal/mapping"
	"media-converter/internal/memory"
	"media-converter/internal/metrics"
	"media-converter/internal/middleware"
	"media-converter/internal/naming"
	"media-converter/internal/pipeline"
	"media-converter/internal/startup"
	"media-converter/internal/transcoder"
	"media-converter/internal/transcription"
	"media-converter/internal/workers"
)

const translationCacheSize = 256

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ctx := context.Background()

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()

	registry := mapping.NewRegistry(newMappingStore(config.MappingStore, db))
	startup.LogDatabaseInit(time.Since(dbStart), config.MappingStore)

	storage, err := artifacts.NewStorage(config.UploadDir, config.WorkDir, config.OutputDir, naming.New())
	if err != nil {
		startup.LogFatal("Failed to initialize storage: %v", err)
	}

	// External tools
	startup.LogToolInit(config.FFmpegPath, config.WhisperPath, config.WhisperModel)
	runner := transcoder.NewExecRunner()
	ffmpeg := transcoder.New(config.FFmpegPath, config.ToolTimeout, runner)
	builder := pipeline.NewBuilder(workers.ToolThreads(config.FFmpegThreads))

	whisper := transcription.NewWhisper(config.WhisperPath, config.WhisperModel, config.ToolTimeout, runner)
	translator, err := transcription.NewHTTPTranslator(config.TranslateURL, config.TranslateTimeout, translationCacheSize)
	if err != nil {
		startup.LogFatal("Failed to initialize translator: %v", err)
	}

	conv := converter.New(storage, builder, ffmpeg, registry, db)
	trans := transcription.NewService(storage, builder, ffmpeg, whisper, translator,
		transcription.ParseLanguages(config.SupportedLanguages), registry)

	jobs := workers.NewLimiter(config.MaxConcurrentJobs)
	conv.LimitJobs(jobs)
	trans.LimitJobs(jobs)

	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	h := handlers.New(conv, trans, storage, registry, db, handlers.Options{
		MaxUploadSize:       config.MaxUploadSize,
		DeleteAfterDownload: config.DeleteAfterDownload,
		SessionScope:        config.MappingScope == startup.MappingScopeSession,
		UnderPressure:       memMonitor.UnderPressure,
	})

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	handler := buildHandler(router, config)

	var collector *metrics.Collector
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		collector = metrics.NewCollector(&statsAdapter{db: db, storage: storage, registry: registry}, time.Minute)
		collector.Start()

		metricsSrv = newMetricsServer(config.MetricsPort, h)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		// Uploads and tool runs can take minutes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		handleShutdown(shutdownDeps{
			srv:        srv,
			metricsSrv: metricsSrv,
			collector:  collector,
			runner:     runner,
			storage:    storage,
			registry:   registry,
			db:         db,
			purge:      config.PurgeOnShutdown,
		})
		memMonitor.Stop()
		close(done)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func newMappingStore(kind string, db *database.Database) mapping.Store {
	if kind == startup.MappingStoreMemory {
		return mapping.NewMemoryStore()
	}
	return mapping.NewSQLStore(db)
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Conversion
	r.HandleFunc("/audio/convert_audio", h.ConvertAudio).Methods("POST")
	r.HandleFunc("/image/convert_image", h.ConvertImage).Methods("POST")
	r.HandleFunc("/download/{id}", h.Download).Methods("GET", "HEAD")

	// Transcription
	tr := r.PathPrefix("/transcribe").Subrouter()
	tr.HandleFunc("/transcribe_audio", h.TranscribeAudio).Methods("POST")
	tr.HandleFunc("/transcribe_video", h.TranscribeVideo).Methods("POST")
	tr.HandleFunc("/save_transcription", h.SaveTranscription).Methods("POST")
	tr.HandleFunc("/translate_text", h.TranslateText).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	return r
}

// buildHandler wraps the router in CORS, metrics, logging and compression.
func buildHandler(router http.Handler, config *startup.Config) http.Handler {
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(config.CORSOrigins),
		gorillahandlers.AllowedMethods([]string{"GET", "HEAD", "POST", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", middleware.RequestIDHeader}),
		gorillahandlers.ExposedHeaders([]string{"Content-Disposition", middleware.RequestIDHeader}),
		gorillahandlers.AllowCredentials(),
	)

	handler := cors(router)

	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)

	return middleware.Compression(middleware.DefaultCompressionConfig())(handler)
}

func newMetricsServer(port string, h *handlers.Handlers) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", h.MetricsHandler())
	metricsMux.HandleFunc("/health", h.LivenessCheck)

	return &http.Server{
		Addr:         ":" + port,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

// statsAdapter merges the database history with live storage and mapping
// counts for the metrics collector.
type statsAdapter struct {
	db       statsSource
	storage  *artifacts.Storage
	registry *mapping.Registry
}

type statsSource interface {
	GetStats() metrics.Stats
}

// GetStats implements metrics.StatsProvider
func (a *statsAdapter) GetStats() metrics.Stats {
	stats := a.db.GetStats()
	if a.storage != nil {
		stats.StorageBytes = a.storage.Usage()
	}
	if a.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if n, err := a.registry.Count(ctx); err == nil {
			stats.StoredMappings = n
		} else {
			logging.Warn("failed to count stored mappings: %v", err)
		}
	}
	return stats
}

const (
	drainTimeout    = 30 * time.Second
	teardownTimeout = 30 * time.Second
)

// shutdownDeps is everything the shutdown sequence stops or tears down.
type shutdownDeps struct {
	srv        *http.Server
	metricsSrv *http.Server
	collector  *metrics.Collector
	runner     *transcoder.ExecRunner
	storage    *artifacts.Storage
	registry   *mapping.Registry
	db         *database.Database
	purge      bool
}

func handleShutdown(deps shutdownDeps) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	shutdown(deps, drainTimeout)
	startup.LogShutdownComplete()
}

// shutdown stops accepting requests, kills running tools so their handlers
// return, and purges only once every handler is done. Each phase gets its
// own deadline.
func shutdown(deps shutdownDeps, drain time.Duration) {
	startup.LogShutdownStep("Shutting down HTTP server")
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), drain)
	defer cancelDrain()

	drained := make(chan error, 1)
	go func() { drained <- deps.srv.Shutdown(drainCtx) }()

	startup.LogShutdownStep("Stopping external tools")
	deps.runner.Cleanup()
	startup.LogShutdownStepComplete("External tools stopped")

	handlersDone := true
	if err := <-drained; err != nil {
		handlersDone = false
		logging.Warn("Server shutdown error: %v", err)
		_ = deps.srv.Close()
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if deps.collector != nil {
		deps.collector.Stop()
	}
	if deps.metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := deps.metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
		cancel()
	}

	if !deps.purge {
		return
	}
	if !handlersDone {
		logging.Warn("Requests were still running, skipping purge; run 'purge' once the server is down")
		return
	}

	startup.LogShutdownStep("Purging storage area")
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	freed, err := deps.storage.Purge()
	if err != nil {
		logging.Warn("Purge left files behind: %v", err)
	}
	if err := deps.registry.Teardown(ctx); err != nil {
		logging.Warn("Failed to clear output mappings: %v", err)
	}
	if err := deps.db.RecordPurge(ctx, database.PurgeRecord{Source: "shutdown", FreedBytes: freed}); err != nil {
		logging.Warn("Failed to record purge: %v", err)
	}
	startup.LogShutdownStepComplete("Storage area purged")
}
