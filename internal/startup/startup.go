package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"media-converter/internal/logging"
	"media-converter/internal/transcoder"
	"media-converter/internal/transcription"
	"media-converter/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Mapping store and scope choices.
const (
	MappingStoreSQLite = "sqlite"
	MappingStoreMemory = "memory"

	MappingScopeProcess = "process"
	MappingScopeSession = "session"
)

const defaultMaxUploadSize = 512 << 20

// Config holds all application configuration
type Config struct {
	Port           string
	MetricsPort    string
	MetricsEnabled bool

	DataDir      string
	UploadDir    string
	WorkDir      string
	OutputDir    string
	DatabaseDir  string
	DatabasePath string

	FFmpegPath        string
	FFmpegThreads     int
	ToolTimeout       time.Duration
	MaxUploadSize     int64
	MaxConcurrentJobs int

	MappingStore        string
	MappingScope        string
	DeleteAfterDownload bool
	PurgeOnShutdown     bool
	CORSOrigins         []string

	WhisperPath        string
	WhisperModel       string
	TranslateURL       string
	TranslateTimeout   time.Duration
	SupportedLanguages string

	LogHealthChecks bool
}

// LoadEnvFile seeds the environment from the file named by ENV_FILE
// (default .env). Variables already set win. A missing file is not an
// error.
func LoadEnvFile() (string, error) {
	path := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("cannot read env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return path, nil
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	envFile, envErr := LoadEnvFile()

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if envErr != nil {
		logging.Warn("  %v", envErr)
	} else if envFile != "" {
		logging.Info("  Loaded environment from %s", envFile)
	}

	config := ReadConfig()

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if _, ok := logging.ParseLevel(raw); !ok {
			logging.Warn("  Invalid LOG_LEVEL %q, using %s", raw, logging.GetLevel())
		}
	}

	logging.Info("  PORT:                  %s", config.Port)
	logging.Info("  METRICS_PORT:          %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:       %v", config.MetricsEnabled)
	logging.Info("  DATA_DIR:              %s", config.DataDir)
	logging.Info("  FFMPEG_PATH:           %s", config.FFmpegPath)
	logging.Info("  FFMPEG_THREADS:        %d", config.FFmpegThreads)
	logging.Info("  TOOL_TIMEOUT:          %s", config.ToolTimeout)
	logging.Info("  MAX_UPLOAD_SIZE:       %s", formatBytes(config.MaxUploadSize))
	logging.Info("  MAX_CONCURRENT_JOBS:   %d", config.MaxConcurrentJobs)
	logging.Info("  MAPPING_STORE:         %s", config.MappingStore)
	logging.Info("  MAPPING_SCOPE:         %s", config.MappingScope)
	logging.Info("  DELETE_AFTER_DOWNLOAD: %v", config.DeleteAfterDownload)
	logging.Info("  PURGE_ON_SHUTDOWN:     %v", config.PurgeOnShutdown)
	logging.Info("  CORS_ORIGINS:          %s", strings.Join(config.CORSOrigins, ", "))
	logging.Info("  WHISPER_PATH:          %s", config.WhisperPath)
	logging.Info("  WHISPER_MODEL:         %s", config.WhisperModel)
	logging.Info("  TRANSLATE_URL:         %s", config.TranslateURL)
	logging.Info("  SUPPORTED_LANGUAGES:   %s", config.SupportedLanguages)
	logging.Info("  LOG_HEALTH_CHECKS:     %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:             %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dirs := []struct {
		name string
		path *string
	}{
		{"uploads", &config.UploadDir},
		{"work", &config.WorkDir},
		{"outputs", &config.OutputDir},
		{"database", &config.DatabaseDir},
	}
	for _, dir := range dirs {
		abs, err := filepath.Abs(*dir.path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s directory path: %w", dir.name, err)
		}
		*dir.path = abs
		logging.Info("  %-9s %s", dir.name+":", abs)

		if err := ensureDirectory(abs, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(abs); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
	}
	config.DatabasePath = filepath.Join(config.DatabaseDir, "converter.db")
	logging.Info("  [OK] Storage directories are writable")

	return config, nil
}

// ReadConfig reads the environment without touching the filesystem. Paths
// are returned as configured; LoadConfig resolves and creates them.
func ReadConfig() *Config {
	dataDir := getEnv("DATA_DIR", "./data")

	config := &Config{
		Port:           getEnv("PORT", "5000"),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		DataDir:     dataDir,
		UploadDir:   getEnv("UPLOAD_DIR", filepath.Join(dataDir, "uploads")),
		WorkDir:     getEnv("WORK_DIR", filepath.Join(dataDir, "work")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(dataDir, "outputs")),
		DatabaseDir: getEnv("DATABASE_DIR", filepath.Join(dataDir, "database")),

		FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),
		FFmpegThreads:     workers.ToolThreads(getEnvInt("FFMPEG_THREADS", 4)),
		ToolTimeout:       getEnvDuration("TOOL_TIMEOUT", 10*time.Minute),
		MaxUploadSize:     getEnvInt64("MAX_UPLOAD_SIZE", defaultMaxUploadSize),
		MaxConcurrentJobs: workers.JobSlots(getEnvInt("MAX_CONCURRENT_JOBS", 0)),

		MappingStore:        getEnvChoice("MAPPING_STORE", MappingStoreSQLite, MappingStoreSQLite, MappingStoreMemory),
		MappingScope:        getEnvChoice("MAPPING_SCOPE", MappingScopeProcess, MappingScopeProcess, MappingScopeSession),
		DeleteAfterDownload: getEnvBool("DELETE_AFTER_DOWNLOAD", false),
		PurgeOnShutdown:     getEnvBool("PURGE_ON_SHUTDOWN", true),
		CORSOrigins:         splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		WhisperPath:        getEnv("WHISPER_PATH", "whisper-cli"),
		WhisperModel:       getEnv("WHISPER_MODEL", "models/ggml-base.bin"),
		TranslateURL:       getEnv("TRANSLATE_URL", "http://localhost:5001"),
		TranslateTimeout:   getEnvDuration("TRANSLATE_TIMEOUT", 60*time.Second),
		SupportedLanguages: getEnv("SUPPORTED_LANGUAGES", transcription.DefaultLanguages),

		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),
	}
	config.DatabasePath = filepath.Join(config.DatabaseDir, "converter.db")
	return config
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration, store string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
	logging.Info("  Output mappings stored in: %s", store)
}

// LogToolInit checks that the external tools can be started. Missing tools
// are reported but do not stop the server: requests that need them fail
// with a tool error instead.
func LogToolInit(ffmpegPath, whisperPath, whisperModel string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TOOL INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if version, err := transcoder.CheckBinary(ctx, ffmpegPath); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Conversions will fail until %s is available", ffmpegPath)
	} else {
		logging.Info("  [OK] FFmpeg is available")
		logging.Debug("  FFmpeg version: %s", version)
	}

	if path, err := exec.LookPath(whisperPath); err != nil {
		logging.Warn("  %s not found in PATH, transcription is unavailable", whisperPath)
	} else {
		logging.Info("  [OK] Speech recognizer found at %s", path)
	}
	if _, err := os.Stat(whisperModel); err != nil {
		logging.Warn("  Speech model %s is not readable: %v", whisperModel, err)
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
   __  ___       ___        _____                          __
  /  |/  /__ ___/ (_)__ _  / ___/__  ___ _  _____ ____/ /____ ____
 / /|_/ / -_) _  / / _ '/ / /__/ _ \/ _ \ |/ / -_) __/ __/ -_) __/
/_/  /_/\__/\_,_/_/\_,_/  \___/\___/_//_/___/\__/_/  \__/\__/_/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed < 1 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvChoice(key, defaultValue string, choices ...string) string {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	for _, choice := range choices {
		if value == choice {
			return value
		}
	}
	logging.Warn("Invalid value for %s: %q (want one of %s), using default: %s",
		key, value, strings.Join(choices, ", "), defaultValue)
	return defaultValue
}
