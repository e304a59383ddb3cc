package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"media-converter/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. FFmpeg and whisper run as child processes inside the same limit,
// so most of it is left to them.
const DefaultMemoryRatio = 0.5

// ConfigResult describes how GOMEMLIMIT was configured.
type ConfigResult struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT" or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets GOMEMLIMIT from MEMORY_LIMIT (bytes, usually the
// Kubernetes Downward API) scaled by MEMORY_RATIO. An explicit GOMEMLIMIT
// always wins. Call it before significant allocations.
func ConfigureFromEnv() ConfigResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		result := ConfigResult{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return ConfigResult{Source: "none"}
	}

	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		logging.Warn("Ignoring invalid MEMORY_LIMIT %q", raw)
		return ConfigResult{Source: "none"}
	}

	ratio := DefaultMemoryRatio
	if rawRatio := os.Getenv("MEMORY_RATIO"); rawRatio != "" {
		parsed, err := strconv.ParseFloat(rawRatio, 64)
		switch {
		case err != nil:
			logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", rawRatio, err, DefaultMemoryRatio)
		case parsed <= 0 || parsed > 1:
			logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", rawRatio, DefaultMemoryRatio)
		default:
			ratio = parsed
		}
	}

	goMemLimit := int64(float64(limit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		formatBytes(goMemLimit), ratio*100, formatBytes(limit))

	return ConfigResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: limit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
