package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// Config holds the watermarks of a Monitor.
type Config struct {
	// LimitBytes overrides GOMEMLIMIT. 0 uses GOMEMLIMIT if set.
	LimitBytes int64
	// HighWaterMark is the usage ratio below which pressure is released.
	HighWaterMark float64
	// CriticalWaterMark is the usage ratio at which pressure is signalled.
	CriticalWaterMark float64
	CheckInterval     time.Duration
}

// DefaultConfig returns the watermarks used by the server.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.9,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage against the memory limit. While usage stays
// above the critical watermark the service reports itself not ready, so
// load balancers stop sending uploads until it drops below the high
// watermark again.
type Monitor struct {
	config   Config
	limit    int64
	stopOnce sync.Once
	stopChan chan struct{}

	mu       sync.RWMutex
	current  uint64
	pressure bool

	readAlloc func() uint64
}

// NewMonitor creates a monitor. Without any limit it never signals
// pressure.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
		}
	}
	if limit == 0 {
		logging.Info("Memory monitor: no memory limit configured, pressure signalling disabled")
	}

	return &Monitor{
		config:   config,
		limit:    limit,
		stopChan: make(chan struct{}),
		readAlloc: func() uint64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return stats.Alloc
		},
	}
}

// Start begins sampling in the background.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.loop()
}

// Stop ends sampling. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) check() {
	alloc := m.readAlloc()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc

	switch {
	case !m.pressure && usage >= m.config.CriticalWaterMark:
		m.pressure = true
		metrics.MemoryPressure.Set(1)
		logging.Warn("Memory critical (%.1f%% of limit), reporting not ready", usage*100)
		go runtime.GC()
	case m.pressure && usage < m.config.HighWaterMark:
		m.pressure = false
		metrics.MemoryPressure.Set(0)
		logging.Info("Memory recovered (%.1f%% of limit), accepting work again", usage*100)
	}
}

// UnderPressure reports whether heap usage crossed the critical watermark
// and has not yet fallen below the high watermark.
func (m *Monitor) UnderPressure() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pressure
}

// Usage returns the last sampled usage ratio, 0 without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
