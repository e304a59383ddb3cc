package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"media-converter/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats is a point-in-time view of history and storage.
type Stats struct {
	TotalConversions  int              `json:"totalConversions"`
	FailedConversions int              `json:"failedConversions"`
	ByKind            map[string]int   `json:"byKind"`
	StoredMappings    int              `json:"storedMappings"`
	StorageBytes      map[string]int64 `json:"storageBytes"`
}

// Collector copies slowly changing stats, such as history counts and disk
// usage, into gauges on a fixed interval. Request-path metrics are updated
// inline and do not go through it.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	started       atomic.Bool
	done          chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins the collection loop.
func (c *Collector) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.collectLoop()
}

// Stop ends the loop and waits for an in-flight collection. Calling it
// more than once, or before Start, is safe.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	if c.started.Load() {
		<-c.done
	}
}

func (c *Collector) collectLoop() {
	defer close(c.done)

	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	start := time.Now()
	stats := c.statsProvider.GetStats()

	for _, kind := range Kinds {
		ConversionHistory.WithLabelValues(kind).Set(float64(stats.ByKind[kind]))
	}
	ConversionHistoryFailed.Set(float64(stats.FailedConversions))
	MappingsStored.Set(float64(stats.StoredMappings))
	for dir, size := range stats.StorageBytes {
		StorageBytes.WithLabelValues(dir).Set(float64(size))
	}
	StatsCollectedTimestamp.SetToCurrentTime()

	logging.Debug("Stats collected in %v: conversions=%d, failed=%d, mappings=%d",
		time.Since(start), stats.TotalConversions, stats.FailedConversions, stats.StoredMappings)
}
