package metrics

import (
	"time"

	"visionvault/internal/logging"
)

// StatsProvider supplies library statistics to the collector.
type StatsProvider interface {
	LibraryStats() (Stats, error)
}

// Stats summarizes the root store.
type Stats struct {
	TotalRecords int            `json:"totalRecords"`
	Tagged       int            `json:"tagged"`
	Untagged     int            `json:"untagged"`
	Pending      int            `json:"pending"`
	Directories  int            `json:"directories"`
	ByFormat     map[string]int `json:"byFormat"`
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	formats       map[string]bool
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		formats:       make(map[string]bool),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
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

	stats, err := c.statsProvider.LibraryStats()
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	LibraryRecordsTotal.WithLabelValues("tagged").Set(float64(stats.Tagged))
	LibraryRecordsTotal.WithLabelValues("untagged").Set(float64(stats.Untagged))
	LibraryRecordsTotal.WithLabelValues("pending").Set(float64(stats.Pending))
	LibraryDirectories.Set(float64(stats.Directories))

	// Formats that disappeared since the last run are reset to zero rather
	// than left at a stale value.
	for format := range c.formats {
		if _, ok := stats.ByFormat[format]; !ok {
			LibraryRecordsByFormat.WithLabelValues(format).Set(0)
		}
	}
	for format, n := range stats.ByFormat {
		LibraryRecordsByFormat.WithLabelValues(format).Set(float64(n))
		c.formats[format] = true
	}

	logging.Debug("Metrics collected: records=%d, tagged=%d, untagged=%d, directories=%d",
		stats.TotalRecords, stats.Tagged, stats.Untagged, stats.Directories)
}
