package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionvault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionvault_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Tag store metrics
var (
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_store_operations_total",
			Help: "Total number of tag store reads and writes",
		},
		[]string{"store", "operation", "status"}, // store: "directory" or "root"
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionvault_store_operation_duration_seconds",
			Help:    "Tag store read/write duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"store", "operation"},
	)

	StoreCorruptLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_store_corrupt_lines_total",
			Help: "Store lines skipped because they did not decode",
		},
		[]string{"store"},
	)

	StoreCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visionvault_store_cache_hits_total",
			Help: "Directory store reads served from the decoded-store cache",
		},
	)

	StoreCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visionvault_store_cache_misses_total",
			Help: "Directory store reads that had to decode the file",
		},
	)

	HiddenAttributeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_hidden_attribute_errors_total",
			Help: "Failures of the hidden-attribute capability by operation",
		},
		[]string{"operation"}, // "query", "hide", "unhide"
	)
)

// Sync metrics
var (
	SyncPropagationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_sync_propagations_total",
			Help: "Root store propagations by operation and status",
		},
		[]string{"operation", "status"}, // operation: "upsert", "remove", "replace", "retry"
	)

	SyncDivergences = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visionvault_sync_divergences_total",
			Help: "Propagations that failed after the directory store was written",
		},
	)

	SyncPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionvault_sync_pending",
			Help: "Root store propagations waiting to be retried",
		},
	)

	SyncLockWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionvault_sync_lock_wait_seconds",
			Help:    "Time spent waiting for store locks",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"lock"}, // "directory", "root"
	)
)

// Sweep metrics
var (
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_sweep_runs_total",
			Help: "Total number of reinitialization sweeps",
		},
		[]string{"trigger", "status"}, // trigger: "startup", "periodic", "poll", "watch", "manual"
	)

	SweepLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionvault_sweep_last_run_timestamp",
			Help: "Timestamp of the last completed sweep",
		},
	)

	SweepLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionvault_sweep_last_run_duration_seconds",
			Help: "Duration of the last sweep in seconds",
		},
	)

	SweepDirectoriesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visionvault_sweep_directories_processed_total",
			Help: "Total number of directories reconciled by sweeps",
		},
	)

	SweepRecordsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visionvault_sweep_records_created_total",
			Help: "Records created for newly observed files during sweeps",
		},
	)

	SweepRecordsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visionvault_sweep_records_pruned_total",
			Help: "Stale records dropped during sweeps",
		},
	)

	SweepErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visionvault_sweep_errors_total",
			Help: "Directories that failed to reconcile during sweeps",
		},
	)

	SweepIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionvault_sweep_running",
			Help: "Whether a sweep is currently running (1 = running, 0 = idle)",
		},
	)

	SweepPollChecksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visionvault_sweep_poll_checks_total",
			Help: "Total number of change-detection polls",
		},
	)

	SweepPollChangesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visionvault_sweep_poll_changes_detected_total",
			Help: "Polls that detected a change and triggered a sweep",
		},
	)
)

// Captioning metrics
var (
	CaptionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_caption_requests_total",
			Help: "Captioning requests by status",
		},
		[]string{"status"}, // "success", "error", "timeout", "skipped"
	)

	CaptionRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "visionvault_caption_request_duration_seconds",
			Help:    "Captioning request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

// Library metrics
var (
	LibraryRecordsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "visionvault_library_records",
			Help: "Records in the root store by tagging status",
		},
		[]string{"status"}, // "tagged", "untagged", "pending"
	)

	LibraryRecordsByFormat = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "visionvault_library_records_by_format",
			Help: "Records in the root store by format",
		},
		[]string{"format"},
	)

	LibraryDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionvault_library_directories",
			Help: "Directories holding at least one record",
		},
	)

	LibraryMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_library_mutations_total",
			Help: "File mutations by operation and status",
		},
		[]string{"operation", "status"}, // "update", "rename", "delete", "upload", "caption"
	)

	SearchQueriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visionvault_search_queries_total",
			Help: "Total number of search queries",
		},
	)

	SearchResultsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "visionvault_search_results_returned",
			Help:    "Number of matches returned per search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
)

// Scanner metrics
var (
	ScannerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_scanner_operations_total",
			Help: "Total number of scanner operations",
		},
		[]string{"operation", "status"},
	)

	ScannerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionvault_scanner_operation_duration_seconds",
			Help:    "Scanner operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	ScannerItemsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionvault_scanner_items_returned",
			Help:    "Number of items returned by scanner operations",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"operation"},
	)

	ScannerWatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_scanner_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	ScannerWatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visionvault_scanner_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	ScannerWatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionvault_scanner_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionvault_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_filesystem_operation_errors_total",
			Help: "Filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_filesystem_retry_attempts_total",
			Help: "Retries of filesystem operations after ESTALE",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionvault_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retried filesystem operations",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionvault_filesystem_stale_errors_total",
			Help: "ESTALE errors seen by filesystem operations",
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionvault_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionvault_memory_paused",
			Help: "Whether image processing is paused for memory (1 = paused, 0 = running)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visionvault_memory_gc_pauses_total",
			Help: "Times image processing was paused and a GC forced",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "visionvault_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
