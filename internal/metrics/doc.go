// Package metrics provides Prometheus instrumentation for VisionVault.
//
// All metrics are prefixed with "visionvault_" and registered on the default
// registry through promauto, so importing the package is enough to export
// them on the metrics listener.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Tag Store Metrics
//
// Reads and writes of directory stores and the root store:
//   - StoreOperationsTotal: by store ("directory"/"root"), operation and status
//   - StoreOperationDuration: by store and operation
//   - StoreCorruptLines: lines skipped while decoding
//   - StoreCacheHits / StoreCacheMisses: decoded directory-store cache
//   - HiddenAttributeErrors: hidden-flag failures by operation
//
// ## Sync Metrics
//
// Propagation of directory-store mutations into the root store:
//   - SyncPropagationsTotal: by operation and status
//   - SyncDivergences: propagations that failed after the directory write
//   - SyncPending: propagations queued for retry
//   - SyncLockWait: time spent waiting for directory and root locks
//
// ## Sweep Metrics
//
//   - SweepRunsTotal: by trigger and status
//   - SweepLastRunTimestamp / SweepLastRunDuration
//   - SweepDirectoriesProcessed, SweepRecordsCreated, SweepRecordsPruned, SweepErrors
//   - SweepIsRunning
//   - SweepPollChecksTotal / SweepPollChangesDetected
//
// ## Captioning and Library Metrics
//
//   - CaptionRequestsTotal, CaptionRequestDuration
//   - LibraryRecordsTotal, LibraryRecordsByFormat, LibraryDirectories (set by Collector)
//   - LibraryMutationsTotal, SearchQueriesTotal, SearchResultsReturned
//
// ## Scanner and Filesystem Metrics
//
//   - ScannerOperationsTotal, ScannerOperationDuration, ScannerItemsReturned
//   - ScannerWatcherEventsTotal, ScannerWatcherErrors, ScannerWatchedDirectories
//   - Filesystem* metrics recorded through the filesystem.Observer returned by
//     NewFilesystemObserver
//
// # Usage
//
//	metrics.InitializeMetrics()
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//	collector := metrics.NewCollector(lib, time.Minute)
//	collector.Start()
//	defer collector.Stop()
package metrics
