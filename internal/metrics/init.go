package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Filesystem operation metrics (per volume × operation) ---
	volumes := []string{"media", "unknown"}
	fsOps := []string{"read", "write", "stat", "readdir"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
	}

	// --- Filesystem retry metrics (per retry-operation × volume) ---
	retryOps := []string{"stat", "open", "readdir", "read"}

	for _, op := range retryOps {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	// --- Store operations ---
	for _, store := range []string{"directory", "root"} {
		for _, op := range []string{"read", "write", "delete"} {
			StoreOperationsTotal.WithLabelValues(store, op, "success")
			StoreOperationsTotal.WithLabelValues(store, op, "error")
			StoreOperationDuration.WithLabelValues(store, op)
		}
		StoreCorruptLines.WithLabelValues(store)
	}

	for _, op := range []string{"query", "hide", "unhide"} {
		HiddenAttributeErrors.WithLabelValues(op)
	}

	// --- Sync ---
	for _, op := range []string{"upsert", "remove", "replace", "retry"} {
		SyncPropagationsTotal.WithLabelValues(op, "success")
		SyncPropagationsTotal.WithLabelValues(op, "error")
	}
	for _, lock := range []string{"directory", "root"} {
		SyncLockWait.WithLabelValues(lock)
	}

	// --- Sweeps ---
	for _, trigger := range []string{"startup", "periodic", "poll", "watch", "manual"} {
		SweepRunsTotal.WithLabelValues(trigger, "success")
		SweepRunsTotal.WithLabelValues(trigger, "error")
	}

	// --- Captioning ---
	for _, status := range []string{"success", "error", "timeout", "skipped"} {
		CaptionRequestsTotal.WithLabelValues(status)
	}

	// --- Library ---
	for _, status := range []string{"tagged", "untagged", "pending"} {
		LibraryRecordsTotal.WithLabelValues(status)
	}
	for _, op := range []string{"update", "rename", "delete", "upload", "caption"} {
		LibraryMutationsTotal.WithLabelValues(op, "success")
		LibraryMutationsTotal.WithLabelValues(op, "error")
	}
}
