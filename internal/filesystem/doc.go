/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

Media trees are frequently NFS or SMB mounts. Store reads, directory listings
and file serving go through these wrappers so that a transient ESTALE does not
surface as a failed request or, worse, as an empty tag store during a sweep.

  - StatWithRetry, OpenWithRetry, ReadDirWithRetry, ReadFileWithRetry
  - Exponential backoff (default 3 retries, 50ms doubling to 500ms)
  - Non-ESTALE errors are returned immediately

Metrics are recorded through an Observer registered with SetObserver; the
metrics package provides the Prometheus implementation. Without an observer the
wrappers record nothing, which keeps tests free of global state.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
*/
package filesystem
