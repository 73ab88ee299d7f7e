// Package tagsync keeps the root store in step with the directory stores.
//
// A mutation is a two-step operation. The caller holds the directory lock
// from LockDir, commits the directory store, and then calls Propagate to
// mirror the affected records into the root store. A crash or I/O error
// between the two steps leaves the root store stale; Propagate queues the
// affected keys and RetryPending later re-reads each one from its directory
// store, so a retry can never resurrect an older value. A full sweep calls
// BeginSweep and Replace, which supersede the queue.
//
// Root store updates take an in-process mutex and an flock on
// "<root store>.lock", so the server and the vvctl tool never interleave
// their read-modify-write cycles.
package tagsync
