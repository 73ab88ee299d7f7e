// Package indexer runs the reinitialization sweep that repairs the tag
// stores.
//
// A sweep walks every visible directory under the media root, gives files
// without a record (or still waiting for a caption) an untagged record,
// drops records for files that are gone, and finally replaces the root store
// with the union of every directory store. Directory stores are rewritten
// only when they change, so repeated sweeps over an unchanged tree leave
// every store byte-identical.
//
// Sweeps are started:
//   - on startup, when enabled
//   - periodically, on the configured sweep interval
//   - when polling notices the top of the tree changed
//   - when the fsnotify watcher reports a change, after a debounce
//   - on demand, via the API or the vvctl CLI
//
// Concurrent requests collapse into the sweep already running. Each poll
// also retries root store updates that failed earlier.
package indexer
