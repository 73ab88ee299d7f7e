// Package media lists the media tree for the browser.
//
// Scanner.ListChildren returns the visible children of one directory,
// folders first and then files, each group ordered by name ignoring case.
// Every file is joined with its record from the directory store; the scanner
// never writes to a store. Scanner.BuildTree returns the folder hierarchy
// used for navigation and records unreadable folders on their tree node
// instead of failing the walk.
//
// Watcher wraps fsnotify and reports, debounced, when files are created,
// removed or renamed anywhere under the root so the indexer can run a sweep.
package media
