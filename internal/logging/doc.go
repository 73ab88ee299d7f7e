// Package logging provides a simple leveled logging interface for
// VisionVault.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (corrupt store lines, lock waits)
//   - INFO: General operational messages (sweep summaries, startup)
//   - WARN: Warning conditions (hidden-flag failures, sync divergence)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The level comes from the LOG_LEVEL environment variable (or DEBUG=true)
// and can be overridden by configuration through SetLevel.
package logging
