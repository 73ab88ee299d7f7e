// Package startup loads configuration and writes the startup and shutdown
// log.
//
// # Configuration
//
// [Load] reads settings with viper from VISIONVAULT_* environment variables
// and an optional YAML or TOML file, then validates them with struct tags.
// Nested keys use underscores in the environment, so captioner.endpoint is
// VISIONVAULT_CAPTIONER_ENDPOINT. The unprefixed names of earlier releases
// still work for the common keys:
//
//   - MEDIA_DIR: root of the tagged tree (default: /media)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: enable the metrics server (default: true)
//   - INDEX_INTERVAL: full sweep interval as Go duration, 0 to disable (default: 30m)
//   - POLL_INTERVAL: change detection interval (default: 30s)
//   - SWEEP_WORKERS: directories reconciled in parallel (default: automatic)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: log raw file requests (default: false)
//   - LOG_HEALTH_CHECKS: log health check requests (default: true)
//
// Prefixed only: VISIONVAULT_SWEEP_ON_START, VISIONVAULT_WATCH,
// VISIONVAULT_UPLOAD_MAX_BYTES, VISIONVAULT_CAPTIONER_{ENDPOINT,API_KEY,
// MODEL,TIMEOUT,MAX_DIMENSION} and VISIONVAULT_STORE_{DIR_FILE,ROOT_FILE,
// CACHE_SIZE}.
//
// [LoadConfig] additionally creates the media directory if needed and
// requires it to be writable, because every directory keeps its tag store
// inside itself.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
