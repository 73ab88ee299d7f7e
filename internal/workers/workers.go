package workers

import (
	"os"
	"runtime"
	"strconv"
	"sync/atomic"
)

// EnvOverride names the environment variable that fixes the worker count.
const EnvOverride = "SWEEP_WORKERS"

var override atomic.Int64

// SetOverride fixes the worker count returned by Count, taking precedence
// over SWEEP_WORKERS. Zero restores the automatic calculation.
func SetOverride(n int) {
	if n < 0 {
		n = 0
	}
	override.Store(int64(n))
}

func fixedCount() int {
	if n := override.Load(); n > 0 {
		return int(n)
	}
	if env := os.Getenv(EnvOverride); env != "" {
		if count, err := strconv.Atoi(env); err == nil && count > 0 {
			return count
		}
	}
	return 0
}

// Count returns the number of workers for a task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// The limit parameter caps the worker count. Use 0 for no limit.
func Count(multiplier float64, limit int) int {
	if count := fixedCount(); count > 0 {
		if limit > 0 && count > limit {
			return limit
		}
		return count
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU), such as the
// per-directory reconciliation of a sweep.
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU), such as
// downscaling images and waiting on the captioning service.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}
