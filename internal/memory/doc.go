// Package memory sizes the Go heap for containers and applies backpressure
// to image processing.
//
// Call [ConfigureFromEnv] early in main. It derives GOMEMLIMIT from the
// container limit passed in MEMORY_LIMIT (typically via the Kubernetes
// Downward API), scaled by MEMORY_RATIO or [DefaultMemoryRatio]. An explicit
// GOMEMLIMIT always wins.
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// A [Monitor] samples heap usage. Once usage reaches the critical mark it
// forces a GC and [Monitor.Wait] blocks captioning workers, which decode and
// downscale full-size images, until usage drops below the high water mark.
package memory
