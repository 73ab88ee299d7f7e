/*
Package workers sizes worker pools in containerized environments.

runtime.NumCPU reports the host's CPUs, not the container's CPU limit.
GOMAXPROCS follows cgroup limits since Go 1.19, so the helpers here derive
pool sizes from it:

	// Directory reconciliation during a sweep: 2 workers per CPU, at most 16
	n := workers.ForIO(16)

	// Captioning pass: 1.5 workers per CPU, at most 4
	n := workers.ForMixed(4)

# Overrides

SetOverride, fed from the sweep_workers configuration key, fixes the count.
Without it the SWEEP_WORKERS environment variable is honoured:

	env:
	- name: SWEEP_WORKERS
	  value: "4"

Either way the per-call limit still caps the result.

All functions are safe for concurrent use.
*/
package workers
