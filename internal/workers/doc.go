/*
Package workers sizes the remux job pool for the container it runs in.

runtime.NumCPU reports the host's CPUs, while GOMAXPROCS follows the
container's cgroup CPU limit, so the CPU share is taken from GOMAXPROCS. Each
remux job is one ffmpeg process running outside the Go heap; when the
container memory limit is known, the jobs must also fit in the memory the Go
heap leaves over (see memory.ConfigResult.Headroom).

	slots := workers.RemuxSlots(memResult.Headroom())

MAX_REMUX_JOBS overrides the computed value.
*/
package workers
