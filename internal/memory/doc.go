// Package memory derives the Go runtime memory limit from the container
// memory limit.
//
// In Kubernetes the pod limit can be exposed through the Downward API:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// ConfigureFromEnv then sets GOMEMLIMIT to MEMORY_RATIO (default 0.7) of that
// value, so the garbage collector works harder before the container is
// OOM-killed. The remainder is headroom for ffmpeg child processes, whose
// memory counts against the same limit. An explicit GOMEMLIMIT always wins.
package memory
