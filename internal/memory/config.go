package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"github.com/dustin/go-humanize"

	"tubegate/internal/logging"
)

const (
	// DefaultMemoryRatio is the share of the container limit given to the Go
	// heap. The rest is left for ffmpeg processes, which run in the same
	// container, and for image decoding in the thumbnail proxy.
	DefaultMemoryRatio = 0.7

	sourceGOMEMLIMIT  = "GOMEMLIMIT"
	sourceMemoryLimit = "MEMORY_LIMIT"
	sourceNone        = "none"
)

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether a Go memory limit is in effect
	Configured bool

	// Source indicates where the configuration came from
	Source string // "GOMEMLIMIT", "MEMORY_LIMIT", or "none"

	// ContainerLimit is the container memory limit in bytes (0 if not set)
	ContainerLimit int64

	// GoMemLimit is the configured GOMEMLIMIT in bytes (0 if not set)
	GoMemLimit int64

	// Ratio is the memory ratio used (0 if not applicable)
	Ratio float64
}

// Headroom is the container memory left outside the Go heap, or 0 when the
// container limit is unknown.
func (r ConfigResult) Headroom() int64 {
	if r.ContainerLimit <= 0 || r.GoMemLimit >= r.ContainerLimit {
		return 0
	}
	return r.ContainerLimit - r.GoMemLimit
}

// ConfigureFromEnv sets the Go memory limit from the container limit.
// Call this early in main() before significant allocations.
//
// Environment variables:
//   - GOMEMLIMIT: If set, this takes precedence (standard Go env var)
//   - MEMORY_LIMIT: Container memory limit in bytes (Kubernetes Downward API)
//   - MEMORY_RATIO: Share of MEMORY_LIMIT for the Go heap (default: 0.7)
func ConfigureFromEnv() ConfigResult {
	return configure(os.Getenv)
}

func configure(getenv func(string) string) ConfigResult {
	result := ConfigResult{Source: sourceNone}

	if goMemLimitEnv := getenv("GOMEMLIMIT"); goMemLimitEnv != "" {
		// The runtime already parsed it at startup; report what it chose.
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.Source = sourceGOMEMLIMIT
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", goMemLimitEnv)
		return result
	}

	memLimitStr := getenv("MEMORY_LIMIT")
	if memLimitStr == "" {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return result
	}

	memLimit, err := strconv.ParseInt(memLimitStr, 10, 64)
	if err != nil || memLimit <= 0 {
		logging.Warn("Failed to parse MEMORY_LIMIT %q, GOMEMLIMIT not configured", memLimitStr)
		return result
	}

	result.ContainerLimit = memLimit
	result.Ratio = parseRatio(getenv("MEMORY_RATIO"))

	goMemLimit := int64(float64(memLimit) * result.Ratio)
	debug.SetMemoryLimit(goMemLimit)

	result.Configured = true
	result.Source = sourceMemoryLimit
	result.GoMemLimit = goMemLimit

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		humanize.IBytes(uint64(goMemLimit)),
		result.Ratio*100,
		humanize.IBytes(uint64(memLimit)),
	)

	return result
}

func parseRatio(s string) float64 {
	if s == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil {
		logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", s, err, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	if ratio <= 0 || ratio > 1.0 {
		logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", s, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}
