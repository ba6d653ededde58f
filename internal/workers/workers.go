package workers

import (
	"runtime"

	"github.com/dustin/go-humanize"

	"tubegate/internal/logging"
)

// JobMemory is the memory set aside for one copy-mode ffmpeg process.
const JobMemory int64 = 96 << 20

// RemuxSlots returns the default cap on concurrent remux jobs for a process
// with headroom bytes available outside the Go heap. A headroom of 0 means
// the container limit is unknown and only CPUs count.
func RemuxSlots(headroom int64) int {
	return slots(runtime.GOMAXPROCS(0), headroom)
}

func slots(cpus int, headroom int64) int {
	n := max(cpus, 1)
	if headroom <= 0 {
		return n
	}

	byMemory := max(int(headroom/JobMemory), 1)
	if byMemory < n {
		logging.Debug("Remux slots lowered from %d to %d by %s of memory headroom",
			n, byMemory, humanize.IBytes(uint64(headroom)))
		return byMemory
	}
	return n
}
