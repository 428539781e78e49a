package bench

import (
	"os"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

// MemoryDelta reports the change in process memory usage across one
// cell's timed phase, in bytes. Deltas may be negative: the collector
// can release pages mid-run, and values are reported as observed.
type MemoryDelta struct {
	RSS  int64
	VMS  int64
	Data int64
}

// memorySample is one snapshot of the process's memory counters.
type memorySample struct {
	rss, vms, data uint64
}

// memoryProc probes the memory-sampling capability exactly once per
// process. If the platform does not expose per-process memory counters,
// the capability is treated as permanently off for the whole run.
//
//nolint:gochecknoglobals
var memoryProc = sync.OnceValues(func() (*process.Process, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	if _, err := proc.MemoryInfo(); err != nil {
		return nil, err
	}

	return proc, nil
})

// memoryAvailable reports whether process memory sampling is supported.
func memoryAvailable() bool {
	_, err := memoryProc()

	return err == nil
}

// sampleMemory returns the current memory counters of this process.
func sampleMemory() (memorySample, bool) {
	proc, err := memoryProc()
	if err != nil {
		return memorySample{}, false
	}

	info, err := proc.MemoryInfo()
	if err != nil {
		return memorySample{}, false
	}

	return memorySample{
		rss:  info.RSS,
		vms:  info.VMS,
		data: info.Data,
	}, true
}

// delta returns the byte difference from before to s.
func (s memorySample) delta(before memorySample) *MemoryDelta {
	return &MemoryDelta{
		RSS:  int64(s.rss) - int64(before.rss),
		VMS:  int64(s.vms) - int64(before.vms),
		Data: int64(s.data) - int64(before.data),
	}
}
