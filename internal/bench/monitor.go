package bench

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/ajitpratap0/objectpool/pkg/errors"
)

// ResourceMonitor samples resource usage of the current process.
type ResourceMonitor struct {
	process      *process.Process
	startCPUTime float64
	startTime    time.Time
	mu           sync.RWMutex
}

// ResourceUsage contains resource usage information
type ResourceUsage struct {
	CPUPercent     float64 `json:"cpu_percent"`
	MemoryRSS      uint64  `json:"memory_rss"`
	MemoryVMS      uint64  `json:"memory_vms"`
	GoroutineCount int     `json:"goroutines"`
	ThreadCount    int32   `json:"threads"`
	HeapAlloc      uint64  `json:"heap_alloc"`
	NumGC          uint32  `json:"num_gc"`
}

// NewResourceMonitor creates a resource monitor anchored at the current
// CPU time.
func NewResourceMonitor() *ResourceMonitor {
	rm := &ResourceMonitor{startTime: time.Now()}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return rm
	}
	rm.process = proc
	if cpuTime, err := proc.Times(); err == nil {
		rm.startCPUTime = cpuTime.Total()
	}
	return rm
}

// Usage returns current resource usage. Runtime figures are always filled;
// process figures need gopsutil support for the platform.
func (rm *ResourceMonitor) Usage() (*ResourceUsage, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	usage := &ResourceUsage{
		GoroutineCount: runtime.NumGoroutine(),
		HeapAlloc:      ms.HeapAlloc,
		NumGC:          ms.NumGC,
	}

	if rm.process == nil {
		return usage, errors.New(errors.ErrorTypeInternal, "process information unavailable")
	}

	if cpuTime, err := rm.process.Times(); err == nil {
		if elapsed := time.Since(rm.startTime).Seconds(); elapsed > 0 {
			usage.CPUPercent = ((cpuTime.Total() - rm.startCPUTime) / elapsed) * 100
		}
	}

	memInfo, err := rm.process.MemoryInfo()
	if err != nil {
		return usage, errors.Wrap(err, errors.ErrorTypeInternal, "failed to read process memory")
	}
	usage.MemoryRSS = memInfo.RSS
	usage.MemoryVMS = memInfo.VMS
	usage.ThreadCount, _ = rm.process.NumThreads()

	return usage, nil
}
