package runtime

import (
	"runtime"
	"runtime/metrics"
	"sync"
	"time"
)

// Runtime metrics read for /health.
const (
	cpuTotalMetric   = "/cpu/classes/total:cpu-seconds"
	heapObjectMetric = "/memory/classes/heap/objects:bytes"
	goroutinesMetric = "/sched/goroutines:goroutines"
)

// ResourceUsage is the process usage reported on /health next to the
// connection states.
type ResourceUsage struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryBytes   uint64  `json:"memory_bytes"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// resourceTracker turns runtime/metrics samples into a ResourceUsage. CPU is
// the share of all cores used since the previous snapshot, zero on the first.
type resourceTracker struct {
	mu        sync.Mutex
	now       func() time.Time
	startedAt time.Time
	cores     float64

	prevCPU float64
	prevAt  time.Time
}

func newResourceTracker() *resourceTracker {
	return &resourceTracker{
		now:       time.Now,
		startedAt: time.Now(),
		cores:     float64(runtime.GOMAXPROCS(0)),
	}
}

func (r *resourceTracker) Snapshot() ResourceUsage {
	if r == nil {
		return ResourceUsage{}
	}
	samples := []metrics.Sample{
		{Name: cpuTotalMetric},
		{Name: heapObjectMetric},
		{Name: goroutinesMetric},
	}
	metrics.Read(samples)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if r.now != nil {
		now = r.now()
	}
	usage := ResourceUsage{
		MemoryBytes: sampleUint(samples[1]),
		Goroutines:  int(sampleUint(samples[2])),
	}
	if usage.Goroutines == 0 {
		usage.Goroutines = runtime.NumGoroutine()
	}
	if !r.startedAt.IsZero() {
		usage.UptimeSeconds = now.Sub(r.startedAt).Seconds()
	}

	if samples[0].Value.Kind() != metrics.KindFloat64 {
		return usage
	}
	cpu := samples[0].Value.Float64()
	if elapsed := now.Sub(r.prevAt).Seconds(); !r.prevAt.IsZero() && elapsed > 0 && r.cores > 0 {
		usage.CPUPercent = (cpu - r.prevCPU) / elapsed / r.cores * 100
	}
	r.prevCPU, r.prevAt = cpu, now
	return usage
}

func sampleUint(s metrics.Sample) uint64 {
	if s.Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return s.Value.Uint64()
}
