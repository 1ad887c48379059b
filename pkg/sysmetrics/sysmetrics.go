package sysmetrics

import (
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/sirupsen/logrus"
)

// Sampler measures system resource usage around a benchmark run. CPU usage
// is derived from whole-system counters taken at Start and End only, so it
// includes any other activity on the host during the window. This is a
// known approximation: results are comparable across languages on a quiet
// host, not an attribution of cost to the benchmark process.
type Sampler interface {
	// Start records the baseline timestamp and CPU counter snapshot.
	Start()

	// End records the completion timestamp and CPU counter snapshot.
	End()

	// Duration returns the wall-clock seconds between Start and End,
	// or 0 if either endpoint is missing.
	Duration() float64

	// CPUUsagePercent returns 100*(1 - idleDelta/totalDelta) over the
	// sampled window, or 0 when no ticks elapsed or counters were
	// unavailable.
	CPUUsagePercent() float64

	// MemoryInfo returns total/available/used memory in megabytes.
	// Returns an empty map on read failure; memory introspection is
	// best-effort and never aborts a run.
	MemoryInfo() map[string]float64
}

// cpuSnapshot holds summed CPU tick counters at one point in time.
type cpuSnapshot struct {
	idle  float64
	total float64
}

type sampler struct {
	log       logrus.FieldLogger
	startTime time.Time
	endTime   time.Time
	startCPU  *cpuSnapshot
	endCPU    *cpuSnapshot
}

// Ensure interface compliance.
var _ Sampler = (*sampler)(nil)

// NewSampler creates a new system metrics sampler.
func NewSampler(log logrus.FieldLogger) Sampler {
	return &sampler{
		log: log.WithField("component", "sysmetrics"),
	}
}

// Start records the baseline timestamp and CPU counter snapshot.
func (s *sampler) Start() {
	s.startTime = time.Now()
	s.startCPU = s.readCPUSnapshot()
}

// End records the completion timestamp and CPU counter snapshot.
func (s *sampler) End() {
	s.endTime = time.Now()
	s.endCPU = s.readCPUSnapshot()
}

// Duration returns the wall-clock seconds between Start and End.
func (s *sampler) Duration() float64 {
	if s.startTime.IsZero() || s.endTime.IsZero() {
		return 0
	}

	return s.endTime.Sub(s.startTime).Seconds()
}

// CPUUsagePercent computes the non-idle share of elapsed CPU ticks.
func (s *sampler) CPUUsagePercent() float64 {
	if s.startCPU == nil || s.endCPU == nil {
		return 0.0
	}

	totalDelta := s.endCPU.total - s.startCPU.total
	if totalDelta <= 0 {
		return 0.0
	}

	idleDelta := s.endCPU.idle - s.startCPU.idle

	return 100.0 * (1.0 - idleDelta/totalDelta)
}

// MemoryInfo reads total/available memory and derives used, in megabytes.
func (s *sampler) MemoryInfo() map[string]float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		s.log.WithError(err).Warn("Could not read memory info")

		return map[string]float64{}
	}

	const mb = 1024 * 1024

	return map[string]float64{
		"total_mb":     float64(vm.Total) / mb,
		"available_mb": float64(vm.Available) / mb,
		"used_mb":      float64(vm.Total-vm.Available) / mb,
	}
}

// readCPUSnapshot reads the aggregate CPU tick counters. Returns nil on
// failure; a missing counter source must never abort a benchmark.
func (s *sampler) readCPUSnapshot() *cpuSnapshot {
	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		s.log.WithError(err).Warn("Could not read CPU stats")

		return nil
	}

	t := times[0]
	total := t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq +
		t.Softirq + t.Steal + t.Guest + t.GuestNice

	return &cpuSnapshot{
		idle:  t.Idle,
		total: total,
	}
}
