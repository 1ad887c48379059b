package sysmetrics

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSampler() *sampler {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return &sampler{log: log}
}

func TestDuration_NotStarted(t *testing.T) {
	s := newTestSampler()

	assert.Zero(t, s.Duration())
}

func TestDuration_OnlyStarted(t *testing.T) {
	s := newTestSampler()
	s.Start()

	assert.Zero(t, s.Duration())
}

func TestDuration_Elapsed(t *testing.T) {
	s := newTestSampler()

	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.End()

	assert.Greater(t, s.Duration(), 0.0)
	assert.Less(t, s.Duration(), 5.0)
}

func TestCPUUsagePercent(t *testing.T) {
	tests := []struct {
		name  string
		start *cpuSnapshot
		end   *cpuSnapshot
		want  float64
	}{
		{
			name:  "missing snapshots",
			start: nil,
			end:   nil,
			want:  0.0,
		},
		{
			name:  "missing end snapshot",
			start: &cpuSnapshot{idle: 100, total: 200},
			end:   nil,
			want:  0.0,
		},
		{
			name:  "no elapsed ticks",
			start: &cpuSnapshot{idle: 100, total: 200},
			end:   &cpuSnapshot{idle: 100, total: 200},
			want:  0.0,
		},
		{
			name:  "half busy",
			start: &cpuSnapshot{idle: 100, total: 200},
			end:   &cpuSnapshot{idle: 150, total: 300},
			want:  50.0,
		},
		{
			name:  "fully idle",
			start: &cpuSnapshot{idle: 100, total: 200},
			end:   &cpuSnapshot{idle: 200, total: 300},
			want:  0.0,
		},
		{
			name:  "fully busy",
			start: &cpuSnapshot{idle: 100, total: 200},
			end:   &cpuSnapshot{idle: 100, total: 300},
			want:  100.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSampler()
			s.startCPU = tt.start
			s.endCPU = tt.end

			assert.InDelta(t, tt.want, s.CPUUsagePercent(), 0.0001)
		})
	}
}

func TestMemoryInfo(t *testing.T) {
	s := newTestSampler()

	info := s.MemoryInfo()
	if len(info) == 0 {
		t.Skip("memory counters unavailable on this host")
	}

	require.Contains(t, info, "total_mb")
	require.Contains(t, info, "available_mb")
	require.Contains(t, info, "used_mb")

	assert.Greater(t, info["total_mb"], 0.0)
	assert.InDelta(t, info["total_mb"]-info["available_mb"], info["used_mb"], 0.001)
}

func TestStartEnd_RealCounters(t *testing.T) {
	s := newTestSampler()

	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.End()

	// Usage is a percentage when counters are available, 0 otherwise.
	usage := s.CPUUsagePercent()
	assert.GreaterOrEqual(t, usage, 0.0)
	assert.LessOrEqual(t, usage, 100.0)
}
