package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyglotops/crossbench/pkg/config"
	"github.com/polyglotops/crossbench/pkg/lang"
	"github.com/polyglotops/crossbench/pkg/loadgen"
	"github.com/polyglotops/crossbench/pkg/results"
)

// stubSpec lets tests script every toolchain command.
type stubSpec struct {
	typ        lang.Language
	probe      []string
	needsBuild bool
	build      []string
	buildTO    time.Duration
	run        func(p lang.Params) (string, []string)
	grace      time.Duration
}

var _ lang.Spec = (*stubSpec)(nil)

func (s *stubSpec) Type() lang.Language { return s.typ }

func (s *stubSpec) ProbeCommand() (string, []string) {
	return s.probe[0], s.probe[1:]
}

func (s *stubSpec) NeedsBuild() bool { return s.needsBuild }

func (s *stubSpec) BuildCommand(lang.Params) (string, []string) {
	return s.build[0], s.build[1:]
}

func (s *stubSpec) BuildTimeout() time.Duration {
	if s.buildTO > 0 {
		return s.buildTO
	}

	return 30 * time.Second
}

func (s *stubSpec) RunCommand(p lang.Params) (string, []string) {
	return s.run(p)
}

func (s *stubSpec) RunGrace() time.Duration {
	if s.grace > 0 {
		return s.grace
	}

	return 5 * time.Second
}

type fakeInjector struct {
	starts       int
	stops        int
	lastType     string
	lastDuration int
}

var _ loadgen.Injector = (*fakeInjector)(nil)

func (f *fakeInjector) Start(loadType string, durationSeconds int) {
	f.starts++
	f.lastType = loadType
	f.lastDuration = durationSeconds
}

func (f *fakeInjector) Stop() {
	f.stops++
}

func newTestExecutor(t *testing.T, stub *stubSpec, inj loadgen.Injector) Executor {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	if stub.typ == "" {
		stub.typ = lang.LanguageGo
	}

	if len(stub.probe) == 0 {
		stub.probe = []string{"true"}
	}

	registry := lang.NewRegistry()
	registry.Register(stub)

	cfg := &Config{
		SourceDir: t.TempDir(),
		BuildDir:  t.TempDir(),
	}

	return NewExecutor(log, cfg, registry, inj)
}

func testBenchmarkSpec(loadType string, duration int) *config.BenchmarkSpec {
	return &config.BenchmarkSpec{
		ID:            "bench1",
		Name:          "Bench One",
		ProgramType:   "syscall",
		DataMechanism: "file",
		Duration:      duration,
		Languages:     []string{"go"},
		LoadType:      loadType,
	}
}

func TestExecute_SuccessWithFilePayload(t *testing.T) {
	inj := &fakeInjector{}
	stub := &stubSpec{
		run: func(p lang.Params) (string, []string) {
			return "sh", []string{"-c", fmt.Sprintf(`printf '{"throughput": 123.5, "note": "warm"}' > %q`, p.OutputPath)}
		},
	}

	ex := newTestExecutor(t, stub, inj)
	res := ex.Execute(context.Background(), testBenchmarkSpec("cpu_bound", 1), lang.LanguageGo)

	require.NotNil(t, res)
	assert.Equal(t, results.StatusSuccess, res.Status)
	assert.Equal(t, "bench1", res.BenchmarkID)
	assert.Equal(t, "go", res.Language)
	assert.InDelta(t, 123.5, res.Metrics["throughput"], 0.001)

	// Non-numeric payload values never become metrics.
	_, ok := res.Metrics["note"]
	assert.False(t, ok)

	// System metrics ride along with the payload.
	assert.Contains(t, res.Metrics, "cpu_usage_percent")

	assert.Equal(t, 1, inj.starts)
	assert.Equal(t, 1, inj.stops)
	assert.Equal(t, "cpu_bound", inj.lastType)
	assert.Equal(t, 1, inj.lastDuration)
}

func TestExecute_StdoutFallback(t *testing.T) {
	stub := &stubSpec{
		run: func(lang.Params) (string, []string) {
			return "sh", []string{"-c", `printf '{"rate": 7}'`}
		},
	}

	ex := newTestExecutor(t, stub, &fakeInjector{})
	res := ex.Execute(context.Background(), testBenchmarkSpec("", 1), lang.LanguageGo)

	assert.Equal(t, results.StatusSuccess, res.Status)
	assert.InDelta(t, 7, res.Metrics["rate"], 0.001)
}

func TestExecute_ToolchainMissingSkips(t *testing.T) {
	inj := &fakeInjector{}
	stub := &stubSpec{
		probe: []string{"crossbench-test-no-such-binary"},
		run: func(lang.Params) (string, []string) {
			return "true", nil
		},
	}

	ex := newTestExecutor(t, stub, inj)
	res := ex.Execute(context.Background(), testBenchmarkSpec("cpu_bound", 1), lang.LanguageGo)

	assert.Equal(t, results.StatusSkipped, res.Status)
	assert.Contains(t, res.Errors, "toolchain not available")

	// A skipped pair never starts background load.
	assert.Equal(t, 0, inj.starts)
}

func TestExecute_ProbeFailure(t *testing.T) {
	stub := &stubSpec{
		probe: []string{"false"},
		run: func(lang.Params) (string, []string) {
			return "true", nil
		},
	}

	ex := newTestExecutor(t, stub, &fakeInjector{})
	res := ex.Execute(context.Background(), testBenchmarkSpec("", 1), lang.LanguageGo)

	assert.Equal(t, results.StatusFailed, res.Status)
	assert.Contains(t, res.Errors, "probing toolchain")
}

func TestExecute_BuildFailure(t *testing.T) {
	inj := &fakeInjector{}
	stub := &stubSpec{
		needsBuild: true,
		build:      []string{"sh", "-c", "echo boom >&2; exit 1"},
		run: func(lang.Params) (string, []string) {
			return "true", nil
		},
	}

	ex := newTestExecutor(t, stub, inj)
	res := ex.Execute(context.Background(), testBenchmarkSpec("cpu_bound", 1), lang.LanguageGo)

	assert.Equal(t, results.StatusFailed, res.Status)
	assert.Contains(t, res.Errors, "build failed")
	assert.Contains(t, res.Errors, "boom")

	// Load starts after a successful build, never before.
	assert.Equal(t, 0, inj.starts)
}

func TestExecute_BuildTimeout(t *testing.T) {
	stub := &stubSpec{
		needsBuild: true,
		build:      []string{"sleep", "2"},
		buildTO:    100 * time.Millisecond,
		run: func(lang.Params) (string, []string) {
			return "true", nil
		},
	}

	ex := newTestExecutor(t, stub, &fakeInjector{})
	res := ex.Execute(context.Background(), testBenchmarkSpec("", 1), lang.LanguageGo)

	assert.Equal(t, results.StatusFailed, res.Status)
	assert.Contains(t, res.Errors, "build timed out")
}

func TestExecute_RunTimeout(t *testing.T) {
	inj := &fakeInjector{}
	stub := &stubSpec{
		grace: 300 * time.Millisecond,
		run: func(lang.Params) (string, []string) {
			return "sleep", []string{"5"}
		},
	}

	ex := newTestExecutor(t, stub, inj)

	started := time.Now()
	res := ex.Execute(context.Background(), testBenchmarkSpec("cpu_bound", 0), lang.LanguageGo)
	elapsed := time.Since(started)

	assert.Equal(t, results.StatusTimeout, res.Status)
	assert.Contains(t, res.Errors, "timed out after")

	// The deadline kill must not wait out the benchmark's sleep.
	assert.Less(t, elapsed, 4*time.Second)

	assert.Equal(t, 1, inj.stops)
}

func TestExecute_FailureModes(t *testing.T) {
	tests := []struct {
		name        string
		run         func(p lang.Params) (string, []string)
		errContains string
	}{
		{
			name: "run exits non-zero",
			run: func(lang.Params) (string, []string) {
				return "sh", []string{"-c", "echo kaput >&2; exit 3"}
			},
			errContains: "kaput",
		},
		{
			name: "unparseable payload",
			run: func(lang.Params) (string, []string) {
				return "sh", []string{"-c", "echo not json"}
			},
			errContains: "parsing benchmark output",
		},
		{
			name: "no output at all",
			run: func(lang.Params) (string, []string) {
				return "true", nil
			},
			errContains: "no output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inj := &fakeInjector{}
			stub := &stubSpec{run: tt.run}

			ex := newTestExecutor(t, stub, inj)
			res := ex.Execute(context.Background(), testBenchmarkSpec("cpu_bound", 1), lang.LanguageGo)

			assert.Equal(t, results.StatusFailed, res.Status)
			assert.Contains(t, res.Errors, tt.errContains)
			assert.Empty(t, res.Metrics)

			// Cleanup runs exactly once whatever the outcome.
			assert.Equal(t, 1, inj.stops)
		})
	}
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("  short  ", 100))
	assert.Equal(t, "cde", tail("abcde", 3))
}
