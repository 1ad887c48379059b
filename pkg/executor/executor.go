package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/polyglotops/crossbench/pkg/config"
	"github.com/polyglotops/crossbench/pkg/fsutil"
	"github.com/polyglotops/crossbench/pkg/lang"
	"github.com/polyglotops/crossbench/pkg/loadgen"
	"github.com/polyglotops/crossbench/pkg/results"
	"github.com/polyglotops/crossbench/pkg/sysmetrics"
)

const (
	// probeTimeout bounds the toolchain availability check.
	probeTimeout = 10 * time.Second

	// waitDelay is how long Wait lingers for output pipes after the
	// process group has been killed.
	waitDelay = 5 * time.Second
)

// Executor runs a single (benchmark, language) pair end to end: probe,
// build, execute under deadline, collect metrics.
type Executor interface {
	// Execute always returns a result, never nil. Per-pair problems are
	// reported through the result status, not as errors.
	Execute(ctx context.Context, spec *config.BenchmarkSpec, language lang.Language) *results.RunResult
}

// Config holds the executor settings.
type Config struct {
	SourceDir string
	BuildDir  string
	Verbose   bool
	Owner     *fsutil.Owner
}

type executor struct {
	log      logrus.FieldLogger
	cfg      *Config
	registry lang.Registry
	injector loadgen.Injector
}

var _ Executor = (*executor)(nil)

// NewExecutor creates a benchmark executor. The injector may be nil when
// no background load is wanted.
func NewExecutor(log logrus.FieldLogger, cfg *Config, registry lang.Registry, injector loadgen.Injector) Executor {
	return &executor{
		log:      log.WithField("component", "executor"),
		cfg:      cfg,
		registry: registry,
		injector: injector,
	}
}

func (e *executor) Execute(ctx context.Context, spec *config.BenchmarkSpec, language lang.Language) *results.RunResult {
	res := results.NewRunResult(spec, string(language))
	res.Duration = float64(spec.Duration)

	logCtx := e.log.WithFields(logrus.Fields{
		"benchmark": spec.ID,
		"language":  string(language),
	})

	ls, err := e.registry.Get(language)
	if err != nil {
		res.Errors = err.Error()
		logCtx.WithError(err).Warn("No language spec registered")

		return res
	}

	if err := e.probeToolchain(ctx, ls); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			res.Status = results.StatusSkipped
			res.Errors = fmt.Sprintf("%s toolchain not available", language)
			logCtx.Warn("Toolchain not available, skipping")

			return res
		}

		res.Errors = fmt.Sprintf("probing toolchain: %v", err)
		logCtx.WithError(err).Warn("Toolchain probe failed")

		return res
	}

	if ls.NeedsBuild() {
		if err := e.build(ctx, ls, spec, language); err != nil {
			res.Errors = err.Error()
			logCtx.WithError(err).Warn("Build failed")

			return res
		}
	}

	e.run(ctx, ls, spec, language, res, logCtx)

	return res
}

func (e *executor) probeToolchain(ctx context.Context, ls lang.Spec) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	name, args := ls.ProbeCommand()

	cmd := exec.CommandContext(probeCtx, name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	return cmd.Run()
}

func (e *executor) build(ctx context.Context, ls lang.Spec, spec *config.BenchmarkSpec, language lang.Language) error {
	if err := fsutil.MkdirAll(e.cfg.BuildDir, 0o755, e.cfg.Owner); err != nil {
		return fmt.Errorf("creating build directory: %w", err)
	}

	buildCtx, cancel := context.WithTimeout(ctx, ls.BuildTimeout())
	defer cancel()

	name, args := ls.BuildCommand(e.params(spec, language))

	out, err := exec.CommandContext(buildCtx, name, args...).CombinedOutput()
	if err != nil {
		if errors.Is(buildCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("build timed out after %s", ls.BuildTimeout())
		}

		return fmt.Errorf("build failed: %s", tail(string(out), maxErrorOutput))
	}

	return nil
}

func (e *executor) run(ctx context.Context, ls lang.Spec, spec *config.BenchmarkSpec, language lang.Language, res *results.RunResult, logCtx logrus.FieldLogger) {
	p := e.params(spec, language)

	// Stale output from a previous run must not be mistaken for fresh
	// payload.
	_ = os.Remove(p.OutputPath)

	sampler := sysmetrics.NewSampler(e.log)

	var stopOnce sync.Once

	stop := func() {
		stopOnce.Do(func() {
			if spec.LoadType != "" && e.injector != nil {
				e.injector.Stop()
			}

			sampler.End()
		})
	}
	defer stop()

	if spec.LoadType != "" && e.injector != nil {
		e.injector.Start(spec.LoadType, spec.Duration)
	}

	sampler.Start()

	timeout := time.Duration(spec.Duration)*time.Second + ls.RunGrace()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name, args := ls.RunCommand(p)
	cmd := exec.CommandContext(runCtx, name, args...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Benchmarks may spawn children (cargo run does). The whole tree
	// goes into one process group so a deadline kill reaches all of it.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay

	logCtx.WithField("timeout", timeout.String()).Info("Running benchmark")

	runErr := cmd.Run()

	// Load and sampling stop before any metric is read, on every path.
	stop()

	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			res.Status = results.StatusTimeout
			res.Errors = fmt.Sprintf("timed out after %s", timeout)
			logCtx.Warn("Benchmark timed out")

			return
		}

		res.Errors = fmt.Sprintf("benchmark exited with error: %v: %s", runErr, tail(stderr.String(), maxErrorOutput))
		logCtx.WithError(runErr).Warn("Benchmark failed")

		return
	}

	metrics, err := readPayload(p.OutputPath, stdout.Bytes())
	if err != nil {
		res.Errors = fmt.Sprintf("parsing benchmark output: %v", err)
		logCtx.WithError(err).Warn("Failed to parse benchmark output")

		return
	}

	metrics["cpu_usage_percent"] = sampler.CPUUsagePercent()

	for k, v := range sampler.MemoryInfo() {
		metrics["memory_"+k] = v
	}

	if s := strings.TrimSpace(stderr.String()); s != "" {
		res.Warnings = tail(s, maxErrorOutput)
	}

	res.Metrics = metrics
	res.Status = results.StatusSuccess

	logCtx.WithField("metrics", len(metrics)).Info("Benchmark completed")
}

func (e *executor) params(spec *config.BenchmarkSpec, language lang.Language) lang.Params {
	return lang.Params{
		BenchmarkID:     spec.ID,
		SourceDir:       e.cfg.SourceDir,
		BuildDir:        e.cfg.BuildDir,
		DurationSeconds: spec.Duration,
		OutputPath:      filepath.Join(e.cfg.BuildDir, fmt.Sprintf("%s_%s_out.json", spec.ID, language)),
		Verbose:         e.cfg.Verbose,
	}
}
