package loadgen

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"

	"github.com/polyglotops/crossbench/pkg/config"
)

// Injector runs an optional background stress process alongside a
// benchmark to exercise the system under load. Everything here is
// best-effort: a missing or broken load generator must never block the
// benchmark it is meant to stress.
type Injector interface {
	// Start launches the load profile for the given duration. Unknown
	// profiles and launch failures are warnings, not errors.
	Start(loadType string, durationSeconds int)

	// Stop requests graceful termination, escalating to a kill after a
	// bounded grace period. Calling Stop with nothing running is a no-op.
	Stop()
}

// DefaultMemorySize is used when the configured size cannot be parsed.
const DefaultMemorySize = "128M"

type injector struct {
	log        logrus.FieldLogger
	binary     string
	memorySize string
	stopGrace  time.Duration

	mu  sync.Mutex
	cmd *exec.Cmd
}

// Ensure interface compliance.
var _ Injector = (*injector)(nil)

// NewInjector creates a load injector from the given configuration.
func NewInjector(log logrus.FieldLogger, cfg *config.LoadGenConfig) Injector {
	l := log.WithField("component", "loadgen")

	memSize := cfg.MemorySize
	if _, err := units.RAMInBytes(memSize); err != nil {
		l.WithError(err).WithField("memory_size", memSize).
			Warn("Invalid memory size, using default")

		memSize = DefaultMemorySize
	}

	return &injector{
		log:        l,
		binary:     cfg.Binary,
		memorySize: memSize,
		stopGrace:  time.Duration(cfg.StopGraceSeconds) * time.Second,
	}
}

// Start launches the background stress process for the given profile.
func (i *injector) Start(loadType string, durationSeconds int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cmd != nil {
		i.log.Warn("Load generator already running")

		return
	}

	args := i.profileArgs(loadType, durationSeconds)
	if args == nil {
		i.log.WithField("load_type", loadType).Warn("Unknown load type")

		return
	}

	cmd := exec.Command(i.binary, args...)

	if err := cmd.Start(); err != nil {
		i.log.WithError(err).Warn("Failed to start load generator")

		return
	}

	i.cmd = cmd

	i.log.WithFields(logrus.Fields{
		"load_type": loadType,
		"pid":       cmd.Process.Pid,
	}).Info("Started load generator")
}

// Stop terminates the stress process, waiting up to the grace period
// before escalating to SIGKILL.
func (i *injector) Stop() {
	i.mu.Lock()
	cmd := i.cmd
	i.cmd = nil
	i.mu.Unlock()

	if cmd == nil {
		return
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-done:
	case <-time.After(i.stopGrace):
		_ = cmd.Process.Kill()
		<-done
	}

	i.log.Info("Stopped load generator")
}

// profileArgs returns the stress-ng arguments for a load profile, or nil
// for an unknown profile.
func (i *injector) profileArgs(loadType string, durationSeconds int) []string {
	base := []string{"--timeout", fmt.Sprintf("%ds", durationSeconds), "--quiet"}

	switch loadType {
	case "syscall_flood":
		return append([]string{"--syscall", "4"}, base...)
	case "cpu_bound":
		return append([]string{"--cpu", "2"}, base...)
	case "memory":
		return append([]string{"--vm", "2", "--vm-bytes", i.memorySize}, base...)
	}

	return nil
}
