package lang

import (
	"path/filepath"
	"strconv"
	"time"
)

type cSpec struct{}

// NewCSpec creates the C language specification.
func NewCSpec() Spec {
	return &cSpec{}
}

// Ensure interface compliance.
var _ Spec = (*cSpec)(nil)

func (s *cSpec) Type() Language {
	return LanguageC
}

func (s *cSpec) ProbeCommand() (string, []string) {
	return "clang", []string{"--version"}
}

func (s *cSpec) NeedsBuild() bool {
	return true
}

func (s *cSpec) BuildCommand(p Params) (string, []string) {
	return "clang", []string{
		"-O2",
		"-o", s.binaryPath(p),
		filepath.Join(p.SourceDir, "c", p.BenchmarkID+".c"),
	}
}

func (s *cSpec) BuildTimeout() time.Duration {
	return 60 * time.Second
}

func (s *cSpec) RunCommand(p Params) (string, []string) {
	args := []string{
		"-d", strconv.Itoa(p.DurationSeconds),
		"-o", p.OutputPath,
	}

	if p.Verbose {
		args = append(args, "-v")
	}

	return s.binaryPath(p), args
}

func (s *cSpec) RunGrace() time.Duration {
	return 30 * time.Second
}

func (s *cSpec) binaryPath(p Params) string {
	return filepath.Join(p.BuildDir, p.BenchmarkID+"_c")
}
