package lang

import (
	"path/filepath"
	"strconv"
	"time"
)

type goSpec struct{}

// NewGoSpec creates the Go language specification.
func NewGoSpec() Spec {
	return &goSpec{}
}

// Ensure interface compliance.
var _ Spec = (*goSpec)(nil)

func (s *goSpec) Type() Language {
	return LanguageGo
}

func (s *goSpec) ProbeCommand() (string, []string) {
	return "go", []string{"version"}
}

func (s *goSpec) NeedsBuild() bool {
	return true
}

// BuildCommand compiles the benchmark entry file together with the shared
// common.go that carries the result types.
func (s *goSpec) BuildCommand(p Params) (string, []string) {
	return "go", []string{
		"build",
		"-o", s.binaryPath(p),
		filepath.Join(p.SourceDir, "golang", p.BenchmarkID+".go"),
		filepath.Join(p.SourceDir, "golang", "common.go"),
	}
}

func (s *goSpec) BuildTimeout() time.Duration {
	return 60 * time.Second
}

func (s *goSpec) RunCommand(p Params) (string, []string) {
	args := []string{
		"-d", strconv.Itoa(p.DurationSeconds),
		"-o", p.OutputPath,
	}

	if p.Verbose {
		args = append(args, "-v")
	}

	return s.binaryPath(p), args
}

func (s *goSpec) RunGrace() time.Duration {
	return 30 * time.Second
}

func (s *goSpec) binaryPath(p Params) string {
	return filepath.Join(p.BuildDir, p.BenchmarkID+"_go")
}
