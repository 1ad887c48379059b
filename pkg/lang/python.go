package lang

import (
	"path/filepath"
	"strconv"
	"time"
)

type pythonSpec struct{}

// NewPythonSpec creates the Python language specification.
func NewPythonSpec() Spec {
	return &pythonSpec{}
}

// Ensure interface compliance.
var _ Spec = (*pythonSpec)(nil)

func (s *pythonSpec) Type() Language {
	return LanguagePython
}

func (s *pythonSpec) ProbeCommand() (string, []string) {
	return "python3", []string{"--version"}
}

func (s *pythonSpec) NeedsBuild() bool {
	return false
}

func (s *pythonSpec) BuildCommand(_ Params) (string, []string) {
	return "", nil
}

func (s *pythonSpec) BuildTimeout() time.Duration {
	return 0
}

func (s *pythonSpec) RunCommand(p Params) (string, []string) {
	args := []string{
		filepath.Join(p.SourceDir, "python", p.BenchmarkID+".py"),
		"-d", strconv.Itoa(p.DurationSeconds),
		"-o", p.OutputPath,
	}

	if p.Verbose {
		args = append(args, "-v")
	}

	return "python3", args
}

func (s *pythonSpec) RunGrace() time.Duration {
	return 30 * time.Second
}
