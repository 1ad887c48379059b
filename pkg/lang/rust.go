package lang

import (
	"path/filepath"
	"strconv"
	"time"
)

type rustSpec struct{}

// NewRustSpec creates the Rust language specification.
func NewRustSpec() Spec {
	return &rustSpec{}
}

// Ensure interface compliance.
var _ Spec = (*rustSpec)(nil)

func (s *rustSpec) Type() Language {
	return LanguageRust
}

func (s *rustSpec) ProbeCommand() (string, []string) {
	return "rustc", []string{"--version"}
}

func (s *rustSpec) NeedsBuild() bool {
	return true
}

func (s *rustSpec) BuildCommand(p Params) (string, []string) {
	return "cargo", []string{
		"build", "--release",
		"--manifest-path", s.manifestPath(p),
	}
}

func (s *rustSpec) BuildTimeout() time.Duration {
	return 120 * time.Second
}

// RunCommand goes through cargo run so the binary name stays an internal
// detail of the crate.
func (s *rustSpec) RunCommand(p Params) (string, []string) {
	args := []string{
		"run", "--release",
		"--manifest-path", s.manifestPath(p),
		"--",
		"--duration", strconv.Itoa(p.DurationSeconds),
		"--output", p.OutputPath,
	}

	if p.Verbose {
		args = append(args, "--verbose")
	}

	return "cargo", args
}

func (s *rustSpec) RunGrace() time.Duration {
	return 60 * time.Second
}

func (s *rustSpec) manifestPath(p Params) string {
	return filepath.Join(p.SourceDir, "rust", p.BenchmarkID, "Cargo.toml")
}
