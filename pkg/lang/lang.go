package lang

import (
	"fmt"
	"sync"
	"time"
)

// Language represents supported benchmark implementation languages.
type Language string

const (
	LanguageGo     Language = "go"
	LanguagePython Language = "python"
	LanguageRust   Language = "rust"
	LanguageC      Language = "c"
)

// Params carries the per-run values a spec substitutes into its commands.
type Params struct {
	BenchmarkID     string
	SourceDir       string
	BuildDir        string
	DurationSeconds int
	OutputPath      string
	Verbose         bool
}

// Spec provides language-specific toolchain commands. The source layout
// contract follows the benchmark sources: one entry file per benchmark id
// under the language's subdirectory of the source root.
type Spec interface {
	// Type returns the language tag.
	Type() Language

	// ProbeCommand returns the command that proves the toolchain is
	// installed. A not-found error from it means the language is skipped.
	ProbeCommand() (string, []string)

	// NeedsBuild reports whether the language has a compile step.
	NeedsBuild() bool

	// BuildCommand returns the compile command for a benchmark.
	BuildCommand(p Params) (string, []string)

	// BuildTimeout bounds the compile step.
	BuildTimeout() time.Duration

	// RunCommand returns the benchmark program invocation.
	RunCommand(p Params) (string, []string)

	// RunGrace is the deadline margin added to the benchmark duration.
	RunGrace() time.Duration
}

// Registry manages language specifications.
type Registry interface {
	Get(language Language) (Spec, error)
	Register(spec Spec)
	List() []Language
}

// NewRegistry creates a registry with all supported languages.
func NewRegistry() Registry {
	r := &registry{
		specs: make(map[Language]Spec, 4),
	}

	r.Register(NewGoSpec())
	r.Register(NewPythonSpec())
	r.Register(NewRustSpec())
	r.Register(NewCSpec())

	return r
}

type registry struct {
	mu    sync.RWMutex
	specs map[Language]Spec
}

// Ensure interface compliance.
var _ Registry = (*registry)(nil)

// Get returns the spec for the given language.
func (r *registry) Get(language Language) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[language]
	if !ok {
		return nil, fmt.Errorf("unknown language: %s", language)
	}

	return spec, nil
}

// Register adds a spec to the registry.
func (r *registry) Register(spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs[spec.Type()] = spec
}

// List returns all registered languages.
func (r *registry) List() []Language {
	r.mu.RLock()
	defer r.mu.RUnlock()

	languages := make([]Language, 0, len(r.specs))
	for l := range r.specs {
		languages = append(languages, l)
	}

	return languages
}
