package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Len(t, r.List(), 4)

	for _, language := range []Language{LanguageGo, LanguagePython, LanguageRust, LanguageC} {
		spec, err := r.Get(language)
		require.NoError(t, err)
		assert.Equal(t, language, spec.Type())
	}

	_, err := r.Get("cobol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown language")
}

func TestSpecCommands(t *testing.T) {
	params := Params{
		BenchmarkID:     "syscall_rate",
		SourceDir:       "src",
		BuildDir:        "build",
		DurationSeconds: 5,
		OutputPath:      "build/syscall_rate_go_out.json",
	}

	tests := []struct {
		name       string
		spec       Spec
		needsBuild bool
		probeName  string
		buildName  string
		buildArgs  []string
		runName    string
		runArgs    []string
	}{
		{
			name:       "go",
			spec:       NewGoSpec(),
			needsBuild: true,
			probeName:  "go",
			buildName:  "go",
			buildArgs: []string{
				"build", "-o", "build/syscall_rate_go",
				"src/golang/syscall_rate.go", "src/golang/common.go",
			},
			runName: "build/syscall_rate_go",
			runArgs: []string{"-d", "5", "-o", "build/syscall_rate_go_out.json"},
		},
		{
			name:       "python",
			spec:       NewPythonSpec(),
			needsBuild: false,
			probeName:  "python3",
			runName:    "python3",
			runArgs: []string{
				"src/python/syscall_rate.py",
				"-d", "5", "-o", "build/syscall_rate_go_out.json",
			},
		},
		{
			name:       "rust",
			spec:       NewRustSpec(),
			needsBuild: true,
			probeName:  "rustc",
			buildName:  "cargo",
			buildArgs: []string{
				"build", "--release",
				"--manifest-path", "src/rust/syscall_rate/Cargo.toml",
			},
			runName: "cargo",
			runArgs: []string{
				"run", "--release",
				"--manifest-path", "src/rust/syscall_rate/Cargo.toml",
				"--",
				"--duration", "5", "--output", "build/syscall_rate_go_out.json",
			},
		},
		{
			name:       "c",
			spec:       NewCSpec(),
			needsBuild: true,
			probeName:  "clang",
			buildName:  "clang",
			buildArgs: []string{
				"-O2", "-o", "build/syscall_rate_c",
				"src/c/syscall_rate.c",
			},
			runName: "build/syscall_rate_c",
			runArgs: []string{"-d", "5", "-o", "build/syscall_rate_go_out.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probeName, probeArgs := tt.spec.ProbeCommand()
			assert.Equal(t, tt.probeName, probeName)
			assert.NotEmpty(t, probeArgs)

			assert.Equal(t, tt.needsBuild, tt.spec.NeedsBuild())

			if tt.needsBuild {
				buildName, buildArgs := tt.spec.BuildCommand(params)
				assert.Equal(t, tt.buildName, buildName)
				assert.Equal(t, tt.buildArgs, buildArgs)
				assert.Greater(t, tt.spec.BuildTimeout().Seconds(), 0.0)
			}

			runName, runArgs := tt.spec.RunCommand(params)
			assert.Equal(t, tt.runName, runName)
			assert.Equal(t, tt.runArgs, runArgs)
			assert.Greater(t, tt.spec.RunGrace().Seconds(), 0.0)
		})
	}
}

func TestVerboseAppendsFlag(t *testing.T) {
	params := Params{
		BenchmarkID:     "syscall_rate",
		SourceDir:       "src",
		BuildDir:        "build",
		DurationSeconds: 5,
		OutputPath:      "out.json",
		Verbose:         true,
	}

	_, goArgs := NewGoSpec().RunCommand(params)
	assert.Contains(t, goArgs, "-v")

	_, rustArgs := NewRustSpec().RunCommand(params)
	assert.Contains(t, rustArgs, "--verbose")
}
