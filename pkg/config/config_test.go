package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvVarOverrides(t *testing.T) {
	configContent := `
global:
  log_level: info
  source_dir: ./original-src
  build_dir: ./original-build
  results_dir: ./original-results
loadgen:
  binary: stress-ng
  memory_size: 64M
benchmarks:
  - id: syscall_rate
    name: Syscall Rate
    duration: 5
    languages: [go, python]
api:
  enabled: false
  listen: ":8080"
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no env vars uses yaml values",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Global.LogLevel)
				assert.Equal(t, "./original-src", cfg.Global.SourceDir)
				assert.Equal(t, "./original-results", cfg.Global.ResultsDir)
				assert.Equal(t, "64M", cfg.LoadGen.MemorySize)
			},
		},
		{
			name: "string override - log_level",
			envVars: map[string]string{
				"CROSSBENCH_GLOBAL_LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Global.LogLevel)
			},
		},
		{
			name: "string override - results_dir",
			envVars: map[string]string{
				"CROSSBENCH_GLOBAL_RESULTS_DIR": "/tmp/env-results",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/tmp/env-results", cfg.Global.ResultsDir)
			},
		},
		{
			name: "nested override - loadgen.memory_size",
			envVars: map[string]string{
				"CROSSBENCH_LOADGEN_MEMORY_SIZE": "256M",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "256M", cfg.LoadGen.MemorySize)
			},
		},
		{
			name: "boolean override - api.enabled",
			envVars: map[string]string{
				"CROSSBENCH_API_ENABLED": "true",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.API.Enabled)
			},
		},
		{
			name: "integer override - loadgen.stop_grace_seconds",
			envVars: map[string]string{
				"CROSSBENCH_LOADGEN_STOP_GRACE_SECONDS": "9",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9, cfg.LoadGen.StopGraceSeconds)
			},
		},
		{
			name: "nested override - api.database.driver",
			envVars: map[string]string{
				"CROSSBENCH_API_DATABASE_DRIVER": "postgres",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres", cfg.API.Database.Driver)
			},
		},
		{
			name: "multiple overrides",
			envVars: map[string]string{
				"CROSSBENCH_GLOBAL_LOG_LEVEL":   "trace",
				"CROSSBENCH_GLOBAL_RESULTS_DIR": "/results/multi",
				"CROSSBENCH_API_ENABLED":        "true",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "trace", cfg.Global.LogLevel)
				assert.Equal(t, "/results/multi", cfg.Global.ResultsDir)
				assert.True(t, cfg.API.Enabled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load(configPath)
			require.NoError(t, err)

			tt.validate(t, cfg)
		})
	}
}

func TestLoad_DefaultsAppliedWhenEmpty(t *testing.T) {
	configContent := `
benchmarks:
  - id: syscall_rate
    languages: [go]
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Global.LogLevel)
	assert.Equal(t, DefaultSourceDir, cfg.Global.SourceDir)
	assert.Equal(t, DefaultBuildDir, cfg.Global.BuildDir)
	assert.Equal(t, DefaultResultsDir, cfg.Global.ResultsDir)
	assert.Equal(t, "stress-ng", cfg.LoadGen.Binary)
	assert.Equal(t, "128M", cfg.LoadGen.MemorySize)
	assert.Equal(t, 5, cfg.LoadGen.StopGraceSeconds)
	assert.Equal(t, ":8080", cfg.API.Listen)
	assert.Equal(t, "sqlite", cfg.API.Database.Driver)

	// Name falls back to the id, duration to the default.
	require.Len(t, cfg.Benchmarks, 1)
	assert.Equal(t, "syscall_rate", cfg.Benchmarks[0].Name)
	assert.Equal(t, DefaultDuration, cfg.Benchmarks[0].Duration)
}

func TestLoad_EnvVarOverridesDefaults(t *testing.T) {
	configContent := `
benchmarks:
  - id: syscall_rate
    languages: [go]
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	t.Setenv("CROSSBENCH_GLOBAL_LOG_LEVEL", "warn")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Global.LogLevel)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content:"), 0o644))

	_, err := Load(configPath)
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Benchmarks: []BenchmarkSpec{
				{
					ID:        "syscall_rate",
					Name:      "Syscall Rate",
					Duration:  5,
					Languages: []string{"go", "python"},
				},
			},
		}
	}

	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantErr   bool
		errSubstr string
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name: "no benchmarks",
			mutate: func(cfg *Config) {
				cfg.Benchmarks = nil
			},
			wantErr:   true,
			errSubstr: "at least one benchmark",
		},
		{
			name: "missing id",
			mutate: func(cfg *Config) {
				cfg.Benchmarks[0].ID = ""
			},
			wantErr:   true,
			errSubstr: "id is required",
		},
		{
			name: "duplicate id",
			mutate: func(cfg *Config) {
				cfg.Benchmarks = append(cfg.Benchmarks, cfg.Benchmarks[0])
			},
			wantErr:   true,
			errSubstr: "duplicate id",
		},
		{
			name: "no languages",
			mutate: func(cfg *Config) {
				cfg.Benchmarks[0].Languages = nil
			},
			wantErr:   true,
			errSubstr: "at least one language",
		},
		{
			name: "unknown language",
			mutate: func(cfg *Config) {
				cfg.Benchmarks[0].Languages = []string{"cobol"}
			},
			wantErr:   true,
			errSubstr: "unknown language",
		},
		{
			name: "zero duration",
			mutate: func(cfg *Config) {
				cfg.Benchmarks[0].Duration = 0
			},
			wantErr:   true,
			errSubstr: "duration must be positive",
		},
		{
			name: "unknown load type",
			mutate: func(cfg *Config) {
				cfg.Benchmarks[0].LoadType = "disk_thrash"
			},
			wantErr:   true,
			errSubstr: "unknown load type",
		},
		{
			name: "valid load type",
			mutate: func(cfg *Config) {
				cfg.Benchmarks[0].LoadType = "syscall_flood"
			},
			wantErr: false,
		},
		{
			name: "api enabled with bad driver",
			mutate: func(cfg *Config) {
				cfg.API.Enabled = true
				cfg.API.Database.Driver = "oracle"
			},
			wantErr:   true,
			errSubstr: "unknown database driver",
		},
		{
			name: "api enabled with both storage backends",
			mutate: func(cfg *Config) {
				cfg.API.Enabled = true
				cfg.API.Database.Driver = "sqlite"
				cfg.API.Storage.Local = &LocalStorageConfig{Dir: "/tmp"}
				cfg.API.Storage.S3 = &S3StorageConfig{Bucket: "b"}
			},
			wantErr:   true,
			errSubstr: "cannot configure both",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFindBenchmark(t *testing.T) {
	cfg := &Config{
		Benchmarks: []BenchmarkSpec{
			{ID: "syscall_rate"},
			{ID: "ring_buffer"},
		},
	}

	require.NotNil(t, cfg.FindBenchmark("ring_buffer"))
	assert.Equal(t, "ring_buffer", cfg.FindBenchmark("ring_buffer").ID)
	assert.Nil(t, cfg.FindBenchmark("missing"))
}
