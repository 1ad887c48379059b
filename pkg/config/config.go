package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "CROSSBENCH"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultSourceDir is the default root of the per-language benchmark sources.
	DefaultSourceDir = "./src"

	// DefaultBuildDir is the default scratch directory for build artifacts.
	DefaultBuildDir = "./build"

	// DefaultResultsDir is the default directory for benchmark results.
	DefaultResultsDir = "./results"

	// DefaultDuration is the default benchmark duration in seconds.
	DefaultDuration = 10
)

// Config is the root configuration for crossbench.
type Config struct {
	Global     GlobalConfig    `yaml:"global" mapstructure:"global"`
	LoadGen    LoadGenConfig   `yaml:"loadgen" mapstructure:"loadgen"`
	Benchmarks []BenchmarkSpec `yaml:"benchmarks" mapstructure:"benchmarks"`
	API        APIConfig       `yaml:"api" mapstructure:"api"`
	Upload     UploadConfig    `yaml:"upload" mapstructure:"upload"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel   string `yaml:"log_level" mapstructure:"log_level"`
	SourceDir  string `yaml:"source_dir" mapstructure:"source_dir"`
	BuildDir   string `yaml:"build_dir" mapstructure:"build_dir"`
	ResultsDir string `yaml:"results_dir" mapstructure:"results_dir"`

	// Owner is an optional "uid:gid" applied to files written by the
	// orchestrator, for runs executing as root into host-mounted dirs.
	Owner string `yaml:"owner,omitempty" mapstructure:"owner"`
}

// LoadGenConfig contains background load generator settings.
type LoadGenConfig struct {
	Binary           string `yaml:"binary" mapstructure:"binary"`
	MemorySize       string `yaml:"memory_size" mapstructure:"memory_size"`
	StopGraceSeconds int    `yaml:"stop_grace_seconds" mapstructure:"stop_grace_seconds"`
}

func (c *LoadGenConfig) applyDefaults() {
	if c.Binary == "" {
		c.Binary = "stress-ng"
	}

	if c.MemorySize == "" {
		c.MemorySize = "128M"
	}

	if c.StopGraceSeconds == 0 {
		c.StopGraceSeconds = 5
	}
}

// BenchmarkSpec defines one logical benchmark and the languages it runs in.
type BenchmarkSpec struct {
	ID            string   `yaml:"id" mapstructure:"id"`
	Name          string   `yaml:"name" mapstructure:"name"`
	ProgramType   string   `yaml:"program_type" mapstructure:"program_type"`
	DataMechanism string   `yaml:"data_mechanism" mapstructure:"data_mechanism"`
	Duration      int      `yaml:"duration" mapstructure:"duration"`
	Languages     []string `yaml:"languages" mapstructure:"languages"`
	LoadType      string   `yaml:"load_type,omitempty" mapstructure:"load_type"`
}

// Load reads a configuration file, applies defaults, and overlays
// CROSSBENCH_* environment variables on top of the file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var base Config
	if err := yaml.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	base.applyDefaults()

	// Round-trip through viper so every key, including defaulted ones,
	// is bindable to an environment variable.
	merged, err := yaml.Marshal(&base)
	if err != nil {
		return nil, fmt.Errorf("serializing config: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewReader(merged)); err != nil {
		return nil, fmt.Errorf("loading config into viper: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range v.AllKeys() {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	var cfg Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return nil, fmt.Errorf("creating config decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Global.SourceDir == "" {
		c.Global.SourceDir = DefaultSourceDir
	}

	if c.Global.BuildDir == "" {
		c.Global.BuildDir = DefaultBuildDir
	}

	if c.Global.ResultsDir == "" {
		c.Global.ResultsDir = DefaultResultsDir
	}

	c.LoadGen.applyDefaults()
	c.API.applyDefaults()

	for i := range c.Benchmarks {
		if c.Benchmarks[i].Name == "" {
			c.Benchmarks[i].Name = c.Benchmarks[i].ID
		}

		if c.Benchmarks[i].Duration == 0 {
			c.Benchmarks[i].Duration = DefaultDuration
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Benchmarks) == 0 {
		return fmt.Errorf("at least one benchmark must be configured")
	}

	seenIDs := make(map[string]struct{}, len(c.Benchmarks))

	for i, b := range c.Benchmarks {
		if b.ID == "" {
			return fmt.Errorf("benchmark %d: id is required", i)
		}

		if _, exists := seenIDs[b.ID]; exists {
			return fmt.Errorf("benchmark %d: duplicate id %q", i, b.ID)
		}

		seenIDs[b.ID] = struct{}{}

		if len(b.Languages) == 0 {
			return fmt.Errorf("benchmark %q: at least one language is required", b.ID)
		}

		for _, lang := range b.Languages {
			if !isValidLanguage(lang) {
				return fmt.Errorf("benchmark %q: unknown language %q", b.ID, lang)
			}
		}

		if b.Duration <= 0 {
			return fmt.Errorf("benchmark %q: duration must be positive", b.ID)
		}

		if b.LoadType != "" && !isValidLoadType(b.LoadType) {
			return fmt.Errorf("benchmark %q: unknown load type %q", b.ID, b.LoadType)
		}
	}

	if c.Global.ResultsDir != "" {
		dir := filepath.Dir(c.Global.ResultsDir)
		if dir != "." && dir != ".." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("results directory parent %q does not exist", dir)
			}
		}
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}

// validLanguages is the list of supported benchmark languages.
var validLanguages = map[string]struct{}{
	"go":     {},
	"python": {},
	"rust":   {},
	"c":      {},
}

// isValidLanguage checks if the given language tag is supported.
func isValidLanguage(lang string) bool {
	_, ok := validLanguages[lang]

	return ok
}

// validLoadTypes is the list of supported background load profiles.
var validLoadTypes = map[string]struct{}{
	"syscall_flood": {},
	"cpu_bound":     {},
	"memory":        {},
}

// isValidLoadType checks if the given load type is supported.
func isValidLoadType(loadType string) bool {
	_, ok := validLoadTypes[loadType]

	return ok
}

// FindBenchmark returns the benchmark spec with the given id, or nil.
func (c *Config) FindBenchmark(id string) *BenchmarkSpec {
	for i := range c.Benchmarks {
		if c.Benchmarks[i].ID == id {
			return &c.Benchmarks[i]
		}
	}

	return nil
}
