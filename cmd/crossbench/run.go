package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/polyglotops/crossbench/pkg/config"
	"github.com/polyglotops/crossbench/pkg/executor"
	"github.com/polyglotops/crossbench/pkg/fsutil"
	"github.com/polyglotops/crossbench/pkg/lang"
	"github.com/polyglotops/crossbench/pkg/loadgen"
	"github.com/polyglotops/crossbench/pkg/results"
	"github.com/polyglotops/crossbench/pkg/runner"
)

var (
	runBenchmarkFilter string
	runLanguageFilter  string
	runVerbose         bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured benchmarks",
	Long: `Run every configured (benchmark, language) pair sequentially and
persist the results batch to the results directory.`,
	RunE: runBenchmarks,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runBenchmarkFilter, "benchmark", "",
		"Run only the benchmark with this id")
	runCmd.Flags().StringVar(&runLanguageFilter, "language", "",
		"Run only implementations in this language")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false,
		"Stream benchmark output while running")
}

func runBenchmarks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	applyConfigLogLevel(cmd, cfg)

	owner, err := fsutil.ParseOwner(cfg.Global.Owner)
	if err != nil {
		return fmt.Errorf("parsing owner: %w", err)
	}

	// Set up context with signal handling so an interrupt still persists
	// the partial batch.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	registry := lang.NewRegistry()
	injector := loadgen.NewInjector(log, &cfg.LoadGen)

	exec := executor.NewExecutor(log, &executor.Config{
		SourceDir: cfg.Global.SourceDir,
		BuildDir:  cfg.Global.BuildDir,
		Verbose:   runVerbose,
		Owner:     owner,
	}, registry, injector)

	store := results.NewStore(log, &results.StoreConfig{
		ResultsDir: cfg.Global.ResultsDir,
		Owner:      owner,
	})

	r := runner.NewRunner(log, &runner.Config{
		ConfigFile:      cfgFile,
		SourceDir:       cfg.Global.SourceDir,
		BenchmarkFilter: runBenchmarkFilter,
		LanguageFilter:  runLanguageFilter,
	}, cfg.Benchmarks, exec, store)

	if err := r.Start(ctx); err != nil {
		return fmt.Errorf("starting runner: %w", err)
	}

	defer func() {
		if err := r.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop runner")
		}
	}()

	batch, err := r.RunAll(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) && batch != nil {
			// Partial results were saved; surface the interruption.
			return fmt.Errorf("benchmark run interrupted")
		}

		return fmt.Errorf("running benchmarks: %w", err)
	}

	// Failed pairs are reported in the summary, not as a process failure.
	return nil
}

// applyConfigLogLevel lets the config file set the log level unless the
// flag was given explicitly.
func applyConfigLogLevel(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Root().PersistentFlags().Changed("log-level") {
		return
	}

	level, err := logrus.ParseLevel(cfg.Global.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.Global.LogLevel).
			Warn("Ignoring invalid log level from config")

		return
	}

	log.SetLevel(level)
}
