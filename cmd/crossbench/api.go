package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/polyglotops/crossbench/pkg/api"
	"github.com/polyglotops/crossbench/pkg/config"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the results API server",
	Long: `Start the HTTP API that serves indexed benchmark results. The server
runs a background indexer that scans the results storage for new
artifacts.`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.API.Enabled {
		return fmt.Errorf("api is not enabled in config (set api.enabled: true)")
	}

	if err := cfg.API.Validate(); err != nil {
		return fmt.Errorf("validating api config: %w", err)
	}

	applyConfigLogLevel(cmd, cfg)

	// Set up context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	srv := api.NewServer(log, &cfg.API, cfg.Global.ResultsDir)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}

	// Wait for shutdown signal.
	sig := <-sigCh
	log.WithField("signal", sig).Info("Shutting down API server")
	cancel()

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping api server: %w", err)
	}

	return nil
}
