package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polyglotops/crossbench/pkg/config"
	"github.com/polyglotops/crossbench/pkg/upload"
)

var uploadDir string

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload results to remote storage",
	Long: `Upload the results directory to S3-compatible storage using the
upload section of the config file. Artifact names are preserved so a
remote API indexer can pick them up unchanged.`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadDir, "dir", "",
		"Directory to upload (defaults to the configured results directory)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	applyConfigLogLevel(cmd, cfg)

	if cfg.Upload.Bucket == "" {
		return fmt.Errorf("upload is not configured (set upload.bucket)")
	}

	dir := uploadDir
	if dir == "" {
		dir = cfg.Global.ResultsDir
	}

	uploader, err := upload.NewS3Uploader(log, &cfg.Upload)
	if err != nil {
		return fmt.Errorf("creating uploader: %w", err)
	}

	ctx := cmd.Context()

	// Fail fast before walking the directory.
	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("upload preflight check failed: %w", err)
	}

	log.WithField("dir", dir).Info("Uploading results")

	if err := uploader.UploadDir(ctx, dir); err != nil {
		return fmt.Errorf("uploading results: %w", err)
	}

	return nil
}
