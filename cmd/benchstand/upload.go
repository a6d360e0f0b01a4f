package main

import (
	"fmt"
	"path/filepath"

	"github.com/bcsv-io/benchstand/pkg/config"
	"github.com/bcsv-io/benchstand/pkg/upload"
	"github.com/spf13/cobra"
)

var (
	uploadRunDir    string
	uploadPreflight bool
)

var uploadResultsCmd = &cobra.Command{
	Use:   "upload-results",
	Short: "Upload a benchmark run to remote storage",
	Long:  `Upload a local run directory to S3-compatible storage using the config file settings.`,
	RunE:  runUploadResults,
}

func init() {
	rootCmd.AddCommand(uploadResultsCmd)

	uploadResultsCmd.Flags().StringVar(&uploadRunDir, "run-dir", "",
		"path to the run directory to upload")
	uploadResultsCmd.Flags().BoolVar(&uploadPreflight, "preflight", true,
		"verify storage connectivity before uploading")

	_ = uploadResultsCmd.MarkFlagRequired("run-dir")
}

func runUploadResults(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Upload == nil || cfg.Upload.S3 == nil || !cfg.Upload.S3.Enabled {
		return fmt.Errorf("S3 upload is not configured or not enabled in config")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// <resultsRoot>/<host>/<label>/<timestamp>.
	absDir, err := filepath.Abs(uploadRunDir)
	if err != nil {
		return fmt.Errorf("resolving run directory: %w", err)
	}

	labelDir := filepath.Dir(absDir)
	host := filepath.Base(filepath.Dir(labelDir))
	label := filepath.Base(labelDir)

	uploader := upload.NewS3Uploader(log, cfg.Upload.S3)

	ctx := cmd.Context()

	if uploadPreflight {
		if err := uploader.Preflight(ctx); err != nil {
			return fmt.Errorf("storage preflight failed: %w", err)
		}
	}

	log.WithField("dir", absDir).Info("Uploading run")

	if err := uploader.UploadRun(ctx, absDir, host, label); err != nil {
		return fmt.Errorf("uploading run: %w", err)
	}

	log.Info("Upload completed successfully")

	return nil
}
