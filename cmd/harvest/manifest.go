package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/rohankatakam/classharvest/internal/storage"
	"github.com/spf13/cobra"
)

var (
	manifestRun     string
	manifestProject string
	manifestStage   string
	manifestCommit  string
	manifestJSON    bool
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "List class files recorded in the artifact manifest",
	Long:  `Lists the class files copied by a run (default: the latest run) with their size and SHA-256.`,
	RunE:  runManifest,
}

func init() {
	manifestCmd.Flags().StringVar(&manifestRun, "run", "", "run id (default: latest)")
	manifestCmd.Flags().StringVar(&manifestProject, "project", "", "only this project")
	manifestCmd.Flags().StringVar(&manifestStage, "stage", "", "only this stage")
	manifestCmd.Flags().StringVar(&manifestCommit, "commit", "", "only this commit directory")
	manifestCmd.Flags().BoolVar(&manifestJSON, "json", false, "print records as JSON")
}

func runManifest(cmd *cobra.Command, args []string) error {
	if cfg.Manifest.DSN == "" {
		return fmt.Errorf("manifest.dsn is empty: no artifact manifest configured")
	}

	store, err := storage.Open(cfg.Manifest.Driver, cfg.Manifest.DSN, logger.Logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	runID := manifestRun
	if runID == "" {
		runID, err = store.LatestRun(ctx)
		if stderrors.Is(err, storage.ErrNotFound) {
			fmt.Println("No artifacts recorded")
			return nil
		}
		if err != nil {
			return err
		}
	}

	artifacts, err := store.List(ctx, storage.Filter{
		RunID:   runID,
		Project: manifestProject,
		Stage:   manifestStage,
		Commit:  manifestCommit,
	})
	if err != nil {
		return err
	}

	if manifestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(artifacts)
	}

	fmt.Printf("Run %s: %d class files\n\n", runID, len(artifacts))
	var total int64
	for _, a := range artifacts {
		fmt.Printf("  %s/%s/%s  %s  %8d  %s\n", a.Stage, a.Project, a.Commit, a.ClassPath, a.Size, shortSum(a.SHA256))
		total += a.Size
	}
	if len(artifacts) > 0 {
		fmt.Printf("\n  Total: %d bytes\n", total)
	}
	return nil
}

func shortSum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
