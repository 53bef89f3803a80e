package main

import (
	"fmt"

	"github.com/rohankatakam/classharvest/internal/command"
	"github.com/rohankatakam/classharvest/internal/config"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Clone every configured project that has no working copy yet",
	Long: `Clones projects into the workspace projects directory without building
anything. Existing working copies are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		projects, err := resolveProjects()
		if err != nil {
			return err
		}
		cfg.Projects = projects

		result := cfg.Validate(config.ValidationContextFetch)
		for _, w := range result.Warnings {
			logger.Warn(w)
		}
		if err := result.Err(); err != nil {
			return err
		}

		fetcher := newFetcher(cfg, command.NewExecRunner(logger.Logger), logger.Logger)
		failures := fetcher.EnsureAll(cmd.Context(), projects)

		fmt.Printf("\nFetched %d/%d projects\n", len(projects)-len(failures), len(projects))
		for _, p := range projects {
			if err, ok := failures[p.Name]; ok {
				fmt.Printf("  ❌ %s: %v\n", p.Name, err)
			}
		}
		if len(failures) > 0 {
			return fmt.Errorf("%d projects could not be fetched", len(failures))
		}
		return nil
	},
}

func init() {
	addProjectFlags(fetchCmd)
}
