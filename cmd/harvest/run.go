package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/rohankatakam/classharvest/internal/config"
	"github.com/rohankatakam/classharvest/internal/harvest"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/spf13/cobra"
)

var (
	runStages   []string
	runStrategy string
	runStrict   bool
	runNoFetch  bool
	runIDFlag   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Clone, check out, build and collect class files for every commit directory",
	Long: `Processes projects in order. For each stage (before, then after) every
commit directory under <dataset>/<stage>/<project>/ is resolved to a target
commit, checked out after stashing local changes, built, and the class files
matching the directory's Java sources are copied into its compiled/ folder.

A failing commit directory is recorded and the run moves on. The exit status
is 0 once the traversal completes unless --strict is given and a unit failed.`,
	Example: `  harvest run
  harvest run --stage after --project commons-io=https://github.com/apache/commons-io.git
  harvest run --projects projects.yaml --strategy sourcefile --strict`,
	RunE: runHarvest,
}

func init() {
	runCmd.Flags().StringSliceVar(&runStages, "stage", nil, "stages to process: before, after (default: configured stages)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "class file matching: stem, exact, sourcefile or auto")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "exit with status 1 if any commit directory failed")
	runCmd.Flags().BoolVar(&runNoFetch, "no-fetch", false, "never clone; skip projects without a working copy")
	runCmd.Flags().StringVar(&runIDFlag, "run-id", "", "identifier recorded in the journal and manifest (default: random UUID)")
	addProjectFlags(runCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	projects, err := resolveProjects()
	if err != nil {
		return err
	}
	cfg.Projects = projects
	if len(runStages) > 0 {
		cfg.Stages = runStages
	}
	if runStrategy != "" {
		cfg.Match.Strategy = runStrategy
	}

	result := cfg.Validate(config.ValidationContextRun)
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	if err := result.Err(); err != nil {
		return err
	}

	c, err := wire(cfg, logger.Logger)
	if err != nil {
		return err
	}
	defer c.Close()

	deps := c.deps
	deps.SkipFetch = runNoFetch
	deps.RunID = runIDFlag

	runner := harvest.NewRunner(deps)
	report, err := runner.Run(cmd.Context())
	if report != nil {
		printReport(report)
	}
	if err != nil {
		logger.WithError(err).Warn("Harvest interrupted")
		return err
	}

	if runStrict && report.HasFailures() {
		return fmt.Errorf("%d units failed (--strict)", report.Count(models.StateFailed))
	}
	return nil
}

func printReport(report *harvest.Report) {
	fmt.Printf("\nRun %s (%s)\n", report.RunID, report.Duration().Round(time.Millisecond))
	fmt.Printf("  Units:     %d\n", len(report.Units))
	for _, state := range []models.State{models.StateMatched, models.StateSkipped, models.StateFailed} {
		fmt.Printf("  %-10s %d\n", string(state)+":", report.Count(state))
	}
	fmt.Printf("  Copied:    %d class files\n", report.Copied)
	if report.Published > 0 {
		fmt.Printf("  Published: %d objects\n", report.Published)
	}

	var problems []harvest.UnitResult
	for _, u := range report.Units {
		if u.State == models.StateFailed {
			problems = append(problems, u)
		}
	}
	if len(problems) == 0 {
		return
	}

	sort.Slice(problems, func(i, j int) bool { return problems[i].Key < problems[j].Key })
	fmt.Println("\nFailed:")
	for _, u := range problems {
		fmt.Printf("  %s: %s\n", u.Key, u.Reason)
	}
}
