package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/rohankatakam/classharvest/internal/journal"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/spf13/cobra"
)

var (
	statusRun   string
	statusUnits bool
	statusRuns  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the recorded outcome of a run",
	Long: `Reads the state journal and prints how many commit directories ended
matched, skipped or failed, grouped by reason. Defaults to the latest run.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusRun, "run", "", "run id (default: latest)")
	statusCmd.Flags().BoolVar(&statusUnits, "units", false, "list every unit with its final state")
	statusCmd.Flags().BoolVar(&statusRuns, "runs", false, "list recorded runs")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if cfg.Journal.Path == "" {
		return fmt.Errorf("journal.path is empty: no state journal configured")
	}

	j, err := journal.OpenReadOnly(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer j.Close()

	if statusRuns {
		runs, err := j.Runs()
		if err != nil {
			return err
		}
		fmt.Println("Runs:")
		for _, r := range runs {
			finished := "running or interrupted"
			if !r.FinishedAt.IsZero() {
				finished = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
			}
			fmt.Printf("  %s  %s  %s\n", r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), finished)
		}
		return nil
	}

	runID := statusRun
	if runID == "" {
		runID, err = j.Latest()
		if err != nil {
			return err
		}
	}

	summary, err := j.Summary(runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s\n", summary.Run.ID)
	fmt.Printf("  Started:  %s\n", summary.Run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if !summary.Run.FinishedAt.IsZero() {
		fmt.Printf("  Finished: %s\n", summary.Run.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("  Units:    %d\n\n", summary.Total())

	fmt.Println("States:")
	for _, state := range []models.State{
		models.StateMatched, models.StateSkipped, models.StateFailed,
		models.StatePending, models.StateResolved, models.StateCheckedOut, models.StateBuilt,
	} {
		if n := summary.Count(state); n > 0 {
			fmt.Printf("  %-12s %d\n", state, n)
		}
	}

	if len(summary.Reasons) > 0 {
		reasons := make([]string, 0, len(summary.Reasons))
		for r := range summary.Reasons {
			reasons = append(reasons, r)
		}
		sort.Slice(reasons, func(a, b int) bool {
			if summary.Reasons[reasons[a]] != summary.Reasons[reasons[b]] {
				return summary.Reasons[reasons[a]] > summary.Reasons[reasons[b]]
			}
			return reasons[a] < reasons[b]
		})

		fmt.Println("\nReasons:")
		for _, r := range reasons {
			fmt.Printf("  %4d  %s\n", summary.Reasons[r], r)
		}
	}

	if statusUnits {
		fmt.Println("\nUnits:")
		for _, u := range summary.Units {
			line := fmt.Sprintf("  %-12s %s", u.State, u.Key)
			if u.Target != "" {
				line += " @ " + u.Target
			}
			if u.Reason != "" {
				line += " (" + u.Reason + ")"
			}
			fmt.Println(line)
		}
	}

	return nil
}
