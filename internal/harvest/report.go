package harvest

import (
	"time"

	"github.com/rohankatakam/classharvest/internal/build"
	"github.com/rohankatakam/classharvest/internal/models"
)

// UnitResult is the terminal outcome of a commit directory, or of a whole project or stage
// when it could not be processed at all
type UnitResult struct {
	Key         string       `json:"key"`
	Project     string       `json:"project"`
	Stage       models.Stage `json:"stage,omitempty"`
	Commit      string       `json:"commit,omitempty"`
	Target      string       `json:"target,omitempty"`
	State       models.State `json:"state"`
	Reason      string       `json:"reason,omitempty"`
	BuildSystem build.System `json:"build_system,omitempty"`
	Copied      int          `json:"copied"`
	Unmatched   int          `json:"unmatched"`
}

// Report summarizes a run
type Report struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Units      []UnitResult `json:"units"`
	Copied     int          `json:"copied"`
	Published  int          `json:"published"`
}

// Count returns how many units ended in state
func (r *Report) Count(state models.State) int {
	n := 0
	for _, u := range r.Units {
		if u.State == state {
			n++
		}
	}
	return n
}

// HasFailures reports whether any unit failed
func (r *Report) HasFailures() bool {
	return r.Count(models.StateFailed) > 0
}

// Unit returns the result for key
func (r *Report) Unit(key string) (UnitResult, bool) {
	for _, u := range r.Units {
		if u.Key == key {
			return u, true
		}
	}
	return UnitResult{}, false
}

// Duration is the wall time of the run
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
