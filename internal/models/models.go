package models

import (
	"fmt"
	"strings"
	"time"
)

// Project is a named source repository harvested by the tool
type Project struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	URL  string `json:"url" yaml:"url" mapstructure:"url"`
}

// Stage classifies which commit relative to a dataset entry is checked out
type Stage string

const (
	// StageBefore checks out the parent of the dataset commit
	StageBefore Stage = "before"
	// StageAfter checks out the dataset commit itself
	StageAfter Stage = "after"
)

// AllStages returns the stages in processing order
func AllStages() []Stage {
	return []Stage{StageBefore, StageAfter}
}

// ParseStage converts a string into a Stage
func ParseStage(s string) (Stage, error) {
	switch Stage(strings.ToLower(strings.TrimSpace(s))) {
	case StageBefore:
		return StageBefore, nil
	case StageAfter:
		return StageAfter, nil
	default:
		return "", fmt.Errorf("unknown stage %q (expected before or after)", s)
	}
}

// CommitDir is a dataset folder named after a commit reference
type CommitDir struct {
	Project string `json:"project"`
	Stage   Stage  `json:"stage"`
	Commit  string `json:"commit"`
	Path    string `json:"path"`
}

// Key identifies the commit directory inside a run
func (c CommitDir) Key() string {
	return fmt.Sprintf("%s/%s/%s", c.Stage, c.Project, c.Commit)
}

// State is a point in the per-commit-directory lifecycle
type State string

const (
	StatePending    State = "pending"
	StateResolved   State = "resolved"
	StateCheckedOut State = "checked_out"
	StateBuilt      State = "built"
	StateMatched    State = "matched"
	StateSkipped    State = "skipped"
	StateFailed     State = "failed"
)

// IsTerminal reports whether no further transition follows the state
func (s State) IsTerminal() bool {
	return s == StateMatched || s == StateSkipped || s == StateFailed
}

// Transition is one recorded state change
type Transition struct {
	RunID     string    `json:"run_id"`
	Key       string    `json:"key"`
	Project   string    `json:"project"`
	Stage     Stage     `json:"stage"`
	Commit    string    `json:"commit,omitempty"`
	State     State     `json:"state"`
	Target    string    `json:"target,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Artifact is a compiled class file copied into a commit directory
type Artifact struct {
	ID         int64     `json:"id" db:"id"`
	RunID      string    `json:"run_id" db:"run_id"`
	Project    string    `json:"project" db:"project"`
	Stage      string    `json:"stage" db:"stage"`
	Commit     string    `json:"commit" db:"commit_ref"`
	SourceFile string    `json:"source_file" db:"source_file"`
	ClassPath  string    `json:"class_path" db:"class_path"`
	TargetPath string    `json:"target_path" db:"target_path"`
	Size       int64     `json:"size" db:"size"`
	SHA256     string    `json:"sha256" db:"sha256"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
