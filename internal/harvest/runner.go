// Package harvest drives the sequential project → stage → commit directory traversal.
package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rohankatakam/classharvest/internal/artifact"
	"github.com/rohankatakam/classharvest/internal/build"
	"github.com/rohankatakam/classharvest/internal/command"
	"github.com/rohankatakam/classharvest/internal/dataset"
	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/fetch"
	"github.com/rohankatakam/classharvest/internal/git"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/sirupsen/logrus"
)

// Recorder persists state transitions; *journal.Journal implements it
type Recorder interface {
	Begin(runID string, startedAt time.Time) error
	Record(t models.Transition) error
	Finish(runID string, finishedAt time.Time) error
}

// ManifestSaver stores artifact records; *storage.ManifestStore implements it
type ManifestSaver interface {
	Save(ctx context.Context, artifacts []*models.Artifact) error
}

// ArtifactPublisher uploads copied class files; *publish.Publisher implements it
type ArtifactPublisher interface {
	Publish(ctx context.Context, dir models.CommitDir, files []artifact.Copied) (int, error)
}

// Builder builds a working copy and collects a commit directory's classes; *build.Dispatcher implements it
type Builder interface {
	Build(ctx context.Context, repoDir string, dir models.CommitDir) (build.Outcome, error)
}

// Deps wires the runner's collaborators. Recorder, Manifest and Publisher are optional.
type Deps struct {
	Projects  []models.Project
	Stages    []models.Stage
	Layout    dataset.Layout
	Fetcher   *fetch.Fetcher
	Runner    command.Runner
	GitBinary string
	Builder   Builder
	Recorder  Recorder
	Manifest  ManifestSaver
	Publisher ArtifactPublisher
	Logger    *logrus.Logger

	// SkipFetch never clones; projects without a working copy are skipped
	SkipFetch bool
	// RunID defaults to a random UUID
	RunID string
}

// Runner processes every commit directory of every project, one at a time.
// Failures are contained to the unit they happen in.
type Runner struct {
	deps   Deps
	runID  string
	logger *logrus.Logger
}

// NewRunner creates a runner
func NewRunner(deps Deps) *Runner {
	if len(deps.Stages) == 0 {
		deps.Stages = models.AllStages()
	}
	if deps.GitBinary == "" {
		deps.GitBinary = "git"
	}
	runID := deps.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Runner{deps: deps, runID: runID, logger: deps.Logger}
}

// RunID identifies this run in the journal and manifest
func (r *Runner) RunID() string {
	return r.runID
}

// Run walks projects, stages and commit directories in order.
// It only returns an error when ctx is cancelled; per-unit failures land in the report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: r.runID, StartedAt: time.Now().UTC()}

	if r.deps.Recorder != nil {
		if err := r.deps.Recorder.Begin(r.runID, report.StartedAt); err != nil {
			r.logger.WithError(err).Warn("Failed to record run start in journal")
		}
	}
	defer func() {
		report.FinishedAt = time.Now().UTC()
		if r.deps.Recorder != nil {
			if err := r.deps.Recorder.Finish(r.runID, report.FinishedAt); err != nil {
				r.logger.WithError(err).Warn("Failed to record run end in journal")
			}
		}
	}()

	r.logger.WithFields(logrus.Fields{
		"run_id":   r.runID,
		"projects": len(r.deps.Projects),
		"stages":   r.deps.Stages,
	}).Info("Starting harvest")

	if err := ctx.Err(); err != nil {
		return report, err
	}

	// every working copy is cloned before any commit directory is processed
	var fetchFailures map[string]error
	if !r.deps.SkipFetch {
		fetchFailures = r.deps.Fetcher.EnsureAll(ctx, r.deps.Projects)
	}

	for _, project := range r.deps.Projects {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r.processProject(ctx, project, fetchFailures[project.Name], report)
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	r.logger.WithFields(logrus.Fields{
		"run_id":  r.runID,
		"matched": report.Count(models.StateMatched),
		"skipped": report.Count(models.StateSkipped),
		"failed":  report.Count(models.StateFailed),
		"copied":  report.Copied,
	}).Info("Harvest completed")

	return report, nil
}

func (r *Runner) processProject(ctx context.Context, project models.Project, fetchErr error, report *Report) {
	log := r.logger.WithField("project", project.Name)
	projectUnit := unit{project: project.Name, key: project.Name}

	if fetchErr != nil {
		r.finish(report, projectUnit, models.StateFailed, fetchErr.Error())
		return
	}

	repoPath := r.deps.Fetcher.PathFor(project)
	if !git.IsWorkingCopy(repoPath) {
		log.Infof("Repository for %s does not exist, skipping", project.Name)
		r.finish(report, projectUnit, models.StateSkipped, fmt.Sprintf("repository %s does not exist", repoPath))
		return
	}

	repo := git.NewRepo(repoPath, r.deps.Runner, r.deps.GitBinary)

	for _, stage := range r.deps.Stages {
		dirs, err := r.deps.Layout.CommitDirs(stage, project.Name)
		if err != nil {
			stageUnit := unit{project: project.Name, stage: stage, key: fmt.Sprintf("%s/%s", stage, project.Name)}
			if errors.IsSkip(err) {
				log.WithField("stage", stage).Info(err.Error())
				r.finish(report, stageUnit, models.StateSkipped, err.Error())
			} else {
				log.WithError(err).WithField("stage", stage).Error("Failed to list commit directories")
				r.finish(report, stageUnit, models.StateFailed, err.Error())
			}
			continue
		}

		for _, dir := range dirs {
			if ctx.Err() != nil {
				return
			}
			r.processDir(ctx, repo, dir, report)
		}
	}
}

func (r *Runner) processDir(ctx context.Context, repo *git.Repo, dir models.CommitDir, report *Report) {
	u := unit{project: dir.Project, stage: dir.Stage, commit: dir.Commit, key: dir.Key()}
	log := r.logger.WithFields(logrus.Fields{
		"project": dir.Project,
		"stage":   dir.Stage,
		"commit":  dir.Commit,
	})
	r.record(u, models.StatePending, "")

	target, err := repo.ResolveTarget(ctx, dir.Commit, dir.Stage)
	if err != nil {
		r.fail(report, u, log, err)
		return
	}
	u.target = target
	r.record(u, models.StateResolved, "")
	log = log.WithField("target", target)

	log.Infof("Processing %s commit %s for %s", dir.Stage, target, dir.Project)
	if err := repo.Prepare(ctx, target); err != nil {
		// no build: the working copy may still be on the previous commit
		r.fail(report, u, log, err)
		return
	}
	r.record(u, models.StateCheckedOut, "")

	outcome, err := r.deps.Builder.Build(ctx, repo.Path(), dir)
	u.system = outcome.System
	if outcome.Built {
		r.record(u, models.StateBuilt, "")
	}
	if err != nil {
		r.fail(report, u, log.WithField("build_system", outcome.System), err)
		return
	}

	var copied []artifact.Copied
	if outcome.Result != nil {
		copied = outcome.Result.Copied
		u.copied = len(copied)
		u.unmatched = len(outcome.Result.Unmatched)
	}
	report.Copied += len(copied)

	log.WithFields(logrus.Fields{
		"build_system": outcome.System,
		"copied":       u.copied,
		"unmatched":    u.unmatched,
	}).Info("Collected compiled classes")

	r.saveManifest(ctx, dir, copied, log)
	report.Published += r.publish(ctx, dir, copied, log)

	r.finish(report, u, models.StateMatched, "")
}

func (r *Runner) fail(report *Report, u unit, log *logrus.Entry, err error) {
	if errors.IsSkip(err) {
		log.Infof("Skipping: %v", err)
		r.finish(report, u, models.StateSkipped, err.Error())
		return
	}
	log.WithError(err).Error("Processing failed")
	r.finish(report, u, models.StateFailed, err.Error())
}

func (r *Runner) saveManifest(ctx context.Context, dir models.CommitDir, copied []artifact.Copied, log *logrus.Entry) {
	if r.deps.Manifest == nil || len(copied) == 0 {
		return
	}

	records := make([]*models.Artifact, 0, len(copied))
	for _, c := range copied {
		records = append(records, &models.Artifact{
			RunID:      r.runID,
			Project:    dir.Project,
			Stage:      string(dir.Stage),
			Commit:     dir.Commit,
			SourceFile: c.Source.Rel,
			ClassPath:  c.ClassPath,
			TargetPath: c.TargetPath,
			Size:       c.Size,
			SHA256:     c.SHA256,
		})
	}
	if err := r.deps.Manifest.Save(ctx, records); err != nil {
		log.WithError(err).Warn("Failed to record artifacts in manifest")
	}
}

func (r *Runner) publish(ctx context.Context, dir models.CommitDir, copied []artifact.Copied, log *logrus.Entry) int {
	if r.deps.Publisher == nil || len(copied) == 0 {
		return 0
	}
	n, err := r.deps.Publisher.Publish(ctx, dir, copied)
	if err != nil {
		log.WithError(err).Warn("Failed to publish artifacts")
	}
	return n
}

func (r *Runner) record(u unit, state models.State, reason string) {
	if r.deps.Recorder == nil {
		return
	}
	err := r.deps.Recorder.Record(models.Transition{
		RunID:     r.runID,
		Key:       u.key,
		Project:   u.project,
		Stage:     u.stage,
		Commit:    u.commit,
		State:     state,
		Target:    u.target,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		r.logger.WithError(err).WithField("key", u.key).Warn("Failed to record transition")
	}
}

// finish records a terminal state and adds the unit to the report
func (r *Runner) finish(report *Report, u unit, state models.State, reason string) {
	r.record(u, state, reason)
	report.Units = append(report.Units, UnitResult{
		Key:         u.key,
		Project:     u.project,
		Stage:       u.stage,
		Commit:      u.commit,
		Target:      u.target,
		State:       state,
		Reason:      reason,
		BuildSystem: u.system,
		Copied:      u.copied,
		Unmatched:   u.unmatched,
	})
}

type unit struct {
	key     string
	project string
	stage   models.Stage
	commit  string
	target  string
	system  build.System

	copied    int
	unmatched int
}
