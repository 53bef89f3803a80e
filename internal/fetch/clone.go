// Package fetch makes sure every configured project has a local working copy.
package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rohankatakam/classharvest/internal/command"
	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/git"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/sirupsen/logrus"
)

// Fetcher clones projects into <root>/<project name>
type Fetcher struct {
	root    string
	binary  string
	shallow bool
	runner  command.Runner
	logger  *logrus.Logger
}

// Options tunes clone behavior
type Options struct {
	GitBinary string
	Shallow   bool // --depth 1; breaks parent resolution for the before stage
}

// NewFetcher creates a fetcher rooted at the projects directory
func NewFetcher(root string, runner command.Runner, logger *logrus.Logger, opts Options) *Fetcher {
	if opts.GitBinary == "" {
		opts.GitBinary = "git"
	}
	return &Fetcher{
		root:    root,
		binary:  opts.GitBinary,
		shallow: opts.Shallow,
		runner:  runner,
		logger:  logger,
	}
}

// PathFor returns where the project's working copy lives
func (f *Fetcher) PathFor(project models.Project) string {
	return filepath.Join(f.root, project.Name)
}

// Ensure clones the project unless its directory already exists.
// It returns the working copy path and whether a clone happened.
func (f *Fetcher) Ensure(ctx context.Context, project models.Project) (string, bool, error) {
	repoPath := f.PathFor(project)
	log := f.logger.WithFields(logrus.Fields{
		"project": project.Name,
		"path":    repoPath,
	})

	// Check if already cloned
	if _, err := os.Stat(repoPath); err == nil {
		if !git.IsWorkingCopy(repoPath) {
			return repoPath, false, errors.ValidationErrorf("%s exists but is not a git working copy", repoPath).
				WithContext("project", project.Name)
		}
		log.Debug("Working copy already present, skipping clone")
		return repoPath, false, nil
	} else if !os.IsNotExist(err) {
		return repoPath, false, errors.FileSystemErrorf(err, "failed to stat %s", repoPath)
	}

	if err := os.MkdirAll(f.root, 0755); err != nil {
		return repoPath, false, errors.FileSystemError(err, "failed to create projects directory")
	}

	args := []string{"clone"}
	if f.shallow {
		args = append(args, "--depth", "1")
	}
	args = append(args, project.URL, repoPath)

	log.WithField("url", project.URL).Info("Cloning repository")
	if _, err := f.runner.Run(ctx, command.Spec{
		Name: f.binary,
		Args: args,
		Env:  []string{"GIT_TERMINAL_PROMPT=0"},
	}); err != nil {
		// never leave a partial working copy behind
		if rmErr := os.RemoveAll(repoPath); rmErr != nil {
			log.WithError(rmErr).Warn("Failed to remove partial clone")
		}
		return repoPath, false, errors.ExternalErrorf(err, "git clone %s failed", project.URL).
			WithContext("project", project.Name)
	}

	return repoPath, true, nil
}

// EnsureAll clones every project, continuing past failures.
// The returned map holds the error for each project that could not be fetched.
func (f *Fetcher) EnsureAll(ctx context.Context, projects []models.Project) map[string]error {
	failures := make(map[string]error)
	for _, p := range projects {
		if ctx.Err() != nil {
			failures[p.Name] = fmt.Errorf("fetch cancelled: %w", ctx.Err())
			continue
		}
		if _, _, err := f.Ensure(ctx, p); err != nil {
			f.logger.WithError(err).WithField("project", p.Name).Error("Failed to fetch project")
			failures[p.Name] = err
		}
	}
	return failures
}
