package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rohankatakam/classharvest/internal/command"
	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/models"
)

// Repo is a local working copy driven through the git binary
type Repo struct {
	path   string
	binary string
	runner command.Runner
}

// NewRepo wraps the working copy at path
func NewRepo(path string, runner command.Runner, binary string) *Repo {
	if binary == "" {
		binary = "git"
	}
	return &Repo{
		path:   path,
		binary: binary,
		runner: runner,
	}
}

// Path returns the working copy directory
func (r *Repo) Path() string {
	return r.path
}

// IsWorkingCopy checks if the directory holds a git checkout
func IsWorkingCopy(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	if err != nil {
		return false
	}
	// .git is a file for worktrees and submodules
	return info.IsDir() || info.Mode().IsRegular()
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	out, err := r.runner.Run(ctx, command.Spec{
		Dir:  r.path,
		Name: r.binary,
		Args: args,
		Env:  []string{"GIT_TERMINAL_PROMPT=0"},
	})
	return strings.TrimSpace(string(out)), err
}

// RevParse resolves a revision expression to a full commit SHA
func (r *Repo) RevParse(ctx context.Context, rev string) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--verify", "--quiet", rev)
	if err != nil {
		return "", fmt.Errorf("git rev-parse %s: %w", rev, err)
	}
	return out, nil
}

// Parent returns the first parent of commit; root commits have none
func (r *Repo) Parent(ctx context.Context, commit string) (string, error) {
	return r.RevParse(ctx, commit+"^")
}

// Head returns the checked-out commit
func (r *Repo) Head(ctx context.Context) (string, error) {
	return r.RevParse(ctx, "HEAD")
}

// ResolveTarget picks the commit to check out for a dataset entry.
// Before resolves to the parent (a skip error when there is none);
// after is the dataset commit itself and needs no git query.
func (r *Repo) ResolveTarget(ctx context.Context, commit string, stage models.Stage) (string, error) {
	switch stage {
	case models.StageBefore:
		parent, err := r.Parent(ctx, commit)
		if err != nil {
			return "", errors.Skipf("cannot determine previous commit for %s, likely the first commit", commit).
				WithContext("cause", err.Error())
		}
		return parent, nil
	case models.StageAfter:
		return commit, nil
	default:
		return "", errors.InternalErrorf("unknown stage %q", stage)
	}
}

// Stash sets local modifications aside so checkout cannot conflict
func (r *Repo) Stash(ctx context.Context) error {
	if _, err := r.git(ctx, "stash"); err != nil {
		return errors.ExternalError(err, "git stash failed")
	}
	return nil
}

// Checkout switches the working copy to ref
func (r *Repo) Checkout(ctx context.Context, ref string) error {
	if _, err := r.git(ctx, "checkout", ref); err != nil {
		return errors.ExternalErrorf(err, "git checkout %s failed", ref)
	}
	return nil
}

// Prepare stashes local changes and checks out ref. There is no rollback:
// a failure can leave the working copy on the previous commit.
func (r *Repo) Prepare(ctx context.Context, ref string) error {
	if err := r.Stash(ctx); err != nil {
		return err
	}
	return r.Checkout(ctx, ref)
}

// ParseRepoURL extracts owner and repository name from a git remote URL
// Supports multiple URL formats:
//   - HTTPS: https://github.com/owner/repo.git
//   - SSH: git@github.com:owner/repo.git
//   - Git protocol: git://github.com/owner/repo.git
func ParseRepoURL(remoteURL string) (owner, repo string, err error) {
	remoteURL = strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(remoteURL), "/"), ".git")

	for _, re := range urlPatterns {
		if matches := re.FindStringSubmatch(remoteURL); len(matches) == 3 {
			return matches[1], matches[2], nil
		}
	}

	return "", "", fmt.Errorf("unrecognized git URL format: %s", remoteURL)
}

var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+)$`),
	regexp.MustCompile(`^git@[^:]+:([^/]+)/([^/]+)$`),
	regexp.MustCompile(`^(?:git|ssh)://[^/]+/([^/]+)/([^/]+)$`),
}
