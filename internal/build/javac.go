package build

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rohankatakam/classharvest/internal/artifact"
	"github.com/rohankatakam/classharvest/internal/command"
	"github.com/rohankatakam/classharvest/internal/dataset"
	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/models"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sirupsen/logrus"
)

// argFileThreshold is the source count above which file names go through a javac @argfile
const argFileThreshold = 200

// CompilerOptions configures the manual javac fallback
type CompilerOptions struct {
	Javac            string
	ExtraArgs        []string
	SourceRoot       string // relative to the working copy
	ScratchDirName   string // relative to the working copy, removed after every attempt
	RespectGitignore bool
	Timeout          time.Duration
}

// Compiler compiles a whole source tree with one javac invocation
type Compiler struct {
	runner  command.Runner
	matcher *artifact.Matcher
	layout  dataset.Layout
	opts    CompilerOptions
	logger  *logrus.Logger
}

// NewCompiler creates a manual compiler
func NewCompiler(runner command.Runner, matcher *artifact.Matcher, layout dataset.Layout, opts CompilerOptions, logger *logrus.Logger) *Compiler {
	if opts.Javac == "" {
		opts.Javac = "javac"
	}
	if opts.SourceRoot == "" {
		opts.SourceRoot = "src"
	}
	if opts.ScratchDirName == "" {
		opts.ScratchDirName = "compiled"
	}
	return &Compiler{
		runner:  runner,
		matcher: matcher,
		layout:  layout,
		opts:    opts,
		logger:  logger,
	}
}

// Compile builds every source under the source root into a scratch directory,
// copies the classes matching dir's dataset sources, and removes the scratch directory.
// A missing source root or an empty dataset directory is a skip; a single compile error fails the attempt.
func (c *Compiler) Compile(ctx context.Context, repoDir string, dir models.CommitDir) (Outcome, error) {
	outcome := Outcome{System: SystemNone}

	srcDir := filepath.Join(repoDir, c.opts.SourceRoot)
	if info, err := os.Stat(srcDir); err != nil || !info.IsDir() {
		return outcome, errors.Skipf("no source directory found in %s", repoDir)
	}

	datasetFiles, err := c.layout.SourceFiles(dir)
	if err != nil {
		return outcome, err
	}
	if len(datasetFiles) == 0 {
		return outcome, errors.Skipf("no Java files found in dataset for commit %s", dir.Commit)
	}

	files, err := c.collectSources(repoDir, srcDir)
	if err != nil {
		return outcome, err
	}
	if len(files) == 0 {
		return outcome, errors.Skipf("no Java sources under %s", srcDir)
	}

	scratch := filepath.Join(repoDir, c.opts.ScratchDirName)
	outcome.ClassRoot = scratch
	if err := os.RemoveAll(scratch); err != nil {
		return outcome, errors.FileSystemErrorf(err, "failed to clear %s", scratch)
	}
	if err := os.MkdirAll(scratch, 0755); err != nil {
		return outcome, errors.FileSystemErrorf(err, "failed to create %s", scratch)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			c.logger.WithError(err).Warnf("Failed to remove %s", scratch)
		}
	}()

	args, cleanup, err := c.args(scratch, srcDir, files)
	if err != nil {
		return outcome, err
	}
	defer cleanup()

	spec := command.Spec{Dir: repoDir, Name: c.opts.Javac, Args: args}
	c.logger.WithFields(logrus.Fields{
		"commit":  dir.Commit,
		"sources": len(files),
	}).Infof("Compiling the entire project into %s", scratch)

	start := time.Now()
	_, err = runWithTimeout(ctx, c.runner, spec, c.opts.Timeout)
	outcome.Duration = time.Since(start)
	if err != nil {
		return outcome, errors.ExternalErrorf(err, "manual compilation failed for %s", repoDir).
			WithContext("build_system", string(SystemNone))
	}
	outcome.Built = true

	result, err := c.matcher.CollectSources(scratch, dir, datasetFiles)
	outcome.Result = result
	return outcome, err
}

func (c *Compiler) args(scratch, srcDir string, files []string) ([]string, func(), error) {
	args := []string{"-d", scratch, "-sourcepath", srcDir}
	args = append(args, c.opts.ExtraArgs...)

	if len(files) <= argFileThreshold {
		return append(args, files...), func() {}, nil
	}

	f, err := os.CreateTemp("", "classharvest-javac-*.txt")
	if err != nil {
		return nil, nil, errors.FileSystemError(err, "failed to create javac argument file")
	}
	cleanup := func() { os.Remove(f.Name()) }

	for _, file := range files {
		// javac argfiles treat whitespace as a separator unless quoted
		if _, err := f.WriteString(`"` + strings.ReplaceAll(filepath.ToSlash(file), `"`, `\"`) + "\"\n"); err != nil {
			f.Close()
			cleanup()
			return nil, nil, errors.FileSystemError(err, "failed to write javac argument file")
		}
	}
	if err := f.Close(); err != nil {
		cleanup()
		return nil, nil, errors.FileSystemError(err, "failed to write javac argument file")
	}

	return append(args, "@"+f.Name()), cleanup, nil
}

// collectSources lists every .java file under srcDir, optionally honoring the working copy's .gitignore
func (c *Compiler) collectSources(repoDir, srcDir string) ([]string, error) {
	var gi *ignore.GitIgnore
	if c.opts.RespectGitignore {
		gi = loadGitignore(repoDir)
	}

	var files []string
	err := filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ".java" {
			return nil
		}
		if gi != nil {
			rel, err := filepath.Rel(repoDir, path)
			if err == nil && gi.MatchesPath(filepath.ToSlash(rel)) {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "failed to scan %s", srcDir)
	}

	sort.Strings(files)
	return files, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
