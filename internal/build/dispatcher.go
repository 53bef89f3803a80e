package build

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rohankatakam/classharvest/internal/artifact"
	"github.com/rohankatakam/classharvest/internal/command"
	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/sirupsen/logrus"
)

// Options configures tool invocations
type Options struct {
	GradleArgs []string
	MavenArgs  []string
	Timeout    time.Duration // 0 = no timeout
}

// Outcome describes one build attempt for a commit directory
type Outcome struct {
	System    System
	ClassRoot string
	// Built is true once the build tool or compiler exited successfully
	Built    bool
	Result   *artifact.Result
	Duration time.Duration
}

// Dispatcher runs exactly one build branch per call and collects the matching class files
type Dispatcher struct {
	runner   command.Runner
	matcher  *artifact.Matcher
	compiler *Compiler
	opts     Options
	logger   *logrus.Logger
}

// NewDispatcher creates a dispatcher; compiler handles working copies without a build tool
func NewDispatcher(runner command.Runner, matcher *artifact.Matcher, compiler *Compiler, opts Options, logger *logrus.Logger) *Dispatcher {
	if len(opts.GradleArgs) == 0 {
		opts.GradleArgs = []string{"build"}
	}
	if len(opts.MavenArgs) == 0 {
		opts.MavenArgs = []string{"clean", "compile"}
	}
	return &Dispatcher{
		runner:   runner,
		matcher:  matcher,
		compiler: compiler,
		opts:     opts,
		logger:   logger,
	}
}

// Build detects the build tool of repoDir, runs it, and copies the class files
// matching dir's dataset sources. A failed build is returned as an external error;
// no other tool is tried.
func (d *Dispatcher) Build(ctx context.Context, repoDir string, dir models.CommitDir) (Outcome, error) {
	system := Detect(repoDir)
	if system == SystemNone {
		d.logger.WithField("repo", repoDir).Info("No build system detected, attempting manual compilation")
		return d.compiler.Compile(ctx, repoDir, dir)
	}

	outcome := Outcome{System: system, ClassRoot: system.ClassRoot(repoDir)}
	spec := d.spec(system, repoDir)

	log := d.logger.WithFields(logrus.Fields{
		"build_system": system,
		"commit":       dir.Commit,
	})
	log.Infof("Building %s with %s", repoDir, spec)

	start := time.Now()
	_, err := runWithTimeout(ctx, d.runner, spec, d.opts.Timeout)
	outcome.Duration = time.Since(start)
	if err != nil {
		return outcome, errors.ExternalErrorf(err, "build failed for %s", repoDir).
			WithContext("build_system", string(system))
	}
	outcome.Built = true
	log.WithField("duration", outcome.Duration.Round(time.Millisecond)).Info("Build finished")

	result, err := d.matcher.Collect(outcome.ClassRoot, dir)
	outcome.Result = result
	return outcome, err
}

func (d *Dispatcher) spec(system System, repoDir string) command.Spec {
	spec := command.Spec{Dir: repoDir}
	switch system {
	case SystemGradleWrapper:
		spec.Name = filepath.Join(repoDir, "gradlew")
		spec.Args = d.opts.GradleArgs
	case SystemGradle:
		spec.Name = "gradle"
		spec.Args = d.opts.GradleArgs
	case SystemMaven:
		spec.Name = "mvn"
		spec.Args = d.opts.MavenArgs
	}
	return spec
}

func runWithTimeout(ctx context.Context, runner command.Runner, spec command.Spec, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return runner.Run(ctx, spec)
}
