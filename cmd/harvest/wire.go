package main

import (
	"github.com/rohankatakam/classharvest/internal/artifact"
	"github.com/rohankatakam/classharvest/internal/build"
	"github.com/rohankatakam/classharvest/internal/command"
	"github.com/rohankatakam/classharvest/internal/config"
	"github.com/rohankatakam/classharvest/internal/dataset"
	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/fetch"
	"github.com/rohankatakam/classharvest/internal/harvest"
	"github.com/rohankatakam/classharvest/internal/journal"
	"github.com/rohankatakam/classharvest/internal/publish"
	"github.com/rohankatakam/classharvest/internal/storage"
	"github.com/sirupsen/logrus"
)

// components holds everything a run needs plus what must be closed afterwards
type components struct {
	deps    harvest.Deps
	closers []func() error
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newFetcher(cfg *config.Config, runner command.Runner, log *logrus.Logger) *fetch.Fetcher {
	return fetch.NewFetcher(cfg.Workspace.ProjectsDir, runner, log, fetch.Options{
		GitBinary: cfg.Git.Binary,
		Shallow:   cfg.Git.Shallow,
	})
}

// wire builds the runner's collaborators from configuration.
// The journal, manifest and publisher are optional: failing to open one logs a warning.
func wire(cfg *config.Config, log *logrus.Logger) (*components, error) {
	stages, err := cfg.ParsedStages()
	if err != nil {
		return nil, errors.ConfigError(err.Error())
	}
	strategy, err := artifact.ParseStrategy(cfg.Match.Strategy)
	if err != nil {
		return nil, err
	}
	gradleArgs, err := cfg.Build.GradleArgv()
	if err != nil {
		return nil, errors.ConfigError(err.Error())
	}
	mavenArgs, err := cfg.Build.MavenArgv()
	if err != nil {
		return nil, errors.ConfigError(err.Error())
	}
	javacArgs, err := cfg.Build.JavacArgv()
	if err != nil {
		return nil, errors.ConfigError(err.Error())
	}

	runner := command.NewExecRunner(log)
	layout := dataset.NewLayout(cfg.Workspace.DatasetDir)
	matcher := artifact.NewMatcher(layout, strategy, log)
	compiler := build.NewCompiler(runner, matcher, layout, build.CompilerOptions{
		Javac:            cfg.Build.Javac,
		ExtraArgs:        javacArgs,
		SourceRoot:       cfg.Build.SourceRoot,
		ScratchDirName:   cfg.Workspace.ScratchDirName,
		RespectGitignore: cfg.Build.RespectGitignore,
		Timeout:          cfg.Build.Timeout,
	}, log)
	dispatcher := build.NewDispatcher(runner, matcher, compiler, build.Options{
		GradleArgs: gradleArgs,
		MavenArgs:  mavenArgs,
		Timeout:    cfg.Build.Timeout,
	}, log)

	c := &components{
		deps: harvest.Deps{
			Projects:  cfg.Projects,
			Stages:    stages,
			Layout:    layout,
			Fetcher:   newFetcher(cfg, runner, log),
			Runner:    runner,
			GitBinary: cfg.Git.Binary,
			Builder:   dispatcher,
			Logger:    log,
		},
	}

	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			log.WithError(err).Warn("State journal unavailable, continuing without it")
		} else {
			c.deps.Recorder = j
			c.closers = append(c.closers, j.Close)
		}
	}

	if cfg.Manifest.DSN != "" {
		store, err := storage.Open(cfg.Manifest.Driver, cfg.Manifest.DSN, log)
		if err != nil {
			log.WithError(err).Warn("Artifact manifest unavailable, continuing without it")
		} else {
			c.deps.Manifest = store
			c.closers = append(c.closers, store.Close)
		}
	}

	if cfg.Publish.Endpoint != "" {
		store, err := publish.NewS3Store(publish.S3Config{
			Endpoint:  cfg.Publish.Endpoint,
			Region:    cfg.Publish.Region,
			AccessKey: cfg.Publish.AccessKey,
			SecretKey: cfg.Publish.SecretKey,
			Bucket:    cfg.Publish.Bucket,
			UseSSL:    cfg.Publish.UseSSL,
		})
		if err != nil {
			c.Close()
			return nil, errors.ConfigError(err.Error())
		}
		c.deps.Publisher = publish.NewPublisher(store, layout.OutputDir, cfg.Publish.Concurrency, log)
	}

	return c, nil
}
