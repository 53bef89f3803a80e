package config

import (
	"fmt"
	"strings"

	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/models"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextRun - run needs projects, stages, build and match settings
	ValidationContextRun ValidationContext = "run"
	// ValidationContextFetch - fetch only needs projects
	ValidationContextFetch ValidationContext = "fetch"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

var matchStrategies = []string{"stem", "exact", "sourcefile", "auto"}

var manifestDrivers = []string{"sqlite3", "postgres"}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Err converts a failed result into a config error, nil otherwise
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigError(strings.TrimSpace(vr.Error()))
}

// Validate validates configuration for the given context
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	validateProjects(c.Projects, result)
	if ctx == ValidationContextFetch {
		return result
	}

	c.validateStages(result)
	c.validateBuild(result)

	if !contains(matchStrategies, c.Match.Strategy) {
		result.AddError("match.strategy %q is not one of %s", c.Match.Strategy, strings.Join(matchStrategies, ", "))
	}

	if c.Workspace.ScratchDirName == "" || strings.ContainsAny(c.Workspace.ScratchDirName, `/\`) {
		result.AddError("workspace.scratch_dir_name must be a plain directory name")
	}

	if c.Manifest.DSN != "" && !contains(manifestDrivers, c.Manifest.Driver) {
		result.AddError("manifest.driver %q is not one of %s", c.Manifest.Driver, strings.Join(manifestDrivers, ", "))
	}

	if c.Publish.Endpoint != "" {
		if c.Publish.Bucket == "" {
			result.AddError("publish.bucket is required when publish.endpoint is set")
		}
		if c.Publish.AccessKey == "" || c.Publish.SecretKey == "" {
			result.AddError("publish.access_key and publish.secret_key are required when publish.endpoint is set")
		}
		if c.Publish.Concurrency < 1 {
			result.AddWarning("publish.concurrency %d raised to 1", c.Publish.Concurrency)
		}
	}

	if c.Git.Shallow {
		result.AddWarning("git.shallow is set: parent resolution for the before stage fails on shallow history")
	}

	return result
}

func validateProjects(projects []models.Project, result *ValidationResult) {
	if len(projects) == 0 {
		result.AddError("no projects configured (use the projects key, --projects or --project name=url)")
		return
	}

	seen := make(map[string]bool, len(projects))
	for i, p := range projects {
		switch {
		case p.Name == "":
			result.AddError("projects[%d]: name is required", i)
		case strings.ContainsAny(p.Name, `/\`) || p.Name == "." || p.Name == "..":
			result.AddError("projects[%d]: name %q must be a plain directory name", i, p.Name)
		case seen[p.Name]:
			result.AddError("projects[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true

		if strings.TrimSpace(p.URL) == "" {
			result.AddError("projects[%d]: url is required", i)
		}
	}
}

func (c *Config) validateStages(result *ValidationResult) {
	if len(c.Stages) == 0 {
		result.AddError("at least one stage is required")
		return
	}
	if _, err := c.ParsedStages(); err != nil {
		result.AddError("stages: %v", err)
	}
}

func (c *Config) validateBuild(result *ValidationResult) {
	if _, err := c.Build.GradleArgv(); err != nil {
		result.AddError("%v", err)
	}
	if _, err := c.Build.MavenArgv(); err != nil {
		result.AddError("%v", err)
	}
	if _, err := c.Build.JavacArgv(); err != nil {
		result.AddError("%v", err)
	}
	if c.Build.Javac == "" {
		result.AddError("build.javac is required")
	}
	if c.Build.SourceRoot == "" {
		result.AddError("build.source_root is required")
	}
	if c.Build.Timeout < 0 {
		result.AddError("build.timeout must not be negative")
	}
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
