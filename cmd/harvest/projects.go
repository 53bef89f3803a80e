package main

import (
	"fmt"
	"strings"

	"github.com/rohankatakam/classharvest/internal/config"
	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/git"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/spf13/cobra"
)

var (
	projectFlags []string
	projectsFile string
)

func addProjectFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&projectFlags, "project", "p", nil, "project to process: a configured name, name=url, or a clone URL (repeatable)")
	cmd.Flags().StringVar(&projectsFile, "projects", "", "YAML file listing projects (replaces the configured list)")
}

// resolveProjects applies --projects and --project to the configured project list
func resolveProjects() ([]models.Project, error) {
	projects, err := mergeProjects()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "invalid project selection")
	}
	return projects, nil
}

func mergeProjects() ([]models.Project, error) {
	projects := cfg.Projects
	if projectsFile != "" {
		loaded, err := config.LoadProjects(projectsFile)
		if err != nil {
			return nil, err
		}
		projects = loaded
	}

	var names []string
	for _, value := range projectFlags {
		p, named, err := parseProjectValue(value)
		if err != nil {
			return nil, err
		}
		if p != nil {
			projects = upsertProject(projects, *p)
		}
		names = append(names, named)
	}

	return config.SelectProjects(projects, names)
}

// parseProjectValue accepts "name", "name=url" or a bare clone URL
func parseProjectValue(value string) (*models.Project, string, error) {
	if name, _, ok := strings.Cut(value, "="); ok && !strings.ContainsAny(name, "/:@") {
		p, err := config.ParseProjectFlag(value)
		if err != nil {
			return nil, "", err
		}
		return &p, p.Name, nil
	}

	if strings.Contains(value, "://") || strings.HasPrefix(value, "git@") {
		_, repo, err := git.ParseRepoURL(value)
		if err != nil {
			return nil, "", err
		}
		return &models.Project{Name: repo, URL: value}, repo, nil
	}

	name := strings.TrimSpace(value)
	if name == "" {
		return nil, "", fmt.Errorf("empty --project value")
	}
	return nil, name, nil
}

func upsertProject(projects []models.Project, p models.Project) []models.Project {
	out := make([]models.Project, 0, len(projects)+1)
	replaced := false
	for _, existing := range projects {
		if existing.Name == p.Name {
			out = append(out, p)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, p)
	}
	return out
}
