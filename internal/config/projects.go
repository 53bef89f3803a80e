package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rohankatakam/classharvest/internal/models"
	"gopkg.in/yaml.v3"
)

// LoadProjects reads a standalone projects file. It accepts a list of
// {name, url} records, the same list under a top-level "projects" key,
// or a plain name: url mapping (mapping order is preserved).
func LoadProjects(path string) ([]models.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read projects file: %w", err)
	}
	return ParseProjects(data)
}

// ParseProjects decodes project list YAML
func ParseProjects(data []byte) ([]models.Project, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse projects: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		return decodeProjectList(root)
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value == "projects" && root.Content[i+1].Kind == yaml.SequenceNode {
				return decodeProjectList(root.Content[i+1])
			}
		}
		return decodeProjectMap(root)
	default:
		return nil, fmt.Errorf("projects: expected a list or a mapping, got %s", root.Tag)
	}
}

func decodeProjectList(node *yaml.Node) ([]models.Project, error) {
	var projects []models.Project
	if err := node.Decode(&projects); err != nil {
		return nil, fmt.Errorf("failed to decode project list: %w", err)
	}
	return projects, nil
}

func decodeProjectMap(node *yaml.Node) ([]models.Project, error) {
	projects := make([]models.Project, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("project %q: expected a clone URL (line %d)", key.Value, value.Line)
		}
		projects = append(projects, models.Project{Name: key.Value, URL: value.Value})
	}
	return projects, nil
}

// ParseProjectFlag parses a "name=url" command-line value
func ParseProjectFlag(value string) (models.Project, error) {
	name, url, ok := strings.Cut(value, "=")
	if !ok {
		return models.Project{}, fmt.Errorf("invalid project %q (expected name=url)", value)
	}
	return models.Project{
		Name: strings.TrimSpace(name),
		URL:  strings.TrimSpace(url),
	}, nil
}

// SelectProjects filters projects down to the given names, keeping configured order
func SelectProjects(projects []models.Project, names []string) ([]models.Project, error) {
	if len(names) == 0 {
		return projects, nil
	}

	byName := make(map[string]bool, len(projects))
	for _, p := range projects {
		byName[p.Name] = true
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		if !byName[n] {
			return nil, fmt.Errorf("unknown project %q", n)
		}
		wanted[n] = true
	}

	var selected []models.Project
	for _, p := range projects {
		if wanted[p.Name] {
			selected = append(selected, p)
		}
	}
	return selected, nil
}
