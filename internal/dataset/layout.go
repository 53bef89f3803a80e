// Package dataset reads the before/after dataset tree:
// <root>/<stage>/<project>/<commit>/**/*.java
package dataset

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/models"
)

// Layout locates stage, project and commit directories under a dataset root
type Layout struct {
	Root string
	// OutputDir is the per-commit folder that receives class files; it is never scanned for sources
	OutputDir string
}

// NewLayout creates a layout with the conventional "compiled" output folder
func NewLayout(root string) Layout {
	return Layout{Root: root, OutputDir: "compiled"}
}

// ProjectDir returns <root>/<stage>/<project>
func (l Layout) ProjectDir(stage models.Stage, project string) string {
	return filepath.Join(l.Root, string(stage), project)
}

// OutputPath returns the compiled/ folder of a commit directory
func (l Layout) OutputPath(dir models.CommitDir) string {
	return filepath.Join(dir.Path, l.OutputDir)
}

// CommitDirs lists the commit directories of a project's stage, sorted by name.
// A missing stage directory is a skip, not a failure.
func (l Layout) CommitDirs(stage models.Stage, project string) ([]models.CommitDir, error) {
	projectDir := l.ProjectDir(stage, project)

	info, err := os.Stat(projectDir)
	if os.IsNotExist(err) || (err == nil && !info.IsDir()) {
		return nil, errors.Skipf("stage directory %s does not exist", projectDir)
	}
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "failed to stat %s", projectDir)
	}

	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "failed to list %s", projectDir)
	}

	dirs := make([]models.CommitDir, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dirs = append(dirs, models.CommitDir{
			Project: project,
			Stage:   stage,
			Commit:  e.Name(),
			Path:    filepath.Join(projectDir, e.Name()),
		})
	}

	sort.Slice(dirs, func(i, j int) bool {
		return dirs[i].Commit < dirs[j].Commit
	})
	return dirs, nil
}

// SourceFiles returns the dataset's Java files for a commit directory, skipping the output folder
func (l Layout) SourceFiles(dir models.CommitDir) ([]SourceFile, error) {
	var files []SourceFile

	err := filepath.WalkDir(dir.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != dir.Path && d.Name() == l.OutputDir && filepath.Dir(path) == dir.Path {
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Ext(d.Name()) != ".java" {
			return nil
		}

		rel, err := filepath.Rel(dir.Path, path)
		if err != nil {
			return err
		}
		files = append(files, NewSourceFile(path, rel))
		return nil
	})
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "failed to scan %s", dir.Path)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Rel < files[j].Rel
	})
	return files, nil
}
