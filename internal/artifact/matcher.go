// Package artifact matches compiled class files to dataset source files
// and copies them into a commit directory's output folder.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rohankatakam/classharvest/internal/dataset"
	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/sirupsen/logrus"
)

// Strategy selects how class files are tied to a dataset source file
type Strategy string

const (
	// StrategyStem matches every <stem>*.class, catching nested classes and over-matching FooBar.class
	StrategyStem Strategy = "stem"
	// StrategyExact matches only the class at the source's package path
	StrategyExact Strategy = "exact"
	// StrategySourceFile matches classes whose SourceFile attribute names the source
	StrategySourceFile Strategy = "sourcefile"
	// StrategyAuto uses SourceFile attributes and falls back to stem matching
	StrategyAuto Strategy = "auto"
)

// ParseStrategy validates a configured strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyStem, StrategyExact, StrategySourceFile, StrategyAuto:
		return st, nil
	case "":
		return StrategyStem, nil
	default:
		return "", errors.ValidationErrorf("unknown match strategy %q (expected stem, exact, sourcefile or auto)", s)
	}
}

// Copied is one class file placed in a commit directory's output folder
type Copied struct {
	Source     dataset.SourceFile
	ClassPath  string // slash-separated, relative to the class root
	TargetPath string // absolute path of the copy
	Size       int64
	SHA256     string
}

// Result summarizes one Collect call
type Result struct {
	Copied    []Copied
	Unmatched []dataset.SourceFile
}

// Matcher copies the class files that correspond to a commit directory's dataset sources
type Matcher struct {
	layout   dataset.Layout
	strategy Strategy
	logger   *logrus.Logger
}

// NewMatcher creates a matcher for the given dataset layout
func NewMatcher(layout dataset.Layout, strategy Strategy, logger *logrus.Logger) *Matcher {
	if strategy == "" {
		strategy = StrategyStem
	}
	return &Matcher{layout: layout, strategy: strategy, logger: logger}
}

// Strategy returns the configured matching strategy
func (m *Matcher) Strategy() Strategy {
	return m.strategy
}

// Collect matches the dataset sources of dir against every class file under classRoot
// and copies matches to <dir>/compiled/<path relative to classRoot>.
// A missing class root or an empty dataset directory is a skip.
// Sources without a match are logged and reported in Result.Unmatched.
func (m *Matcher) Collect(classRoot string, dir models.CommitDir) (*Result, error) {
	info, err := os.Stat(classRoot)
	if err != nil || !info.IsDir() {
		return nil, errors.Skipf("compiled directory %s does not exist", classRoot)
	}

	sources, err := m.layout.SourceFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errors.Skipf("no Java files found in dataset for commit %s", dir.Commit)
	}

	return m.CollectSources(classRoot, dir, sources)
}

// CollectSources is Collect with an already listed set of dataset sources
func (m *Matcher) CollectSources(classRoot string, dir models.CommitDir, sources []dataset.SourceFile) (*Result, error) {
	index, err := newClassIndex(classRoot)
	if err != nil {
		return nil, err
	}

	outputDir := m.layout.OutputPath(dir)
	result := &Result{}
	seen := make(map[string]bool)

	for _, src := range sources {
		matches := m.match(index, src)
		log := m.logger.WithFields(logrus.Fields{
			"commit": dir.Commit,
			"file":   src.Rel,
		})

		if len(matches) == 0 {
			log.Infof("Compiled file for %s not found in %s, skipping", src.Name, classRoot)
			result.Unmatched = append(result.Unmatched, src)
			continue
		}

		for _, rel := range matches {
			if seen[rel] {
				continue
			}
			seen[rel] = true

			target := filepath.Join(outputDir, filepath.FromSlash(rel))
			size, sum, err := copyFile(filepath.Join(classRoot, filepath.FromSlash(rel)), target)
			if err != nil {
				return result, errors.FileSystemErrorf(err, "failed to copy %s", rel)
			}
			log.Debugf("Copied %s to %s", rel, target)

			result.Copied = append(result.Copied, Copied{
				Source:     src,
				ClassPath:  rel,
				TargetPath: target,
				Size:       size,
				SHA256:     sum,
			})
		}
	}

	return result, nil
}

func (m *Matcher) match(index *classIndex, src dataset.SourceFile) []string {
	switch m.strategy {
	case StrategyExact:
		return index.exact(src)
	case StrategySourceFile:
		return index.bySourceFile(src, m.logger)
	case StrategyAuto:
		if matches := index.bySourceFile(src, m.logger); len(matches) > 0 {
			return matches
		}
		return index.byStem(src)
	default:
		return index.byStem(src)
	}
}

// classIndex lists the class files under one root; attributes are read lazily
type classIndex struct {
	root  string
	files []string // slash-separated, sorted
	attrs map[string]*ClassInfo
}

func newClassIndex(root string) (*classIndex, error) {
	idx := &classIndex{root: root, attrs: make(map[string]*ClassInfo)}

	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ".class" {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		idx.files = append(idx.files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "failed to scan %s", root)
	}

	sort.Strings(idx.files)
	return idx, nil
}

func (c *classIndex) byStem(src dataset.SourceFile) []string {
	var out []string
	for _, rel := range c.files {
		if strings.HasPrefix(path.Base(rel), src.Stem) {
			out = append(out, rel)
		}
	}
	return out
}

func (c *classIndex) exact(src dataset.SourceFile) []string {
	if src.HasPackage() {
		want := src.ClassPath()
		for _, rel := range c.files {
			if rel == want || strings.HasSuffix(rel, "/"+want) {
				return []string{rel}
			}
		}
		return nil
	}

	var out []string
	for _, rel := range c.files {
		if path.Base(rel) == src.Stem+".class" {
			out = append(out, rel)
		}
	}
	return out
}

func (c *classIndex) bySourceFile(src dataset.SourceFile, logger *logrus.Logger) []string {
	var pkgDir string
	if src.HasPackage() {
		pkgDir = path.Dir(src.PackagePath)
	}

	var out []string
	for _, rel := range c.files {
		info := c.info(rel, logger)
		if info == nil || info.SourceFile != src.Name {
			continue
		}
		if pkgDir != "" && path.Dir(info.Name) != pkgDir {
			continue
		}
		out = append(out, rel)
	}
	return out
}

func (c *classIndex) info(rel string, logger *logrus.Logger) *ClassInfo {
	if info, ok := c.attrs[rel]; ok {
		return info
	}

	info, err := ReadClassInfo(filepath.Join(c.root, filepath.FromSlash(rel)))
	if err != nil {
		logger.WithError(err).Debugf("Unreadable class file %s", rel)
		c.attrs[rel] = nil
		return nil
	}
	c.attrs[rel] = &info
	return &info
}

// ReadSourceFile returns the SourceFile attribute of a class file
func ReadSourceFile(classFile string) (string, error) {
	info, err := ReadClassInfo(classFile)
	if err != nil {
		return "", err
	}
	if info.SourceFile == "" {
		return "", fmt.Errorf("%s has no SourceFile attribute", classFile)
	}
	return info.SourceFile, nil
}

func copyFile(src, dst string) (int64, string, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, "", err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, "", err
	}

	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, hash), in)
	if err != nil {
		out.Close()
		return 0, "", err
	}
	if err := out.Close(); err != nil {
		return 0, "", err
	}

	return n, hex.EncodeToString(hash.Sum(nil)), nil
}
