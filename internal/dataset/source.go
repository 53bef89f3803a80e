package dataset

import (
	"path"
	"path/filepath"
	"strings"
)

// sourceRoots are conventional source-root prefixes, longest first
var sourceRoots = []string{
	"src/main/java/",
	"src/test/java/",
	"src/java/",
	"source/",
	"src/",
}

// SourceFile is one dataset-recorded Java file
type SourceFile struct {
	Path string // absolute or dataset-rooted path on disk
	Rel  string // slash-separated path relative to the commit directory
	// Name is the file name the compiler saw, e.g. StdDateFormat.java
	Name string
	// Stem is Name without the .java extension
	Stem string
	// PackagePath is the package-relative path when one is known, e.g. com/acme/Foo.java
	PackagePath string
}

// NewSourceFile derives stem and package path from a dataset file
func NewSourceFile(fullPath, rel string) SourceFile {
	rel = filepath.ToSlash(rel)
	sf := SourceFile{Path: fullPath, Rel: rel}

	dir, base := path.Split(rel)
	if decoded, ok := Decode(base); ok && dir == "" {
		sf.PackagePath = decoded
	} else {
		sf.PackagePath = stripSourceRoot(rel)
	}

	sf.Name = path.Base(sf.PackagePath)
	sf.Stem = strings.TrimSuffix(sf.Name, ".java")
	return sf
}

// ClassPath is the class file the source's top-level type compiles to
func (s SourceFile) ClassPath() string {
	return strings.TrimSuffix(s.PackagePath, ".java") + ".class"
}

// HasPackage reports whether PackagePath carries directories
func (s SourceFile) HasPackage() bool {
	return strings.Contains(s.PackagePath, "/")
}

// Decode expands a flattened dataset name such as
// src_main_java_com_acme_util_Foo.java into com/acme/util/Foo.java.
// Only names starting with a known source root are decoded; underscores
// inside real package or class names make the result best-effort.
func Decode(name string) (string, bool) {
	if !strings.HasSuffix(name, ".java") {
		return "", false
	}
	for _, root := range sourceRoots {
		prefix := strings.ReplaceAll(root, "/", "_")
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix)+len(".java") {
			decoded := strings.ReplaceAll(strings.TrimPrefix(name, prefix), "_", "/")
			if path.Base(decoded) == ".java" || strings.Contains(decoded, "//") {
				continue
			}
			return decoded, true
		}
	}
	return "", false
}

func stripSourceRoot(rel string) string {
	for _, root := range sourceRoots {
		if strings.HasPrefix(rel, root) {
			return strings.TrimPrefix(rel, root)
		}
		if i := strings.Index(rel, "/"+root); i >= 0 {
			return rel[i+len(root)+1:]
		}
	}
	return rel
}
