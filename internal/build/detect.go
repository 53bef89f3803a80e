// Package build runs a repository's own build tool, or compiles its sources
// directly with javac when no build tool is configured.
package build

import (
	"os"
	"path/filepath"
)

// System is the build tool selected for a working copy
type System string

const (
	SystemGradleWrapper System = "gradle-wrapper"
	SystemGradle        System = "gradle"
	SystemMaven         System = "maven"
	SystemNone          System = "javac"
)

// Detect picks the build tool for a working copy, in priority order:
// gradlew, build.gradle(.kts), pom.xml, then none
func Detect(repoDir string) System {
	switch {
	case exists(filepath.Join(repoDir, "gradlew")):
		return SystemGradleWrapper
	case exists(filepath.Join(repoDir, "build.gradle")), exists(filepath.Join(repoDir, "build.gradle.kts")):
		return SystemGradle
	case exists(filepath.Join(repoDir, "pom.xml")):
		return SystemMaven
	default:
		return SystemNone
	}
}

// ClassRoot is where the build tool leaves compiled classes; empty for SystemNone
func (s System) ClassRoot(repoDir string) string {
	switch s {
	case SystemGradleWrapper, SystemGradle:
		return filepath.Join(repoDir, "build", "classes")
	case SystemMaven:
		return filepath.Join(repoDir, "target", "classes")
	default:
		return ""
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
