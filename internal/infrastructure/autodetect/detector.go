// Package autodetect finds the coverage reports and class directories a
// Gradle or Maven build leaves behind.
package autodetect

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/felixgeelhaar/covergate/internal/application"
)

var (
	reportCandidates = []string{
		"build/reports/kover/report.xml",
		"build/reports/kover/xml/report.xml",
		"build/reports/jacoco/test/jacocoTestReport.xml",
		"target/site/jacoco/jacoco.xml",
	}
	classDirCandidates = []string{
		"build/classes/kotlin/main",
		"build/classes/java/main",
		"target/classes",
	}
	sourceDirCandidates = []string{
		"src/main/kotlin",
		"src/main/java",
	}
)

// Detector inspects the project at Root, or the working directory when
// Root is empty. Modules one level below the root are included.
type Detector struct {
	Root string
}

// Detect returns a configuration holding every build output it found.
// Paths are relative to the root.
func (d Detector) Detect() (application.Config, error) {
	root := d.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return application.Config{}, err
		}
		root = wd
	}
	modules, err := moduleDirs(root)
	if err != nil {
		return application.Config{}, err
	}

	var cfg application.Config
	for _, module := range modules {
		cfg.Reports = append(cfg.Reports, existing(root, module, reportCandidates, false)...)
		cfg.ClassDirs = append(cfg.ClassDirs, existing(root, module, classDirCandidates, true)...)
		cfg.SourceDirs = append(cfg.SourceDirs, existing(root, module, sourceDirCandidates, true)...)
	}
	switch {
	case isDir(filepath.Join(root, "build")):
		cfg.TempDir = "build/tmp/covergate"
	case isDir(filepath.Join(root, "target")):
		cfg.TempDir = "target/covergate"
	}
	return cfg, nil
}

// moduleDirs returns "." followed by the visible subdirectories of root in
// lexical order.
func moduleDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	ignore := []string{"build", "target", "src", "gradle", "node_modules", "buildSrc"}
	modules := []string{"."}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name[0] == '.' || slices.Contains(ignore, name) {
			continue
		}
		modules = append(modules, name)
	}
	return modules, nil
}

func existing(root, module string, candidates []string, dirs bool) []string {
	var found []string
	for _, candidate := range candidates {
		rel := filepath.Join(module, filepath.FromSlash(candidate))
		info, err := os.Stat(filepath.Join(root, rel))
		if err != nil || info.IsDir() != dirs {
			continue
		}
		found = append(found, filepath.ToSlash(rel))
	}
	return found
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
