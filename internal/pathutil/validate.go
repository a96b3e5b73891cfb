// Package pathutil provides utilities for safe path handling.
package pathutil

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyPath = errors.New("path is empty")
	ErrNullBytes = errors.New("path contains null bytes")
)

// ValidatePath ensures a path is safe to open and returns its cleaned form.
// Symlinks are resolved so the caller sees the real target.
func ValidatePath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "\x00") {
		return "", ErrNullBytes
	}

	realPath, err := filepath.EvalSymlinks(cleaned)
	if err != nil {
		// not created yet
		return cleaned, nil
	}
	return realPath, nil
}

// ClassFilePath returns the location of a compiled class below root.
// className uses dots as package separators; nested classes keep their '$'.
func ClassFilePath(root, className string) string {
	rel := strings.ReplaceAll(className, ".", string(filepath.Separator)) + ".class"
	return filepath.Join(root, rel)
}

// ClassName converts a JVM internal name (com/example/Foo) into its
// binary name (com.example.Foo).
func ClassName(internalName string) string {
	return strings.ReplaceAll(internalName, "/", ".")
}
