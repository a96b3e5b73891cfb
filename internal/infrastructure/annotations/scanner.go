// Package annotations finds the annotations declared on JVM classes by
// reading their Java or Kotlin sources.
package annotations

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	annotationPattern  = regexp.MustCompile(`@([A-Za-z_][\w.]*)`)
	declarationPattern = regexp.MustCompile(`\b(?:class|interface|enum|record|object)\s+([A-Za-z_]\w*)`)
	importPattern      = regexp.MustCompile(`^import\s+(?:static\s+)?([\w.]+)(?:\s+as\s+(\w+))?\s*;?\s*$`)
)

// Index resolves class annotations from source files below a set of source
// roots. Each file is read at most once.
type Index struct {
	sourceDirs []string
	files      map[string]map[string][]string
}

// NewIndex creates an index over sourceDirs.
func NewIndex(sourceDirs []string) *Index {
	return &Index{sourceDirs: sourceDirs, files: make(map[string]map[string][]string)}
}

// ClassAnnotations returns the annotations of className as declared in
// sourceFile of packageName. Names are fully qualified when an import
// resolves them. A missing source file yields no annotations.
func (i *Index) ClassAnnotations(ctx context.Context, packageName, sourceFile, className string) ([]string, error) {
	if sourceFile == "" || len(i.sourceDirs) == 0 {
		return nil, nil
	}
	rel := filepath.Join(filepath.FromSlash(strings.ReplaceAll(packageName, ".", "/")), sourceFile)
	classes, ok := i.files[rel]
	if !ok {
		var err error
		classes, err = i.scan(ctx, rel)
		if err != nil {
			return nil, err
		}
		i.files[rel] = classes
	}
	return classes[declaredName(className)], nil
}

func (i *Index) scan(ctx context.Context, rel string) (map[string][]string, error) {
	for _, dir := range i.sourceDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, rel)
		// #nosec G304 -- path is built from configured source roots
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		classes, err := Scan(f)
		_ = f.Close()
		return classes, err
	}
	return nil, nil
}

// Scan reads one source file and maps every declared class name to the
// annotations written directly above or before its declaration.
func Scan(r io.Reader) (map[string][]string, error) {
	classes := make(map[string][]string)
	imports := make(map[string]string)
	var pending []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "", strings.HasPrefix(line, "//"), strings.HasPrefix(line, "/*"), strings.HasPrefix(line, "*"):
			continue
		case strings.HasPrefix(line, "import "):
			if m := importPattern.FindStringSubmatch(line); m != nil {
				alias := m[2]
				if alias == "" {
					alias = m[1][strings.LastIndexByte(m[1], '.')+1:]
				}
				imports[alias] = m[1]
			}
			continue
		}
		names := annotationNames(line)
		if m := declarationPattern.FindStringSubmatch(line); m != nil {
			classes[m[1]] = resolve(append(pending, names...), imports)
			pending = nil
			continue
		}
		if strings.HasPrefix(line, "@") {
			pending = append(pending, names...)
			continue
		}
		pending = nil
	}
	return classes, scanner.Err()
}

func annotationNames(line string) []string {
	var names []string
	for _, m := range annotationPattern.FindAllStringSubmatch(line, -1) {
		if m[1] == "interface" {
			continue
		}
		names = append(names, m[1])
	}
	return names
}

func resolve(names []string, imports map[string]string) []string {
	if len(names) == 0 {
		return nil
	}
	resolved := make([]string, 0, len(names))
	for _, name := range names {
		if full, ok := imports[name]; ok {
			name = full
		}
		resolved = append(resolved, name)
	}
	return resolved
}

// declaredName returns the source-level name of a binary class name:
// com.example.Outer$Inner becomes Inner, and anonymous classes map to their
// enclosing class.
func declaredName(className string) string {
	name := className[strings.LastIndexByte(className, '.')+1:]
	parts := strings.Split(name, "$")
	for j := len(parts) - 1; j >= 0; j-- {
		if parts[j] != "" && !isDigits(parts[j]) {
			return parts[j]
		}
	}
	return name
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
