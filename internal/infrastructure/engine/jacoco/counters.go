package jacoco

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/felixgeelhaar/covergate/internal/application"
	"github.com/felixgeelhaar/covergate/internal/pathutil"
)

// Counter is a missed/covered pair of one metric.
type Counter struct {
	Missed  int64 `json:"missed"`
	Covered int64 `json:"covered"`
}

// Total returns the number of items the counter tracks.
func (c Counter) Total() int64 { return c.Missed + c.Covered }

func (c Counter) add(o Counter) Counter {
	return Counter{Missed: c.Missed + o.Missed, Covered: c.Covered + o.Covered}
}

// merge combines two observations of the same class. Hits recorded by
// either run count as covered.
func (c Counter) merge(o Counter) Counter {
	total := max(c.Total(), o.Total())
	covered := min(max(c.Covered, o.Covered), total)
	return Counter{Missed: total - covered, Covered: covered}
}

// ClassCoverage holds the counters of one class keyed by counter type.
type ClassCoverage struct {
	Package    string                                `json:"package"`
	SourceFile string                                `json:"sourceFile,omitempty"`
	Counters   map[application.EngineCounter]Counter `json:"counters"`
}

// CounterSet is the aggregated coverage of all classes in scope. It is the
// content of the .ic file.
type CounterSet struct {
	Classes map[string]ClassCoverage `json:"classes"`
}

func newCounterSet() *CounterSet {
	return &CounterSet{Classes: make(map[string]ClassCoverage)}
}

// add merges a class observation into the set.
func (s *CounterSet) add(name string, cov ClassCoverage) {
	existing, ok := s.Classes[name]
	if !ok {
		s.Classes[name] = cov
		return
	}
	if existing.SourceFile == "" {
		existing.SourceFile = cov.SourceFile
	}
	for kind, c := range cov.Counters {
		existing.Counters[kind] = existing.Counters[kind].merge(c)
	}
	s.Classes[name] = existing
}

// ClassNames returns the class names in lexical order.
func (s *CounterSet) ClassNames() []string {
	names := make([]string, 0, len(s.Classes))
	for name := range s.Classes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SourceMap maps class names to their source file relative to a source root.
type SourceMap map[string]string

func (s *CounterSet) sourceMap() SourceMap {
	smap := make(SourceMap, len(s.Classes))
	for name, cov := range s.Classes {
		if cov.SourceFile == "" {
			continue
		}
		dir := filepath.FromSlash(strings.ReplaceAll(cov.Package, ".", "/"))
		smap[name] = filepath.Join(dir, cov.SourceFile)
	}
	return smap
}

// engineCounter maps JaCoCo counter types onto engine counters. Types the
// engine does not evaluate are dropped.
func engineCounter(kind string) (application.EngineCounter, bool) {
	switch kind {
	case "LINE":
		return application.CounterLine, true
	case "INSTRUCTION":
		return application.CounterInstruction, true
	case "BRANCH":
		return application.CounterBranch, true
	default:
		return "", false
	}
}

func classCoverage(packageName string, c class) ClassCoverage {
	cov := ClassCoverage{
		Package:    pathutil.ClassName(packageName),
		SourceFile: c.SourceFileName,
		Counters:   make(map[application.EngineCounter]Counter, len(c.Counters)),
	}
	for _, raw := range c.Counters {
		kind, ok := engineCounter(raw.Type)
		if !ok {
			continue
		}
		cov.Counters[kind] = cov.Counters[kind].add(Counter{Missed: raw.Missed, Covered: raw.Covered})
	}
	return cov
}

func writeJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ReadCounterSet loads an aggregated counter set written by Aggregate.
func ReadCounterSet(path string) (*CounterSet, error) {
	cleanPath, err := pathutil.ValidatePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	data, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("read counter set: %w", err)
	}
	set := newCounterSet()
	if err := json.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("decode counter set %s: %w", path, err)
	}
	if set.Classes == nil {
		set.Classes = make(map[string]ClassCoverage)
	}
	return set, nil
}
