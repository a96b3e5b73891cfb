package jacoco

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/felixgeelhaar/covergate/internal/application"
)

const doctype = `<!DOCTYPE report PUBLIC "-//JACOCO//DTD Report 1.1//EN" "report.dtd">` + "\n"

// counterOrder is the order JaCoCo writes counters in.
var counterOrder = []application.EngineCounter{
	application.CounterInstruction,
	application.CounterBranch,
	application.CounterLine,
}

func counters(c entityCounters) []counter {
	out := make([]counter, 0, len(counterOrder))
	for _, kind := range counterOrder {
		v, ok := c[kind]
		if !ok {
			continue
		}
		out = append(out, counter{Type: string(kind), Missed: v.Missed, Covered: v.Covered})
	}
	return out
}

func buildReport(title string, set *CounterSet) report {
	byPackage := make(map[string][]string)
	for _, name := range set.ClassNames() {
		p := set.Classes[name].Package
		byPackage[p] = append(byPackage[p], name)
	}
	packageNames := make([]string, 0, len(byPackage))
	for p := range byPackage {
		packageNames = append(packageNames, p)
	}
	slices.Sort(packageNames)

	rep := report{Name: title}
	total := make(entityCounters)
	for _, p := range packageNames {
		node := pkg{Name: strings.ReplaceAll(p, ".", "/")}
		pkgTotal := make(entityCounters)
		bySource := make(map[string]entityCounters)
		var sources []string
		for _, name := range byPackage[p] {
			cov := set.Classes[name]
			node.Classes = append(node.Classes, class{
				Name:           strings.ReplaceAll(name, ".", "/"),
				SourceFileName: cov.SourceFile,
				Counters:       counters(cov.Counters),
			})
			for kind, c := range cov.Counters {
				pkgTotal[kind] = pkgTotal[kind].add(c)
				total[kind] = total[kind].add(c)
			}
			if cov.SourceFile == "" {
				continue
			}
			sc, ok := bySource[cov.SourceFile]
			if !ok {
				sc = make(entityCounters)
				bySource[cov.SourceFile] = sc
				sources = append(sources, cov.SourceFile)
			}
			for kind, c := range cov.Counters {
				sc[kind] = sc[kind].add(c)
			}
		}
		slices.Sort(sources)
		for _, src := range sources {
			node.SourceFiles = append(node.SourceFiles, sourceFile{Name: src, Counters: counters(bySource[src])})
		}
		node.Counters = counters(pkgTotal)
		rep.Packages = append(rep.Packages, node)
	}
	rep.Counters = counters(total)
	return rep
}

func writeXMLReport(path, title string, set *CounterSet) error {
	data, err := xml.MarshalIndent(buildReport(title, set), "", "  ")
	if err != nil {
		return fmt.Errorf("encode xml report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	content := make([]byte, 0, len(xml.Header)+len(doctype)+len(data)+1)
	content = append(content, xml.Header...)
	content = append(content, doctype...)
	content = append(content, data...)
	content = append(content, '\n')
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write xml report: %w", err)
	}
	return nil
}
