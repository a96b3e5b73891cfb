// Package jacoco implements an in-process coverage engine over
// JaCoCo-compatible XML reports, as written by JaCoCo and Kover.
//
// Reports are merged per class into an aggregated counter set which is
// stored next to a source map in the scratch directory. Rules are then
// evaluated against that counter set.
package jacoco

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/felixgeelhaar/covergate/internal/pathutil"
)

// report represents the root JaCoCo XML element.
type report struct {
	XMLName  xml.Name      `xml:"report"`
	Name     string        `xml:"name,attr"`
	Sessions []sessionInfo `xml:"sessioninfo"`
	Packages []pkg         `xml:"package"`
	Groups   []group       `xml:"group"`
	Counters []counter     `xml:"counter"`
}

// group nests packages in multi-module reports.
type group struct {
	Name     string  `xml:"name,attr"`
	Groups   []group `xml:"group"`
	Packages []pkg   `xml:"package"`
}

type sessionInfo struct {
	ID    string `xml:"id,attr"`
	Start int64  `xml:"start,attr"`
	Dump  int64  `xml:"dump,attr"`
}

type pkg struct {
	Name        string       `xml:"name,attr"`
	Classes     []class      `xml:"class"`
	SourceFiles []sourceFile `xml:"sourcefile"`
	Counters    []counter    `xml:"counter"`
}

type class struct {
	Name           string    `xml:"name,attr"`
	SourceFileName string    `xml:"sourcefilename,attr"`
	Counters       []counter `xml:"counter"`
}

type sourceFile struct {
	Name     string    `xml:"name,attr"`
	Counters []counter `xml:"counter"`
}

type counter struct {
	Type    string `xml:"type,attr"`
	Missed  int64  `xml:"missed,attr"`
	Covered int64  `xml:"covered,attr"`
}

// readReport decodes a JaCoCo XML file.
func readReport(path string) (report, error) {
	cleanPath, err := pathutil.ValidatePath(path)
	if err != nil {
		return report{}, fmt.Errorf("invalid path: %w", err)
	}

	file, err := os.Open(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return report{}, fmt.Errorf("open coverage report: %w", err)
	}
	defer file.Close()

	var rep report
	if err := xml.NewDecoder(file).Decode(&rep); err != nil {
		return report{}, fmt.Errorf("decode coverage report %s: %w", path, err)
	}
	return rep, nil
}

// packages flattens grouped reports.
func (r report) packages() []pkg {
	all := append([]pkg(nil), r.Packages...)
	var walk func(groups []group)
	walk = func(groups []group) {
		for _, g := range groups {
			all = append(all, g.Packages...)
			walk(g.Groups)
		}
	}
	walk(r.Groups)
	return all
}
