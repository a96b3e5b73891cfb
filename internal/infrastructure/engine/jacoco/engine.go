package jacoco

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/felixgeelhaar/covergate/internal/application"
	"github.com/felixgeelhaar/covergate/internal/domain"
	"github.com/felixgeelhaar/covergate/internal/infrastructure/annotations"
	"github.com/felixgeelhaar/covergate/internal/pathutil"
)

// ErrHTMLUnsupported is returned by GenerateHTML; HTML reports need the
// kover CLI.
var ErrHTMLUnsupported = errors.New("html reports are not supported by the in-process engine")

// Engine implements application.CoverageEngine, application.ReportGenerator
// and application.ReportMerger.
type Engine struct {
	Logger *slog.Logger
}

// New creates an in-process engine.
func New(logger *slog.Logger) *Engine {
	return &Engine{Logger: logger}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Aggregate merges reports into req.ICFile and writes the source map into
// req.SMapFile.
func (e *Engine) Aggregate(ctx context.Context, req application.AggregateRequest) error {
	set, err := e.load(ctx, req.BinaryReports, req.Scope, req.ClassFileDirs, req.SourceDirs)
	if err != nil {
		return err
	}
	if err := writeJSON(req.ICFile, set); err != nil {
		return fmt.Errorf("write %s: %w", req.ICFile, err)
	}
	if req.SMapFile != "" {
		if err := writeJSON(req.SMapFile, set.sourceMap()); err != nil {
			return fmt.Errorf("write %s: %w", req.SMapFile, err)
		}
	}
	e.logger().DebugContext(ctx, "reports aggregated",
		slog.String("ic", req.ICFile),
		slog.Int("classes", len(set.Classes)))
	return nil
}

// load reads every report and keeps the classes admitted by scope. When
// classDirs are given, only classes with a compiled class file remain.
// Annotation filters are applied to classes whose source is found below
// sourceDirs.
func (e *Engine) load(ctx context.Context, reports []string, scope domain.ClassScope, classDirs, sourceDirs []string) (*CounterSet, error) {
	set := newCounterSet()
	var index *annotations.Index
	if len(scope.Filters().ExcludeAnnotations) > 0 {
		if len(sourceDirs) == 0 {
			e.logger().WarnContext(ctx, "annotation filters need source directories, ignoring them")
		} else {
			index = annotations.NewIndex(sourceDirs)
		}
	}
	for _, path := range reports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep, err := readReport(path)
		if err != nil {
			return nil, err
		}
		for _, p := range rep.packages() {
			for _, c := range p.Classes {
				name := pathutil.ClassName(c.Name)
				if !scope.Includes(name) || !compiled(name, classDirs) {
					continue
				}
				cov := classCoverage(p.Name, c)
				if index != nil {
					found, err := index.ClassAnnotations(ctx, cov.Package, cov.SourceFile, name)
					if err != nil {
						return nil, fmt.Errorf("read annotations of %s: %w", name, err)
					}
					if scope.ExcludedByAnnotation(found) {
						e.logger().DebugContext(ctx, "class excluded by annotation", slog.String("class", name))
						continue
					}
				}
				set.add(name, cov)
			}
		}
	}
	return set, nil
}

func compiled(className string, classDirs []string) bool {
	if len(classDirs) == 0 {
		return true
	}
	for _, dir := range classDirs {
		if _, err := os.Stat(pathutil.ClassFilePath(dir, className)); err == nil {
			return true
		}
	}
	return false
}

// EvaluateRules checks rules against the counter set in icFile.
func (e *Engine) EvaluateRules(ctx context.Context, rules []application.EngineRule, icFile string) ([]application.RawRuleViolation, error) {
	set, err := ReadCounterSet(icFile)
	if err != nil {
		return nil, err
	}
	var result []application.RawRuleViolation
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		violation, err := evaluateRule(set, rule)
		if err != nil {
			return nil, err
		}
		if len(violation.Bounds) > 0 {
			result = append(result, violation)
		}
	}
	e.logger().DebugContext(ctx, "rules evaluated",
		slog.Int("rules", len(rules)),
		slog.Int("violated", len(result)))
	return result, nil
}

// Merge combines reports into a single XML report at target.
func (e *Engine) Merge(ctx context.Context, target string, reports []string) error {
	set, err := e.load(ctx, reports, domain.ClassScope{}, nil, nil)
	if err != nil {
		return err
	}
	return writeXMLReport(target, "merged", set)
}

// GenerateXML writes a JaCoCo-compatible XML report.
func (e *Engine) GenerateXML(ctx context.Context, req application.XMLReportRequest) error {
	set, err := e.load(ctx, req.BinaryReports, req.Scope, req.ClassFileDirs, req.SourceDirs)
	if err != nil {
		return err
	}
	return writeXMLReport(req.XMLFile, req.Title, set)
}

func (e *Engine) GenerateHTML(ctx context.Context, req application.HTMLReportRequest) error {
	return ErrHTMLUnsupported
}
