package application

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/covergate/internal/domain"
)

func classConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Rules:   []domain.Rule{lineRule("lines", domain.GroupClass, 80)},
		Reports: []string{"build/kover/report.xml"},
		TempDir: t.TempDir(),
	}
}

func TestServiceVerifyPass(t *testing.T) {
	reporter := &fakeReporter{}
	locker := &fakeLocker{}
	cfg := classConfig(t)
	svc := &Service{
		ConfigLoader: fakeConfigLoader{exists: true, cfg: cfg},
		Engine:       &fakeEngine{},
		Locker:       locker,
		Reporter:     reporter,
		Logger:       discardLogger(),
		Out:          &bytes.Buffer{},
	}

	err := svc.Verify(context.Background(), VerifyOptions{Output: OutputJSON})
	require.NoError(t, err)
	assert.Empty(t, reporter.last)
	assert.Equal(t, OutputJSON, reporter.format)
	assert.Equal(t, []string{cfg.TempDir}, locker.locked)
	assert.Equal(t, 1, locker.unlocked)
}

func TestServiceVerifyViolations(t *testing.T) {
	reporter := &fakeReporter{}
	engine := &fakeEngine{raw: []RawRuleViolation{{
		RuleIndex: 0,
		Bounds:    []RawBoundViolation{{MinViolations: []TargetValue{tv("com.a.A", "0.6")}}},
	}}}
	svc := &Service{
		ConfigLoader: fakeConfigLoader{exists: true, cfg: classConfig(t)},
		Engine:       engine,
		Reporter:     reporter,
		Logger:       discardLogger(),
		Out:          &bytes.Buffer{},
	}

	err := svc.Verify(context.Background(), VerifyOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrViolations)
	require.Len(t, reporter.last, 1)
	assert.Equal(t, "com.a.A", reporter.last[0].Violations[0].Entity())
}

func TestServiceVerifyFlagsOverrideConfig(t *testing.T) {
	engine := &fakeEngine{}
	cfg := classConfig(t)
	cfg.ClassDirs = []string{"build/classes"}
	cfg.SourceDirs = []string{"src/main/java"}
	svc := &Service{
		ConfigLoader: fakeConfigLoader{exists: true, cfg: cfg},
		Engine:       engine,
		Logger:       discardLogger(),
	}
	tmp := t.TempDir()

	_, err := svc.VerifyResult(context.Background(), VerifyOptions{
		Reports: []string{"other.xml"},
		TempDir: tmp,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"other.xml"}, engine.lastAggregate.BinaryReports)
	assert.Equal(t, []string{"build/classes"}, engine.lastAggregate.ClassFileDirs)
	assert.Equal(t, []string{"src/main/java"}, engine.lastAggregate.SourceDirs)
	assert.Equal(t, filepath.Join(tmp, AggregatedICFile), engine.lastAggregate.ICFile)
}

func TestServiceVerifyErrors(t *testing.T) {
	badRule := Config{Rules: []domain.Rule{{Name: "bad", GroupBy: domain.GroupClass, Bounds: []domain.Bound{{Unit: domain.UnitLine, Aggregation: domain.CoveredCount}}}}, Reports: []string{"a.xml"}}
	badPattern := Config{
		Rules:   []domain.Rule{lineRule("lines", domain.GroupClass, 80)},
		Filters: domain.ClassFilters{Includes: []string{"com.\xff"}},
		Reports: []string{"a.xml"},
	}
	noReports := Config{Rules: []domain.Rule{lineRule("lines", domain.GroupClass, 80)}}

	tests := []struct {
		name   string
		loader fakeConfigLoader
		want   error
	}{
		{name: "missing config", loader: fakeConfigLoader{exists: false}, want: ErrConfigNotFound},
		{name: "invalid rule", loader: fakeConfigLoader{exists: true, cfg: badRule}, want: domain.ErrConfig},
		{name: "invalid pattern", loader: fakeConfigLoader{exists: true, cfg: badPattern}, want: domain.ErrPattern},
		{name: "no reports", loader: fakeConfigLoader{exists: true, cfg: noReports}, want: domain.ErrConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{}
			locker := &fakeLocker{}
			svc := &Service{ConfigLoader: tt.loader, Engine: engine, Locker: locker, Logger: discardLogger()}
			_, err := svc.VerifyResult(context.Background(), VerifyOptions{})
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, engine.aggregateCalls)
			assert.Empty(t, locker.locked)
		})
	}
}

func TestServiceVerifyLockFailure(t *testing.T) {
	svc := &Service{
		ConfigLoader: fakeConfigLoader{exists: true, cfg: classConfig(t)},
		Engine:       &fakeEngine{},
		Locker:       &fakeLocker{err: errors.New("busy")},
		Logger:       discardLogger(),
	}
	_, err := svc.VerifyResult(context.Background(), VerifyOptions{})
	assert.ErrorContains(t, err, "busy")
}

func TestServiceVerifyWithoutRules(t *testing.T) {
	engine := &fakeEngine{}
	svc := &Service{
		ConfigLoader: fakeConfigLoader{exists: true, cfg: Config{}},
		Engine:       engine,
		Logger:       discardLogger(),
	}
	got, err := svc.VerifyResult(context.Background(), VerifyOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, engine.aggregateCalls)
}

func TestServiceCoverageOneValuePerEntity(t *testing.T) {
	engine := &fakeEngine{raw: []RawRuleViolation{{
		RuleIndex: 0,
		Bounds: []RawBoundViolation{{
			MaxViolations: []TargetValue{tv("b.B", "0.5"), tv("a.A", "1")},
			MinViolations: []TargetValue{tv("b.B", "0.5"), tv("c.C", "0")},
		}},
	}}}
	svc := &Service{Engine: engine, Logger: discardLogger()}

	values, err := svc.Coverage(context.Background(), CoverageOptions{
		GroupBy:     domain.GroupClass,
		Unit:        domain.UnitLine,
		Aggregation: domain.CoveredPercentage,
		Reports:     []string{"a.xml"},
		TempDir:     t.TempDir(),
	})
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, "a.A", *values[0].EntityName)
	assert.True(t, values[0].Value.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "b.B", *values[1].EntityName)
	assert.True(t, values[1].Value.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "c.C", *values[2].EntityName)
	assert.True(t, values[2].Value.IsZero())

	require.Len(t, engine.lastRules, 1)
	probe := engine.lastRules[0].Bounds[0]
	assert.True(t, probe.Min.Equal(decimal.NewFromInt(1)))
	assert.True(t, probe.Max.IsZero())
}

func TestServiceBadge(t *testing.T) {
	engine := &fakeEngine{raw: []RawRuleViolation{{
		RuleIndex: 0,
		Bounds: []RawBoundViolation{{
			MaxViolations: []TargetValue{tv("", "0.8765")},
			MinViolations: []TargetValue{tv("", "0.8765")},
		}},
	}}}
	svc := &Service{Engine: engine, Logger: discardLogger()}

	result, err := svc.Badge(context.Background(), BadgeOptions{Reports: []string{"a.xml"}, TempDir: t.TempDir()})
	require.NoError(t, err)
	assert.InDelta(t, 87.7, result.Percent, 0.001)
	assert.Equal(t, TargetAll, engine.lastRules[0].Target)
}

func TestServiceReport(t *testing.T) {
	xml := &fakeGenerator{}
	html := &fakeGenerator{}
	svc := &Service{
		ConfigLoader: fakeConfigLoader{exists: true, cfg: Config{Reports: []string{"a.ic"}, SourceDirs: []string{"src"}}},
		Reports:      xml,
		HTMLReports:  html,
		Logger:       discardLogger(),
	}

	err := svc.Report(context.Background(), ReportOptions{XMLFile: "out/report.xml", HTMLDir: "out/html"})
	require.NoError(t, err)
	require.Len(t, xml.xml, 1)
	assert.Equal(t, DefaultReportTitle, xml.xml[0].Title)
	assert.Equal(t, []string{"a.ic"}, xml.xml[0].BinaryReports)
	assert.Equal(t, []string{"src"}, xml.xml[0].SourceDirs)
	assert.Empty(t, xml.html)
	require.Len(t, html.html, 1)
	assert.Equal(t, "out/html", html.html[0].HTMLDir)
}

func TestServiceReportRequiresFormat(t *testing.T) {
	svc := &Service{Reports: &fakeGenerator{}}
	err := svc.Report(context.Background(), ReportOptions{Reports: []string{"a.ic"}})
	assert.ErrorIs(t, err, ErrNoReportFormat)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestServiceReportCollectsAllFailures(t *testing.T) {
	generator := &fakeGenerator{xmlErr: errors.New("xml broken"), htmlErr: errors.New("html broken")}
	svc := &Service{Reports: generator, Logger: discardLogger()}

	err := svc.Report(context.Background(), ReportOptions{Reports: []string{"a.ic"}, XMLFile: "r.xml", HTMLDir: "html"})
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.ErrorIs(t, err, domain.ErrEngineIO)
	assert.Len(t, generator.html, 1)
}

func TestServiceMerge(t *testing.T) {
	merger := &fakeMerger{}
	svc := &Service{Merger: merger, Logger: discardLogger()}

	require.NoError(t, svc.Merge(context.Background(), MergeOptions{Target: "all.ic", Reports: []string{"a.ic", "b.ic"}}))
	assert.Equal(t, "all.ic", merger.target)
	assert.Equal(t, []string{"a.ic", "b.ic"}, merger.reports)

	assert.ErrorIs(t, svc.Merge(context.Background(), MergeOptions{Reports: []string{"a.ic"}}), domain.ErrConfig)
	assert.ErrorIs(t, svc.Merge(context.Background(), MergeOptions{Target: "x.ic"}), domain.ErrConfig)

	merger.err = errors.New("corrupt")
	assert.ErrorIs(t, svc.Merge(context.Background(), MergeOptions{Target: "x.ic", Reports: []string{"a.ic"}}), domain.ErrEngineIO)
}

func TestServiceInstrument(t *testing.T) {
	instrumenter := &fakeInstrumenter{}
	cfg := Config{ClassDirs: []string{"build/classes"}, Filters: domain.ClassFilters{Excludes: []string{"*Test"}}}
	svc := &Service{ConfigLoader: fakeConfigLoader{exists: true, cfg: cfg}, Instrumenter: instrumenter}

	require.NoError(t, svc.Instrument(context.Background(), InstrumentOptions{OutputDir: "build/instrumented", CountHits: true}))
	assert.Equal(t, []string{"build/classes"}, instrumenter.last.OriginalDirs)
	assert.True(t, instrumenter.last.CountHits)
	assert.False(t, instrumenter.last.Scope.Includes("com.FooTest"))

	err := svc.Instrument(context.Background(), InstrumentOptions{OutputDir: "build/classes/"})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestServiceWatchRerunsOnChange(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := classConfig(t)
	cfg.Reports = []string{"build/a/report.xml", "build/a/other.xml", "build/b/report.xml"}
	svc := &Service{
		ConfigLoader: fakeConfigLoader{exists: true, cfg: cfg},
		Engine:       &fakeEngine{},
		Logger:       discardLogger(),
	}
	watcher := &fakeWatcher{events: make(chan struct{}, 1)}
	watcher.events <- struct{}{}

	var runs []int
	err := svc.Watch(ctx, VerifyOptions{}, watcher, func(run int, violations []domain.RuleViolations, err error) {
		runs = append(runs, run)
		assert.NoError(t, err)
		if run == 2 {
			close(watcher.events)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, runs)
	assert.Equal(t, []string{"build/a", "build/b"}, watcher.dirs)
}

func TestServiceLoadConfig(t *testing.T) {
	cfg := classConfig(t)
	svc := &Service{ConfigLoader: fakeConfigLoader{exists: true, cfg: cfg}}
	got, err := svc.LoadConfig(".covergate.yaml")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	svc = &Service{ConfigLoader: fakeConfigLoader{exists: false}}
	got, err = svc.LoadConfig(".covergate.yaml")
	require.NoError(t, err)
	assert.Empty(t, got.Rules)
}

type fakeDetector struct {
	cfg Config
	err error
}

func (f fakeDetector) Detect() (Config, error) { return f.cfg, f.err }

func TestServiceDetectFillsMissingInputs(t *testing.T) {
	configured := Config{Reports: []string{"custom.xml"}}
	svc := &Service{
		ConfigLoader: fakeConfigLoader{exists: true, cfg: configured},
		Autodetector: fakeDetector{cfg: Config{
			Reports:    []string{"build/reports/kover/report.xml"},
			ClassDirs:  []string{"build/classes/kotlin/main"},
			SourceDirs: []string{"src/main/kotlin"},
			TempDir:    "build/tmp/covergate",
		}},
		Logger: discardLogger(),
	}
	cfg, err := svc.Detect(context.Background(), DetectOptions{ConfigPath: ".covergate.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"custom.xml"}, cfg.Reports)
	assert.Equal(t, []string{"build/classes/kotlin/main"}, cfg.ClassDirs)
	assert.Equal(t, []string{"src/main/kotlin"}, cfg.SourceDirs)
	assert.Equal(t, "build/tmp/covergate", cfg.TempDir)
}

func TestServiceDetectError(t *testing.T) {
	svc := &Service{
		ConfigLoader: fakeConfigLoader{exists: false},
		Autodetector: fakeDetector{err: errors.New("unreadable")},
	}
	_, err := svc.Detect(context.Background(), DetectOptions{})
	require.Error(t, err)
}
