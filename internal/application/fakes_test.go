package application

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/felixgeelhaar/covergate/internal/domain"
)

type fakeConfigLoader struct {
	exists    bool
	cfg       Config
	existsErr error
	loadErr   error
}

func (f fakeConfigLoader) Exists(path string) (bool, error) {
	return f.exists, f.existsErr
}

func (f fakeConfigLoader) Load(path string) (Config, error) {
	return f.cfg, f.loadErr
}

type fakeEngine struct {
	mu           sync.Mutex
	raw          []RawRuleViolation
	aggregateErr error
	evaluateErr  error

	aggregateCalls int
	evaluateCalls  int
	lastAggregate  AggregateRequest
	lastRules      []EngineRule
	lastICFile     string
}

func (f *fakeEngine) Aggregate(ctx context.Context, req AggregateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aggregateCalls++
	f.lastAggregate = req
	if f.aggregateErr != nil {
		return f.aggregateErr
	}
	if err := os.WriteFile(req.ICFile, []byte("{}"), 0o600); err != nil {
		return err
	}
	return os.WriteFile(req.SMapFile, []byte("{}"), 0o600)
}

func (f *fakeEngine) EvaluateRules(ctx context.Context, rules []EngineRule, icFile string) ([]RawRuleViolation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluateCalls++
	f.lastRules = rules
	f.lastICFile = icFile
	return f.raw, f.evaluateErr
}

type fakeReporter struct {
	last   []domain.RuleViolations
	format OutputFormat
	err    error
}

func (f *fakeReporter) Write(w io.Writer, violations []domain.RuleViolations, format OutputFormat) error {
	f.last = violations
	f.format = format
	return f.err
}

type fakeUnlocker struct{ locker *fakeLocker }

func (u fakeUnlocker) Unlock() error {
	u.locker.unlocked++
	return nil
}

type fakeLocker struct {
	locked   []string
	unlocked int
	err      error
}

func (f *fakeLocker) Lock(dir string) (Unlocker, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.locked = append(f.locked, dir)
	return fakeUnlocker{locker: f}, nil
}

type fakeGenerator struct {
	xmlErr  error
	htmlErr error
	xml     []XMLReportRequest
	html    []HTMLReportRequest
}

func (f *fakeGenerator) GenerateXML(ctx context.Context, req XMLReportRequest) error {
	f.xml = append(f.xml, req)
	return f.xmlErr
}

func (f *fakeGenerator) GenerateHTML(ctx context.Context, req HTMLReportRequest) error {
	f.html = append(f.html, req)
	return f.htmlErr
}

type fakeMerger struct {
	target  string
	reports []string
	err     error
}

func (f *fakeMerger) Merge(ctx context.Context, target string, reports []string) error {
	f.target = target
	f.reports = reports
	return f.err
}

type fakeInstrumenter struct {
	last InstrumentRequest
	err  error
}

func (f *fakeInstrumenter) Instrument(ctx context.Context, req InstrumentRequest) error {
	f.last = req
	return f.err
}

type fakeWatcher struct {
	dirs   []string
	events chan struct{}
	err    error
}

func (f *fakeWatcher) WatchDir(root string) error {
	f.dirs = append(f.dirs, root)
	return f.err
}

func (f *fakeWatcher) Events(ctx context.Context) <-chan struct{} { return f.events }

func (f *fakeWatcher) Close() error { return nil }

func strPtr(s string) *string { return &s }

func lineRule(name string, groupBy domain.GroupingBy, min float64) domain.Rule {
	return domain.Rule{
		Name:    name,
		GroupBy: groupBy,
		Bounds: []domain.Bound{{
			MinValue:    domain.Value(decimalOf(min)),
			Unit:        domain.UnitLine,
			Aggregation: domain.CoveredPercentage,
		}},
	}
}
