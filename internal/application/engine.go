package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/covergate/internal/domain"
)

// EngineCounter is the engine's name for a coverage metric.
type EngineCounter string

const (
	CounterLine        EngineCounter = "LINE"
	CounterInstruction EngineCounter = "INSTRUCTION"
	CounterBranch      EngineCounter = "BRANCH"
)

// EngineValueType is the engine's name for an aggregation. Rates are
// fractions between 0 and 1.
type EngineValueType string

const (
	ValueCovered     EngineValueType = "COVERED"
	ValueMissed      EngineValueType = "MISSED"
	ValueCoveredRate EngineValueType = "COVERED_RATE"
	ValueMissedRate  EngineValueType = "MISSED_RATE"
)

// EngineTarget is the entity a rule is evaluated for.
type EngineTarget string

const (
	TargetAll     EngineTarget = "ALL"
	TargetClass   EngineTarget = "CLASS"
	TargetPackage EngineTarget = "PACKAGE"
)

// EngineBound is a bound in engine units. ID is the bound's position in its rule.
type EngineBound struct {
	ID        int
	Counter   EngineCounter
	ValueType EngineValueType
	Min       *decimal.Decimal
	Max       *decimal.Decimal
}

// EngineRule is a rule in engine form. ID is the rule's position in the
// caller's list.
type EngineRule struct {
	ID     int
	Target EngineTarget
	Bounds []EngineBound
}

// AggregateRequest asks the engine to merge binary reports into one counter set.
type AggregateRequest struct {
	Scope         domain.ClassScope
	ICFile        string
	SMapFile      string
	BinaryReports []string
	ClassFileDirs []string
	SourceDirs    []string // Used to resolve class annotations
}

// TargetValue is the value an entity reached. Name is empty for TargetAll.
type TargetValue struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// RawBoundViolation lists the entities that broke one bound.
type RawBoundViolation struct {
	BoundIndex    int           `json:"boundIndex"`
	MaxViolations []TargetValue `json:"maxViolations,omitempty"`
	MinViolations []TargetValue `json:"minViolations,omitempty"`
}

// RawRuleViolation is the engine's unordered report for one rule.
type RawRuleViolation struct {
	RuleIndex int                 `json:"ruleIndex"`
	Bounds    []RawBoundViolation `json:"bounds"`
}

// CoverageEngine aggregates binary coverage reports and evaluates rules
// against the result. Calls are blocking and must not share an aggregation
// file concurrently.
type CoverageEngine interface {
	// Aggregate merges binaryReports into ICFile/SMapFile, keeping only
	// classes admitted by Scope.
	Aggregate(ctx context.Context, req AggregateRequest) error
	// EvaluateRules checks every rule against the aggregated icFile.
	EvaluateRules(ctx context.Context, rules []EngineRule, icFile string) ([]RawRuleViolation, error)
}

// XMLReportRequest describes a JaCoCo-compatible XML report.
type XMLReportRequest struct {
	XMLFile       string
	Title         string
	BinaryReports []string
	ClassFileDirs []string
	SourceDirs    []string
	Scope         domain.ClassScope
	Engine        EngineConfig
}

// HTMLReportRequest describes an HTML report.
type HTMLReportRequest struct {
	HTMLDir       string
	Title         string
	Charset       string
	BinaryReports []string
	ClassFileDirs []string
	SourceDirs    []string
	Scope         domain.ClassScope
	Engine        EngineConfig
}

// ReportGenerator renders human readable reports.
type ReportGenerator interface {
	GenerateXML(ctx context.Context, req XMLReportRequest) error
	GenerateHTML(ctx context.Context, req HTMLReportRequest) error
}

// ReportMerger merges several binary reports into one.
type ReportMerger interface {
	Merge(ctx context.Context, target string, binaryReports []string) error
}

// InstrumentRequest describes an offline instrumentation run.
type InstrumentRequest struct {
	OutputDir    string
	OriginalDirs []string
	Scope        domain.ClassScope
	CountHits    bool
	Engine       EngineConfig
}

// Instrumenter rewrites compiled classes so they record coverage.
type Instrumenter interface {
	Instrument(ctx context.Context, req InstrumentRequest) error
}

func counterFor(unit domain.CoverageUnit) EngineCounter {
	switch unit {
	case domain.UnitInstruction:
		return CounterInstruction
	case domain.UnitBranch:
		return CounterBranch
	default:
		return CounterLine
	}
}

func valueTypeFor(aggregation domain.AggregationType) EngineValueType {
	switch aggregation {
	case domain.MissedCount:
		return ValueMissed
	case domain.CoveredPercentage:
		return ValueCoveredRate
	case domain.MissedPercentage:
		return ValueMissedRate
	default:
		return ValueCovered
	}
}

func targetFor(groupBy domain.GroupingBy) EngineTarget {
	switch groupBy {
	case domain.GroupClass:
		return TargetClass
	case domain.GroupPackage:
		return TargetPackage
	default:
		return TargetAll
	}
}

// translateRules converts validated rules into engine rules.
func translateRules(rules []domain.Rule) []EngineRule {
	engineRules := make([]EngineRule, 0, len(rules))
	for i, rule := range rules {
		bounds := make([]EngineBound, 0, len(rule.Bounds))
		for j, b := range rule.Bounds {
			min, max := b.EngineLimits()
			bounds = append(bounds, EngineBound{
				ID:        j,
				Counter:   counterFor(b.Unit),
				ValueType: valueTypeFor(b.Aggregation),
				Min:       min,
				Max:       max,
			})
		}
		engineRules = append(engineRules, EngineRule{ID: i, Target: targetFor(rule.GroupBy), Bounds: bounds})
	}
	return engineRules
}
