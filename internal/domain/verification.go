package domain

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
)

// GroupingBy is the entity type coverage is counted for.
type GroupingBy string

const (
	// GroupApplication counts coverage for all code at once.
	GroupApplication GroupingBy = "APPLICATION"
	// GroupClass counts coverage for each class separately.
	GroupClass GroupingBy = "CLASS"
	// GroupPackage counts coverage for each package that has classes.
	GroupPackage GroupingBy = "PACKAGE"
)

// CoverageUnit is the metric a bound is evaluated on.
type CoverageUnit string

const (
	UnitLine        CoverageUnit = "LINE"
	UnitInstruction CoverageUnit = "INSTRUCTION"
	UnitBranch      CoverageUnit = "BRANCH"
)

// AggregationType selects the counter value compared against a bound.
type AggregationType string

const (
	CoveredCount      AggregationType = "COVERED_COUNT"
	MissedCount       AggregationType = "MISSED_COUNT"
	CoveredPercentage AggregationType = "COVERED_PERCENTAGE"
	MissedPercentage  AggregationType = "MISSED_PERCENTAGE"
)

// Valid reports whether g is a known grouping.
func (g GroupingBy) Valid() bool {
	switch g {
	case GroupApplication, GroupClass, GroupPackage:
		return true
	}
	return false
}

// Valid reports whether u is a known coverage unit.
func (u CoverageUnit) Valid() bool {
	switch u {
	case UnitLine, UnitInstruction, UnitBranch:
		return true
	}
	return false
}

// Valid reports whether a is a known aggregation type.
func (a AggregationType) Valid() bool {
	switch a {
	case CoveredCount, MissedCount, CoveredPercentage, MissedPercentage:
		return true
	}
	return false
}

// IsPercentage reports whether values of a are expressed in percent.
func (a AggregationType) IsPercentage() bool {
	return a == CoveredPercentage || a == MissedPercentage
}

// ParseGroupingBy parses a grouping name, case-insensitively.
func ParseGroupingBy(s string) (GroupingBy, error) {
	g := GroupingBy(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("unknown grouping %q", s)
	}
	return g, nil
}

// ParseCoverageUnit parses a coverage unit name, case-insensitively.
func ParseCoverageUnit(s string) (CoverageUnit, error) {
	u := CoverageUnit(strings.ToUpper(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", fmt.Errorf("unknown coverage unit %q", s)
	}
	return u, nil
}

// ParseAggregationType parses an aggregation name, case-insensitively.
func ParseAggregationType(s string) (AggregationType, error) {
	a := AggregationType(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("unknown aggregation %q", s)
	}
	return a, nil
}

// Bound is a single min/max check over one coverage metric.
// Percentage bounds hold values between 0 and 100.
type Bound struct {
	MinValue    *decimal.Decimal `json:"minValue,omitempty"`
	MaxValue    *decimal.Decimal `json:"maxValue,omitempty"`
	Unit        CoverageUnit     `json:"unit"`
	Aggregation AggregationType  `json:"aggregation"`
}

// String renders the bound the way it is written in configuration.
func (b Bound) String() string {
	var parts []string
	if b.MinValue != nil {
		parts = append(parts, "min "+b.MinValue.String())
	}
	if b.MaxValue != nil {
		parts = append(parts, "max "+b.MaxValue.String())
	}
	return fmt.Sprintf("%s %s %s", b.Unit, b.Aggregation, strings.Join(parts, ", "))
}

// Rule is a named set of bounds evaluated together for one grouping.
// Rules are identified by their position, names need not be unique.
type Rule struct {
	Name    string     `json:"name"`
	GroupBy GroupingBy `json:"groupBy"`
	Bounds  []Bound    `json:"bounds"`
}

// BoundViolation is a single failed bound. Value is in the bound's units and
// EntityName is nil for application-wide rules.
type BoundViolation struct {
	Bound      Bound           `json:"bound"`
	IsMax      bool            `json:"isMax"`
	Value      decimal.Decimal `json:"value"`
	EntityName *string         `json:"entityName"`
}

// Entity returns the violating class or package name, or "" for the application.
func (v BoundViolation) Entity() string {
	if v.EntityName == nil {
		return ""
	}
	return *v.EntityName
}

// Expected returns the threshold the value was compared to.
func (v BoundViolation) Expected() decimal.Decimal {
	if v.IsMax && v.Bound.MaxValue != nil {
		return *v.Bound.MaxValue
	}
	if !v.IsMax && v.Bound.MinValue != nil {
		return *v.Bound.MinValue
	}
	return decimal.Zero
}

// RuleViolations groups the violations found for one rule.
type RuleViolations struct {
	Rule       Rule             `json:"rule"`
	Violations []BoundViolation `json:"violations"`
}

// CoverageValue is the evaluated coverage of one entity.
type CoverageValue struct {
	EntityName *string         `json:"entityName"`
	Value      decimal.Decimal `json:"value"`
}

// ValidateRules checks that every rule can be handed to the engine.
// All problems are reported at once; the result matches ErrConfig.
func ValidateRules(rules []Rule) error {
	var result *multierror.Error
	for i, rule := range rules {
		if !rule.GroupBy.Valid() {
			result = multierror.Append(result, &ConfigError{RuleIndex: i, RuleName: rule.Name, BoundIndex: -1,
				Reason: fmt.Sprintf("unknown grouping %q", rule.GroupBy)})
		}
		if len(rule.Bounds) == 0 {
			result = multierror.Append(result, &ConfigError{RuleIndex: i, RuleName: rule.Name, BoundIndex: -1,
				Reason: "no bounds defined"})
		}
		for j, bound := range rule.Bounds {
			if err := validateBound(bound); err != "" {
				result = multierror.Append(result, &ConfigError{RuleIndex: i, RuleName: rule.Name, BoundIndex: j, Reason: err})
			}
		}
	}
	return result.ErrorOrNil()
}

func validateBound(b Bound) string {
	switch {
	case b.MinValue == nil && b.MaxValue == nil:
		return "neither min nor max value is set"
	case !b.Unit.Valid():
		return fmt.Sprintf("unknown coverage unit %q", b.Unit)
	case !b.Aggregation.Valid():
		return fmt.Sprintf("unknown aggregation %q", b.Aggregation)
	}
	return ""
}

// Value returns a pointer to v, for building optional bound values.
func Value(v decimal.Decimal) *decimal.Decimal {
	return &v
}
