package jacoco

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/covergate/internal/application"
	"github.com/felixgeelhaar/covergate/internal/domain"
)

type entityCounters map[application.EngineCounter]Counter

// entities groups the counter set by target. The application is a single
// entity with an empty name.
func entities(set *CounterSet, target application.EngineTarget) (map[string]entityCounters, error) {
	grouped := make(map[string]entityCounters)
	key := func(name string, cov ClassCoverage) string { return "" }
	switch target {
	case application.TargetAll:
		grouped[""] = make(entityCounters)
	case application.TargetClass:
		key = func(name string, cov ClassCoverage) string { return name }
	case application.TargetPackage:
		key = func(name string, cov ClassCoverage) string { return cov.Package }
	default:
		return nil, fmt.Errorf("unknown rule target %q", target)
	}

	for name, cov := range set.Classes {
		k := key(name, cov)
		counters := grouped[k]
		if counters == nil {
			counters = make(entityCounters)
			grouped[k] = counters
		}
		for kind, c := range cov.Counters {
			counters[kind] = counters[kind].add(c)
		}
	}
	return grouped, nil
}

// value computes the bound's metric. ok is false when a rate has no items
// to relate to.
func value(c Counter, valueType application.EngineValueType) (v decimal.Decimal, ok bool, err error) {
	switch valueType {
	case application.ValueCovered:
		return decimal.NewFromInt(c.Covered), true, nil
	case application.ValueMissed:
		return decimal.NewFromInt(c.Missed), true, nil
	case application.ValueCoveredRate, application.ValueMissedRate:
		if c.Total() == 0 {
			return decimal.Zero, false, nil
		}
		part := c.Covered
		if valueType == application.ValueMissedRate {
			part = c.Missed
		}
		return decimal.NewFromInt(part).DivRound(decimal.NewFromInt(c.Total()), domain.EngineScale), true, nil
	default:
		return decimal.Zero, false, fmt.Errorf("unknown value type %q", valueType)
	}
}

func evaluateRule(set *CounterSet, rule application.EngineRule) (application.RawRuleViolation, error) {
	result := application.RawRuleViolation{RuleIndex: rule.ID}
	grouped, err := entities(set, rule.Target)
	if err != nil {
		return result, err
	}
	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, bound := range rule.Bounds {
		violation := application.RawBoundViolation{BoundIndex: bound.ID}
		for _, name := range names {
			v, ok, err := value(grouped[name][bound.Counter], bound.ValueType)
			if err != nil {
				return result, err
			}
			if !ok {
				continue
			}
			if bound.Min != nil && v.LessThan(*bound.Min) {
				violation.MinViolations = append(violation.MinViolations, application.TargetValue{Name: name, Value: v})
			}
			if bound.Max != nil && v.GreaterThan(*bound.Max) {
				violation.MaxViolations = append(violation.MaxViolations, application.TargetValue{Name: name, Value: v})
			}
		}
		if len(violation.MinViolations) > 0 || len(violation.MaxViolations) > 0 {
			result.Bounds = append(result.Bounds, violation)
		}
	}
	return result, nil
}
