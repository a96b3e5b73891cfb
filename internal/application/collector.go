package application

import (
	"fmt"
	"slices"

	"github.com/felixgeelhaar/covergate/internal/domain"
)

// violationKey is the identity of a violation inside one rule. A min and a
// max violation of the same bound and entity are distinct.
type violationKey struct {
	boundIndex int
	entity     string
	hasEntity  bool
	isMax      bool
}

func (k violationKey) id() domain.ViolationID {
	id := domain.ViolationID{BoundIndex: k.boundIndex}
	if k.hasEntity {
		entity := k.entity
		id.EntityName = &entity
	}
	return id
}

func compareKeys(a, b violationKey) int {
	if c := domain.CompareViolationIDs(a.id(), b.id()); c != 0 {
		return c
	}
	switch {
	case a.isMax == b.isMax:
		return 0
	case a.isMax:
		return -1
	default:
		return 1
	}
}

// CollectViolations turns the engine's raw report into the sorted result.
// Rules appear in input order and only when violated; inside a rule
// violations are ordered by bound position, then entity name (nil first),
// then max before min. Values are converted back into the bound's units.
func CollectViolations(rules []domain.Rule, raw []RawRuleViolation) ([]domain.RuleViolations, error) {
	byRule := make(map[int]map[violationKey]domain.BoundViolation)

	for _, rv := range raw {
		if rv.RuleIndex < 0 || rv.RuleIndex >= len(rules) {
			return nil, &domain.EngineError{Op: "evaluate", Err: fmt.Errorf("violation references unknown rule #%d", rv.RuleIndex)}
		}
		rule := rules[rv.RuleIndex]
		collected := byRule[rv.RuleIndex]
		if collected == nil {
			collected = make(map[violationKey]domain.BoundViolation)
			byRule[rv.RuleIndex] = collected
		}

		for _, bv := range rv.Bounds {
			if bv.BoundIndex < 0 || bv.BoundIndex >= len(rule.Bounds) {
				return nil, &domain.EngineError{Op: "evaluate", Err: fmt.Errorf("rule %q has no bound #%d", rule.Name, bv.BoundIndex)}
			}
			bound := rule.Bounds[bv.BoundIndex]
			for _, tv := range bv.MaxViolations {
				addViolation(collected, rule, bv.BoundIndex, bound, true, tv)
			}
			for _, tv := range bv.MinViolations {
				addViolation(collected, rule, bv.BoundIndex, bound, false, tv)
			}
		}
	}

	indices := make([]int, 0, len(byRule))
	for idx, collected := range byRule {
		if len(collected) > 0 {
			indices = append(indices, idx)
		}
	}
	slices.Sort(indices)

	result := make([]domain.RuleViolations, 0, len(indices))
	for _, idx := range indices {
		collected := byRule[idx]
		keys := make([]violationKey, 0, len(collected))
		for key := range collected {
			keys = append(keys, key)
		}
		slices.SortFunc(keys, compareKeys)

		violations := make([]domain.BoundViolation, 0, len(keys))
		for _, key := range keys {
			violations = append(violations, collected[key])
		}
		result = append(result, domain.RuleViolations{Rule: rules[idx], Violations: violations})
	}
	return result, nil
}

func addViolation(collected map[violationKey]domain.BoundViolation, rule domain.Rule, boundIndex int, bound domain.Bound, isMax bool, tv TargetValue) {
	key := violationKey{boundIndex: boundIndex, isMax: isMax}
	var entity *string
	if rule.GroupBy != domain.GroupApplication {
		name := tv.Name
		entity = &name
		key.entity, key.hasEntity = name, true
	}
	// a repeated report for the same key replaces the earlier one
	collected[key] = domain.BoundViolation{
		Bound:      bound,
		IsMax:      isMax,
		Value:      domain.ToUserUnits(tv.Value, bound.Aggregation),
		EntityName: entity,
	}
}
