package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineMin(v int64) Bound {
	return Bound{MinValue: Value(decimal.NewFromInt(v)), Unit: UnitLine, Aggregation: CoveredPercentage}
}

func TestValidateRules(t *testing.T) {
	t.Run("accepts well formed rules", func(t *testing.T) {
		rules := []Rule{
			{Name: "lines", GroupBy: GroupClass, Bounds: []Bound{lineMin(80)}},
			{Name: "branches", GroupBy: GroupApplication, Bounds: []Bound{{
				MaxValue: Value(decimal.NewFromInt(10)), Unit: UnitBranch, Aggregation: MissedCount,
			}}},
		}
		assert.NoError(t, ValidateRules(rules))
	})

	t.Run("rejects bound without limits", func(t *testing.T) {
		rules := []Rule{{Name: "lines", GroupBy: GroupClass, Bounds: []Bound{{Unit: UnitLine, Aggregation: CoveredPercentage}}}}
		err := ValidateRules(rules)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))

		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, 0, cfgErr.RuleIndex)
		assert.Equal(t, 0, cfgErr.BoundIndex)
	})

	t.Run("rejects empty bound list", func(t *testing.T) {
		err := ValidateRules([]Rule{{Name: "empty", GroupBy: GroupPackage}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfig)
		assert.Contains(t, err.Error(), "no bounds defined")
	})

	t.Run("reports every problem", func(t *testing.T) {
		rules := []Rule{
			{Name: "a", GroupBy: "MODULE", Bounds: []Bound{lineMin(1)}},
			{Name: "b", GroupBy: GroupClass, Bounds: []Bound{{MinValue: Value(decimal.Zero), Unit: "METHOD", Aggregation: CoveredCount}}},
		}
		err := ValidateRules(rules)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown grouping "MODULE"`)
		assert.Contains(t, err.Error(), `unknown coverage unit "METHOD"`)
	})
}

func TestParseEnums(t *testing.T) {
	g, err := ParseGroupingBy(" class ")
	require.NoError(t, err)
	assert.Equal(t, GroupClass, g)

	u, err := ParseCoverageUnit("instruction")
	require.NoError(t, err)
	assert.Equal(t, UnitInstruction, u)

	a, err := ParseAggregationType("Missed_Percentage")
	require.NoError(t, err)
	assert.Equal(t, MissedPercentage, a)
	assert.True(t, a.IsPercentage())
	assert.False(t, CoveredCount.IsPercentage())

	_, err = ParseGroupingBy("module")
	assert.Error(t, err)
	_, err = ParseCoverageUnit("")
	assert.Error(t, err)
	_, err = ParseAggregationType("RATE")
	assert.Error(t, err)
}

func TestBoundViolationAccessors(t *testing.T) {
	name := "com.a.A"
	b := Bound{MinValue: Value(decimal.NewFromInt(80)), MaxValue: Value(decimal.NewFromInt(95)), Unit: UnitLine, Aggregation: CoveredPercentage}

	min := BoundViolation{Bound: b, Value: decimal.NewFromInt(60), EntityName: &name}
	assert.Equal(t, "com.a.A", min.Entity())
	assert.True(t, min.Expected().Equal(decimal.NewFromInt(80)))

	max := BoundViolation{Bound: b, IsMax: true, Value: decimal.NewFromInt(99)}
	assert.Equal(t, "", max.Entity())
	assert.True(t, max.Expected().Equal(decimal.NewFromInt(95)))

	assert.Equal(t, "LINE COVERED_PERCENTAGE min 80, max 95", b.String())
}
