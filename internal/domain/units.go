package domain

import "github.com/shopspring/decimal"

// EngineScale is the number of fractional digits kept when a percentage is
// converted into the engine's 0..1 rate.
const EngineScale = 6

var oneHundred = decimal.NewFromInt(100)

// ToEngineUnits converts a user-facing bound value into engine units.
// Percentages become rates rounded half-up to EngineScale digits, counts are
// passed through.
func ToEngineUnits(value decimal.Decimal, aggregation AggregationType) decimal.Decimal {
	if !aggregation.IsPercentage() {
		return value
	}
	return value.DivRound(oneHundred, EngineScale)
}

// ToUserUnits converts an engine value back into the bound's units. Rates are
// multiplied by 100 without rounding.
func ToUserUnits(value decimal.Decimal, aggregation AggregationType) decimal.Decimal {
	if !aggregation.IsPercentage() {
		return value
	}
	return value.Mul(oneHundred)
}

// toEngineUnitsPtr converts an optional bound value.
func toEngineUnitsPtr(value *decimal.Decimal, aggregation AggregationType) *decimal.Decimal {
	if value == nil {
		return nil
	}
	converted := ToEngineUnits(*value, aggregation)
	return &converted
}

// EngineLimits returns the bound's min and max in engine units.
func (b Bound) EngineLimits() (min, max *decimal.Decimal) {
	return toEngineUnitsPtr(b.MinValue, b.Aggregation), toEngineUnitsPtr(b.MaxValue, b.Aggregation)
}
