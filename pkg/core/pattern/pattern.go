// Package pattern expands a sparse growth specification into per-period
// numeric values.
//
// Supported models:
//   - geom_growth:     value(p) = start * (1 + monthly_growth)^(p-1)
//   - linear_growth:   value(p) = start + monthly_flat_increase * (p-1)
//   - seasonal_growth: value(p) = (base_year_total/12) * index[(p-1)%12]
//   - (1+yoy_growth)^floor((p-1)/12)
//   - time_series:     explicit {period, value} points; gaps are linearly
//     interpolated, values beyond the last point extrapolate flat.
//
// Layering precedence, applied in this exact order:
//  1. base pattern value
//  2. multiply by the yearly adjustment factor for the period's year
//  3. an absolute per-period override replaces the result entirely
//
// Yearly factors compound with ongoing growth on purpose; overrides are
// absolute, never multiplicative.
package pattern

import (
	"fmt"
	"math"
	"sort"
)

// Pattern type identifiers as they appear in documents.
const (
	TypeGeometric  = "geom_growth"
	TypeLinear     = "linear_growth"
	TypeSeasonal   = "seasonal_growth"
	TypeTimeSeries = "time_series"
)

// PatternError reports an unsupported pattern type or a malformed series.
type PatternError struct {
	PatternType string
	Reason      string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern error (%s): %s", e.PatternType, e.Reason)
}

// Point is one explicit time-series observation.
type Point struct {
	Period int     `json:"period"`
	Value  float64 `json:"value"`
}

// Spec is one fully-resolved growth specification. Zero growth rates are
// valid (flat series); negative growth is valid and is not clamped.
type Spec struct {
	PatternType string

	// geom_growth / linear_growth
	Start               float64
	MonthlyGrowth       float64
	MonthlyFlatIncrease float64

	// seasonal_growth
	BaseYearTotal    float64
	SeasonalityIndex []float64 // 12 multipliers, nominally averaging 1.0
	YoYGrowth        float64

	// time_series
	Series []Point

	// Layer 2: multiplicative factor per year (year 1 = periods 1..12).
	YearFactors map[int]float64

	// Layer 3: absolute replacement per period.
	Overrides map[int]float64
}

// ValueAt computes the layered value for one period (1-based).
func ValueAt(s Spec, period int) (float64, error) {
	if period < 1 {
		return 0, &PatternError{PatternType: s.PatternType, Reason: fmt.Sprintf("period must be >= 1, got %d", period)}
	}

	base, err := baseValue(s, period)
	if err != nil {
		return 0, err
	}

	year := (period-1)/12 + 1
	if factor, ok := s.YearFactors[year]; ok {
		base *= factor
	}

	if override, ok := s.Overrides[period]; ok {
		return override, nil
	}
	return base, nil
}

// Expand produces the dense series for periods 1..n.
func Expand(s Spec, periods int) ([]float64, error) {
	if periods < 0 {
		periods = 0
	}
	series := make([]float64, periods)
	for p := 1; p <= periods; p++ {
		v, err := ValueAt(s, p)
		if err != nil {
			return nil, err
		}
		series[p-1] = v
	}
	return series, nil
}

func baseValue(s Spec, period int) (float64, error) {
	switch s.PatternType {
	case TypeGeometric:
		return s.Start * math.Pow(1+s.MonthlyGrowth, float64(period-1)), nil

	case TypeLinear:
		return s.Start + s.MonthlyFlatIncrease*float64(period-1), nil

	case TypeSeasonal:
		if len(s.SeasonalityIndex) != 12 {
			return 0, &PatternError{
				PatternType: TypeSeasonal,
				Reason:      fmt.Sprintf("seasonality index must have 12 entries, got %d", len(s.SeasonalityIndex)),
			}
		}
		monthIdx := (period - 1) % 12
		yearIdx := (period - 1) / 12
		monthly := s.BaseYearTotal / 12.0
		return monthly * s.SeasonalityIndex[monthIdx] * math.Pow(1+s.YoYGrowth, float64(yearIdx)), nil

	case TypeTimeSeries:
		return interpolate(s.Series, period)

	default:
		return 0, &PatternError{PatternType: s.PatternType, Reason: "unsupported pattern type"}
	}
}

// interpolate resolves a period against explicit points: exact hit, linear
// interpolation between the nearest neighbors, flat extrapolation outside
// the defined range.
func interpolate(series []Point, period int) (float64, error) {
	if len(series) == 0 {
		return 0, &PatternError{PatternType: TypeTimeSeries, Reason: "empty series"}
	}

	sorted := make([]Point, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Period < sorted[j].Period })

	if period <= sorted[0].Period {
		return sorted[0].Value, nil
	}
	last := sorted[len(sorted)-1]
	if period >= last.Period {
		return last.Value, nil
	}

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Period == period {
			return sorted[i].Value, nil
		}
		if sorted[i].Period > period {
			lo, hi := sorted[i-1], sorted[i]
			span := float64(hi.Period - lo.Period)
			if span == 0 {
				return lo.Value, nil
			}
			frac := float64(period-lo.Period) / span
			return lo.Value + (hi.Value-lo.Value)*frac, nil
		}
	}
	return last.Value, nil
}
