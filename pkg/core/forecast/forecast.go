// Package forecast resolves per-period values out of an assumption document:
// customer segment volumes, unit pricing, capital spend, and the
// cost-savings implementation ramp. Every function here is pure in
// (document, period) so the sensitivity engine can recompute cheaply after
// an override.
package forecast

import (
	"fmt"

	"opportunity_engine/pkg/core/document"
	"opportunity_engine/pkg/core/paths"
	"opportunity_engine/pkg/core/pattern"
)

// SegmentVolume evaluates one segment's volume at period (1-based).
//
// Resolution order for the growth model: explicit time series on the
// segment, then the declared pattern type with segment-level parameters
// (falling back per-parameter to assumptions.growth_settings of the same
// pattern family), then the legacy {base_year_total, yoy_growth} shape.
func SegmentVolume(doc document.Document, seg document.Segment, period int) (float64, error) {
	spec, err := ResolveVolumeSpec(doc, seg)
	if err != nil {
		return 0, err
	}
	return pattern.ValueAt(spec, period)
}

// ResolveVolumeSpec builds the authoritative pattern.Spec for a segment.
// Exactly one growth model wins per segment.
func ResolveVolumeSpec(doc document.Document, seg document.Segment) (pattern.Spec, error) {
	vol := seg.Volume
	if vol == nil {
		return pattern.Spec{}, &pattern.PatternError{PatternType: "", Reason: fmt.Sprintf("segment '%s' has no volume spec", seg.ID)}
	}

	volType, _ := vol["type"].(string)
	patternType, _ := vol["pattern_type"].(string)

	spec := pattern.Spec{
		YearFactors: yearFactors(vol, "yearly_adjustments.volume_factors"),
		Overrides:   periodOverrides(vol["volume_overrides"]),
	}

	switch {
	case volType == pattern.TypeTimeSeries || (patternType == "" && vol["series"] != nil):
		spec.PatternType = pattern.TypeTimeSeries
		series, err := seriesPoints(vol["series"])
		if err != nil {
			return pattern.Spec{}, err
		}
		spec.Series = series
		return spec, nil

	case patternType != "":
		spec.PatternType = patternType
		fallback := doc.Section("assumptions.growth_settings." + patternType)
		fill := func(keys ...string) (float64, bool) {
			for _, key := range keys {
				if v, ok := numberIn(vol, key); ok {
					return v, true
				}
			}
			for _, key := range keys {
				if v, ok := numberIn(fallback, key); ok {
					return v, true
				}
			}
			return 0, false
		}

		switch patternType {
		case pattern.TypeGeometric:
			spec.Start, _ = fill("base_value", "start")
			spec.MonthlyGrowth, _ = fill("monthly_growth")
		case pattern.TypeLinear:
			spec.Start, _ = fill("base_value", "start")
			spec.MonthlyFlatIncrease, _ = fill("monthly_flat_increase")
		case pattern.TypeSeasonal:
			spec.BaseYearTotal, _ = fill("base_year_total")
			spec.YoYGrowth, _ = fill("yoy_growth")
			spec.SeasonalityIndex = floatList(vol["seasonality_index_12"])
			if spec.SeasonalityIndex == nil && fallback != nil {
				spec.SeasonalityIndex = floatList(fallback["seasonality_index_12"])
			}
		default:
			return pattern.Spec{}, &pattern.PatternError{PatternType: patternType, Reason: "unsupported pattern type"}
		}
		return spec, nil

	default:
		// Legacy shape: flat monthly slice of a yearly total with annual growth.
		baseYear, ok := numberIn(vol, "base_year_total")
		if !ok {
			return pattern.Spec{}, &pattern.PatternError{
				PatternType: "",
				Reason:      fmt.Sprintf("segment '%s' declares no growth model", seg.ID),
			}
		}
		yoy, _ := numberIn(vol, "yoy_growth")
		spec.PatternType = pattern.TypeSeasonal
		spec.BaseYearTotal = baseYear
		spec.YoYGrowth = yoy
		spec.SeasonalityIndex = flatIndex12()
		return spec, nil
	}
}

// UnitPrice evaluates the dynamic unit price at period: the avg_unit_price
// base, multiplied by the pricing factor of the period's year, then replaced
// entirely by any absolute price override for that period.
func UnitPrice(doc document.Document, period int) (float64, error) {
	pricing := doc.Section("assumptions.pricing")
	if pricing == nil {
		return 0, nil
	}
	return pattern.ValueAt(ResolvePricingSpec(doc), period)
}

// ResolvePricingSpec exposes the pricing section as the flat-base spec
// UnitPrice evaluates, so callers can see which yearly factors and absolute
// overrides shaped a period's price. A missing pricing section resolves to a
// zero-price spec.
func ResolvePricingSpec(doc document.Document) pattern.Spec {
	spec := pattern.Spec{PatternType: pattern.TypeGeometric}
	pricing := doc.Section("assumptions.pricing")
	if pricing == nil {
		return spec
	}
	spec.Start, _ = numberIn(pricing, "avg_unit_price")
	spec.YearFactors = yearFactors(pricing, "yearly_adjustments.pricing_factors")
	spec.Overrides = periodOverrides(pricing["price_overrides"])
	return spec
}

// TotalVolume sums all segment volumes at period.
func TotalVolume(doc document.Document, period int) (float64, error) {
	total := 0.0
	for _, seg := range doc.Segments() {
		v, err := SegmentVolume(doc, seg, period)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// CapexAt returns the capital spend for period as negative cash outflow.
func CapexAt(doc document.Document, period int) float64 {
	total := 0.0
	for _, entry := range doc.CapexEntries() {
		if entry.Period == period {
			total += entry.Amount
		}
	}
	return -total
}

// Ramp returns the implementation-adoption factor for cost-savings models:
// 0 before start_month, a linear rise to 1 across ramp_up_months, then 1.
// The first ramp month already delivers a partial benefit (1/ramp_up_months).
func Ramp(doc document.Document, period int) float64 {
	timeline := doc.Section("assumptions.cost_savings.implementation_timeline")
	start := 1.0
	rampMonths := 0.0
	if timeline != nil {
		if v, ok := numberIn(timeline, "start_month"); ok {
			start = v
		}
		if v, ok := numberIn(timeline, "ramp_up_months"); ok {
			rampMonths = v
		}
	}

	p := float64(period)
	if p < start {
		return 0
	}
	if rampMonths <= 0 {
		return 1
	}
	progress := (p - start + 1) / rampMonths
	if progress > 1 {
		return 1
	}
	return progress
}

// =============================================================================
// RAW-DOCUMENT HELPERS
// =============================================================================

// numberIn reads a numeric parameter that may be a {value,unit,rationale}
// triple or a bare number.
func numberIn(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	if leaf, ok := v.(map[string]any); ok {
		return paths.AsNumber(leaf["value"])
	}
	return paths.AsNumber(v)
}

// yearFactors reads a yearly_adjustments block ({"1": 1.0, "2": 1.2, ...},
// values possibly triples) into a year -> factor map.
func yearFactors(m map[string]any, path string) map[int]float64 {
	raw, ok := paths.Get(m, path)
	if !ok {
		return nil
	}
	block, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	factors := make(map[int]float64, len(block))
	for yearStr, v := range block {
		var year int
		if _, err := fmt.Sscanf(yearStr, "%d", &year); err != nil || year < 1 {
			continue
		}
		if leaf, ok := v.(map[string]any); ok {
			if f, ok := paths.AsNumber(leaf["value"]); ok {
				factors[year] = f
			}
			continue
		}
		if f, ok := paths.AsNumber(v); ok {
			factors[year] = f
		}
	}
	return factors
}

// periodOverrides reads an override list ([{period, value}]) into a
// period -> absolute value map.
func periodOverrides(raw any) map[int]float64 {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	overrides := make(map[int]float64, len(list))
	for _, entryRaw := range list {
		entry, ok := entryRaw.(map[string]any)
		if !ok {
			continue
		}
		period, okP := paths.AsNumber(entry["period"])
		value, okV := numberIn(entry, "value")
		if okP && okV && period >= 1 {
			overrides[int(period)] = value
		}
	}
	return overrides
}

// seriesPoints reads explicit time-series points; values may be triples.
func seriesPoints(raw any) ([]pattern.Point, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, &pattern.PatternError{PatternType: pattern.TypeTimeSeries, Reason: "series is not a list"}
	}
	points := make([]pattern.Point, 0, len(list))
	for _, entryRaw := range list {
		entry, ok := entryRaw.(map[string]any)
		if !ok {
			return nil, &pattern.PatternError{PatternType: pattern.TypeTimeSeries, Reason: "series entry is not an object"}
		}
		period, okP := paths.AsNumber(entry["period"])
		value, okV := numberIn(entry, "value")
		if !okP || !okV {
			return nil, &pattern.PatternError{PatternType: pattern.TypeTimeSeries, Reason: "series entry missing period or value"}
		}
		points = append(points, pattern.Point{Period: int(period), Value: value})
	}
	return points, nil
}

func floatList(raw any) []float64 {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(list))
	for _, v := range list {
		n, ok := paths.AsNumber(v)
		if !ok {
			return nil
		}
		out = append(out, n)
	}
	return out
}

func flatIndex12() []float64 {
	index := make([]float64, 12)
	for i := range index {
		index[i] = 1
	}
	return index
}
