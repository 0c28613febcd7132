package pattern

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGeometricGrowth(t *testing.T) {
	s := Spec{PatternType: TypeGeometric, Start: 100, MonthlyGrowth: 0.10}

	v1, err := ValueAt(s, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v1 != 100 {
		t.Errorf("expected 100 at period 1, got %v", v1)
	}

	v12, _ := ValueAt(s, 12)
	want := 100 * math.Pow(1.1, 11)
	if !almostEqual(v12, want) {
		t.Errorf("expected %v at period 12, got %v", want, v12)
	}
}

func TestGeometricZeroGrowthIsFlat(t *testing.T) {
	s := Spec{PatternType: TypeGeometric, Start: 250, MonthlyGrowth: 0}
	series, err := Expand(s, 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range series {
		if v != 250 {
			t.Fatalf("expected flat 250 at period %d, got %v", i+1, v)
		}
	}
}

func TestNegativeGrowthNotClamped(t *testing.T) {
	s := Spec{PatternType: TypeGeometric, Start: 100, MonthlyGrowth: -0.5}
	v3, _ := ValueAt(s, 3)
	if !almostEqual(v3, 25) {
		t.Errorf("expected 25 at period 3, got %v", v3)
	}

	lin := Spec{PatternType: TypeLinear, Start: 10, MonthlyFlatIncrease: -20}
	v2, _ := ValueAt(lin, 2)
	if v2 != -10 {
		t.Errorf("expected -10 (no clamping), got %v", v2)
	}
}

func TestLinearGrowth(t *testing.T) {
	s := Spec{PatternType: TypeLinear, Start: 50, MonthlyFlatIncrease: 5}
	v1, _ := ValueAt(s, 1)
	v10, _ := ValueAt(s, 10)
	if v1 != 50 || v10 != 95 {
		t.Errorf("expected 50/95, got %v/%v", v1, v10)
	}
}

func TestSeasonalGrowth(t *testing.T) {
	index := []float64{2, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0}
	s := Spec{
		PatternType:      TypeSeasonal,
		BaseYearTotal:    1200,
		SeasonalityIndex: index,
		YoYGrowth:        0.20,
	}

	// Period 1: (1200/12) * 2 = 200
	v1, err := ValueAt(s, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(v1, 200) {
		t.Errorf("expected 200 at period 1, got %v", v1)
	}

	// Period 12 uses the last index entry: 100 * 0 = 0
	v12, _ := ValueAt(s, 12)
	if !almostEqual(v12, 0) {
		t.Errorf("expected 0 at period 12, got %v", v12)
	}

	// Period 13 wraps the index and applies one year of YoY growth.
	v13, _ := ValueAt(s, 13)
	if !almostEqual(v13, 200*1.2) {
		t.Errorf("expected 240 at period 13, got %v", v13)
	}
}

func TestSeasonalBadIndex(t *testing.T) {
	s := Spec{PatternType: TypeSeasonal, BaseYearTotal: 1200, SeasonalityIndex: []float64{1, 2, 3}}
	if _, err := ValueAt(s, 1); err == nil {
		t.Fatal("expected PatternError for short seasonality index, got nil")
	}
}

func TestTimeSeriesInterpolation(t *testing.T) {
	s := Spec{
		PatternType: TypeTimeSeries,
		Series: []Point{
			{Period: 1, Value: 100},
			{Period: 5, Value: 300},
			{Period: 10, Value: 200},
		},
	}

	cases := []struct {
		period int
		want   float64
	}{
		{1, 100},
		{3, 200},  // halfway between 100 and 300
		{5, 300},  // exact point
		{7, 260},  // 300 + (200-300)*2/5
		{10, 200}, // exact point
		{15, 200}, // flat extrapolation beyond last point
	}
	for _, c := range cases {
		v, err := ValueAt(s, c.period)
		if err != nil {
			t.Fatalf("period %d: unexpected error: %v", c.period, err)
		}
		if !almostEqual(v, c.want) {
			t.Errorf("period %d: expected %v, got %v", c.period, c.want, v)
		}
	}
}

func TestTimeSeriesEmpty(t *testing.T) {
	s := Spec{PatternType: TypeTimeSeries}
	if _, err := ValueAt(s, 1); err == nil {
		t.Fatal("expected PatternError for empty series, got nil")
	}
}

func TestUnsupportedPattern(t *testing.T) {
	s := Spec{PatternType: "fibonacci_growth"}
	_, err := ValueAt(s, 1)
	if err == nil {
		t.Fatal("expected PatternError, got nil")
	}
	if _, ok := err.(*PatternError); !ok {
		t.Errorf("expected *PatternError, got %T", err)
	}
}

func TestYearlyFactorCompoundsWithGrowth(t *testing.T) {
	s := Spec{
		PatternType:   TypeGeometric,
		Start:         100,
		MonthlyGrowth: 0.10,
		YearFactors:   map[int]float64{2: 1.5},
	}

	// Year 1 unaffected.
	v12, _ := ValueAt(s, 12)
	if !almostEqual(v12, 100*math.Pow(1.1, 11)) {
		t.Errorf("year-1 value should not carry year-2 factor, got %v", v12)
	}

	// Year 2 multiplies the ongoing growth value, not a restarted base.
	v13, _ := ValueAt(s, 13)
	want := 100 * math.Pow(1.1, 12) * 1.5
	if !almostEqual(v13, want) {
		t.Errorf("expected %v at period 13, got %v", want, v13)
	}
}

func TestOverridePrecedence(t *testing.T) {
	s := Spec{
		PatternType:   TypeGeometric,
		Start:         100,
		MonthlyGrowth: 0.10,
		YearFactors:   map[int]float64{2: 1.5},
		Overrides:     map[int]float64{13: 42},
	}

	// Override is absolute: the pattern value and the yearly factor at
	// period 13 are both discarded.
	v13, err := ValueAt(s, 13)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v13 != 42 {
		t.Errorf("expected literal override 42 at period 13, got %v", v13)
	}

	// Neighboring periods keep the layered pattern value.
	v14, _ := ValueAt(s, 14)
	want := 100 * math.Pow(1.1, 13) * 1.5
	if !almostEqual(v14, want) {
		t.Errorf("expected %v at period 14, got %v", want, v14)
	}
}

func TestExpandLength(t *testing.T) {
	s := Spec{PatternType: TypeLinear, Start: 1, MonthlyFlatIncrease: 1}
	series, err := Expand(s, 36)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 36 {
		t.Fatalf("expected 36 periods, got %d", len(series))
	}
	if series[35] != 36 {
		t.Errorf("expected 36 at final period, got %v", series[35])
	}

	empty, err := Expand(s, 0)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty expansion for 0 periods")
	}
}
