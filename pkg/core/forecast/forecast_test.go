package forecast

import (
	"math"
	"testing"

	"opportunity_engine/pkg/core/document"
)

func leaf(v float64) map[string]any {
	return map[string]any{"value": v, "unit": "", "rationale": ""}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func docWithSegment(volume map[string]any) document.Document {
	return document.Document{
		"meta": map[string]any{"periods": 24.0, "business_model": "recurring"},
		"assumptions": map[string]any{
			"customers": map[string]any{
				"segments": []any{
					map[string]any{"id": "smb", "label": "SMB", "volume": volume},
				},
			},
			"growth_settings": map[string]any{
				"geom_growth": map[string]any{
					"base_value":     leaf(80),
					"monthly_growth": leaf(0.05),
				},
			},
		},
	}
}

func TestSegmentVolumePattern(t *testing.T) {
	doc := docWithSegment(map[string]any{
		"type":           "pattern",
		"pattern_type":   "geom_growth",
		"base_value":     leaf(100),
		"monthly_growth": leaf(0.10),
	})
	seg := doc.Segments()[0]

	v1, err := SegmentVolume(doc, seg, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v1 != 100 {
		t.Errorf("expected 100 at period 1, got %v", v1)
	}

	v12, _ := SegmentVolume(doc, seg, 12)
	if !almostEqual(v12, 100*math.Pow(1.1, 11)) {
		t.Errorf("expected %.4f, got %v", 100*math.Pow(1.1, 11), v12)
	}
}

func TestSegmentFallsBackToGrowthSettings(t *testing.T) {
	// Segment declares the pattern family but no parameters: the document's
	// global growth_settings block of the same family supplies them.
	doc := docWithSegment(map[string]any{
		"type":         "pattern",
		"pattern_type": "geom_growth",
	})
	seg := doc.Segments()[0]

	v1, err := SegmentVolume(doc, seg, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v1 != 80 {
		t.Errorf("expected fallback base 80, got %v", v1)
	}

	v2, _ := SegmentVolume(doc, seg, 2)
	if !almostEqual(v2, 84) {
		t.Errorf("expected fallback growth 0.05 -> 84, got %v", v2)
	}
}

func TestSegmentLevelParamsWinOverFallback(t *testing.T) {
	doc := docWithSegment(map[string]any{
		"type":         "pattern",
		"pattern_type": "geom_growth",
		"base_value":   leaf(200),
		// monthly_growth intentionally absent: per-parameter fallback.
	})
	seg := doc.Segments()[0]

	v2, err := SegmentVolume(doc, seg, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(v2, 210) {
		t.Errorf("expected 200 * 1.05 = 210, got %v", v2)
	}
}

func TestSegmentTimeSeries(t *testing.T) {
	doc := docWithSegment(map[string]any{
		"type": "time_series",
		"series": []any{
			map[string]any{"period": 1.0, "value": leaf(10)},
			map[string]any{"period": 3.0, "value": leaf(30)},
		},
	})
	seg := doc.Segments()[0]

	v2, err := SegmentVolume(doc, seg, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(v2, 20) {
		t.Errorf("expected interpolated 20, got %v", v2)
	}
}

func TestSegmentLegacyShape(t *testing.T) {
	doc := docWithSegment(map[string]any{
		"base_year_total": leaf(1200),
		"yoy_growth":      leaf(0.10),
	})
	seg := doc.Segments()[0]

	v1, err := SegmentVolume(doc, seg, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(v1, 100) {
		t.Errorf("expected 1200/12 = 100, got %v", v1)
	}

	v13, _ := SegmentVolume(doc, seg, 13)
	if !almostEqual(v13, 110) {
		t.Errorf("expected 110 in year 2, got %v", v13)
	}
}

func TestSegmentVolumeOverride(t *testing.T) {
	doc := docWithSegment(map[string]any{
		"type":           "pattern",
		"pattern_type":   "geom_growth",
		"base_value":     leaf(100),
		"monthly_growth": leaf(0.10),
		"yearly_adjustments": map[string]any{
			"volume_factors": map[string]any{"2": leaf(2.0)},
		},
		"volume_overrides": []any{
			map[string]any{"period": 13.0, "value": leaf(500)},
		},
	})
	seg := doc.Segments()[0]

	v13, err := SegmentVolume(doc, seg, 13)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v13 != 500 {
		t.Errorf("override must be absolute: expected 500, got %v", v13)
	}

	v14, _ := SegmentVolume(doc, seg, 14)
	want := 100 * math.Pow(1.1, 13) * 2.0
	if !almostEqual(v14, want) {
		t.Errorf("expected %v at period 14, got %v", want, v14)
	}
}

func TestSegmentWithoutGrowthModel(t *testing.T) {
	doc := docWithSegment(map[string]any{"label_only": "nothing here"})
	seg := doc.Segments()[0]
	if _, err := SegmentVolume(doc, seg, 1); err == nil {
		t.Fatal("expected error for segment with no growth model, got nil")
	}
}

func TestUnitPrice(t *testing.T) {
	doc := document.Document{
		"meta": map[string]any{"periods": 24.0},
		"assumptions": map[string]any{
			"pricing": map[string]any{
				"avg_unit_price": leaf(10),
				"yearly_adjustments": map[string]any{
					"pricing_factors": map[string]any{"2": leaf(1.1)},
				},
				"price_overrides": []any{
					map[string]any{"period": 6.0, "value": leaf(7.5)},
				},
			},
		},
	}

	p1, err := UnitPrice(doc, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1 != 10 {
		t.Errorf("expected base price 10, got %v", p1)
	}

	p6, _ := UnitPrice(doc, 6)
	if p6 != 7.5 {
		t.Errorf("expected override 7.5 at period 6, got %v", p6)
	}

	p13, _ := UnitPrice(doc, 13)
	if !almostEqual(p13, 11) {
		t.Errorf("expected year-2 factor 10*1.1 = 11, got %v", p13)
	}
}

func TestUnitPriceNoPricingSection(t *testing.T) {
	doc := document.Document{"meta": map[string]any{"periods": 12.0}}
	p, err := UnitPrice(doc, 1)
	if err != nil || p != 0 {
		t.Errorf("expected 0 price without pricing section, got %v (err %v)", p, err)
	}
}

func TestCapexAt(t *testing.T) {
	doc := document.Document{
		"assumptions": map[string]any{
			"capex": []any{
				map[string]any{
					"name": "Machines",
					"timeline": []any{
						map[string]any{"period": 1.0, "value": leaf(50000)},
						map[string]any{"period": 12.0, "value": leaf(20000)},
					},
				},
				map[string]any{
					"name": "Fit-out",
					"timeline": []any{
						map[string]any{"period": 1.0, "value": leaf(10000)},
					},
				},
			},
		},
	}

	if v := CapexAt(doc, 1); v != -60000 {
		t.Errorf("expected -60000 at period 1, got %v", v)
	}
	if v := CapexAt(doc, 12); v != -20000 {
		t.Errorf("expected -20000 at period 12, got %v", v)
	}
	if v := CapexAt(doc, 5); v != 0 {
		t.Errorf("expected 0 at period 5, got %v", v)
	}
}

func TestRamp(t *testing.T) {
	doc := document.Document{
		"assumptions": map[string]any{
			"cost_savings": map[string]any{
				"implementation_timeline": map[string]any{
					"start_month":    leaf(3),
					"ramp_up_months": leaf(4),
				},
			},
		},
	}

	cases := []struct {
		period int
		want   float64
	}{
		{1, 0},
		{2, 0},
		{3, 0.25},
		{4, 0.5},
		{6, 1.0},
		{7, 1.0},
		{24, 1.0},
	}
	for _, c := range cases {
		if got := Ramp(doc, c.period); !almostEqual(got, c.want) {
			t.Errorf("period %d: expected ramp %v, got %v", c.period, c.want, got)
		}
	}
}

func TestRampZeroRampMonths(t *testing.T) {
	doc := document.Document{
		"assumptions": map[string]any{
			"cost_savings": map[string]any{
				"implementation_timeline": map[string]any{
					"start_month":    leaf(2),
					"ramp_up_months": leaf(0),
				},
			},
		},
	}
	if got := Ramp(doc, 1); got != 0 {
		t.Errorf("expected 0 before start, got %v", got)
	}
	if got := Ramp(doc, 2); got != 1 {
		t.Errorf("expected immediate full ramp when ramp_up_months is 0, got %v", got)
	}
}
