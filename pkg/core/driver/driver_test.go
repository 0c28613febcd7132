package driver

import (
	"testing"

	"opportunity_engine/pkg/core/document"
	"opportunity_engine/pkg/core/paths"
)

func leaf(v float64) map[string]any {
	return map[string]any{"value": v, "unit": "", "rationale": ""}
}

func baseDoc() document.Document {
	return document.Document{
		"meta": map[string]any{"periods": 12.0, "business_model": "recurring"},
		"assumptions": map[string]any{
			"pricing": map[string]any{"avg_unit_price": leaf(10)},
			"customers": map[string]any{
				"segments": []any{
					map[string]any{
						"id": "core",
						"volume": map[string]any{
							"type":           "pattern",
							"pattern_type":   "geom_growth",
							"base_value":     leaf(100),
							"monthly_growth": leaf(0.10),
						},
					},
				},
			},
			"unit_economics": map[string]any{"cogs_pct": leaf(0.2)},
			"financial":      map[string]any{"interest_rate": leaf(0.10)},
		},
		"drivers": []any{
			map[string]any{
				"key":       "price",
				"path":      "assumptions.pricing.avg_unit_price.value",
				"range":     []any{6.0, 8.0, 10.0, 12.0, 14.0},
				"rationale": "list price under negotiation",
			},
			map[string]any{
				"key":   "growth",
				"path":  "assumptions.customers.segments[0].volume.monthly_growth.value",
				"range": []any{0.0, 0.05, 0.10, 0.15, 0.20},
			},
		},
	}
}

func TestApplyRoundTrip(t *testing.T) {
	doc := baseDoc()
	drv, ok := doc.DriverByKey("price")
	if !ok {
		t.Fatal("driver 'price' should be declared")
	}

	newDoc, err := Apply(doc, drv, 13.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := paths.GetNumber(map[string]any(newDoc), drv.Path)
	if !ok || got != 13.5 {
		t.Errorf("round-trip failed: expected 13.5, got %v (ok=%v)", got, ok)
	}

	// Baseline untouched.
	orig, _ := paths.GetNumber(map[string]any(doc), drv.Path)
	if orig != 10 {
		t.Errorf("baseline document mutated: got %v", orig)
	}

	// The leaf's unit/rationale siblings survive.
	unit, ok := paths.Get(map[string]any(newDoc), "assumptions.pricing.avg_unit_price.unit")
	if !ok || unit.(string) != "" {
		t.Errorf("leaf siblings must be preserved, got %v", unit)
	}
}

func TestApplyBadPath(t *testing.T) {
	doc := baseDoc()
	drv := document.Driver{Key: "ghost", Path: "assumptions.nonexistent.value"}
	if _, err := Apply(doc, drv, 1.0); err == nil {
		t.Fatal("expected PathError for missing path, got nil")
	}
}

func TestApplyAll(t *testing.T) {
	doc := baseDoc()
	newDoc, err := ApplyAll(doc, map[string]float64{"price": 12, "growth": 0.05})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, _ := paths.GetNumber(map[string]any(newDoc), "assumptions.pricing.avg_unit_price.value")
	g, _ := paths.GetNumber(map[string]any(newDoc), "assumptions.customers.segments[0].volume.monthly_growth.value")
	if p != 12 || g != 0.05 {
		t.Errorf("expected price 12 / growth 0.05, got %v / %v", p, g)
	}
}

func TestApplyAllUnknownKey(t *testing.T) {
	doc := baseDoc()
	if _, err := ApplyAll(doc, map[string]float64{"missing": 1}); err == nil {
		t.Fatal("expected error for undeclared driver key, got nil")
	}
}

func TestValidate(t *testing.T) {
	doc := baseDoc()

	good := document.Driver{Key: "ok", Path: "assumptions.pricing.avg_unit_price.value"}
	if err := Validate(doc, good); err != nil {
		t.Errorf("unexpected error for valid driver: %v", err)
	}

	cases := []document.Driver{
		{Key: "", Path: "assumptions.pricing.avg_unit_price.value"},
		{Key: "nopath"},
		{Key: "missing", Path: "assumptions.made_up.value"},
		{Key: "nonnumeric", Path: "assumptions.pricing.avg_unit_price.unit"},
	}
	for _, drv := range cases {
		if err := Validate(doc, drv); err == nil {
			t.Errorf("expected validation error for driver %+v", drv)
		}
	}
}

func TestSweep(t *testing.T) {
	doc := baseDoc()
	drv, _ := doc.DriverByKey("price")

	sweep, err := Sweep(doc, drv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sweep.Points[0].Label != "very_low" || sweep.Points[4].Label != "very_high" {
		t.Errorf("scenario labels wrong: %v / %v", sweep.Points[0].Label, sweep.Points[4].Label)
	}

	// Higher price means strictly higher revenue at fixed volume.
	prev := -1.0
	for _, pt := range sweep.Points {
		if pt.Metrics.TotalRevenue <= prev {
			t.Fatalf("revenue should increase with price, got %v after %v", pt.Metrics.TotalRevenue, prev)
		}
		prev = pt.Metrics.TotalRevenue
	}

	if sweep.NPVSpread <= 0 {
		t.Errorf("expected positive NPV spread, got %v", sweep.NPVSpread)
	}

	// The sweep leaves the document at its current values.
	p, _ := paths.GetNumber(map[string]any(doc), drv.Path)
	if p != 10 {
		t.Errorf("sweep must not mutate the document, price is now %v", p)
	}
}

func TestAddDriver(t *testing.T) {
	doc := baseDoc()
	drv := document.Driver{
		Key:       "cogs",
		Path:      "assumptions.unit_economics.cogs_pct.value",
		Range:     [5]float64{0.1, 0.15, 0.2, 0.25, 0.3},
		Rationale: "supplier quote pending",
	}

	newDoc, err := AddDriver(doc, drv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := newDoc.DriverByKey("cogs")
	if !ok {
		t.Fatal("added driver should be declared on the new document")
	}
	if got.Path != drv.Path || got.Range[4] != 0.3 || got.Rationale != "supplier quote pending" {
		t.Errorf("driver round-trip mangled: %+v", got)
	}

	// Baseline keeps its original two drivers.
	if n := len(doc.Drivers()); n != 2 {
		t.Errorf("baseline document mutated, now has %d drivers", n)
	}

	if _, err := AddDriver(newDoc, drv); err == nil {
		t.Error("expected error for duplicate driver key, got nil")
	}

	bad := document.Driver{Key: "ghost", Path: "assumptions.made_up.value"}
	if _, err := AddDriver(doc, bad); err == nil {
		t.Error("expected error for unresolvable path, got nil")
	}
}

func TestRemoveDriver(t *testing.T) {
	doc := baseDoc()
	doc, err := Apply(doc, mustDriver(t, doc, "price"), 13.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newDoc, err := RemoveDriver(doc, "price")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := newDoc.DriverByKey("price"); ok {
		t.Error("removed driver still declared")
	}
	if len(newDoc.Drivers()) != 1 {
		t.Errorf("expected 1 remaining driver, got %d", len(newDoc.Drivers()))
	}

	// Removing the declaration does not revert the applied override.
	p, _ := paths.GetNumber(map[string]any(newDoc), "assumptions.pricing.avg_unit_price.value")
	if p != 13 {
		t.Errorf("override should survive removal, got %v", p)
	}

	if _, err := RemoveDriver(newDoc, "price"); err == nil {
		t.Error("expected error for undeclared driver key, got nil")
	}
}

func mustDriver(t *testing.T, doc document.Document, key string) document.Driver {
	t.Helper()
	drv, ok := doc.DriverByKey(key)
	if !ok {
		t.Fatalf("driver '%s' should be declared", key)
	}
	return drv
}

func TestSummarizeRanksDrivers(t *testing.T) {
	doc := baseDoc()
	summary, err := Summarize(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(summary.Rankings) != 2 {
		t.Fatalf("expected 2 rankings, got %d", len(summary.Rankings))
	}
	if summary.Rankings[0].NPVSpread < summary.Rankings[1].NPVSpread {
		t.Error("rankings must be ordered most sensitive first")
	}
	if summary.BaselineNPV == 0 {
		t.Error("baseline NPV should be computed")
	}
}
