package template

import (
	"strings"
	"testing"

	"opportunity_engine/pkg/core/document"
)

func leaf(v float64) map[string]any {
	return map[string]any{"value": v, "unit": "", "rationale": ""}
}

func validSalesDoc() document.Document {
	return document.Document{
		"meta": map[string]any{"periods": 24.0, "business_model": "recurring"},
		"assumptions": map[string]any{
			"pricing": map[string]any{"avg_unit_price": leaf(49)},
			"customers": map[string]any{
				"segments": []any{
					map[string]any{
						"id": "smb",
						"volume": map[string]any{
							"type":         "pattern",
							"pattern_type": "geom_growth",
						},
					},
				},
			},
		},
	}
}

func TestValidRecurringDocument(t *testing.T) {
	res, err := Validate(validSalesDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid document, got errors: %v", res.Errors)
	}
}

func TestMissingPricingIsReported(t *testing.T) {
	doc := validSalesDoc()
	delete(doc["assumptions"].(map[string]any), "pricing")

	res, err := Validate(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid {
		t.Fatalf("expected validation failure for missing pricing")
	}
	found := false
	for _, msg := range res.Errors {
		if strings.Contains(msg, "pricing") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an error mentioning pricing, got %v", res.Errors)
	}
}

func TestBareNumberLeafRejected(t *testing.T) {
	doc := validSalesDoc()
	doc["assumptions"].(map[string]any)["pricing"] = map[string]any{
		"avg_unit_price": 49.0,
	}

	res, err := Validate(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid {
		t.Fatalf("bare number at a triple position should fail strict validation")
	}
}

func TestDriverRangeMustHaveFivePoints(t *testing.T) {
	doc := validSalesDoc()
	doc["drivers"] = []any{
		map[string]any{
			"key":   "price",
			"path":  "assumptions.pricing.avg_unit_price.value",
			"range": []any{1.0, 2.0, 3.0},
		},
	}

	res, err := Validate(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid {
		t.Fatalf("three-point driver range should fail validation")
	}
}

func TestCostSavingsSchema(t *testing.T) {
	doc := document.Document{
		"meta": map[string]any{"periods": 12.0, "business_model": "cost_savings"},
		"assumptions": map[string]any{
			"cost_savings": map[string]any{
				"baseline_costs": []any{
					map[string]any{
						"name":                  "ops",
						"current_monthly_cost":  leaf(8000),
						"savings_potential_pct": leaf(0.25),
					},
				},
			},
		},
	}
	res, err := Validate(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid cost_savings document, got %v", res.Errors)
	}
}

func TestUnknownModelHasNoSchema(t *testing.T) {
	doc := document.Document{
		"meta": map[string]any{"periods": 12.0, "business_model": "licensing"},
	}
	if _, err := Validate(doc); err == nil {
		t.Fatalf("expected error for unknown business model")
	}
}
