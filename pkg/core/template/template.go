// Package template holds the JSON Schemas an assumption document must
// satisfy before the projection engine will accept it, one schema per
// business model.
package template

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"opportunity_engine/pkg/core/document"
)

// Result reports schema validation findings. Errors are human-readable,
// one per violated constraint.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// numericLeaf is the {value, unit, rationale} triple. Only value is
// mandatory; bare numbers at leaf positions are tolerated elsewhere in the
// engine but rejected by strict validation so authors converge on triples.
func numericLeaf() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"value"},
		"properties": map[string]any{
			"value":     map[string]any{"type": "number"},
			"unit":      map[string]any{"type": "string"},
			"rationale": map[string]any{"type": "string"},
		},
	}
}

func driverSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": []any{"key", "path", "range"},
			"properties": map[string]any{
				"key":  map[string]any{"type": "string", "minLength": 1},
				"path": map[string]any{"type": "string", "minLength": 1},
				"range": map[string]any{
					"type":     "array",
					"minItems": 5,
					"maxItems": 5,
					"items":    map[string]any{"type": "number"},
				},
				"rationale": map[string]any{"type": "string"},
			},
		},
	}
}

func metaSchema(model string) map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"periods", "business_model"},
		"properties": map[string]any{
			"periods":        map[string]any{"type": "number", "minimum": 1},
			"business_model": map[string]any{"const": model},
			"title":          map[string]any{"type": "string"},
			"currency":       map[string]any{"type": "string"},
		},
	}
}

func segmentSchema() map[string]any {
	return map[string]any{
		"type":     "array",
		"minItems": 1,
		"items": map[string]any{
			"type":     "object",
			"required": []any{"id"},
			"properties": map[string]any{
				"id":    map[string]any{"type": "string", "minLength": 1},
				"label": map[string]any{"type": "string"},
				"volume": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type":         map[string]any{"enum": []any{"pattern", "time_series"}},
						"pattern_type": map[string]any{"enum": []any{"geom_growth", "linear_growth", "seasonal_growth"}},
					},
				},
			},
		},
	}
}

func salesSchema(model string) map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"meta", "assumptions"},
		"properties": map[string]any{
			"meta": metaSchema(model),
			"assumptions": map[string]any{
				"type":     "object",
				"required": []any{"pricing", "customers"},
				"properties": map[string]any{
					"pricing": map[string]any{
						"type":     "object",
						"required": []any{"avg_unit_price"},
						"properties": map[string]any{
							"avg_unit_price": numericLeaf(),
						},
					},
					"customers": map[string]any{
						"type":     "object",
						"required": []any{"segments"},
						"properties": map[string]any{
							"segments": segmentSchema(),
						},
					},
					"unit_economics": map[string]any{"type": "object"},
					"financial":      map[string]any{"type": "object"},
					"opex":           map[string]any{"type": "array"},
					"capex":          map[string]any{"type": "array"},
				},
			},
			"drivers": driverSchema(),
		},
	}
}

func costSavingsSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"meta", "assumptions"},
		"properties": map[string]any{
			"meta": metaSchema(document.ModelCostSavings),
			"assumptions": map[string]any{
				"type":     "object",
				"required": []any{"cost_savings"},
				"properties": map[string]any{
					"cost_savings": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"baseline_costs": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type":     "object",
									"required": []any{"name", "current_monthly_cost", "savings_potential_pct"},
									"properties": map[string]any{
										"name":                  map[string]any{"type": "string"},
										"current_monthly_cost":  numericLeaf(),
										"savings_potential_pct": numericLeaf(),
									},
								},
							},
							"efficiency_gains": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type":     "object",
									"required": []any{"name", "improved_value", "value_per_unit"},
									"properties": map[string]any{
										"name":           map[string]any{"type": "string"},
										"improved_value": numericLeaf(),
										"value_per_unit": numericLeaf(),
									},
								},
							},
							"implementation_timeline": map[string]any{"type": "object"},
						},
					},
					"financial": map[string]any{"type": "object"},
					"opex":      map[string]any{"type": "array"},
					"capex":     map[string]any{"type": "array"},
				},
			},
			"drivers": driverSchema(),
		},
	}
}

// SchemaFor returns the document schema for a business model.
func SchemaFor(model string) (map[string]any, error) {
	switch model {
	case document.ModelRecurring, document.ModelUnitSales:
		return salesSchema(model), nil
	case document.ModelCostSavings:
		return costSavingsSchema(), nil
	}
	return nil, fmt.Errorf("no document schema for business model %q", model)
}

// Validate checks a document against the schema for its declared business
// model. Schema violations land in Result.Errors; only schema-loading
// problems surface as an error.
func Validate(doc document.Document) (*Result, error) {
	schema, err := SchemaFor(doc.BusinessModel())
	if err != nil {
		return nil, err
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(map[string]any(doc))

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed to run: %w", err)
	}

	out := &Result{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, desc.String())
	}
	return out, nil
}
