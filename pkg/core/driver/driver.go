// Package driver applies named numeric overrides ("drivers") to assumption
// paths and owns the 5-point scenario sweep used for tornado/sensitivity
// views.
//
// Applying a driver value never touches the input document: the path
// accessor clones the traversed spine and everything else is shared.
// Removing a driver only discards the override bookkeeping; reverting the
// value is the caller's job (keep the pristine baseline document).
package driver

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"opportunity_engine/pkg/core/document"
	"opportunity_engine/pkg/core/metrics"
	"opportunity_engine/pkg/core/paths"
)

// Scenario labels for the five range points, very-low to very-high.
var ScenarioLabels = [5]string{"very_low", "low", "base", "high", "very_high"}

// Apply sets one driver's override value, returning a new document.
func Apply(doc document.Document, drv document.Driver, value float64) (document.Document, error) {
	newRaw, err := paths.Set(map[string]any(doc), drv.Path, value)
	if err != nil {
		return nil, err
	}
	return document.Document(newRaw.(map[string]any)), nil
}

// ApplyAll applies several overrides sequentially (order among independent
// paths does not matter) and returns the final document.
func ApplyAll(doc document.Document, overrides map[string]float64) (document.Document, error) {
	current := doc
	for key, value := range overrides {
		drv, ok := doc.DriverByKey(key)
		if !ok {
			return nil, fmt.Errorf("driver '%s' is not declared on the document", key)
		}
		next, err := Apply(current, drv, value)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// Validate checks that a driver can be added: its path must already resolve
// to a numeric .value leaf inside the document.
func Validate(doc document.Document, drv document.Driver) error {
	if drv.Key == "" {
		return fmt.Errorf("driver key cannot be empty")
	}
	if drv.Path == "" {
		return fmt.Errorf("driver '%s' has no path", drv.Key)
	}
	v, ok := paths.Get(map[string]any(doc), drv.Path)
	if !ok {
		return fmt.Errorf("driver '%s' path '%s' does not resolve in the document", drv.Key, drv.Path)
	}
	if _, ok := paths.AsNumber(v); !ok {
		return fmt.Errorf("driver '%s' path '%s' is not a numeric value", drv.Key, drv.Path)
	}
	return nil
}

// AddDriver declares a new driver on the document and returns the updated
// copy. The driver must validate and its key must be free.
func AddDriver(doc document.Document, drv document.Driver) (document.Document, error) {
	if err := Validate(doc, drv); err != nil {
		return nil, err
	}
	if _, exists := doc.DriverByKey(drv.Key); exists {
		return nil, fmt.Errorf("driver '%s' is already declared on the document", drv.Key)
	}

	newDoc := doc.Clone()
	entry := map[string]any{
		"key":       drv.Key,
		"path":      drv.Path,
		"range":     []any{drv.Range[0], drv.Range[1], drv.Range[2], drv.Range[3], drv.Range[4]},
		"rationale": drv.Rationale,
	}
	existing, _ := newDoc["drivers"].([]any)
	newDoc["drivers"] = append(existing, entry)
	return newDoc, nil
}

// RemoveDriver discards a driver declaration. The document value the driver
// pointed at keeps whatever override was last applied.
func RemoveDriver(doc document.Document, key string) (document.Document, error) {
	if _, ok := doc.DriverByKey(key); !ok {
		return nil, fmt.Errorf("driver '%s' is not declared on the document", key)
	}

	newDoc := doc.Clone()
	existing, _ := newDoc["drivers"].([]any)
	kept := make([]any, 0, len(existing))
	for _, entryRaw := range existing {
		if entry, ok := entryRaw.(map[string]any); ok {
			if k, _ := entry["key"].(string); k == key {
				continue
			}
		}
		kept = append(kept, entryRaw)
	}
	newDoc["drivers"] = kept
	return newDoc, nil
}

// ScenarioPoint is one recomputation of the full pipeline at one of the
// driver's five range values.
type ScenarioPoint struct {
	Label   string                     `json:"label"`
	Value   float64                    `json:"value"`
	Metrics *metrics.CalculatedMetrics `json:"metrics"`
}

// SweepResult holds the five scenario recomputations for one driver.
type SweepResult struct {
	DriverKey string           `json:"driverKey"`
	Path      string           `json:"path"`
	Points    [5]ScenarioPoint `json:"points"`

	// NPV sensitivity over the range: max - min across the five points.
	NPVSpread float64 `json:"npvSpread"`
}

// Sweep recomputes CalculatedMetrics once per range value of the driver,
// holding every other assumption (including other already-applied driver
// overrides) at its current document value.
func Sweep(doc document.Document, drv document.Driver) (*SweepResult, error) {
	if err := Validate(doc, drv); err != nil {
		return nil, err
	}

	result := &SweepResult{DriverKey: drv.Key, Path: drv.Path}
	npvs := make([]float64, 0, 5)
	for i, value := range drv.Range {
		scenarioDoc, err := Apply(doc, drv, value)
		if err != nil {
			return nil, err
		}
		m, err := metrics.Calculate(scenarioDoc)
		if err != nil {
			return nil, err
		}
		result.Points[i] = ScenarioPoint{Label: ScenarioLabels[i], Value: value, Metrics: m}
		npvs = append(npvs, m.NPV)
	}

	min, err := stats.Min(npvs)
	if err != nil {
		return nil, fmt.Errorf("sweep statistics: %w", err)
	}
	max, err := stats.Max(npvs)
	if err != nil {
		return nil, fmt.Errorf("sweep statistics: %w", err)
	}
	result.NPVSpread = max - min
	return result, nil
}

// DriverRanking scores one driver by how hard its range moves the NPV.
type DriverRanking struct {
	Key       string  `json:"key"`
	Path      string  `json:"path"`
	NPVSpread float64 `json:"npvSpread"`
}

// SweepSummary ranks every declared driver for a tornado view.
type SweepSummary struct {
	BaselineNPV float64         `json:"baselineNpv"`
	Rankings    []DriverRanking `json:"rankings"` // most sensitive first
}

// Summarize sweeps every driver declared on the document and orders them by
// NPV spread, most sensitive first.
func Summarize(doc document.Document) (*SweepSummary, error) {
	base, err := metrics.Calculate(doc)
	if err != nil {
		return nil, err
	}
	summary := &SweepSummary{BaselineNPV: base.NPV}

	for _, drv := range doc.Drivers() {
		sweep, err := Sweep(doc, drv)
		if err != nil {
			return nil, fmt.Errorf("sweeping driver '%s': %w", drv.Key, err)
		}
		summary.Rankings = append(summary.Rankings, DriverRanking{
			Key:       drv.Key,
			Path:      drv.Path,
			NPVSpread: sweep.NPVSpread,
		})
	}

	// Insertion sort by descending spread; driver lists are short.
	for i := 1; i < len(summary.Rankings); i++ {
		for j := i; j > 0 && summary.Rankings[j].NPVSpread > summary.Rankings[j-1].NPVSpread; j-- {
			summary.Rankings[j], summary.Rankings[j-1] = summary.Rankings[j-1], summary.Rankings[j]
		}
	}
	return summary, nil
}
