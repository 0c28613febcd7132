// Package document defines the AssumptionDocument: the caller-owned root
// entity describing a business opportunity (pricing, customer segments,
// cost structures, capital spend, cost savings) plus the sensitivity drivers
// attached to it.
//
// The document is kept as decoded JSON (map[string]any) rather than a struct
// union because drivers address arbitrary numeric leaves by dotted path, and
// the engine must preserve unknown siblings on mutation. Typed read helpers
// in this package are the only way the engine looks inside it.
//
// Numeric leaf convention: every assumption number is a triple
// {value, unit, rationale}. The engine computes on .value and carries
// unit/rationale through untouched.
package document

import (
	"encoding/json"
	"fmt"

	"opportunity_engine/pkg/core/paths"
)

// Business model tags carried in meta.business_model.
const (
	ModelRecurring   = "recurring"
	ModelUnitSales   = "unit_sales"
	ModelCostSavings = "cost_savings"
)

// Document is a decoded AssumptionDocument. The engine treats it as an
// immutable input; all mutation goes through paths.Set, which returns a
// fresh spine.
type Document map[string]any

// Driver is a named sensitivity override targeting one assumption path.
// Range holds the five scenario values (very-low .. very-high). The
// currently applied override, if any, is tracked by the caller, not here.
type Driver struct {
	Key       string     `json:"key"`
	Path      string     `json:"path"`
	Range     [5]float64 `json:"range"`
	Rationale string     `json:"rationale,omitempty"`
}

// Segment is a typed view over one entry of assumptions.customers.segments.
// Volume stays raw: the forecast package resolves which growth model is
// authoritative at evaluation time.
type Segment struct {
	ID     string
	Label  string
	Volume map[string]any
}

// OpexItem is a typed view over one entry of assumptions.opex. Either
// CostStructure or the legacy flat Value is present.
type OpexItem struct {
	Name          string
	CostStructure map[string]any
	LegacyValue   float64
	HasLegacy     bool
}

// CapexEntry is one literal capital spend: Amount at Period.
type CapexEntry struct {
	Name   string
	Period int
	Amount float64
}

// FromJSON decodes an AssumptionDocument from its JSON form.
func FromJSON(data []byte) (Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid assumption document: %w", err)
	}
	return Document(raw), nil
}

// ToJSON serializes the document.
func (d Document) ToJSON() ([]byte, error) {
	return json.Marshal(map[string]any(d))
}

// Clone returns a deep copy. Used by callers that keep a pristine baseline
// while applying driver overrides.
func (d Document) Clone() Document {
	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, child := range t {
			m[k] = cloneValue(child)
		}
		return m
	case []any:
		arr := make([]any, len(t))
		for i, child := range t {
			arr[i] = cloneValue(child)
		}
		return arr
	default:
		return v
	}
}

// =============================================================================
// META ACCESSORS
// =============================================================================

// Periods returns meta.periods, the projection horizon in months.
func (d Document) Periods() int {
	n, ok := paths.GetNumber(d.raw(), "meta.periods")
	if !ok || n < 0 {
		return 0
	}
	return int(n)
}

// BusinessModel returns the meta.business_model tag, defaulting to recurring.
func (d Document) BusinessModel() string {
	v, ok := paths.Get(d.raw(), "meta.business_model")
	if !ok {
		return ModelRecurring
	}
	s, ok := v.(string)
	if !ok {
		return ModelRecurring
	}
	switch s {
	case ModelRecurring, ModelUnitSales, ModelCostSavings:
		return s
	}
	return ModelRecurring
}

// Currency returns meta.currency ("" if absent).
func (d Document) Currency() string {
	v, ok := paths.Get(d.raw(), "meta.currency")
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Title returns meta.title ("" if absent).
func (d Document) Title() string {
	v, ok := paths.Get(d.raw(), "meta.title")
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// =============================================================================
// ASSUMPTION ACCESSORS
// =============================================================================

// NumberAt reads the numeric leaf value at path (the ".value" of a triple
// when path ends in .value, or any bare number).
func (d Document) NumberAt(path string) (float64, bool) {
	return paths.GetNumber(d.raw(), path)
}

// LeafValue reads node.value for the triple stored under path.
func (d Document) LeafValue(path string) (float64, bool) {
	return paths.GetNumber(d.raw(), path+".value")
}

// ValueOr reads a triple's value with a default for absent leaves.
func (d Document) ValueOr(path string, fallback float64) float64 {
	if v, ok := d.LeafValue(path); ok {
		return v
	}
	return fallback
}

// Section returns the raw object at path (nil when absent).
func (d Document) Section(path string) map[string]any {
	v, ok := paths.Get(d.raw(), path)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

// List returns the raw array at path (nil when absent).
func (d Document) List(path string) []any {
	v, ok := paths.Get(d.raw(), path)
	if !ok {
		return nil
	}
	arr, _ := v.([]any)
	return arr
}

// Segments returns the customer segments of the document.
func (d Document) Segments() []Segment {
	raw := d.List("assumptions.customers.segments")
	segments := make([]Segment, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		seg := Segment{ID: stringField(m, "id"), Label: stringField(m, "label")}
		if seg.ID == "" {
			seg.ID = fmt.Sprintf("segment_%d", i)
		}
		if vol, ok := m["volume"].(map[string]any); ok {
			seg.Volume = vol
		} else {
			// Legacy segments carry base_year_total/yoy_growth at the top level.
			seg.Volume = m
		}
		segments = append(segments, seg)
	}
	return segments
}

// OpexItems returns the operating expense items of the document.
func (d Document) OpexItems() []OpexItem {
	raw := d.List("assumptions.opex")
	items := make([]OpexItem, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := OpexItem{Name: stringField(m, "name")}
		if item.Name == "" {
			item.Name = fmt.Sprintf("opex_%d", i)
		}
		if cs, ok := m["cost_structure"].(map[string]any); ok {
			item.CostStructure = cs
		} else if v, ok := paths.GetNumber(m, "value.value"); ok {
			item.LegacyValue = v
			item.HasLegacy = true
		} else if v, ok := paths.AsNumber(m["value"]); ok {
			item.LegacyValue = v
			item.HasLegacy = true
		}
		items = append(items, item)
	}
	return items
}

// CapexEntries returns the flattened capital expenditure timeline. Amounts
// in the document are positive spend figures.
func (d Document) CapexEntries() []CapexEntry {
	raw := d.List("assumptions.capex")
	var entries []CapexEntry
	for _, itemRaw := range raw {
		item, ok := itemRaw.(map[string]any)
		if !ok {
			continue
		}
		name := stringField(item, "name")
		timeline, _ := item["timeline"].([]any)
		for _, pointRaw := range timeline {
			point, ok := pointRaw.(map[string]any)
			if !ok {
				continue
			}
			period, okP := paths.AsNumber(point["period"])
			amount, okA := paths.GetNumber(point, "value.value")
			if !okA {
				amount, okA = paths.AsNumber(point["value"])
			}
			if !okP || !okA {
				continue
			}
			entries = append(entries, CapexEntry{Name: name, Period: int(period), Amount: amount})
		}
	}
	return entries
}

// Drivers returns the sensitivity drivers declared on the document.
func (d Document) Drivers() []Driver {
	raw := d.List("drivers")
	drivers := make([]Driver, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		drv := Driver{
			Key:       stringField(m, "key"),
			Path:      stringField(m, "path"),
			Rationale: stringField(m, "rationale"),
		}
		if rng, ok := m["range"].([]any); ok && len(rng) >= 5 {
			for i := 0; i < 5; i++ {
				v, _ := paths.AsNumber(rng[i])
				drv.Range[i] = v
			}
		}
		drivers = append(drivers, drv)
	}
	return drivers
}

// DriverByKey looks up a declared driver.
func (d Document) DriverByKey(key string) (Driver, bool) {
	for _, drv := range d.Drivers() {
		if drv.Key == key {
			return drv, true
		}
	}
	return Driver{}, false
}

// DriverPaths returns the set of paths covered by declared drivers, keyed by
// path. Used by the evidence builder to tag driver-backed assumption nodes.
func (d Document) DriverPaths() map[string]Driver {
	set := make(map[string]Driver)
	for _, drv := range d.Drivers() {
		set[drv.Path] = drv
	}
	return set
}

func (d Document) raw() map[string]any { return map[string]any(d) }

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
