// Package schedule aggregates segment volumes, pricing, cost structures,
// savings streams and capital spend into one MonthlyRecord per period.
//
// Records are always derived fresh from the document, never mutated in
// place: identical documents yield identical schedules. The monetary
// identities hold exactly at every period with no internal rounding:
//
//	grossProfit = revenue - cogs
//	ebitda      = grossProfit - totalOpex
//	netCashFlow = ebitda + capex
package schedule

import (
	"fmt"

	"opportunity_engine/pkg/core/document"
	"opportunity_engine/pkg/core/forecast"
	"opportunity_engine/pkg/core/paths"
)

// Opex component name for customer acquisition spend.
const ComponentCAC = "customer_acquisition"

// MonthlyRecord is one period of the profit-and-loss / cash-flow schedule.
type MonthlyRecord struct {
	Month int `json:"month"`

	// Volume split (recurring/unit_sales models)
	SalesVolume       float64 `json:"salesVolume"`
	NewCustomers      float64 `json:"newCustomers"`
	ExistingCustomers float64 `json:"existingCustomers"`
	UnitPrice         float64 `json:"unitPrice"`

	Revenue     float64 `json:"revenue"`
	COGS        float64 `json:"cogs"`
	GrossProfit float64 `json:"grossProfit"`

	OpexComponents map[string]float64 `json:"opexComponents,omitempty"`
	TotalOpex      float64            `json:"totalOpex"`

	Capex              float64 `json:"capex"`
	EBITDA             float64 `json:"ebitda"`
	NetCashFlow        float64 `json:"netCashFlow"`
	CumulativeCashFlow float64 `json:"cumulativeCashFlow"`

	// Cost-savings models only
	BaselineCosts     float64 `json:"baselineCosts,omitempty"`
	CostSavings       float64 `json:"costSavings,omitempty"`
	EfficiencyGains   float64 `json:"efficiencyGains,omitempty"`
	CumulativeBenefit float64 `json:"cumulativeBenefit,omitempty"`
}

// Build derives the full per-period schedule from the document.
// Zero periods yields an empty schedule, not an error.
func Build(doc document.Document) ([]MonthlyRecord, error) {
	periods := doc.Periods()
	records := make([]MonthlyRecord, 0, periods)

	model := doc.BusinessModel()
	prevVolume := 0.0
	cumulative := 0.0
	cumulativeBenefit := 0.0

	for p := 1; p <= periods; p++ {
		var rec MonthlyRecord
		var err error

		switch model {
		case document.ModelRecurring, document.ModelUnitSales:
			rec, prevVolume, err = buildSalesPeriod(doc, model, p, prevVolume)
		case document.ModelCostSavings:
			rec, err = buildSavingsPeriod(doc, p)
		default:
			return nil, fmt.Errorf("unknown business model '%s'", model)
		}
		if err != nil {
			return nil, err
		}

		cumulative += rec.NetCashFlow
		rec.CumulativeCashFlow = cumulative
		if model == document.ModelCostSavings {
			cumulativeBenefit += rec.Revenue
			rec.CumulativeBenefit = cumulativeBenefit
		}
		records = append(records, rec)
	}
	return records, nil
}

func buildSalesPeriod(doc document.Document, model string, period int, prevVolume float64) (MonthlyRecord, float64, error) {
	volume, err := forecast.TotalVolume(doc, period)
	if err != nil {
		return MonthlyRecord{}, prevVolume, err
	}
	price, err := forecast.UnitPrice(doc, period)
	if err != nil {
		return MonthlyRecord{}, prevVolume, err
	}

	rec := MonthlyRecord{Month: period, SalesVolume: volume, UnitPrice: price}

	// Recurring models split volume into new vs existing customers so that
	// acquisition cost attaches to the positive delta only.
	if model == document.ModelRecurring {
		delta := volume - prevVolume
		if delta < 0 {
			delta = 0
		}
		rec.NewCustomers = delta
		rec.ExistingCustomers = volume - delta
	}

	rec.Revenue = volume * price
	cogsPct := doc.ValueOr("assumptions.unit_economics.cogs_pct", 0)
	rec.COGS = rec.Revenue * cogsPct
	rec.GrossProfit = rec.Revenue - rec.COGS

	// Volume-rate opex and CAC attach to new customers under recurring,
	// to the full sales volume otherwise.
	costedVolume := volume
	if model == document.ModelRecurring {
		costedVolume = rec.NewCustomers
	}
	rec.OpexComponents, rec.TotalOpex = opexFor(doc, rec.Revenue, costedVolume)

	if cac, ok := doc.LeafValue("assumptions.unit_economics.cac"); ok && cac != 0 {
		cacCost := cac * costedVolume
		rec.OpexComponents[ComponentCAC] = cacCost
		rec.TotalOpex += cacCost
	}

	rec.EBITDA = rec.GrossProfit - rec.TotalOpex
	rec.Capex = forecast.CapexAt(doc, period)
	rec.NetCashFlow = rec.EBITDA + rec.Capex
	return rec, volume, nil
}

func buildSavingsPeriod(doc document.Document, period int) (MonthlyRecord, error) {
	ramp := forecast.Ramp(doc, period)
	rec := MonthlyRecord{Month: period}

	for _, itemRaw := range doc.List("assumptions.cost_savings.baseline_costs") {
		item, ok := itemRaw.(map[string]any)
		if !ok {
			continue
		}
		monthly, _ := leafNumber(item, "current_monthly_cost")
		pct, _ := leafNumber(item, "savings_potential_pct")
		rec.BaselineCosts += monthly
		rec.CostSavings += monthly * pct * ramp
	}

	for _, itemRaw := range doc.List("assumptions.cost_savings.efficiency_gains") {
		item, ok := itemRaw.(map[string]any)
		if !ok {
			continue
		}
		improved, _ := leafNumber(item, "improved_value")
		perUnit, _ := leafNumber(item, "value_per_unit")
		rec.EfficiencyGains += improved * perUnit * ramp
	}

	// Benefits stand in for revenue; there is no cost of goods, so the
	// aggregation identities hold with cogs = 0.
	rec.Revenue = rec.CostSavings + rec.EfficiencyGains
	rec.GrossProfit = rec.Revenue

	rec.OpexComponents, rec.TotalOpex = opexFor(doc, rec.Revenue, 0)
	rec.EBITDA = rec.GrossProfit - rec.TotalOpex
	rec.Capex = forecast.CapexAt(doc, period)
	rec.NetCashFlow = rec.EBITDA + rec.Capex
	return rec, nil
}

// opexFor evaluates every opex item at one period:
// fixed + variable_revenue_rate*revenue + variable_volume_rate*costedVolume,
// or the legacy flat monthly value.
func opexFor(doc document.Document, revenue, costedVolume float64) (map[string]float64, float64) {
	components := make(map[string]float64)
	total := 0.0
	for _, item := range doc.OpexItems() {
		cost := 0.0
		switch {
		case item.CostStructure != nil:
			fixed, _ := leafNumber(item.CostStructure, "fixed_component")
			revRate, _ := leafNumber(item.CostStructure, "variable_revenue_rate")
			volRate, _ := leafNumber(item.CostStructure, "variable_volume_rate")
			cost = fixed + revRate*revenue + volRate*costedVolume
		case item.HasLegacy:
			cost = item.LegacyValue
		}
		components[item.Name] = cost
		total += cost
	}
	return components, total
}

func leafNumber(m map[string]any, key string) (float64, bool) {
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
