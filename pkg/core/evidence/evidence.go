// Package evidence reconstructs, for any computed metric, a provenance tree
// explaining how that number was derived from assumptions and formulas.
//
// The tree mirrors the live arithmetic of the schedule and metrics packages:
// revenue decomposes into salesVolume × unitPrice, salesVolume into the
// per-segment growth assumptions, ebitda into grossProfit − totalOpex, and
// so on. If a formula changes there, the decomposition here must change
// identically — a trail that disagrees with the pipeline misleads the user.
//
// Assumption nodes are tagged isDriver when their exact path is covered by
// an active driver on the document. Unknown metric keys yield a single
// external leaf instead of an error.
package evidence

import (
	"fmt"
	"math"

	"opportunity_engine/pkg/core/document"
	"opportunity_engine/pkg/core/forecast"
	"opportunity_engine/pkg/core/metrics"
	"opportunity_engine/pkg/core/paths"
	"opportunity_engine/pkg/core/pattern"
	"opportunity_engine/pkg/core/schedule"
)

// Node types.
const (
	TypeCalculated = "calculated"
	TypeFormula    = "formula"
	TypeAssumption = "assumption"
	TypeInput      = "input"
	TypeDriver     = "driver"
	TypeExternal   = "external"
)

// Node is one vertex of the provenance tree.
type Node struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Label     string  `json:"label"`
	Value     float64 `json:"value,omitempty"`
	Unit      string  `json:"unit,omitempty"`
	Formula   string  `json:"formula,omitempty"`
	Rationale string  `json:"rationale,omitempty"`
	Path      string  `json:"path,omitempty"`
	IsDriver  bool    `json:"isDriver,omitempty"`
	Children  []*Node `json:"children,omitempty"`
}

// Request names the metric to explain. Month is 1-based and required for
// per-period metrics; horizon metrics (npv, total_revenue, ...) ignore it.
type Request struct {
	MetricKey string `json:"metricKey"`
	Month     int    `json:"month,omitempty"`
}

// Trail is the built provenance tree.
type Trail struct {
	Root *Node `json:"root"`
}

// Build walks back through the aggregation formulas for the requested
// metric over the given document and schedule.
func Build(doc document.Document, monthly []schedule.MonthlyRecord, req Request) (*Trail, error) {
	b := &builder{
		doc:         doc,
		monthly:     monthly,
		driverPaths: doc.DriverPaths(),
		currency:    doc.Currency(),
	}
	return &Trail{Root: b.metricNode(req)}, nil
}

type builder struct {
	doc         document.Document
	monthly     []schedule.MonthlyRecord
	driverPaths map[string]document.Driver
	currency    string
}

func (b *builder) record(month int) (schedule.MonthlyRecord, bool) {
	if month < 1 || month > len(b.monthly) {
		return schedule.MonthlyRecord{}, false
	}
	return b.monthly[month-1], true
}

func (b *builder) metricNode(req Request) *Node {
	switch req.MetricKey {
	case "revenue":
		return b.revenueNode(req.Month)
	case "cogs":
		return b.cogsNode(req.Month)
	case "gross_profit", "grossProfit":
		return b.grossProfitNode(req.Month)
	case "total_opex", "totalOpex":
		return b.totalOpexNode(req.Month)
	case "ebitda":
		return b.ebitdaNode(req.Month)
	case "net_cash_flow", "netCashFlow":
		return b.netCashFlowNode(req.Month)
	case "capex":
		return b.capexNode(req.Month)
	case "sales_volume", "salesVolume":
		return b.volumeNode(req.Month)
	case "unit_price", "unitPrice":
		return b.priceNode(req.Month)
	case "npv":
		return b.npvNode()
	case "irr":
		return b.irrNode()
	case "total_revenue", "totalRevenue":
		return b.sumNode("total_revenue", "Total Revenue", "Σ revenue(p)", func(r schedule.MonthlyRecord) float64 { return r.Revenue })
	case "net_profit", "netProfit":
		return b.sumNode("net_profit", "Net Profit", "Σ netCashFlow(p)", func(r schedule.MonthlyRecord) float64 { return r.NetCashFlow })
	case "payback_period", "paybackPeriod":
		return b.paybackNode()
	case "break_even_month", "breakEvenMonth":
		return b.breakEvenNode()
	case "total_investment_required", "totalInvestmentRequired":
		return b.fundingGapNode()
	default:
		return &Node{
			ID:        "external-" + req.MetricKey,
			Type:      TypeExternal,
			Label:     req.MetricKey,
			Rationale: "not derived by the projection engine",
		}
	}
}

// =============================================================================
// PER-PERIOD NODES
// =============================================================================

func (b *builder) revenueNode(month int) *Node {
	rec, ok := b.record(month)
	if !ok {
		return b.missingMonthNode("revenue", month)
	}

	if b.doc.BusinessModel() == document.ModelCostSavings {
		return b.benefitsNode(month, rec)
	}

	return &Node{
		ID:      fmt.Sprintf("revenue-m%d", month),
		Type:    TypeCalculated,
		Label:   fmt.Sprintf("Revenue (Month %d)", month),
		Value:   rec.Revenue,
		Unit:    b.currency,
		Formula: "salesVolume × unitPrice",
		Children: []*Node{
			b.volumeNode(month),
			b.priceNode(month),
		},
	}
}

func (b *builder) volumeNode(month int) *Node {
	rec, ok := b.record(month)
	if !ok {
		return b.missingMonthNode("sales_volume", month)
	}

	node := &Node{
		ID:      fmt.Sprintf("sales_volume-m%d", month),
		Type:    TypeCalculated,
		Label:   fmt.Sprintf("Sales Volume (Month %d)", month),
		Value:   rec.SalesVolume,
		Unit:    "units",
		Formula: "Σ segment volumes",
	}
	for _, seg := range b.doc.Segments() {
		node.Children = append(node.Children, b.segmentNode(seg, month))
	}
	return node
}

func (b *builder) segmentNode(seg document.Segment, month int) *Node {
	value, err := forecast.SegmentVolume(b.doc, seg, month)
	label := seg.Label
	if label == "" {
		label = seg.ID
	}
	node := &Node{
		ID:    fmt.Sprintf("segment-%s-m%d", seg.ID, month),
		Type:  TypeFormula,
		Label: label,
		Value: value,
		Unit:  "units",
	}
	if err != nil {
		node.Rationale = err.Error()
		return node
	}

	spec, specErr := forecast.ResolveVolumeSpec(b.doc, seg)
	if specErr != nil {
		return node
	}
	node.Formula = patternFormula(spec.PatternType)

	segPath := b.segmentPath(seg)
	switch spec.PatternType {
	case pattern.TypeGeometric:
		node.Children = append(node.Children,
			b.assumptionNode(segPath+".volume.base_value", "Base Volume", spec.Start, "units"),
			b.assumptionNode(segPath+".volume.monthly_growth", "Monthly Growth", spec.MonthlyGrowth, "%/month"),
		)
	case pattern.TypeLinear:
		node.Children = append(node.Children,
			b.assumptionNode(segPath+".volume.base_value", "Base Volume", spec.Start, "units"),
			b.assumptionNode(segPath+".volume.monthly_flat_increase", "Monthly Increase", spec.MonthlyFlatIncrease, "units/month"),
		)
	case pattern.TypeSeasonal:
		node.Children = append(node.Children,
			b.assumptionNode(segPath+".volume.base_year_total", "Base Year Total", spec.BaseYearTotal, "units/year"),
			b.assumptionNode(segPath+".volume.yoy_growth", "YoY Growth", spec.YoYGrowth, "%/year"),
			&Node{
				ID:    fmt.Sprintf("seasonality-%s", seg.ID),
				Type:  TypeInput,
				Label: "Seasonality Index",
				Value: seasonalIndexAt(spec.SeasonalityIndex, month),
			},
		)
	case pattern.TypeTimeSeries:
		node.Children = append(node.Children, &Node{
			ID:        fmt.Sprintf("series-%s", seg.ID),
			Type:      TypeInput,
			Label:     "Explicit Time Series",
			Value:     value,
			Rationale: "interpolated from declared {period, value} points",
		})
	}

	year := (month-1)/12 + 1
	if factor, ok := spec.YearFactors[year]; ok {
		node.Children = append(node.Children, &Node{
			ID:    fmt.Sprintf("volume_factor-%s-y%d", seg.ID, year),
			Type:  TypeInput,
			Label: fmt.Sprintf("Year %d Volume Factor", year),
			Value: factor,
		})
	}
	if override, ok := spec.Overrides[month]; ok {
		node.Children = append(node.Children, &Node{
			ID:        fmt.Sprintf("volume_override-%s-m%d", seg.ID, month),
			Type:      TypeInput,
			Label:     fmt.Sprintf("Month %d Volume Override", month),
			Value:     override,
			Rationale: "absolute override replaces the pattern value",
		})
	}
	return node
}

func (b *builder) priceNode(month int) *Node {
	value, _ := forecast.UnitPrice(b.doc, month)
	node := &Node{
		ID:      fmt.Sprintf("unit_price-m%d", month),
		Type:    TypeCalculated,
		Label:   fmt.Sprintf("Unit Price (Month %d)", month),
		Value:   value,
		Unit:    b.currency,
		Formula: "avg_unit_price × yearly factor, absolute overrides win",
	}

	base := b.doc.ValueOr("assumptions.pricing.avg_unit_price", 0)
	node.Children = append(node.Children,
		b.assumptionNode("assumptions.pricing.avg_unit_price", "Average Unit Price", base, b.currency),
	)

	spec := forecast.ResolvePricingSpec(b.doc)
	year := (month-1)/12 + 1
	if factor, ok := spec.YearFactors[year]; ok {
		node.Children = append(node.Children, &Node{
			ID:    fmt.Sprintf("pricing_factor-y%d", year),
			Type:  TypeInput,
			Label: fmt.Sprintf("Year %d Pricing Factor", year),
			Value: factor,
		})
	}
	if override, ok := spec.Overrides[month]; ok {
		node.Children = append(node.Children, &Node{
			ID:        fmt.Sprintf("price_override-m%d", month),
			Type:      TypeInput,
			Label:     fmt.Sprintf("Month %d Price Override", month),
			Value:     override,
			Rationale: "absolute override replaces the factored price",
		})
	}
	return node
}

func (b *builder) cogsNode(month int) *Node {
	rec, ok := b.record(month)
	if !ok {
		return b.missingMonthNode("cogs", month)
	}
	pct := b.doc.ValueOr("assumptions.unit_economics.cogs_pct", 0)
	return &Node{
		ID:      fmt.Sprintf("cogs-m%d", month),
		Type:    TypeCalculated,
		Label:   fmt.Sprintf("COGS (Month %d)", month),
		Value:   rec.COGS,
		Unit:    b.currency,
		Formula: "revenue × cogs_pct",
		Children: []*Node{
			b.shallowValueNode("revenue", month, rec.Revenue),
			b.assumptionNode("assumptions.unit_economics.cogs_pct", "COGS %", pct, "% of revenue"),
		},
	}
}

func (b *builder) grossProfitNode(month int) *Node {
	rec, ok := b.record(month)
	if !ok {
		return b.missingMonthNode("gross_profit", month)
	}
	return &Node{
		ID:      fmt.Sprintf("gross_profit-m%d", month),
		Type:    TypeCalculated,
		Label:   fmt.Sprintf("Gross Profit (Month %d)", month),
		Value:   rec.GrossProfit,
		Unit:    b.currency,
		Formula: "revenue − cogs",
		Children: []*Node{
			b.revenueNode(month),
			b.cogsNode(month),
		},
	}
}

func (b *builder) totalOpexNode(month int) *Node {
	rec, ok := b.record(month)
	if !ok {
		return b.missingMonthNode("total_opex", month)
	}

	node := &Node{
		ID:      fmt.Sprintf("total_opex-m%d", month),
		Type:    TypeCalculated,
		Label:   fmt.Sprintf("Total OPEX (Month %d)", month),
		Value:   rec.TotalOpex,
		Unit:    b.currency,
		Formula: "Σ opex components",
	}

	for i, item := range b.doc.OpexItems() {
		cost := rec.OpexComponents[item.Name]
		child := &Node{
			ID:    fmt.Sprintf("opex-%s-m%d", item.Name, month),
			Type:  TypeFormula,
			Label: item.Name,
			Value: cost,
			Unit:  b.currency,
		}
		itemPath := fmt.Sprintf("assumptions.opex[%d]", i)
		if item.CostStructure != nil {
			child.Formula = "fixed + variable_revenue_rate×revenue + variable_volume_rate×volume"
			fixed, _ := paths.GetNumber(item.CostStructure, "fixed_component.value")
			child.Children = append(child.Children,
				b.assumptionNode(itemPath+".cost_structure.fixed_component", "Fixed Component", fixed, b.currency+"/month"),
			)
			if rate, ok := paths.GetNumber(item.CostStructure, "variable_revenue_rate.value"); ok {
				child.Children = append(child.Children,
					b.assumptionNode(itemPath+".cost_structure.variable_revenue_rate", "Variable Revenue Rate", rate, "% of revenue"),
				)
			}
			if rate, ok := paths.GetNumber(item.CostStructure, "variable_volume_rate.value"); ok {
				child.Children = append(child.Children,
					b.assumptionNode(itemPath+".cost_structure.variable_volume_rate", "Variable Volume Rate", rate, b.currency+"/unit"),
				)
			}
		} else if item.HasLegacy {
			child.Formula = "flat monthly value"
			child.Children = append(child.Children,
				b.assumptionNode(itemPath+".value", "Monthly Cost", item.LegacyValue, b.currency+"/month"),
			)
		}
		node.Children = append(node.Children, child)
	}

	if cacCost, ok := rec.OpexComponents[schedule.ComponentCAC]; ok {
		cac := b.doc.ValueOr("assumptions.unit_economics.cac", 0)
		costed := rec.SalesVolume
		costBasis := "salesVolume"
		if b.doc.BusinessModel() == document.ModelRecurring {
			costed = rec.NewCustomers
			costBasis = "newCustomers"
		}
		node.Children = append(node.Children, &Node{
			ID:      fmt.Sprintf("opex-cac-m%d", month),
			Type:    TypeFormula,
			Label:   "Customer Acquisition",
			Value:   cacCost,
			Unit:    b.currency,
			Formula: "cac × " + costBasis,
			Children: []*Node{
				b.assumptionNode("assumptions.unit_economics.cac", "CAC", cac, b.currency+"/customer"),
				{
					ID:    fmt.Sprintf("costed_volume-m%d", month),
					Type:  TypeInput,
					Label: costBasis,
					Value: costed,
					Unit:  "units",
				},
			},
		})
	}
	return node
}

func (b *builder) ebitdaNode(month int) *Node {
	rec, ok := b.record(month)
	if !ok {
		return b.missingMonthNode("ebitda", month)
	}
	return &Node{
		ID:      fmt.Sprintf("ebitda-m%d", month),
		Type:    TypeCalculated,
		Label:   fmt.Sprintf("EBITDA (Month %d)", month),
		Value:   rec.EBITDA,
		Unit:    b.currency,
		Formula: "grossProfit − totalOpex",
		Children: []*Node{
			b.grossProfitNode(month),
			b.totalOpexNode(month),
		},
	}
}

func (b *builder) netCashFlowNode(month int) *Node {
	rec, ok := b.record(month)
	if !ok {
		return b.missingMonthNode("net_cash_flow", month)
	}
	return &Node{
		ID:      fmt.Sprintf("net_cash_flow-m%d", month),
		Type:    TypeCalculated,
		Label:   fmt.Sprintf("Net Cash Flow (Month %d)", month),
		Value:   rec.NetCashFlow,
		Unit:    b.currency,
		Formula: "ebitda + capex",
		Children: []*Node{
			b.ebitdaNode(month),
			b.capexNode(month),
		},
	}
}

func (b *builder) capexNode(month int) *Node {
	rec, ok := b.record(month)
	if !ok {
		return b.missingMonthNode("capex", month)
	}
	node := &Node{
		ID:      fmt.Sprintf("capex-m%d", month),
		Type:    TypeCalculated,
		Label:   fmt.Sprintf("CAPEX (Month %d)", month),
		Value:   rec.Capex,
		Unit:    b.currency,
		Formula: "−Σ capital spend at month",
	}
	for _, entry := range b.doc.CapexEntries() {
		if entry.Period == month {
			node.Children = append(node.Children, &Node{
				ID:    fmt.Sprintf("capex-item-%s-m%d", entry.Name, month),
				Type:  TypeInput,
				Label: entry.Name,
				Value: entry.Amount,
				Unit:  b.currency,
			})
		}
	}
	return node
}

func (b *builder) benefitsNode(month int, rec schedule.MonthlyRecord) *Node {
	ramp := forecast.Ramp(b.doc, month)
	node := &Node{
		ID:      fmt.Sprintf("benefits-m%d", month),
		Type:    TypeCalculated,
		Label:   fmt.Sprintf("Benefits (Month %d)", month),
		Value:   rec.Revenue,
		Unit:    b.currency,
		Formula: "costSavings + efficiencyGains",
	}

	savings := &Node{
		ID:      fmt.Sprintf("cost_savings-m%d", month),
		Type:    TypeCalculated,
		Label:   "Cost Savings",
		Value:   rec.CostSavings,
		Unit:    b.currency,
		Formula: "Σ current_monthly_cost × savings_potential_pct × ramp",
	}
	for i, itemRaw := range b.doc.List("assumptions.cost_savings.baseline_costs") {
		item, ok := itemRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := item["name"].(string)
		monthly, _ := paths.GetNumber(item, "current_monthly_cost.value")
		pct, _ := paths.GetNumber(item, "savings_potential_pct.value")
		itemPath := fmt.Sprintf("assumptions.cost_savings.baseline_costs[%d]", i)
		savings.Children = append(savings.Children, &Node{
			ID:      fmt.Sprintf("baseline-%d-m%d", i, month),
			Type:    TypeFormula,
			Label:   name,
			Value:   monthly * pct * ramp,
			Unit:    b.currency,
			Formula: "current_monthly_cost × savings_potential_pct × ramp",
			Children: []*Node{
				b.assumptionNode(itemPath+".current_monthly_cost", "Current Monthly Cost", monthly, b.currency+"/month"),
				b.assumptionNode(itemPath+".savings_potential_pct", "Savings Potential", pct, "%"),
				b.rampNode(month, ramp),
			},
		})
	}

	gains := &Node{
		ID:      fmt.Sprintf("efficiency_gains-m%d", month),
		Type:    TypeCalculated,
		Label:   "Efficiency Gains",
		Value:   rec.EfficiencyGains,
		Unit:    b.currency,
		Formula: "Σ improved_value × value_per_unit × ramp",
	}
	for i, itemRaw := range b.doc.List("assumptions.cost_savings.efficiency_gains") {
		item, ok := itemRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := item["name"].(string)
		improved, _ := paths.GetNumber(item, "improved_value.value")
		perUnit, _ := paths.GetNumber(item, "value_per_unit.value")
		itemPath := fmt.Sprintf("assumptions.cost_savings.efficiency_gains[%d]", i)
		gains.Children = append(gains.Children, &Node{
			ID:      fmt.Sprintf("gain-%d-m%d", i, month),
			Type:    TypeFormula,
			Label:   name,
			Value:   improved * perUnit * ramp,
			Unit:    b.currency,
			Formula: "improved_value × value_per_unit × ramp",
			Children: []*Node{
				b.assumptionNode(itemPath+".improved_value", "Improved Value", improved, "units"),
				b.assumptionNode(itemPath+".value_per_unit", "Value per Unit", perUnit, b.currency),
				b.rampNode(month, ramp),
			},
		})
	}

	node.Children = []*Node{savings, gains}
	return node
}

func (b *builder) rampNode(month int, ramp float64) *Node {
	return &Node{
		ID:        fmt.Sprintf("ramp-m%d", month),
		Type:      TypeInput,
		Label:     "Implementation Ramp",
		Value:     ramp,
		Rationale: "linear adoption between start_month and full implementation",
	}
}

// =============================================================================
// HORIZON NODES
// =============================================================================

func (b *builder) npvNode() *Node {
	rate := b.doc.ValueOr("assumptions.financial.interest_rate", 0)
	cashFlows := make([]float64, len(b.monthly))
	for i, rec := range b.monthly {
		cashFlows[i] = rec.NetCashFlow
	}
	npv := metrics.NPV(cashFlows, rate)

	terms := &Node{
		ID:      "npv-terms",
		Type:    TypeFormula,
		Label:   "Discounted Cash Flows",
		Value:   npv,
		Unit:    b.currency,
		Formula: "Σ netCashFlow(p) / (1+r)^(p/12)",
	}
	for i, ncf := range cashFlows {
		p := float64(i + 1)
		terms.Children = append(terms.Children, &Node{
			ID:    fmt.Sprintf("npv-term-m%d", i+1),
			Type:  TypeInput,
			Label: fmt.Sprintf("Month %d", i+1),
			Value: ncf / math.Pow(1+rate, p/12.0),
			Unit:  b.currency,
		})
	}

	return &Node{
		ID:      "npv",
		Type:    TypeCalculated,
		Label:   "Net Present Value",
		Value:   npv,
		Unit:    b.currency,
		Formula: "Σ netCashFlow(p) / (1+r)^(p/12)",
		Children: []*Node{
			terms,
			b.assumptionNode("assumptions.financial.interest_rate", "Annual Discount Rate", rate, "%/year"),
		},
	}
}

func (b *builder) irrNode() *Node {
	cashFlows := make([]float64, len(b.monthly))
	for i, rec := range b.monthly {
		cashFlows[i] = rec.NetCashFlow
	}
	irr := metrics.IRR(cashFlows)
	rationale := "annual rate at which the discounted cash flows sum to zero"
	if irr == metrics.IRRNoSolution {
		rationale = "cash flows never change sign, so no internal rate exists"
	}
	return &Node{
		ID:        "irr",
		Type:      TypeCalculated,
		Label:     "Internal Rate of Return",
		Value:     irr,
		Unit:      "%/year",
		Formula:   "solve Σ netCashFlow(p)/(1+r)^(p/12) = 0",
		Rationale: rationale,
	}
}

func (b *builder) sumNode(id, label, formula string, pick func(schedule.MonthlyRecord) float64) *Node {
	node := &Node{
		ID:      id,
		Type:    TypeCalculated,
		Label:   label,
		Unit:    b.currency,
		Formula: formula,
	}
	for _, rec := range b.monthly {
		v := pick(rec)
		node.Value += v
		node.Children = append(node.Children, &Node{
			ID:    fmt.Sprintf("%s-m%d", id, rec.Month),
			Type:  TypeInput,
			Label: fmt.Sprintf("Month %d", rec.Month),
			Value: v,
			Unit:  b.currency,
		})
	}
	return node
}

func (b *builder) paybackNode() *Node {
	cashFlows := make([]float64, len(b.monthly))
	for i, rec := range b.monthly {
		cashFlows[i] = rec.NetCashFlow
	}
	return &Node{
		ID:        "payback_period",
		Type:      TypeCalculated,
		Label:     "Payback Period",
		Value:     float64(metrics.PaybackPeriod(cashFlows)),
		Unit:      "months",
		Formula:   "first p with cumulative netCashFlow ≥ 0",
		Rationale: "0 means the cumulative position never recovers within the horizon",
	}
}

func (b *builder) breakEvenNode() *Node {
	return &Node{
		ID:        "break_even_month",
		Type:      TypeCalculated,
		Label:     "Break-even Month",
		Value:     float64(metrics.BreakEvenMonth(b.monthly)),
		Unit:      "months",
		Formula:   "first p with ebitda(p) ≥ 0",
		Rationale: "first-touch crossing; 0 means operations never break even",
	}
}

func (b *builder) fundingGapNode() *Node {
	cashFlows := make([]float64, len(b.monthly))
	for i, rec := range b.monthly {
		cashFlows[i] = rec.NetCashFlow
	}
	return &Node{
		ID:        "total_investment_required",
		Type:      TypeCalculated,
		Label:     "Total Investment Required",
		Value:     metrics.PeakFundingGap(cashFlows),
		Unit:      b.currency,
		Formula:   "|min cumulative netCashFlow|",
		Rationale: "the deepest point of the cumulative funding valley",
	}
}

// =============================================================================
// LEAF HELPERS
// =============================================================================

// assumptionNode builds a leaf for one {value,unit,rationale} triple. The
// path argument addresses the triple itself; driver matching uses the
// ".value" leaf the driver would write to.
func (b *builder) assumptionNode(path, label string, value float64, unit string) *Node {
	valuePath := path + ".value"
	node := &Node{
		ID:    "assumption-" + valuePath,
		Type:  TypeAssumption,
		Label: label,
		Value: value,
		Unit:  unit,
		Path:  valuePath,
	}
	if leafUnit, ok := paths.Get(map[string]any(b.doc), path+".unit"); ok {
		if s, ok := leafUnit.(string); ok && s != "" {
			node.Unit = s
		}
	}
	if rationale, ok := paths.Get(map[string]any(b.doc), path+".rationale"); ok {
		node.Rationale, _ = rationale.(string)
	}
	if drv, ok := b.driverPaths[valuePath]; ok {
		node.IsDriver = true
		node.Type = TypeDriver
		if node.Rationale == "" {
			node.Rationale = drv.Rationale
		}
	}
	return node
}

// shallowValueNode references a sibling computed quantity without recursing
// into it (used where full recursion would duplicate a subtree).
func (b *builder) shallowValueNode(key string, month int, value float64) *Node {
	return &Node{
		ID:    fmt.Sprintf("%s-ref-m%d", key, month),
		Type:  TypeInput,
		Label: fmt.Sprintf("%s (Month %d)", key, month),
		Value: value,
		Unit:  b.currency,
	}
}

func (b *builder) missingMonthNode(key string, month int) *Node {
	return &Node{
		ID:        fmt.Sprintf("%s-m%d", key, month),
		Type:      TypeExternal,
		Label:     key,
		Rationale: fmt.Sprintf("month %d is outside the computed schedule", month),
	}
}

func (b *builder) segmentPath(seg document.Segment) string {
	for i, s := range b.doc.Segments() {
		if s.ID == seg.ID {
			return fmt.Sprintf("assumptions.customers.segments[%d]", i)
		}
	}
	return "assumptions.customers.segments[?]"
}

func patternFormula(patternType string) string {
	switch patternType {
	case pattern.TypeGeometric:
		return "base × (1 + monthly_growth)^(p−1)"
	case pattern.TypeLinear:
		return "base + monthly_flat_increase × (p−1)"
	case pattern.TypeSeasonal:
		return "(base_year_total/12) × index[month] × (1+yoy)^year"
	case pattern.TypeTimeSeries:
		return "interpolated time series"
	}
	return ""
}

func seasonalIndexAt(index []float64, month int) float64 {
	if len(index) != 12 || month < 1 {
		return 0
	}
	return index[(month-1)%12]
}
