// Package metrics reduces a monthly schedule to scalar investment outcomes:
// totals, NPV, IRR, payback, break-even and the peak funding gap.
//
// Discounting convention: the annual rate compounds monthly through a
// fractional-year exponent, (1+r)^(p/12) for period p.
//
// Policies (applied uniformly, see DESIGN.md):
//   - breakEvenMonth is the first period with ebitda >= 0 (first-touch).
//   - paybackPeriod is the first period with cumulative net cash flow >= 0.
//     Distinct quantities: one is operating, one is cash-cumulative.
package metrics

import (
	"math"

	"opportunity_engine/pkg/core/document"
	"opportunity_engine/pkg/core/schedule"
)

// IRRNoSolution is returned when the cash-flow sequence never changes sign
// or no root exists in the search range. Downstream display treats it (and
// |irr| > 1) as "not meaningful".
const IRRNoSolution = -999

// IRR search bounds: -99% to +1000% per year.
const (
	irrSearchLow  = -0.99
	irrSearchHigh = 10.0
	irrTolerance  = 1e-7
	irrMaxIter    = 200
)

// CalculatedMetrics is the derived outcome of one engine run. Never stored;
// recomputed in full on every document or driver change.
type CalculatedMetrics struct {
	MonthlyData []schedule.MonthlyRecord `json:"monthlyData"`

	TotalRevenue            float64 `json:"totalRevenue"`
	NetProfit               float64 `json:"netProfit"`
	NPV                     float64 `json:"npv"`
	IRR                     float64 `json:"irr"`
	PaybackPeriod           int     `json:"paybackPeriod"`
	BreakEvenMonth          int     `json:"breakEvenMonth"`
	TotalInvestmentRequired float64 `json:"totalInvestmentRequired"`
}

// Calculate runs the whole pipeline: expand the document into a monthly
// schedule, then reduce it. This is the engine's main entry point; it is a
// pure function of the document.
func Calculate(doc document.Document) (*CalculatedMetrics, error) {
	monthly, err := schedule.Build(doc)
	if err != nil {
		return nil, err
	}
	rate := doc.ValueOr("assumptions.financial.interest_rate", 0)
	return FromSchedule(monthly, rate), nil
}

// FromSchedule reduces an already-built schedule. Split out so the
// sensitivity engine can reuse a schedule it just computed.
func FromSchedule(monthly []schedule.MonthlyRecord, annualRate float64) *CalculatedMetrics {
	m := &CalculatedMetrics{MonthlyData: monthly}

	cashFlows := make([]float64, len(monthly))
	for i, rec := range monthly {
		m.TotalRevenue += rec.Revenue
		m.NetProfit += rec.NetCashFlow
		cashFlows[i] = rec.NetCashFlow
	}

	m.NPV = NPV(cashFlows, annualRate)
	m.IRR = IRR(cashFlows)
	m.PaybackPeriod = PaybackPeriod(cashFlows)
	m.BreakEvenMonth = BreakEvenMonth(monthly)
	m.TotalInvestmentRequired = PeakFundingGap(cashFlows)
	return m
}

// NPV discounts the period cash flows at the annual rate with monthly
// compounding: sum ncf(p) / (1+r)^(p/12).
func NPV(cashFlows []float64, annualRate float64) float64 {
	npv := 0.0
	for i, ncf := range cashFlows {
		p := float64(i + 1)
		npv += ncf / math.Pow(1+annualRate, p/12.0)
	}
	return npv
}

// IRR finds the annual rate at which NPV is zero, via bisection with Newton
// refinement over a bounded range. Sequences that never change sign have no
// root and yield the IRRNoSolution sentinel rather than an error.
func IRR(cashFlows []float64) float64 {
	if !hasSignChange(cashFlows) {
		return IRRNoSolution
	}

	lo, hi := irrSearchLow, irrSearchHigh
	fLo := NPV(cashFlows, lo)
	fHi := NPV(cashFlows, hi)
	if fLo*fHi > 0 {
		return IRRNoSolution
	}

	mid := 0.0
	for i := 0; i < irrMaxIter; i++ {
		mid = (lo + hi) / 2
		fMid := NPV(cashFlows, mid)
		if math.Abs(fMid) < irrTolerance || (hi-lo)/2 < irrTolerance {
			break
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo = mid
			fLo = fMid
		}
	}

	// Newton refinement from the bisection result; keep it only while it
	// stays inside the bracket and keeps improving.
	r := mid
	for i := 0; i < 10; i++ {
		f := NPV(cashFlows, r)
		df := npvDerivative(cashFlows, r)
		if df == 0 {
			break
		}
		next := r - f/df
		if next <= irrSearchLow || next >= irrSearchHigh {
			break
		}
		if math.Abs(NPV(cashFlows, next)) >= math.Abs(f) {
			break
		}
		r = next
		if math.Abs(NPV(cashFlows, r)) < irrTolerance {
			break
		}
	}
	return r
}

func npvDerivative(cashFlows []float64, rate float64) float64 {
	d := 0.0
	for i, ncf := range cashFlows {
		exp := float64(i+1) / 12.0
		d += ncf * -exp * math.Pow(1+rate, -exp-1)
	}
	return d
}

func hasSignChange(cashFlows []float64) bool {
	sawPositive, sawNegative := false, false
	for _, ncf := range cashFlows {
		if ncf > 0 {
			sawPositive = true
		} else if ncf < 0 {
			sawNegative = true
		}
	}
	return sawPositive && sawNegative
}

// PaybackPeriod returns the first period whose cumulative net cash flow
// reaches zero, or 0 when it never does within the horizon.
func PaybackPeriod(cashFlows []float64) int {
	cumulative := 0.0
	for i, ncf := range cashFlows {
		cumulative += ncf
		if cumulative >= 0 {
			return i + 1
		}
	}
	return 0
}

// BreakEvenMonth returns the first period with non-negative EBITDA
// (first-touch crossing), or 0 when operations never break even.
func BreakEvenMonth(monthly []schedule.MonthlyRecord) int {
	for _, rec := range monthly {
		if rec.EBITDA >= 0 {
			return rec.Month
		}
	}
	return 0
}

// PeakFundingGap returns the magnitude of the most negative cumulative cash
// position before payback, i.e. the investment required to carry the
// opportunity through its funding valley. Cumulative dips after the payback
// period (late capex, say) are financed out of earnings and do not count.
// 0 when the cumulative position never dips below zero. When payback is
// never reached the whole horizon is the funding valley.
func PeakFundingGap(cashFlows []float64) float64 {
	horizon := PaybackPeriod(cashFlows)
	if horizon == 0 {
		horizon = len(cashFlows)
	}

	cumulative := 0.0
	trough := 0.0
	for _, ncf := range cashFlows[:horizon] {
		cumulative += ncf
		if cumulative < trough {
			trough = cumulative
		}
	}
	return -trough
}
