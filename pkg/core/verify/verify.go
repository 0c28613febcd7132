// Package verify cross-checks a computed monthly schedule against the
// accounting identities it is supposed to honor. The projection engine is
// deterministic, so any gap here means a formula regression, not noise.
package verify

import (
	"fmt"
	"math"

	"opportunity_engine/pkg/core/schedule"
)

const tolerance = 0.01

// Result holds the status of schedule integrity checks.
type Result struct {
	IsConsistent bool
	MaxGap       float64
	Warnings     []string
}

// CheckIdentities verifies the per-month aggregation identities:
// grossProfit = revenue − cogs, ebitda = grossProfit − totalOpex and
// netCashFlow = ebitda + capex.
func CheckIdentities(monthly []schedule.MonthlyRecord) Result {
	res := Result{IsConsistent: true}
	for _, rec := range monthly {
		res.check(rec.Month, "grossProfit", rec.GrossProfit, rec.Revenue-rec.COGS)
		res.check(rec.Month, "ebitda", rec.EBITDA, rec.GrossProfit-rec.TotalOpex)
		res.check(rec.Month, "netCashFlow", rec.NetCashFlow, rec.EBITDA+rec.Capex)
	}
	return res
}

// CheckCumulative verifies that cumulativeCashFlow is the running sum of
// netCashFlow and that totalOpex matches the sum of its components.
func CheckCumulative(monthly []schedule.MonthlyRecord) Result {
	res := Result{IsConsistent: true}
	running := 0.0
	for _, rec := range monthly {
		running += rec.NetCashFlow
		res.check(rec.Month, "cumulativeCashFlow", rec.CumulativeCashFlow, running)

		if len(rec.OpexComponents) > 0 {
			sum := 0.0
			for _, v := range rec.OpexComponents {
				sum += v
			}
			res.check(rec.Month, "totalOpex", rec.TotalOpex, sum)
		}
	}
	return res
}

// CheckSchedule runs every integrity check and merges the findings.
func CheckSchedule(monthly []schedule.MonthlyRecord) Result {
	merged := Result{IsConsistent: true}
	for _, res := range []Result{CheckIdentities(monthly), CheckCumulative(monthly)} {
		if !res.IsConsistent {
			merged.IsConsistent = false
		}
		if res.MaxGap > merged.MaxGap {
			merged.MaxGap = res.MaxGap
		}
		merged.Warnings = append(merged.Warnings, res.Warnings...)
	}
	return merged
}

func (r *Result) check(month int, name string, got, want float64) {
	gap := math.Abs(got - want)
	if gap > r.MaxGap {
		r.MaxGap = gap
	}
	if gap >= tolerance {
		r.IsConsistent = false
		r.Warnings = append(r.Warnings, fmt.Sprintf("Month %d: %s off by %.4f", month, name, got-want))
	}
}
