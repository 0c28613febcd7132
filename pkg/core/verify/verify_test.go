package verify

import (
	"testing"

	"opportunity_engine/pkg/core/schedule"
)

func consistentSchedule() []schedule.MonthlyRecord {
	records := make([]schedule.MonthlyRecord, 3)
	cumulative := 0.0
	for i := range records {
		rec := &records[i]
		rec.Month = i + 1
		rec.Revenue = 1000
		rec.COGS = 300
		rec.GrossProfit = 700
		rec.OpexComponents = map[string]float64{"staff": 150, "tools": 50}
		rec.TotalOpex = 200
		rec.Capex = -100
		rec.EBITDA = 500
		rec.NetCashFlow = 400
		cumulative += rec.NetCashFlow
		rec.CumulativeCashFlow = cumulative
	}
	return records
}

func TestConsistentSchedulePasses(t *testing.T) {
	res := CheckSchedule(consistentSchedule())
	if !res.IsConsistent {
		t.Fatalf("expected consistent schedule, got warnings: %v", res.Warnings)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", res.Warnings)
	}
}

func TestBrokenIdentityIsFlagged(t *testing.T) {
	records := consistentSchedule()
	records[1].EBITDA = 9999

	res := CheckIdentities(records)
	if res.IsConsistent {
		t.Fatalf("expected ebitda identity violation to be flagged")
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected at least one warning")
	}

	merged := CheckSchedule(records)
	if merged.IsConsistent {
		t.Errorf("merged result should carry the identity violation")
	}
	if merged.MaxGap < 9000 {
		t.Errorf("expected large max gap, got %v", merged.MaxGap)
	}
}

func TestBrokenCumulativeIsFlagged(t *testing.T) {
	records := consistentSchedule()
	records[2].CumulativeCashFlow += 5

	res := CheckCumulative(records)
	if res.IsConsistent {
		t.Fatalf("expected cumulative drift to be flagged")
	}
}

func TestComponentSumMismatchIsFlagged(t *testing.T) {
	records := consistentSchedule()
	records[0].OpexComponents["staff"] = 500

	res := CheckCumulative(records)
	if res.IsConsistent {
		t.Fatalf("expected totalOpex component mismatch to be flagged")
	}
}

func TestSubCentGapsTolerated(t *testing.T) {
	records := consistentSchedule()
	records[0].GrossProfit += 0.005

	res := CheckSchedule(records)
	if !res.IsConsistent {
		t.Fatalf("sub-cent rounding gap should pass, got %v", res.Warnings)
	}
}
