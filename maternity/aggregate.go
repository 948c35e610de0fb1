package maternity

import (
	"fmt"

	"github.com/warp/maternity-engine/generic"
)

// Aggregation is the summed leave breakdown.
type Aggregation struct {
	TotalDays  int
	Items      []Contribution
	Capped     bool
	Advisories []string
}

// Aggregate sums resolved contributions. A hard cap appends a negative
// cap item, so TotalDays always equals the sum of Items.
func Aggregate(items []Contribution, region generic.RegionCode, statutory StatutoryRule) (Aggregation, error) {
	agg := Aggregation{Items: make([]Contribution, 0, len(items)+1)}
	for _, c := range items {
		if c.Unresolved() {
			return Aggregation{}, &generic.RangeUnresolvedError{
				Region: region, RuleID: c.RuleID, Min: c.Range.Min, Max: c.Range.Max,
			}
		}
		if c.Days < 0 {
			return Aggregation{}, &generic.NegativeDaysError{Region: region, RuleID: c.RuleID, Days: c.Days}
		}
		agg.TotalDays += c.Days
		agg.Items = append(agg.Items, c)
	}

	if statutory.MaxLeaveDays == nil || agg.TotalDays <= *statutory.MaxLeaveDays {
		return agg, nil
	}

	limit := *statutory.MaxLeaveDays
	if statutory.CapMode == CapHard {
		excess := agg.TotalDays - limit
		agg.Items = append(agg.Items, Contribution{
			RuleID:        statutory.ID + "-cap",
			Kind:          KindCap,
			Days:          -excess,
			Justification: fmt.Sprintf("capped at the statutory maximum of %d days (-%d)", limit, excess),
		})
		agg.TotalDays = limit
		agg.Capped = true
		return agg, nil
	}

	agg.Advisories = append(agg.Advisories,
		fmt.Sprintf("total of %d days exceeds the advisory maximum of %d days", agg.TotalDays, limit))
	return agg, nil
}
