package maternity_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/warp/maternity-engine/maternity"
)

func TestProperties_LeaveDays(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	engine := maternity.NewEngine(nil)
	start := day(2025, time.January, 1)

	properties.Property("normal birth without extensions yields the statutory days", prop.ForAll(
		func(leaveDays int, offset int) bool {
			p := statutoryOnly()
			p.Statutory.LeaveDays = leaveDays
			p.Statutory.MaxLeaveDays = nil
			facts := newFacts("testville", maternity.NormalBirth{})
			facts.LeaveStart = start.AddDays(offset)

			res, err := engine.Calculate(facts, p, nil)
			return err == nil && res.TotalDays == leaveDays
		},
		gen.IntRange(0, 365),
		gen.IntRange(0, 700),
	))

	properties.Property("multiple birth adds (n-1) x per-infant days", prop.ForAll(
		func(n int) bool {
			p := statutoryOnly()
			p.Statutory.MaxLeaveDays = nil
			res, err := engine.Calculate(newFacts("testville", maternity.MultipleBirth{InfantCount: n}), p, nil)
			return err == nil && res.TotalDays == p.Statutory.LeaveDays+(n-1)*p.MultipleInfant.ExtraDaysPerInfant
		},
		gen.IntRange(2, 8),
	))

	properties.Property("item sum equals the total under a hard cap", prop.ForAll(
		func(n int, limit int) bool {
			p := statutoryOnly()
			p.Statutory.MaxLeaveDays = &limit
			p.Statutory.CapMode = maternity.CapHard
			res, err := engine.Calculate(newFacts("testville", maternity.MultipleBirth{InfantCount: n}), p, nil)
			return err == nil && res.SumItems() == res.TotalDays && res.TotalDays <= limit
		},
		gen.IntRange(2, 10),
		gen.IntRange(98, 200),
	))

	properties.TestingRun(t)
}

func TestProperties_AbortionBands(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	p := maternity.BeijingPolicy()

	properties.Property("at most one band matches any stage", prop.ForAll(
		func(gestation int, ectopic bool) bool {
			return len(p.MatchingBands(gestation, ectopic)) <= 1
		},
		gen.IntRange(0, 300),
		gen.Bool(),
	))

	properties.Property("every stage below 210 days is covered", prop.ForAll(
		func(gestation int, ectopic bool) bool {
			return len(p.MatchingBands(gestation, ectopic)) == 1
		},
		gen.IntRange(0, 209),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperties_Allowance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	policy := maternity.AllowancePolicy{
		Numerator: 1, Denominator: 1, DayDivisor: decimal.NewFromInt(30),
		Compensation: maternity.CompensationRule{Mode: maternity.CompensateAlways},
	}

	properties.Property("figures have two decimals, add up and repeat", prop.ForAll(
		func(days int, avgCents int64, curCents int64) bool {
			avg := decimal.New(avgCents, -2)
			cur := decimal.New(curCents, -2)
			in := maternity.AllowanceInput{
				TotalDays: days, AverageSalary: avg, CurrentSalary: &cur, Policy: policy,
			}
			a, err := maternity.ComputeAllowance(in)
			if err != nil {
				return false
			}
			b, err := maternity.ComputeAllowance(in)
			if err != nil {
				return false
			}
			twoPlaces := func(d decimal.Decimal) bool { return d.Equal(d.Round(2)) }
			return twoPlaces(a.Allowance) && twoPlaces(*a.Compensation) &&
				a.TotalPayout.Equal(a.Allowance.Add(*a.Compensation)) &&
				a.Allowance.Equal(b.Allowance) && a.TotalPayout.Equal(b.TotalPayout) &&
				!a.Compensation.IsNegative()
		},
		gen.IntRange(0, 400),
		gen.Int64Range(1, 10_000_000),
		gen.Int64Range(0, 10_000_000),
	))

	properties.TestingRun(t)
}

func TestProperties_CalendarEnd(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	engine := maternity.NewEngine(nil)
	properties.Property("calendar-day end is start + total", prop.ForAll(
		func(offset int) bool {
			facts := newFacts("beijing", maternity.NormalBirth{})
			facts.LeaveStart = day(2025, time.January, 1).AddDays(offset)
			res, err := engine.Calculate(facts, maternity.BeijingPolicy(), nil)
			return err == nil && res.Range.End.Equal(facts.LeaveStart.AddDays(res.TotalDays))
		},
		gen.IntRange(0, 365),
	))

	properties.TestingRun(t)
}
