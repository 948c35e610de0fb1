/*
allowance.go - Maternity allowance and employer compensation

FORMULAS (divisor defaults to 30):
  allowance    = average x numerator / denominator x days / divisor
  compensation = max(0, current - average) x days / divisor

  always:       compensation as above
  never:        compensation = 0
  conditional:  compensation as above only if every condition holds

  totalPayout  = allowance + compensation

PRECISION:
  Each figure is computed with a single division over the full-precision
  product and rounded half-up to 2 places once, at the end. The payout is
  the sum of the two rounded figures, so the three reported numbers always
  add up.
*/
package maternity

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/maternity-engine/generic"
)

// AllowanceInput bundles everything ComputeAllowance reads.
type AllowanceInput struct {
	Region        generic.RegionCode
	TotalDays     int
	AverageSalary decimal.Decimal
	CurrentSalary *decimal.Decimal
	Policy        AllowancePolicy
	Facts         CaseFacts
	Conditions    ConditionEvaluator
}

// AllowanceResult is the monetary part of a calculation result.
type AllowanceResult struct {
	Allowance    decimal.Decimal
	Compensation *decimal.Decimal // nil when it could not be determined
	TotalPayout  decimal.Decimal

	AverageSalary    decimal.Decimal
	CurrentSalary    *decimal.Decimal
	Numerator        int64
	Denominator      int64
	DayDivisor       decimal.Decimal
	CompensationMode CompensationMode
	SalaryBases      []SalaryBase
	Notes            []string
}

// ComputeAllowance applies the allowance policy to the leave total.
func ComputeAllowance(in AllowanceInput) (*AllowanceResult, error) {
	if !in.AverageSalary.IsPositive() {
		return nil, &generic.InvalidSalaryBaseError{Region: in.Region, Field: "average_salary", Value: in.AverageSalary}
	}
	if in.CurrentSalary != nil && in.CurrentSalary.IsNegative() {
		return nil, &generic.InvalidSalaryBaseError{Region: in.Region, Field: "current_salary", Value: *in.CurrentSalary}
	}
	p := in.Policy
	if p.Denominator <= 0 || p.Numerator < 0 {
		return nil, &generic.InvalidPolicyError{
			Region: in.Region,
			Reason: fmt.Sprintf("funding ratio %d/%d is invalid", p.Numerator, p.Denominator),
		}
	}

	days := decimal.NewFromInt(int64(in.TotalDays))
	divisor := p.divisor()

	res := &AllowanceResult{
		AverageSalary:    in.AverageSalary,
		CurrentSalary:    in.CurrentSalary,
		Numerator:        p.Numerator,
		Denominator:      p.Denominator,
		DayDivisor:       divisor,
		CompensationMode: p.Compensation.Mode,
		SalaryBases:      append([]SalaryBase(nil), p.SalaryBases...),
	}

	res.Allowance = generic.RoundMoney(
		in.AverageSalary.Mul(decimal.NewFromInt(p.Numerator)).Mul(days).
			Div(decimal.NewFromInt(p.Denominator).Mul(divisor)),
	)

	compensate, notes := shouldCompensate(in)
	res.Notes = append(res.Notes, notes...)

	switch {
	case !compensate:
		zero := decimal.Zero
		res.Compensation = &zero
	case in.CurrentSalary == nil:
		res.Notes = append(res.Notes, "no current salary supplied; compensation not determined")
	default:
		gap := in.CurrentSalary.Sub(in.AverageSalary)
		if gap.IsNegative() {
			gap = decimal.Zero
		}
		c := generic.RoundMoney(gap.Mul(days).Div(divisor))
		res.Compensation = &c
	}

	res.TotalPayout = res.Allowance
	if res.Compensation != nil {
		res.TotalPayout = res.TotalPayout.Add(*res.Compensation)
	}
	return res, nil
}

func shouldCompensate(in AllowanceInput) (bool, []string) {
	rule := in.Policy.Compensation
	switch rule.Mode {
	case CompensateAlways:
		return true, nil
	case CompensateConditional:
		if in.Conditions == nil {
			return false, []string{"no condition evaluator supplied; conditional compensation withheld"}
		}
		var notes []string
		cin := ConditionInput{Facts: in.Facts, TotalDays: in.TotalDays}
		for _, cond := range rule.Conditions {
			ok, err := in.Conditions.Evaluate(cond, cin)
			if err != nil {
				notes = append(notes, fmt.Sprintf("condition %s not evaluated (%v); compensation withheld", cond.ID, err))
				return false, notes
			}
			if !ok {
				notes = append(notes, fmt.Sprintf("condition %s not met: %s", cond.ID, cond.Description))
				return false, notes
			}
			notes = append(notes, fmt.Sprintf("condition %s met: %s", cond.ID, cond.Description))
		}
		return true, notes
	default:
		return false, nil
	}
}
