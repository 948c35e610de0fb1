package maternity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/maternity-engine/generic"
	"github.com/warp/maternity-engine/maternity"
)

func allowancePolicy(mode maternity.CompensationMode, conditions ...maternity.Condition) maternity.AllowancePolicy {
	return maternity.AllowancePolicy{
		Numerator:    1,
		Denominator:  1,
		DayDivisor:   dec("30"),
		Compensation: maternity.CompensationRule{Mode: mode, Conditions: conditions},
	}
}

func TestComputeAllowance_Always(t *testing.T) {
	// GIVEN: average 8000, current 10000, 98 days, ratio 1/1, divisor 30
	// WHEN: Computing with mode always
	// THEN: 26133.33 allowance, 6533.33 compensation, 32666.66 payout

	res, err := maternity.ComputeAllowance(maternity.AllowanceInput{
		Region:        "testville",
		TotalDays:     98,
		AverageSalary: dec("8000"),
		CurrentSalary: decPtr("10000"),
		Policy:        allowancePolicy(maternity.CompensateAlways),
	})
	require.NoError(t, err)

	assert.Equal(t, "26133.33", generic.FormatMoney(res.Allowance))
	require.NotNil(t, res.Compensation)
	assert.Equal(t, "6533.33", generic.FormatMoney(*res.Compensation))
	assert.Equal(t, "32666.66", generic.FormatMoney(res.TotalPayout))
	assert.True(t, res.TotalPayout.Equal(res.Allowance.Add(*res.Compensation)))
}

func TestComputeAllowance_FundingRatio(t *testing.T) {
	p := allowancePolicy(maternity.CompensateNever)
	p.Numerator, p.Denominator = 1, 2

	res, err := maternity.ComputeAllowance(maternity.AllowanceInput{
		TotalDays: 30, AverageSalary: dec("9000"), Policy: p,
	})
	require.NoError(t, err)
	assert.Equal(t, "4500.00", generic.FormatMoney(res.Allowance))
}

func TestComputeAllowance_DefaultDivisor(t *testing.T) {
	p := allowancePolicy(maternity.CompensateNever)
	p.DayDivisor = dec("0")

	res, err := maternity.ComputeAllowance(maternity.AllowanceInput{
		TotalDays: 15, AverageSalary: dec("6000"), Policy: p,
	})
	require.NoError(t, err)
	assert.Equal(t, "3000.00", generic.FormatMoney(res.Allowance))
	assert.True(t, res.DayDivisor.Equal(maternity.DefaultDayDivisor))
}

func TestComputeAllowance_Never(t *testing.T) {
	res, err := maternity.ComputeAllowance(maternity.AllowanceInput{
		TotalDays: 98, AverageSalary: dec("8000"), CurrentSalary: decPtr("10000"),
		Policy: allowancePolicy(maternity.CompensateNever),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Compensation)
	assert.True(t, res.Compensation.IsZero())
	assert.True(t, res.TotalPayout.Equal(res.Allowance))
}

func TestComputeAllowance_Conditional(t *testing.T) {
	cond := maternity.Condition{ID: "gap", Description: "salary above base", Expression: "current_salary > average_salary"}
	base := maternity.AllowanceInput{
		TotalDays: 98, AverageSalary: dec("8000"), CurrentSalary: decPtr("10000"),
		Policy: allowancePolicy(maternity.CompensateConditional, cond),
	}
	base.Facts = newFacts("testville", maternity.NormalBirth{})
	base.Facts.AverageSalary = decPtr("8000")
	base.Facts.CurrentSalary = decPtr("10000")

	t.Run("met", func(t *testing.T) {
		in := base
		in.Conditions = mustCEL(t)
		res, err := maternity.ComputeAllowance(in)
		require.NoError(t, err)
		assert.Equal(t, "6533.33", generic.FormatMoney(*res.Compensation))
		assert.Contains(t, res.Notes[0], "condition gap met")
	})

	t.Run("not met", func(t *testing.T) {
		in := base
		in.Conditions = maternity.PredicateSet{"gap": func(maternity.ConditionInput) bool { return false }}
		res, err := maternity.ComputeAllowance(in)
		require.NoError(t, err)
		assert.True(t, res.Compensation.IsZero())
		assert.Contains(t, res.Notes[0], "condition gap not met")
	})

	t.Run("no evaluator", func(t *testing.T) {
		res, err := maternity.ComputeAllowance(base)
		require.NoError(t, err)
		assert.True(t, res.Compensation.IsZero())
		assert.Contains(t, res.Notes[0], "no condition evaluator")
	})

	t.Run("evaluator error", func(t *testing.T) {
		in := base
		in.Conditions = maternity.PredicateSet{}
		res, err := maternity.ComputeAllowance(in)
		require.NoError(t, err)
		assert.True(t, res.Compensation.IsZero())
		assert.Contains(t, res.Notes[0], "not evaluated")
	})
}

func TestComputeAllowance_NoCurrentSalary(t *testing.T) {
	// GIVEN: Compensation always applies but no current salary is known
	// WHEN: Computing
	// THEN: Compensation is undetermined and the payout is the allowance alone

	res, err := maternity.ComputeAllowance(maternity.AllowanceInput{
		TotalDays: 98, AverageSalary: dec("8000"),
		Policy: allowancePolicy(maternity.CompensateAlways),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Compensation)
	assert.True(t, res.TotalPayout.Equal(res.Allowance))
	assert.Contains(t, res.Notes, "no current salary supplied; compensation not determined")
}

func TestComputeAllowance_CurrentBelowAverage(t *testing.T) {
	res, err := maternity.ComputeAllowance(maternity.AllowanceInput{
		TotalDays: 98, AverageSalary: dec("8000"), CurrentSalary: decPtr("6000"),
		Policy: allowancePolicy(maternity.CompensateAlways),
	})
	require.NoError(t, err)
	assert.True(t, res.Compensation.IsZero())
}

func TestComputeAllowance_InvalidSalaries(t *testing.T) {
	p := allowancePolicy(maternity.CompensateAlways)

	for _, avg := range []string{"0", "-1"} {
		_, err := maternity.ComputeAllowance(maternity.AllowanceInput{TotalDays: 98, AverageSalary: dec(avg), Policy: p})
		var invalid *generic.InvalidSalaryBaseError
		require.ErrorAs(t, err, &invalid, avg)
		assert.Equal(t, "average_salary", invalid.Field)
	}

	_, err := maternity.ComputeAllowance(maternity.AllowanceInput{
		TotalDays: 98, AverageSalary: dec("8000"), CurrentSalary: decPtr("-100"), Policy: p,
	})
	var invalid *generic.InvalidSalaryBaseError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "current_salary", invalid.Field)
}

func TestComputeAllowance_BadRatio(t *testing.T) {
	p := allowancePolicy(maternity.CompensateNever)
	p.Denominator = 0
	_, err := maternity.ComputeAllowance(maternity.AllowanceInput{TotalDays: 98, AverageSalary: dec("8000"), Policy: p})
	assert.ErrorIs(t, err, generic.ErrInvalidPolicy)
}
