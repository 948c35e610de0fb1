package maternity_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/maternity-engine/factory"
	"github.com/warp/maternity-engine/generic"
	"github.com/warp/maternity-engine/maternity"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func day(y int, m time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(y, m, d)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newFacts(region generic.RegionCode, ev maternity.BirthEvent) maternity.CaseFacts {
	return maternity.CaseFacts{
		Region:        region,
		Event:         ev,
		LeaveStart:    day(2025, time.March, 3),
		ChildSequence: 1,
		MotherAge:     30,
	}
}

// cnCalendar is the bundled CN schedule covering 2025-2026.
func cnCalendar(t *testing.T) *generic.SpecialDateTable {
	t.Helper()
	dates, err := factory.DefaultSpecialDates()
	require.NoError(t, err)
	coverage := generic.Period{Start: day(2025, time.January, 1), End: day(2026, time.December, 31)}
	return generic.NewSpecialDateTable("CN", coverage, dates)
}

// statutoryOnly is a 98-day policy with no extensions, always compensating.
func statutoryOnly() *maternity.RegionPolicy {
	p := maternity.BeijingPolicy()
	p.Region = "testville"
	p.Extensions = nil
	return p
}

func itemKinds(items []maternity.Contribution) []maternity.RuleKind {
	kinds := make([]maternity.RuleKind, 0, len(items))
	for _, c := range items {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestEngine_ScenarioA_BeijingNormalBirth(t *testing.T) {
	// GIVEN: A normal birth in Beijing (98 statutory + 30 regional extension)
	// WHEN: Calculating
	// THEN: 128 calendar days, itemized as statutory and extension

	engine := maternity.NewEngine(nil)
	res, err := engine.Calculate(newFacts("beijing", maternity.NormalBirth{}), maternity.BeijingPolicy(), cnCalendar(t))
	require.NoError(t, err)

	assert.Equal(t, 128, res.TotalDays)
	assert.Equal(t, []maternity.RuleKind{maternity.KindStatutory, maternity.KindOtherExtension}, itemKinds(res.Items))
	assert.Equal(t, 98, res.Items[0].Days)
	assert.Equal(t, 30, res.Items[1].Days)
	assert.True(t, res.Counting.CalendarDays)
	assert.Equal(t, "2025-07-09", res.Range.End.String())
	assert.Equal(t, res.TotalDays, res.SumItems())
}

func TestEngine_ScenarioB_ShanghaiDifficultBirth(t *testing.T) {
	// GIVEN: A difficult birth in Shanghai starting 2025-06-10
	// WHEN: Calculating with holiday delay
	// THEN: 98 + 15 days in two items; the naive end (National Day) moves to Oct 9

	facts := newFacts("shanghai", maternity.DifficultBirth{SubType: maternity.DystociaCaesarean})
	facts.LeaveStart = day(2025, time.June, 10)

	res, err := maternity.NewEngine(nil).Calculate(facts, maternity.ShanghaiPolicy(), cnCalendar(t))
	require.NoError(t, err)

	assert.Equal(t, 113, res.TotalDays)
	require.Len(t, res.Items, 2)
	assert.Equal(t, maternity.KindStatutory, res.Items[0].Kind)
	assert.Equal(t, 98, res.Items[0].Days)
	assert.Equal(t, maternity.KindDystocia, res.Items[1].Kind)
	assert.Equal(t, 15, res.Items[1].Days)

	assert.Equal(t, "2025-10-01", res.NaiveEnd.String())
	assert.Equal(t, "2025-10-09", res.Range.End.String())
	require.Len(t, res.Delayed, 8)
	assert.Equal(t, "National Day", res.Delayed[0].Label)
}

func TestEngine_ScenarioC_GuangzhouMultipleBirth(t *testing.T) {
	// GIVEN: Triplets in Guangzhou
	// WHEN: Calculating with and without a difficult birth
	// THEN: Base + 2 x 15, and the dystocia days itemized separately

	policy := maternity.GuangzhouPolicy()
	engine := maternity.NewEngine(nil)

	res, err := engine.Calculate(newFacts("guangzhou", maternity.MultipleBirth{InfantCount: 3}), policy, cnCalendar(t))
	require.NoError(t, err)
	assert.Equal(t, 128, res.TotalDays)
	assert.Equal(t, []maternity.RuleKind{maternity.KindStatutory, maternity.KindMultipleInfant}, itemKinds(res.Items))
	assert.Equal(t, 30, res.Items[1].Days)

	difficult := maternity.MultipleBirth{InfantCount: 3, Difficult: &maternity.DifficultBirth{SubType: maternity.DystociaCaesarean}}
	res, err = engine.Calculate(newFacts("guangzhou", difficult), policy, cnCalendar(t))
	require.NoError(t, err)
	assert.Equal(t, 158, res.TotalDays)
	assert.Equal(t, []maternity.RuleKind{maternity.KindStatutory, maternity.KindDystocia, maternity.KindMultipleInfant}, itemKinds(res.Items))
	assert.Equal(t, 30, res.Items[1].Days)
	assert.Equal(t, 30, res.Items[2].Days)
	assert.Equal(t, "2025-08-08", res.Range.End.String())
}

func TestEngine_ScenarioD_AllowanceWithCompensation(t *testing.T) {
	// GIVEN: 98 leave days, average salary 8000, current salary 10000,
	//        monthly salary over 30 days, compensation always
	// WHEN: Calculating
	// THEN: Allowance 26133.33, compensation 6533.33, payout their sum

	facts := newFacts("testville", maternity.NormalBirth{})
	facts.AverageSalary = decPtr("8000")
	facts.CurrentSalary = decPtr("10000")

	res, err := maternity.NewEngine(nil).Calculate(facts, statutoryOnly(), cnCalendar(t))
	require.NoError(t, err)
	require.Equal(t, 98, res.TotalDays)
	require.NotNil(t, res.Allowance)
	require.NoError(t, res.AllowanceErr)

	a := res.Allowance
	assert.Equal(t, "26133.33", generic.FormatMoney(a.Allowance))
	require.NotNil(t, a.Compensation)
	assert.Equal(t, "6533.33", generic.FormatMoney(*a.Compensation))
	assert.Equal(t, "32666.66", generic.FormatMoney(a.TotalPayout))
	assert.True(t, a.TotalPayout.Equal(a.Allowance.Add(*a.Compensation)))
}

func TestEngine_ScenarioE_ZeroSalary_LeaveStillReturned(t *testing.T) {
	// GIVEN: An average salary of 0
	// WHEN: Calculating
	// THEN: The leave result is complete, the allowance is absent and
	//       InvalidSalaryBase is reported on the result

	facts := newFacts("beijing", maternity.NormalBirth{})
	facts.AverageSalary = decPtr("0")

	calc := maternity.NewEngine(nil).Run(facts, maternity.BeijingPolicy(), cnCalendar(t))
	require.NoError(t, calc.Err)
	assert.Equal(t, maternity.StateComplete, calc.State)

	res := calc.Result
	assert.Equal(t, 128, res.TotalDays)
	assert.Nil(t, res.Allowance)
	assert.ErrorIs(t, res.AllowanceErr, generic.ErrInvalidSalaryBase)

	var salaryErr *generic.InvalidSalaryBaseError
	require.ErrorAs(t, res.AllowanceErr, &salaryErr)
	assert.Equal(t, "average_salary", salaryErr.Field)
}

// =============================================================================
// STATE MACHINE
// =============================================================================

func TestEngine_Run_StateHistory(t *testing.T) {
	calc := maternity.NewEngine(nil).Run(newFacts("beijing", maternity.NormalBirth{}), maternity.BeijingPolicy(), cnCalendar(t))
	assert.Equal(t, []maternity.State{maternity.StateCollecting, maternity.StateComputing, maternity.StateComplete}, calc.History)
}

func TestEngine_Run_FailureKeepsOriginatingError(t *testing.T) {
	// GIVEN: An abortion at 250 gestational days (no band covers it)
	// WHEN: Calculating
	// THEN: Failed, no partial result, NoApplicableRule preserved

	facts := newFacts("beijing", maternity.Abortion{GestationDays: 250})
	calc := maternity.NewEngine(nil).Run(facts, maternity.BeijingPolicy(), cnCalendar(t))

	assert.Equal(t, maternity.StateFailed, calc.State)
	assert.Nil(t, calc.Result)
	assert.ErrorIs(t, calc.Err, generic.ErrNoApplicableRule)
	assert.Equal(t, []maternity.State{maternity.StateCollecting, maternity.StateComputing, maternity.StateFailed}, calc.History)
}

func TestEngine_Run_InvalidFactsFailWhileCollecting(t *testing.T) {
	facts := newFacts("beijing", nil)
	calc := maternity.NewEngine(nil).Run(facts, maternity.BeijingPolicy(), cnCalendar(t))

	assert.Equal(t, maternity.StateFailed, calc.State)
	assert.ErrorIs(t, calc.Err, generic.ErrPolicyMismatch)
	assert.Equal(t, []maternity.State{maternity.StateCollecting, maternity.StateFailed}, calc.History)
}

func TestEngine_Run_InvalidPolicyFailsWhileCollecting(t *testing.T) {
	// GIVEN: Policies that break their own invariants
	// WHEN: Running a case that would otherwise select a rule
	// THEN: InvalidPolicy while collecting, no result

	overlapping := maternity.BeijingPolicy()
	overlapping.Abortion = append(overlapping.Abortion, maternity.AbortionBand{
		ID: "dup", MinGestationDays: 60, MaxGestationDays: 90, Leave: maternity.FixedDays(30),
	})

	lowCap := statutoryOnly()
	lowCap.Statutory.MaxLeaveDays = intPtr(10)
	lowCap.Statutory.CapMode = maternity.CapHard

	badRatio := maternity.BeijingPolicy()
	badRatio.Allowance.Denominator = 0

	salaried := newFacts("beijing", maternity.NormalBirth{})
	salaried.AverageSalary = decPtr("9000")
	salaried.CurrentSalary = decPtr("9000")

	tests := []struct {
		name   string
		facts  maternity.CaseFacts
		policy *maternity.RegionPolicy
	}{
		{"overlapping bands", newFacts("beijing", maternity.Abortion{GestationDays: 70}), overlapping},
		{"max below statutory days", newFacts("testville", maternity.NormalBirth{}), lowCap},
		{"zero funding denominator", salaried, badRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := maternity.NewEngine(nil).Run(tt.facts, tt.policy, cnCalendar(t))

			assert.Equal(t, maternity.StateFailed, calc.State)
			assert.Nil(t, calc.Result)
			assert.ErrorIs(t, calc.Err, generic.ErrInvalidPolicy)
			assert.Equal(t, []maternity.State{maternity.StateCollecting, maternity.StateFailed}, calc.History)
		})
	}
}

func TestEngine_FixedBand_ChosenDaysAdvisory(t *testing.T) {
	facts := newFacts("beijing", maternity.Abortion{GestationDays: 70, ChosenDays: intPtr(5)})
	res, err := maternity.NewEngine(nil).Calculate(facts, maternity.BeijingPolicy(), cnCalendar(t))
	require.NoError(t, err)

	assert.Equal(t, 30, res.TotalDays)
	require.NotEmpty(t, res.Advisories)
	assert.Contains(t, res.Advisories[0], "chosen 5 days ignored")
}

func TestEngine_NilPolicy_NotFound(t *testing.T) {
	_, err := maternity.NewEngine(nil).Calculate(newFacts("nowhere", maternity.NormalBirth{}), nil, cnCalendar(t))
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestEngine_WorkingDayPolicy_WithoutCalendar_Unavailable(t *testing.T) {
	// GIVEN: A policy counting working days and no calendar
	// WHEN: Calculating
	// THEN: CalendarUnavailable, never an "every day is worked" guess

	policy := statutoryOnly()
	policy.Statutory.Counting = maternity.DayCounting{CalendarDays: false}

	_, err := maternity.NewEngine(nil).Calculate(newFacts("testville", maternity.NormalBirth{}), policy, nil)
	assert.ErrorIs(t, err, generic.ErrCalendarUnavailable)
}

// =============================================================================
// RESULT CONTENT
// =============================================================================

func TestEngine_Trace_ExplainsEveryStep(t *testing.T) {
	facts := newFacts("shanghai", maternity.DifficultBirth{})
	facts.LeaveStart = day(2025, time.June, 10)
	facts.AverageSalary = decPtr("8000")
	facts.CurrentSalary = decPtr("10000")

	engine := maternity.NewEngine(maternity.Conditions{CEL: mustCEL(t)})
	res, err := engine.Calculate(facts, maternity.ShanghaiPolicy(), cnCalendar(t))
	require.NoError(t, err)

	trace := strings.Join(res.Trace, "\n")
	assert.Contains(t, trace, "policy shanghai version 1")
	assert.Contains(t, trace, "statutory sh-statutory: +98 days")
	assert.Contains(t, trace, "dystocia sh-dystocia: +15 days")
	assert.Contains(t, trace, "total leave: 113 days")
	assert.Contains(t, trace, "end date moved past 2025-10-01 (National Day)")
	assert.Contains(t, trace, "condition salary-above-base met")
	assert.Contains(t, trace, "total payout:")
}

func TestEngine_AdvisoryCap_ReportedNotApplied(t *testing.T) {
	// GIVEN: Beijing (advisory max 158) and quadruplets with a difficult birth
	// WHEN: Calculating (98 + 15 + 45 + 30 = 188)
	// THEN: The total is not reduced; an advisory says it exceeds 158

	ev := maternity.MultipleBirth{InfantCount: 4, Difficult: &maternity.DifficultBirth{}}
	res, err := maternity.NewEngine(nil).Calculate(newFacts("beijing", ev), maternity.BeijingPolicy(), cnCalendar(t))
	require.NoError(t, err)

	assert.Equal(t, 188, res.TotalDays)
	assert.Equal(t, res.TotalDays, res.SumItems())
	require.NotEmpty(t, res.Advisories)
	assert.Contains(t, res.Advisories[0], "exceeds the advisory maximum of 158")
}

func TestEngine_Concurrent_SameResult(t *testing.T) {
	// GIVEN: One engine, policy and calendar shared by many goroutines
	// WHEN: Calculating concurrently
	// THEN: Every run yields the same result

	engine := maternity.NewEngine(maternity.Conditions{CEL: mustCEL(t)})
	policy := maternity.ShanghaiPolicy()
	calendar := cnCalendar(t)

	facts := newFacts("shanghai", maternity.MultipleBirth{InfantCount: 2})
	facts.AverageSalary = decPtr("9000")
	facts.CurrentSalary = decPtr("12000")

	want, err := engine.Calculate(facts, policy, calendar)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*maternity.Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = engine.Calculate(facts, policy, calendar)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		require.NotNil(t, got)
		assert.Equal(t, want.TotalDays, got.TotalDays)
		assert.Equal(t, want.Range, got.Range)
		assert.True(t, want.Allowance.TotalPayout.Equal(got.Allowance.TotalPayout))
		assert.Equal(t, want.Trace, got.Trace)
	}
}
