/*
presets.go - Pre-built region policies

PURPOSE:
  Ready-to-use policy definitions for the regions the service ships with.
  They seed an empty store and serve as fixtures in tests. Administrators
  replace them by saving newer versions.

AVAILABLE POLICIES:
  BeijingPolicy:   98 statutory + 30 regional extension, always compensate
  ShanghaiPolicy:  98 statutory, 15 dystocia, holiday delay, conditional
                   compensation
  GuangzhouPolicy: 98 statutory, 30 dystocia, 15 per extra infant, hard cap

ABORTION BANDS:
  StandardAbortionBands follows the national provisions: under 2 months a
  15-30 day range chosen per case, 2 to 4 months 30 days, 4 to 7 months
  42 days, ectopic pregnancy 30 days.
*/
package maternity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/maternity-engine/generic"
)

var presetEffective = generic.NewTimePoint(2024, time.January, 1)

func intPtr(n int) *int { return &n }

// StandardAbortionBands returns the national gestational-stage bands.
func StandardAbortionBands() []AbortionBand {
	return []AbortionBand{
		{ID: "abortion-under-2m", MinGestationDays: 0, MaxGestationDays: 59, Leave: RangeDays{Min: 15, Max: 30},
			Description: "under two months"},
		{ID: "abortion-2m-4m", MinGestationDays: 60, MaxGestationDays: 119, Leave: FixedDays(30),
			Description: "two to four months"},
		{ID: "abortion-4m-7m", MinGestationDays: 120, MaxGestationDays: 209, Leave: FixedDays(42),
			Description: "four to seven months"},
		{ID: "abortion-ectopic", MinGestationDays: 0, MaxGestationDays: 209, Ectopic: true, Leave: FixedDays(30),
			Description: "ectopic pregnancy"},
	}
}

func standardAllowance(mode CompensationMode, conditions ...Condition) *AllowancePolicy {
	return &AllowancePolicy{
		Numerator:   1,
		Denominator: 1,
		DayDivisor:  decimal.NewFromInt(30),
		SalaryBases: []SalaryBase{
			{Name: "employer_average_contribution_base", Source: FundingGovernment,
				Description: "employer's average monthly maternity insurance contribution base of the previous year"},
			{Name: "employee_current_salary", Source: FundingEmployer,
				Description: "employee's monthly salary before leave"},
		},
		Compensation: CompensationRule{Mode: mode, Conditions: conditions},
	}
}

// BeijingPolicy: 98 statutory days plus a 30-day regional extension for
// every birth, counted in calendar days.
func BeijingPolicy() *RegionPolicy {
	return &RegionPolicy{
		Region:        "beijing",
		Name:          "Beijing maternity leave",
		CalendarCode:  generic.DefaultCalendar,
		Version:       1,
		EffectiveDate: presetEffective,
		Statutory: StatutoryRule{
			ID: "bj-statutory", LeaveDays: 98,
			Counting:     DayCounting{CalendarDays: true},
			MaxLeaveDays: intPtr(158), CapMode: CapAdvisory,
		},
		Dystocia:       &DystociaRule{ID: "bj-dystocia", ExtraDays: 15, Counting: DayCounting{CalendarDays: true}},
		MultipleInfant: &MultipleInfantRule{ID: "bj-multiple", ExtraDaysPerInfant: 15},
		Extensions: []OtherExtensionRule{
			{ID: "bj-extension", Days: 30, Activation: Activation{Kind: ActivateBirths},
				Description: "Beijing birth incentive leave"},
		},
		Abortion:  StandardAbortionBands(),
		Allowance: standardAllowance(CompensateAlways),
	}
}

// ShanghaiPolicy: the end date is moved off public holidays and the
// employer tops up only when the allowance falls short of the salary.
func ShanghaiPolicy() *RegionPolicy {
	return &RegionPolicy{
		Region:        "shanghai",
		Name:          "Shanghai maternity leave",
		CalendarCode:  generic.DefaultCalendar,
		Version:       1,
		EffectiveDate: presetEffective,
		Statutory: StatutoryRule{
			ID: "sh-statutory", LeaveDays: 98,
			Counting: DayCounting{CalendarDays: true, HolidayDelay: true},
			CapMode:  CapAdvisory,
		},
		Dystocia: &DystociaRule{
			ID: "sh-dystocia", ExtraDays: 15,
			Counting: DayCounting{CalendarDays: true, HolidayDelay: true},
		},
		MultipleInfant: &MultipleInfantRule{ID: "sh-multiple", ExtraDaysPerInfant: 15},
		Abortion:       StandardAbortionBands(),
		Allowance: standardAllowance(CompensateConditional, Condition{
			ID:          "salary-above-base",
			Description: "the employee's salary exceeds the contribution base the allowance is paid on",
			Expression:  "has_current_salary && current_salary > average_salary",
		}),
	}
}

// GuangzhouPolicy: larger dystocia extension and a hard ceiling on the total.
func GuangzhouPolicy() *RegionPolicy {
	return &RegionPolicy{
		Region:        "guangzhou",
		Name:          "Guangzhou maternity leave",
		CalendarCode:  generic.DefaultCalendar,
		Version:       1,
		EffectiveDate: presetEffective,
		Statutory: StatutoryRule{
			ID: "gz-statutory", LeaveDays: 98,
			Counting:     DayCounting{CalendarDays: true},
			MaxLeaveDays: intPtr(208), CapMode: CapHard,
		},
		Dystocia: &DystociaRule{
			ID: "gz-dystocia", ExtraDays: 30,
			SubTypeDays: map[DystociaType]int{DystociaCaesarean: 30, DystociaForceps: 15},
			Counting:    DayCounting{CalendarDays: true},
		},
		MultipleInfant: &MultipleInfantRule{ID: "gz-multiple", ExtraDaysPerInfant: 15},
		Abortion:       StandardAbortionBands(),
		Allowance:      standardAllowance(CompensateNever),
	}
}

// Presets returns every pre-built policy.
func Presets() []*RegionPolicy {
	return []*RegionPolicy{BeijingPolicy(), ShanghaiPolicy(), GuangzhouPolicy()}
}
