/*
policy.go - Region policy definitions

PURPOSE:
  A RegionPolicy is the complete rule set one city applies to maternity
  cases for a version window [EffectiveDate, ExpiryDate). The engine reads
  it and never modifies it.

RULE UNION:
  Every rule category is its own type carrying only the fields it needs:

    StatutoryRule       base leave days, day-counting flags, cap
    DystociaRule        extra days for a difficult birth
    MultipleInfantRule  extra days per additional infant
    OtherExtensionRule  regional bonus days behind an activation predicate
    AbortionBand        one gestational stage, fixed days or a day range

  Rule is the closed interface over them; callers switch on the concrete
  type instead of probing optional fields.

INVARIANTS (Validate):
  - abortion bands do not overlap for the same ectopic flag
  - MaxLeaveDays >= LeaveDays
  - no negative day values, range bands have Min <= Max
*/
package maternity

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/maternity-engine/generic"
)

// =============================================================================
// RULES
// =============================================================================

type RuleKind string

const (
	KindStatutory      RuleKind = "statutory"
	KindStatutoryBonus RuleKind = "statutory_bonus"
	KindDystocia       RuleKind = "dystocia"
	KindMultipleInfant RuleKind = "multiple_infant"
	KindOtherExtension RuleKind = "other_extension"
	KindAbortion       RuleKind = "abortion"
	KindCap            RuleKind = "cap"
)

// Rule is implemented by the rule types of this package only.
type Rule interface {
	RuleID() string
	Kind() RuleKind
	isRule()
}

// DayCounting controls how leave days map onto the calendar.
type DayCounting struct {
	CalendarDays bool // true: every day counts; false: working days only
	HolidayDelay bool // push an end date off a non-working day
}

func (c DayCounting) String() string {
	s := "working days"
	if c.CalendarDays {
		s = "calendar days"
	}
	if c.HolidayDelay {
		s += ", holiday delay"
	}
	return s
}

// CapMode says whether MaxLeaveDays limits the total or only warns.
type CapMode string

const (
	CapAdvisory CapMode = "advisory"
	CapHard     CapMode = "hard"
)

type StatutoryRule struct {
	ID           string
	LeaveDays    int
	Counting     DayCounting
	MaxLeaveDays *int
	CapMode      CapMode
	BonusDays    int // added to every birth (not abortion) after the base
}

type DystociaRule struct {
	ID          string
	ExtraDays   int
	SubTypeDays map[DystociaType]int // overrides ExtraDays per sub-type
	Counting    DayCounting
}

// DaysFor returns the extra days for a dystocia sub-type.
func (r DystociaRule) DaysFor(t DystociaType) int {
	if d, ok := r.SubTypeDays[t]; ok {
		return d
	}
	return r.ExtraDays
}

type MultipleInfantRule struct {
	ID                 string
	ExtraDaysPerInfant int
}

// ActivationKind selects the predicate that switches an extension on.
type ActivationKind string

const (
	ActivateAll              ActivationKind = "all"               // every case, abortion included
	ActivateBirths           ActivationKind = "births"            // every birth
	ActivateLateChildbearing ActivationKind = "late_childbearing" // mother at least MinMotherAge
	ActivateChildSequence    ActivationKind = "child_sequence"    // child number at least MinChildSequence
)

type Activation struct {
	Kind             ActivationKind
	MinMotherAge     int
	MinChildSequence int
}

func (a Activation) String() string {
	switch a.Kind {
	case ActivateAll:
		return "all cases"
	case ActivateBirths:
		return "all births"
	case ActivateLateChildbearing:
		return fmt.Sprintf("mother aged %d or older", a.MinMotherAge)
	case ActivateChildSequence:
		return fmt.Sprintf("child number %d or later", a.MinChildSequence)
	default:
		return string(a.Kind)
	}
}

type OtherExtensionRule struct {
	ID          string
	Days        int
	Activation  Activation
	Description string
}

// LeaveDays is FixedDays or RangeDays.
type LeaveDays interface {
	isLeaveDays()
}

type FixedDays int

// RangeDays leaves the exact value to the caller.
type RangeDays struct {
	Min int
	Max int
}

func (FixedDays) isLeaveDays() {}
func (RangeDays) isLeaveDays() {}

func (r RangeDays) Contains(d int) bool { return d >= r.Min && d <= r.Max }

type AbortionBand struct {
	ID               string
	MinGestationDays int
	MaxGestationDays int
	Ectopic          bool
	Leave            LeaveDays
	Description      string
}

// Matches reports whether the band covers the gestational stage.
func (b AbortionBand) Matches(gestationDays int, ectopic bool) bool {
	return b.Ectopic == ectopic && gestationDays >= b.MinGestationDays && gestationDays <= b.MaxGestationDays
}

func (r StatutoryRule) RuleID() string      { return r.ID }
func (r DystociaRule) RuleID() string       { return r.ID }
func (r MultipleInfantRule) RuleID() string { return r.ID }
func (r OtherExtensionRule) RuleID() string { return r.ID }
func (b AbortionBand) RuleID() string       { return b.ID }

func (StatutoryRule) Kind() RuleKind      { return KindStatutory }
func (DystociaRule) Kind() RuleKind       { return KindDystocia }
func (MultipleInfantRule) Kind() RuleKind { return KindMultipleInfant }
func (OtherExtensionRule) Kind() RuleKind { return KindOtherExtension }
func (AbortionBand) Kind() RuleKind       { return KindAbortion }

func (StatutoryRule) isRule()      {}
func (DystociaRule) isRule()       {}
func (MultipleInfantRule) isRule() {}
func (OtherExtensionRule) isRule() {}
func (AbortionBand) isRule()       {}

// =============================================================================
// ALLOWANCE POLICY
// =============================================================================

// FundingSource says who pays out of a salary base.
type FundingSource string

const (
	FundingGovernment FundingSource = "government"
	FundingEmployer   FundingSource = "employer"
)

type SalaryBase struct {
	Name        string
	Source      FundingSource
	Description string
}

type CompensationMode string

const (
	CompensateAlways      CompensationMode = "always"
	CompensateNever       CompensationMode = "never"
	CompensateConditional CompensationMode = "conditional"
)

// Condition is an administrative rule gating conditional compensation.
// Description is free text; Expression is an optional CEL expression used
// by CELConditions.
type Condition struct {
	ID          string
	Description string
	Expression  string
}

type CompensationRule struct {
	Mode       CompensationMode
	Conditions []Condition
}

// DefaultDayDivisor converts a monthly salary into a daily rate.
var DefaultDayDivisor = decimal.NewFromInt(30)

type AllowancePolicy struct {
	// Funding ratio applied to the average salary: Numerator/Denominator.
	Numerator   int64
	Denominator int64

	// DayDivisor is the number of days a monthly salary covers. Zero means 30.
	DayDivisor decimal.Decimal

	SalaryBases  []SalaryBase
	Compensation CompensationRule
}

func (a AllowancePolicy) divisor() decimal.Decimal {
	if a.DayDivisor.IsPositive() {
		return a.DayDivisor
	}
	return DefaultDayDivisor
}

// =============================================================================
// REGION POLICY
// =============================================================================

type RegionPolicy struct {
	Region        generic.RegionCode
	Name          string
	CalendarCode  generic.CalendarCode
	Version       int
	EffectiveDate generic.TimePoint
	ExpiryDate    *generic.TimePoint // exclusive; nil = open-ended

	Statutory      StatutoryRule
	Dystocia       *DystociaRule
	MultipleInfant *MultipleInfantRule
	Extensions     []OtherExtensionRule
	Abortion       []AbortionBand // declaration order is match order
	Allowance      *AllowancePolicy
}

// EffectiveOn reports whether the version applies on date.
func (p *RegionPolicy) EffectiveOn(date generic.TimePoint) bool {
	if date.Before(p.EffectiveDate) {
		return false
	}
	return p.ExpiryDate == nil || date.Before(*p.ExpiryDate)
}

// Clone returns a deep copy of the policy.
func (p *RegionPolicy) Clone() *RegionPolicy {
	c := *p
	if p.ExpiryDate != nil {
		exp := *p.ExpiryDate
		c.ExpiryDate = &exp
	}
	if p.Statutory.MaxLeaveDays != nil {
		maxDays := *p.Statutory.MaxLeaveDays
		c.Statutory.MaxLeaveDays = &maxDays
	}
	if p.Dystocia != nil {
		d := *p.Dystocia
		if p.Dystocia.SubTypeDays != nil {
			d.SubTypeDays = make(map[DystociaType]int, len(p.Dystocia.SubTypeDays))
			for k, v := range p.Dystocia.SubTypeDays {
				d.SubTypeDays[k] = v
			}
		}
		c.Dystocia = &d
	}
	if p.MultipleInfant != nil {
		m := *p.MultipleInfant
		c.MultipleInfant = &m
	}
	c.Extensions = append([]OtherExtensionRule(nil), p.Extensions...)
	c.Abortion = append([]AbortionBand(nil), p.Abortion...)
	if p.Allowance != nil {
		a := *p.Allowance
		a.SalaryBases = append([]SalaryBase(nil), p.Allowance.SalaryBases...)
		a.Compensation.Conditions = append([]Condition(nil), p.Allowance.Compensation.Conditions...)
		c.Allowance = &a
	}
	return &c
}

// Calendar returns the calendar code the policy resolves ranges against.
func (p *RegionPolicy) Calendar() generic.CalendarCode {
	if p.CalendarCode == "" {
		return generic.DefaultCalendar
	}
	return p.CalendarCode
}

// Rules lists every rule of the policy in selection order.
func (p *RegionPolicy) Rules() []Rule {
	rules := []Rule{p.Statutory}
	if p.Dystocia != nil {
		rules = append(rules, *p.Dystocia)
	}
	if p.MultipleInfant != nil {
		rules = append(rules, *p.MultipleInfant)
	}
	for _, b := range p.Abortion {
		rules = append(rules, b)
	}
	for _, e := range p.Extensions {
		rules = append(rules, e)
	}
	return rules
}

// MatchingBands returns every abortion band covering the stage. A valid
// policy yields at most one.
func (p *RegionPolicy) MatchingBands(gestationDays int, ectopic bool) []AbortionBand {
	var out []AbortionBand
	for _, b := range p.Abortion {
		if b.Matches(gestationDays, ectopic) {
			out = append(out, b)
		}
	}
	return out
}

// Validate checks the policy invariants.
func (p *RegionPolicy) Validate() error {
	invalid := func(ruleID, format string, args ...any) error {
		return &generic.InvalidPolicyError{Region: p.Region, RuleID: ruleID, Reason: fmt.Sprintf(format, args...)}
	}

	if p.Region == "" {
		return invalid("", "region is required")
	}
	if p.EffectiveDate.IsZero() {
		return invalid("", "effective date is required")
	}
	if p.ExpiryDate != nil && !p.ExpiryDate.After(p.EffectiveDate) {
		return invalid("", "expiry %s must be after effective date %s", p.ExpiryDate, p.EffectiveDate)
	}

	ids := make(map[string]bool)
	for _, r := range p.Rules() {
		if r.RuleID() == "" {
			return invalid("", "%s rule without id", r.Kind())
		}
		if ids[r.RuleID()] {
			return invalid(r.RuleID(), "duplicate rule id")
		}
		ids[r.RuleID()] = true
		if err := validateRule(r, invalid); err != nil {
			return err
		}
	}

	if err := validateBands(p.Abortion, invalid); err != nil {
		return err
	}

	if a := p.Allowance; a != nil {
		if a.Numerator < 0 || a.Denominator <= 0 {
			return invalid("", "funding ratio %d/%d is invalid", a.Numerator, a.Denominator)
		}
		if a.DayDivisor.IsNegative() {
			return invalid("", "day divisor must be positive")
		}
		switch a.Compensation.Mode {
		case CompensateAlways, CompensateNever:
		case CompensateConditional:
			if len(a.Compensation.Conditions) == 0 {
				return invalid("", "conditional compensation needs at least one condition")
			}
		default:
			return invalid("", "unknown compensation mode %q", a.Compensation.Mode)
		}
	}
	return nil
}

func validateRule(r Rule, invalid func(string, string, ...any) error) error {
	switch rule := r.(type) {
	case StatutoryRule:
		if rule.LeaveDays < 0 || rule.BonusDays < 0 {
			return invalid(rule.ID, "negative leave days")
		}
		if rule.MaxLeaveDays != nil && *rule.MaxLeaveDays < rule.LeaveDays {
			return invalid(rule.ID, "max leave days %d below leave days %d", *rule.MaxLeaveDays, rule.LeaveDays)
		}
		if rule.CapMode != "" && rule.CapMode != CapAdvisory && rule.CapMode != CapHard {
			return invalid(rule.ID, "unknown cap mode %q", rule.CapMode)
		}
	case DystociaRule:
		if rule.ExtraDays < 0 {
			return invalid(rule.ID, "negative extra days")
		}
		for t, d := range rule.SubTypeDays {
			if d < 0 {
				return invalid(rule.ID, "negative days for sub-type %s", t)
			}
		}
	case MultipleInfantRule:
		if rule.ExtraDaysPerInfant < 0 {
			return invalid(rule.ID, "negative extra days per infant")
		}
	case OtherExtensionRule:
		if rule.Days < 0 {
			return invalid(rule.ID, "negative extension days")
		}
		switch rule.Activation.Kind {
		case ActivateAll, ActivateBirths, ActivateLateChildbearing, ActivateChildSequence:
		default:
			return invalid(rule.ID, "unknown activation %q", rule.Activation.Kind)
		}
	case AbortionBand:
		if rule.MinGestationDays < 0 || rule.MaxGestationDays < rule.MinGestationDays {
			return invalid(rule.ID, "gestation band [%d, %d] is invalid", rule.MinGestationDays, rule.MaxGestationDays)
		}
		switch leave := rule.Leave.(type) {
		case FixedDays:
			if leave < 0 {
				return invalid(rule.ID, "negative leave days")
			}
		case RangeDays:
			if leave.Min < 0 || leave.Max < leave.Min {
				return invalid(rule.ID, "leave range [%d, %d] is invalid", leave.Min, leave.Max)
			}
		default:
			return invalid(rule.ID, "band has no leave days")
		}
	default:
		return invalid(r.RuleID(), "unknown rule type %T", r)
	}
	return nil
}

func validateBands(bands []AbortionBand, invalid func(string, string, ...any) error) error {
	for _, ectopic := range []bool{false, true} {
		var group []AbortionBand
		for _, b := range bands {
			if b.Ectopic == ectopic {
				group = append(group, b)
			}
		}
		sort.Slice(group, func(i, j int) bool { return group[i].MinGestationDays < group[j].MinGestationDays })
		for i := 1; i < len(group); i++ {
			if group[i].MinGestationDays <= group[i-1].MaxGestationDays {
				return invalid(group[i].ID, "gestation band overlaps %s (ectopic=%t)", group[i-1].ID, ectopic)
			}
		}
	}
	return nil
}
