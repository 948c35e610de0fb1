/*
engine.go - Calculation orchestrator

PURPOSE:
  Composes rule selection, aggregation, calendar resolution and the
  allowance into one synchronous calculation and records an ordered,
  human-readable trace of every step.

STATES:
  Collecting -> Computing -> Complete
                          \-> Failed

  Collecting validates the case facts and the policy. Computing runs the
  pipeline. Any error other
  than an allowance error moves to Failed with the originating error and no
  result. Allowance errors are kept on the result (AllowanceErr) and the
  monetary fields stay empty.

PURITY:
  The engine holds no mutable state and performs no I/O. The policy and a
  pre-fetched calendar are passed in; many calculations may run at once.
*/
package maternity

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/maternity-engine/generic"
)

type State string

const (
	StateCollecting State = "collecting"
	StateComputing  State = "computing"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Result is the immutable output of a successful calculation.
type Result struct {
	Region          generic.RegionCode
	PolicyName      string
	PolicyVersion   int
	PolicyEffective generic.TimePoint
	Classification  Classification
	CalendarCode    generic.CalendarCode

	TotalDays int
	Items     []Contribution
	Counting  DayCounting
	Range     generic.Period
	NaiveEnd  generic.TimePoint
	Delayed   []generic.DelayedDay

	Allowance    *AllowanceResult
	AllowanceErr error

	Advisories []string
	Trace      []string
}

// SumItems returns the sum of the itemized contributions.
func (r *Result) SumItems() int {
	sum := 0
	for _, c := range r.Items {
		sum += c.Days
	}
	return sum
}

// Calculation is one run through the state machine.
type Calculation struct {
	State  State
	Result *Result
	Err    error

	// History lists the states visited, in order.
	History []State
}

func (c *Calculation) transition(s State) {
	c.State = s
	c.History = append(c.History, s)
}

func (c *Calculation) fail(err error) *Calculation {
	c.Result = nil
	c.Err = err
	c.transition(StateFailed)
	return c
}

// Engine runs calculations. The zero value is usable; without Conditions,
// conditional compensation is withheld.
type Engine struct {
	Conditions ConditionEvaluator
}

func NewEngine(conditions ConditionEvaluator) *Engine {
	return &Engine{Conditions: conditions}
}

// Calculate runs a calculation and returns its result or its error.
func (e *Engine) Calculate(facts CaseFacts, policy *RegionPolicy, calendar generic.SpecialDateLookup) (*Result, error) {
	c := e.Run(facts, policy, calendar)
	return c.Result, c.Err
}

// Run executes the calculation and exposes the state it ended in.
func (e *Engine) Run(facts CaseFacts, policy *RegionPolicy, calendar generic.SpecialDateLookup) *Calculation {
	c := &Calculation{}
	c.transition(StateCollecting)

	if policy == nil {
		return c.fail(&generic.NotFoundError{Region: facts.Region, AsOf: facts.LeaveStart})
	}
	if err := policy.Validate(); err != nil {
		return c.fail(err)
	}
	if err := facts.Validate(); err != nil {
		return c.fail(err)
	}

	c.transition(StateComputing)
	res, err := e.compute(facts, policy, calendar)
	if err != nil {
		return c.fail(err)
	}
	c.Result = res
	c.transition(StateComplete)
	return c
}

func (e *Engine) compute(facts CaseFacts, policy *RegionPolicy, calendar generic.SpecialDateLookup) (*Result, error) {
	t := &tracer{}
	res := &Result{
		Region:          policy.Region,
		PolicyName:      policy.Name,
		PolicyVersion:   policy.Version,
		PolicyEffective: policy.EffectiveDate,
		Classification:  facts.Event.Classification(),
		CalendarCode:    policy.Calendar(),
		Counting:        policy.Statutory.Counting,
	}
	if facts.CalendarCode != "" {
		res.CalendarCode = facts.CalendarCode
	}
	t.add("policy %s version %d, effective %s", policy.Region, policy.Version, policy.EffectiveDate)
	t.add("case: %s", describeEvent(facts.Event))

	// Rule selection
	sel, err := SelectRules(facts, policy)
	if err != nil {
		return nil, err
	}
	items, err := ResolveRanges(sel.Items, facts, policy.Region)
	if err != nil {
		return nil, err
	}

	// Aggregation
	agg, err := Aggregate(items, policy.Region, policy.Statutory)
	if err != nil {
		return nil, err
	}
	res.TotalDays = agg.TotalDays
	res.Items = agg.Items
	for _, c := range agg.Items {
		t.add("%s %s: %+d days, %s", c.Kind, c.RuleID, c.Days, c.Justification)
	}
	t.add("total leave: %d days", agg.TotalDays)
	res.Advisories = append(res.Advisories, sel.Notes...)
	res.Advisories = append(res.Advisories, agg.Advisories...)

	// Calendar resolution
	rr, err := generic.ResolveRange(facts.LeaveStart, agg.TotalDays,
		res.Counting.CalendarDays, res.Counting.HolidayDelay, calendar, res.CalendarCode)
	if err != nil {
		return nil, err
	}
	res.Range = rr.Range
	res.NaiveEnd = rr.NaiveEnd
	res.Delayed = rr.Delayed
	t.add("leave range: %s to %s (%s)", rr.Range.Start, rr.NaiveEnd, res.Counting)
	if !res.Counting.CalendarDays {
		t.add("working-day count skipped %d non-working days", rr.SkippedNonWorking)
	}
	for _, d := range rr.Delayed {
		t.add("end date moved past %s (%s)", d.Date, labelOr(d.Label, "non-working day"))
	}
	if rr.DelayDays() > 0 {
		t.add("leave ends %s after %d-day holiday delay", rr.Range.End, rr.DelayDays())
	}

	// Allowance
	if err := e.allowance(res, facts, policy, t); err != nil {
		return nil, err
	}

	for _, a := range res.Advisories {
		t.add("advisory: %s", a)
	}
	res.Trace = t.lines
	return res, nil
}

// allowance fills the monetary fields. Salary errors degrade into
// AllowanceErr; any other error fails the calculation.
func (e *Engine) allowance(res *Result, facts CaseFacts, policy *RegionPolicy, t *tracer) error {
	if policy.Allowance == nil {
		t.add("allowance: %s defines no allowance policy", policy.Region)
		return nil
	}
	if facts.AverageSalary == nil {
		t.add("allowance: no average salary supplied, not computed")
		return nil
	}
	ar, err := ComputeAllowance(AllowanceInput{
		Region:        policy.Region,
		TotalDays:     res.TotalDays,
		AverageSalary: *facts.AverageSalary,
		CurrentSalary: facts.CurrentSalary,
		Policy:        *policy.Allowance,
		Facts:         facts,
		Conditions:    e.Conditions,
	})
	if err != nil {
		if !generic.IsAllowanceError(err) {
			return err
		}
		res.AllowanceErr = err
		t.add("allowance skipped: %v", err)
		return nil
	}
	res.Allowance = ar
	t.add("allowance: %s x %d/%d x %d / %s = %s",
		generic.FormatMoney(ar.AverageSalary), ar.Numerator, ar.Denominator,
		res.TotalDays, ar.DayDivisor, generic.FormatMoney(ar.Allowance))
	for _, n := range ar.Notes {
		t.add("compensation: %s", n)
	}
	if ar.Compensation != nil {
		t.add("compensation (%s): %s", ar.CompensationMode, generic.FormatMoney(*ar.Compensation))
	}
	t.add("total payout: %s", generic.FormatMoney(ar.TotalPayout))
	return nil
}

type tracer struct {
	lines []string
}

func (t *tracer) add(format string, args ...any) {
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

func describeEvent(ev BirthEvent) string {
	switch e := ev.(type) {
	case NormalBirth:
		return "normal birth"
	case DifficultBirth:
		return fmt.Sprintf("difficult birth (%s)", labelOr(string(e.SubType), string(DystociaOther)))
	case MultipleBirth:
		s := fmt.Sprintf("multiple birth, %d infants", e.InfantCount)
		if e.Difficult != nil {
			s += fmt.Sprintf(", difficult (%s)", labelOr(string(e.Difficult.SubType), string(DystociaOther)))
		}
		return s
	case Abortion:
		s := fmt.Sprintf("pregnancy termination at %d gestational days", e.GestationDays)
		if e.Ectopic {
			s += ", ectopic"
		}
		return s
	default:
		return fmt.Sprintf("%T", ev)
	}
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}

// DecimalPtr is a convenience for optional salary inputs.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
