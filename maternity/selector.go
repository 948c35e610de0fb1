/*
selector.go - Policy rule selection

PURPOSE:
  Picks the rules of a RegionPolicy that apply to a case and turns each
  into an itemized day contribution. Rules are additive except abortion
  bands, where exactly one band applies.

ORDER (also the order of every user-facing breakdown):
  1. Statutory base (and statutory bonus for births)
  2. Dystocia days for a difficult birth
  3. (n-1) x per-infant days for a multiple birth
  4. The single matching abortion band
  5. Each active other-extension rule

RANGES:
  A band granting a day range is returned unresolved (Contribution.Range
  set, Days zero). ResolveRanges applies the caller's chosen value; the
  engine never picks one itself.
*/
package maternity

import (
	"fmt"

	"github.com/warp/maternity-engine/generic"
)

// Contribution is one itemized line of the leave breakdown.
type Contribution struct {
	RuleID        string
	Kind          RuleKind
	Days          int
	Range         *RangeDays // set while an abortion range awaits a value
	Justification string
}

// Unresolved reports whether the contribution still needs a chosen value.
func (c Contribution) Unresolved() bool { return c.Range != nil }

// Selection is the output of SelectRules.
type Selection struct {
	Items []Contribution
	Notes []string
}

// SelectRules selects the applicable rules for facts under policy.
// Neither argument is modified.
func SelectRules(facts CaseFacts, policy *RegionPolicy) (Selection, error) {
	var sel Selection
	region := policy.Region

	if facts.Region != "" && facts.Region != policy.Region {
		return sel, &generic.PolicyMismatchError{
			Region: facts.Region, Field: "region", Value: policy.Region,
			Reason: "case region differs from the policy region",
		}
	}

	// Step 1: statutory base
	st := policy.Statutory
	if facts.isBirth() {
		sel.add(Contribution{
			RuleID: st.ID, Kind: KindStatutory, Days: st.LeaveDays,
			Justification: fmt.Sprintf("statutory maternity leave: %d days (%s)", st.LeaveDays, st.Counting),
		})
		if st.BonusDays > 0 {
			sel.add(Contribution{
				RuleID: st.ID + "-bonus", Kind: KindStatutoryBonus, Days: st.BonusDays,
				Justification: fmt.Sprintf("statutory bonus: %d days", st.BonusDays),
			})
		}
	} else {
		sel.add(Contribution{
			RuleID: st.ID, Kind: KindStatutory, Days: 0,
			Justification: "statutory maternity leave does not apply to pregnancy termination; the abortion band applies instead",
		})
	}

	switch ev := facts.Event.(type) {
	case NormalBirth:
	case DifficultBirth:
		selectDystocia(&sel, ev, policy)
	case MultipleBirth:
		if ev.InfantCount < 2 {
			return Selection{}, &generic.PolicyMismatchError{
				Region: region, Field: "infant_count", Value: ev.InfantCount,
				Reason: "a multiple birth needs at least two infants",
			}
		}
		if ev.Difficult != nil {
			selectDystocia(&sel, *ev.Difficult, policy)
		}
		if err := selectMultiple(&sel, ev, policy); err != nil {
			return Selection{}, err
		}
	case Abortion:
		if err := selectAbortion(&sel, ev, policy); err != nil {
			return Selection{}, err
		}
	case nil:
		return Selection{}, &generic.PolicyMismatchError{
			Region: region, Field: "event", Value: nil,
			Reason: "a birth event classification is required",
		}
	default:
		return Selection{}, &generic.PolicyMismatchError{
			Region: region, Field: "event", Value: fmt.Sprintf("%T", ev),
			Reason: "unsupported birth event",
		}
	}

	// Step 5: regional extensions
	for _, ext := range policy.Extensions {
		if !activates(ext.Activation, facts) {
			continue
		}
		desc := ext.Description
		if desc == "" {
			desc = "regional extension"
		}
		sel.add(Contribution{
			RuleID: ext.ID, Kind: KindOtherExtension, Days: ext.Days,
			Justification: fmt.Sprintf("%s: %d days (%s)", desc, ext.Days, ext.Activation),
		})
	}

	return sel, nil
}

func (s *Selection) add(c Contribution) { s.Items = append(s.Items, c) }

func (s *Selection) note(format string, args ...any) {
	s.Notes = append(s.Notes, fmt.Sprintf(format, args...))
}

func selectDystocia(sel *Selection, ev DifficultBirth, policy *RegionPolicy) {
	rule := policy.Dystocia
	if rule == nil {
		sel.note("%s defines no difficult-birth extension; no dystocia days added", policy.Region)
		return
	}
	days := rule.DaysFor(ev.SubType)
	subType := ev.SubType
	if subType == "" {
		subType = DystociaOther
	}
	sel.add(Contribution{
		RuleID: rule.ID, Kind: KindDystocia, Days: days,
		Justification: fmt.Sprintf("difficult birth (%s): %d days", subType, days),
	})
	if rule.Counting != policy.Statutory.Counting {
		sel.note("dystocia rule %s counts %s; the leave range uses the statutory %s", rule.ID, rule.Counting, policy.Statutory.Counting)
	}
}

func selectMultiple(sel *Selection, ev MultipleBirth, policy *RegionPolicy) error {
	rule := policy.MultipleInfant
	if rule == nil {
		sel.note("%s defines no multiple-birth extension; no extra infant days added", policy.Region)
		return nil
	}
	extra := ev.InfantCount - 1
	days := extra * rule.ExtraDaysPerInfant
	sel.add(Contribution{
		RuleID: rule.ID, Kind: KindMultipleInfant, Days: days,
		Justification: fmt.Sprintf("multiple birth, %d infants: %d x %d = %d days",
			ev.InfantCount, extra, rule.ExtraDaysPerInfant, days),
	})
	return nil
}

func selectAbortion(sel *Selection, ev Abortion, policy *RegionPolicy) error {
	if ev.GestationDays < 0 {
		return &generic.PolicyMismatchError{
			Region: policy.Region, Field: "gestation_days", Value: ev.GestationDays,
			Reason: "must not be negative",
		}
	}
	for _, band := range policy.Abortion {
		if !band.Matches(ev.GestationDays, ev.Ectopic) {
			continue
		}
		stage := fmt.Sprintf("gestation %d days in [%d, %d]", ev.GestationDays, band.MinGestationDays, band.MaxGestationDays)
		if ev.Ectopic {
			stage += ", ectopic"
		}
		c := Contribution{RuleID: band.ID, Kind: KindAbortion}
		switch leave := band.Leave.(type) {
		case FixedDays:
			c.Days = int(leave)
			c.Justification = fmt.Sprintf("pregnancy termination (%s): %d days", stage, c.Days)
			if ev.ChosenDays != nil && *ev.ChosenDays != c.Days {
				sel.note("chosen %d days ignored: band %s grants a fixed %d days", *ev.ChosenDays, band.ID, c.Days)
			}
		case RangeDays:
			r := leave
			c.Range = &r
			c.Justification = fmt.Sprintf("pregnancy termination (%s): %d to %d days", stage, r.Min, r.Max)
		default:
			return &generic.InvalidPolicyError{Region: policy.Region, RuleID: band.ID, Reason: "band has no leave days"}
		}
		sel.add(c)
		return nil
	}
	return &generic.NoApplicableRuleError{
		Region:        policy.Region,
		GestationDays: ev.GestationDays,
		Ectopic:       ev.Ectopic,
	}
}

func activates(a Activation, facts CaseFacts) bool {
	switch a.Kind {
	case ActivateAll:
		return true
	case ActivateBirths:
		return facts.isBirth()
	case ActivateLateChildbearing:
		return facts.isBirth() && facts.MotherAge > 0 && facts.MotherAge >= a.MinMotherAge
	case ActivateChildSequence:
		return facts.isBirth() && facts.ChildSequence >= a.MinChildSequence
	default:
		return false
	}
}

// ResolveRanges fills unresolved range contributions with the caller's
// chosen value. The input slice is not modified.
func ResolveRanges(items []Contribution, facts CaseFacts, region generic.RegionCode) ([]Contribution, error) {
	out := make([]Contribution, len(items))
	copy(out, items)
	for i, c := range out {
		if !c.Unresolved() {
			continue
		}
		var chosen *int
		if ab, ok := facts.Event.(Abortion); ok {
			chosen = ab.ChosenDays
		}
		if chosen == nil || !c.Range.Contains(*chosen) {
			return nil, &generic.RangeUnresolvedError{
				Region: region, RuleID: c.RuleID,
				Min: c.Range.Min, Max: c.Range.Max, Chosen: chosen,
			}
		}
		out[i].Days = *chosen
		out[i].Justification = fmt.Sprintf("%s, %d chosen", c.Justification, *chosen)
		out[i].Range = nil
	}
	return out, nil
}
