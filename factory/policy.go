/*
Package factory converts JSON and YAML documents into engine types.

PURPOSE:
  Policy administrators write region policies as documents; the API and
  the CLI accept cases and special dates the same way. The factory is the
  one place where loosely shaped documents become the closed types of the
  maternity package, and where every invariant is checked on the way in.

JSON SCHEMA (YAML uses the same keys):
  {
    "region": "beijing",
    "name": "Beijing maternity leave",
    "calendar_code": "CN",
    "version": 1,
    "effective_date": "2024-01-01",
    "statutory": {"id": "bj-statutory", "leave_days": 98, "calendar_days": true,
                  "max_leave_days": 158, "cap_mode": "advisory"},
    "dystocia": {"id": "bj-dystocia", "extra_days": 15, "calendar_days": true},
    "multiple_infant": {"id": "bj-multiple", "extra_days_per_infant": 15},
    "extensions": [{"id": "bj-extension", "days": 30, "activation": "births"}],
    "abortion": [
      {"id": "a1", "min_gestation_days": 0, "max_gestation_days": 59,
       "min_leave_days": 15, "max_leave_days": 30},
      {"id": "a2", "min_gestation_days": 60, "max_gestation_days": 119, "leave_days": 30}
    ],
    "allowance": {"numerator": 1, "denominator": 1, "day_divisor": 30,
                  "compensation": {"mode": "always"}}
  }

ABORTION BANDS:
  A band carries either "leave_days" (fixed) or "min_leave_days" and
  "max_leave_days" (range). Both or neither is rejected.

USAGE:
  f := factory.NewPolicyFactory()
  policy, err := f.ParsePolicy(jsonString)
  policies, err := f.ParsePoliciesYAML(data)
*/
package factory

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/warp/maternity-engine/generic"
	"github.com/warp/maternity-engine/maternity"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the document form of a maternity.RegionPolicy.
type PolicyJSON struct {
	Region         string              `json:"region" yaml:"region"`
	Name           string              `json:"name" yaml:"name"`
	CalendarCode   string              `json:"calendar_code,omitempty" yaml:"calendar_code,omitempty"`
	Version        int                 `json:"version" yaml:"version"`
	EffectiveDate  string              `json:"effective_date" yaml:"effective_date"`
	ExpiryDate     string              `json:"expiry_date,omitempty" yaml:"expiry_date,omitempty"`
	Statutory      StatutoryJSON       `json:"statutory" yaml:"statutory"`
	Dystocia       *DystociaJSON       `json:"dystocia,omitempty" yaml:"dystocia,omitempty"`
	MultipleInfant *MultipleInfantJSON `json:"multiple_infant,omitempty" yaml:"multiple_infant,omitempty"`
	Extensions     []ExtensionJSON     `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	Abortion       []AbortionBandJSON  `json:"abortion,omitempty" yaml:"abortion,omitempty"`
	Allowance      *AllowanceJSON      `json:"allowance,omitempty" yaml:"allowance,omitempty"`
}

type StatutoryJSON struct {
	ID           string `json:"id" yaml:"id"`
	LeaveDays    int    `json:"leave_days" yaml:"leave_days"`
	CalendarDays bool   `json:"calendar_days" yaml:"calendar_days"`
	HolidayDelay bool   `json:"holiday_delay,omitempty" yaml:"holiday_delay,omitempty"`
	MaxLeaveDays *int   `json:"max_leave_days,omitempty" yaml:"max_leave_days,omitempty"`
	CapMode      string `json:"cap_mode,omitempty" yaml:"cap_mode,omitempty"`
	BonusDays    int    `json:"bonus_days,omitempty" yaml:"bonus_days,omitempty"`
}

type DystociaJSON struct {
	ID           string         `json:"id" yaml:"id"`
	ExtraDays    int            `json:"extra_days" yaml:"extra_days"`
	SubTypeDays  map[string]int `json:"sub_type_days,omitempty" yaml:"sub_type_days,omitempty"`
	CalendarDays bool           `json:"calendar_days" yaml:"calendar_days"`
	HolidayDelay bool           `json:"holiday_delay,omitempty" yaml:"holiday_delay,omitempty"`
}

type MultipleInfantJSON struct {
	ID                 string `json:"id" yaml:"id"`
	ExtraDaysPerInfant int    `json:"extra_days_per_infant" yaml:"extra_days_per_infant"`
}

type ExtensionJSON struct {
	ID               string `json:"id" yaml:"id"`
	Days             int    `json:"days" yaml:"days"`
	Activation       string `json:"activation" yaml:"activation"`
	MinMotherAge     int    `json:"min_mother_age,omitempty" yaml:"min_mother_age,omitempty"`
	MinChildSequence int    `json:"min_child_sequence,omitempty" yaml:"min_child_sequence,omitempty"`
	Description      string `json:"description,omitempty" yaml:"description,omitempty"`
}

type AbortionBandJSON struct {
	ID               string `json:"id" yaml:"id"`
	MinGestationDays int    `json:"min_gestation_days" yaml:"min_gestation_days"`
	MaxGestationDays int    `json:"max_gestation_days" yaml:"max_gestation_days"`
	Ectopic          bool   `json:"ectopic,omitempty" yaml:"ectopic,omitempty"`
	LeaveDays        *int   `json:"leave_days,omitempty" yaml:"leave_days,omitempty"`
	MinLeaveDays     *int   `json:"min_leave_days,omitempty" yaml:"min_leave_days,omitempty"`
	MaxLeaveDays     *int   `json:"max_leave_days,omitempty" yaml:"max_leave_days,omitempty"`
	Description      string `json:"description,omitempty" yaml:"description,omitempty"`
}

type AllowanceJSON struct {
	Numerator    int64            `json:"numerator" yaml:"numerator"`
	Denominator  int64            `json:"denominator" yaml:"denominator"`
	DayDivisor   *Decimal         `json:"day_divisor,omitempty" yaml:"day_divisor,omitempty"`
	SalaryBases  []SalaryBaseJSON `json:"salary_bases,omitempty" yaml:"salary_bases,omitempty"`
	Compensation CompensationJSON `json:"compensation" yaml:"compensation"`
}

type SalaryBaseJSON struct {
	Name        string `json:"name" yaml:"name"`
	Source      string `json:"source" yaml:"source"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type CompensationJSON struct {
	Mode       string          `json:"mode" yaml:"mode"`
	Conditions []ConditionJSON `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

type ConditionJSON struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
	Expression  string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// PolicyFileYAML is the layout of a policy seed file.
type PolicyFileYAML struct {
	Policies []PolicyJSON `yaml:"policies"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts policy documents to maternity.RegionPolicy.
type PolicyFactory struct {
	// CEL, when set, compile-checks condition expressions on parse.
	CEL *maternity.CELConditions
}

func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses a JSON document into a validated RegionPolicy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (*maternity.RegionPolicy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// ParsePoliciesYAML parses a seed file holding a list of policies.
func (f *PolicyFactory) ParsePoliciesYAML(data []byte) ([]*maternity.RegionPolicy, error) {
	var file PolicyFileYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	out := make([]*maternity.RegionPolicy, 0, len(file.Policies))
	for i, pj := range file.Policies {
		p, err := f.FromJSON(pj)
		if err != nil {
			return nil, fmt.Errorf("policy %d (%s): %w", i, pj.Region, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// FromJSON converts and validates a PolicyJSON.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (*maternity.RegionPolicy, error) {
	region := generic.NormalizeRegion(pj.Region)
	invalid := func(ruleID, format string, args ...any) error {
		return &generic.InvalidPolicyError{Region: region, RuleID: ruleID, Reason: fmt.Sprintf(format, args...)}
	}

	effective, err := generic.ParseTimePoint(pj.EffectiveDate)
	if err != nil {
		return nil, invalid("", "effective_date: %v", err)
	}

	p := &maternity.RegionPolicy{
		Region:        region,
		Name:          pj.Name,
		CalendarCode:  generic.NormalizeCalendar(pj.CalendarCode),
		Version:       pj.Version,
		EffectiveDate: effective,
		Statutory: maternity.StatutoryRule{
			ID:           pj.Statutory.ID,
			LeaveDays:    pj.Statutory.LeaveDays,
			Counting:     maternity.DayCounting{CalendarDays: pj.Statutory.CalendarDays, HolidayDelay: pj.Statutory.HolidayDelay},
			MaxLeaveDays: pj.Statutory.MaxLeaveDays,
			CapMode:      parseCapMode(pj.Statutory.CapMode),
			BonusDays:    pj.Statutory.BonusDays,
		},
	}
	if p.Version == 0 {
		p.Version = 1
	}
	if pj.ExpiryDate != "" {
		expiry, err := generic.ParseTimePoint(pj.ExpiryDate)
		if err != nil {
			return nil, invalid("", "expiry_date: %v", err)
		}
		p.ExpiryDate = &expiry
	}

	if d := pj.Dystocia; d != nil {
		rule := &maternity.DystociaRule{
			ID:        d.ID,
			ExtraDays: d.ExtraDays,
			Counting:  maternity.DayCounting{CalendarDays: d.CalendarDays, HolidayDelay: d.HolidayDelay},
		}
		if len(d.SubTypeDays) > 0 {
			rule.SubTypeDays = make(map[maternity.DystociaType]int, len(d.SubTypeDays))
			for k, v := range d.SubTypeDays {
				rule.SubTypeDays[maternity.DystociaType(k)] = v
			}
		}
		p.Dystocia = rule
	}

	if m := pj.MultipleInfant; m != nil {
		p.MultipleInfant = &maternity.MultipleInfantRule{ID: m.ID, ExtraDaysPerInfant: m.ExtraDaysPerInfant}
	}

	for _, ej := range pj.Extensions {
		p.Extensions = append(p.Extensions, maternity.OtherExtensionRule{
			ID:   ej.ID,
			Days: ej.Days,
			Activation: maternity.Activation{
				Kind:             maternity.ActivationKind(ej.Activation),
				MinMotherAge:     ej.MinMotherAge,
				MinChildSequence: ej.MinChildSequence,
			},
			Description: ej.Description,
		})
	}

	for _, bj := range pj.Abortion {
		band, err := parseBand(bj, invalid)
		if err != nil {
			return nil, err
		}
		p.Abortion = append(p.Abortion, band)
	}

	if aj := pj.Allowance; aj != nil {
		allowance, err := f.parseAllowance(*aj, invalid)
		if err != nil {
			return nil, err
		}
		p.Allowance = allowance
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ToJSON converts a RegionPolicy back to its document form.
func (f *PolicyFactory) ToJSON(p *maternity.RegionPolicy) PolicyJSON {
	pj := PolicyJSON{
		Region:        string(p.Region),
		Name:          p.Name,
		CalendarCode:  string(p.CalendarCode),
		Version:       p.Version,
		EffectiveDate: p.EffectiveDate.String(),
		Statutory: StatutoryJSON{
			ID:           p.Statutory.ID,
			LeaveDays:    p.Statutory.LeaveDays,
			CalendarDays: p.Statutory.Counting.CalendarDays,
			HolidayDelay: p.Statutory.Counting.HolidayDelay,
			MaxLeaveDays: p.Statutory.MaxLeaveDays,
			CapMode:      string(p.Statutory.CapMode),
			BonusDays:    p.Statutory.BonusDays,
		},
	}
	if p.ExpiryDate != nil {
		pj.ExpiryDate = p.ExpiryDate.String()
	}
	if d := p.Dystocia; d != nil {
		dj := &DystociaJSON{
			ID:           d.ID,
			ExtraDays:    d.ExtraDays,
			CalendarDays: d.Counting.CalendarDays,
			HolidayDelay: d.Counting.HolidayDelay,
		}
		if len(d.SubTypeDays) > 0 {
			dj.SubTypeDays = make(map[string]int, len(d.SubTypeDays))
			for k, v := range d.SubTypeDays {
				dj.SubTypeDays[string(k)] = v
			}
		}
		pj.Dystocia = dj
	}
	if m := p.MultipleInfant; m != nil {
		pj.MultipleInfant = &MultipleInfantJSON{ID: m.ID, ExtraDaysPerInfant: m.ExtraDaysPerInfant}
	}
	for _, e := range p.Extensions {
		pj.Extensions = append(pj.Extensions, ExtensionJSON{
			ID:               e.ID,
			Days:             e.Days,
			Activation:       string(e.Activation.Kind),
			MinMotherAge:     e.Activation.MinMotherAge,
			MinChildSequence: e.Activation.MinChildSequence,
			Description:      e.Description,
		})
	}
	for _, b := range p.Abortion {
		bj := AbortionBandJSON{
			ID:               b.ID,
			MinGestationDays: b.MinGestationDays,
			MaxGestationDays: b.MaxGestationDays,
			Ectopic:          b.Ectopic,
			Description:      b.Description,
		}
		switch leave := b.Leave.(type) {
		case maternity.FixedDays:
			n := int(leave)
			bj.LeaveDays = &n
		case maternity.RangeDays:
			lo, hi := leave.Min, leave.Max
			bj.MinLeaveDays, bj.MaxLeaveDays = &lo, &hi
		}
		pj.Abortion = append(pj.Abortion, bj)
	}
	if a := p.Allowance; a != nil {
		aj := &AllowanceJSON{
			Numerator:    a.Numerator,
			Denominator:  a.Denominator,
			Compensation: CompensationJSON{Mode: string(a.Compensation.Mode)},
		}
		if a.DayDivisor.IsPositive() {
			aj.DayDivisor = &Decimal{Decimal: a.DayDivisor}
		}
		for _, sb := range a.SalaryBases {
			aj.SalaryBases = append(aj.SalaryBases, SalaryBaseJSON{Name: sb.Name, Source: string(sb.Source), Description: sb.Description})
		}
		for _, c := range a.Compensation.Conditions {
			aj.Compensation.Conditions = append(aj.Compensation.Conditions, ConditionJSON{ID: c.ID, Description: c.Description, Expression: c.Expression})
		}
		pj.Allowance = aj
	}
	return pj
}

// MarshalPolicy renders a policy as its JSON document.
func (f *PolicyFactory) MarshalPolicy(p *maternity.RegionPolicy) (string, error) {
	data, err := json.Marshal(f.ToJSON(p))
	if err != nil {
		return "", fmt.Errorf("failed to marshal policy: %w", err)
	}
	return string(data), nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseCapMode(s string) maternity.CapMode {
	switch s {
	case "hard":
		return maternity.CapHard
	case "", "advisory":
		return maternity.CapAdvisory
	default:
		// Left as-is so Validate reports it.
		return maternity.CapMode(s)
	}
}

func parseBand(bj AbortionBandJSON, invalid func(string, string, ...any) error) (maternity.AbortionBand, error) {
	band := maternity.AbortionBand{
		ID:               bj.ID,
		MinGestationDays: bj.MinGestationDays,
		MaxGestationDays: bj.MaxGestationDays,
		Ectopic:          bj.Ectopic,
		Description:      bj.Description,
	}
	hasRange := bj.MinLeaveDays != nil || bj.MaxLeaveDays != nil
	switch {
	case bj.LeaveDays != nil && hasRange:
		return band, invalid(bj.ID, "band sets both leave_days and a leave day range")
	case bj.LeaveDays != nil:
		band.Leave = maternity.FixedDays(*bj.LeaveDays)
	case bj.MinLeaveDays != nil && bj.MaxLeaveDays != nil:
		band.Leave = maternity.RangeDays{Min: *bj.MinLeaveDays, Max: *bj.MaxLeaveDays}
	case hasRange:
		return band, invalid(bj.ID, "a leave day range needs both min_leave_days and max_leave_days")
	default:
		return band, invalid(bj.ID, "band sets neither leave_days nor a leave day range")
	}
	return band, nil
}

func (f *PolicyFactory) parseAllowance(aj AllowanceJSON, invalid func(string, string, ...any) error) (*maternity.AllowancePolicy, error) {
	a := &maternity.AllowancePolicy{
		Numerator:   aj.Numerator,
		Denominator: aj.Denominator,
		Compensation: maternity.CompensationRule{
			Mode: maternity.CompensationMode(aj.Compensation.Mode),
		},
	}
	if a.Compensation.Mode == "" {
		a.Compensation.Mode = maternity.CompensateNever
	}
	if aj.DayDivisor != nil {
		a.DayDivisor = aj.DayDivisor.Decimal
	}
	for _, sb := range aj.SalaryBases {
		source := maternity.FundingSource(sb.Source)
		if source != maternity.FundingGovernment && source != maternity.FundingEmployer {
			return nil, invalid("", "salary base %s: unknown funding source %q", sb.Name, sb.Source)
		}
		a.SalaryBases = append(a.SalaryBases, maternity.SalaryBase{Name: sb.Name, Source: source, Description: sb.Description})
	}
	for _, cj := range aj.Compensation.Conditions {
		if f.CEL != nil && cj.Expression != "" {
			if err := f.CEL.Check(cj.Expression); err != nil {
				return nil, invalid("", "condition %s: %v", cj.ID, err)
			}
		}
		a.Compensation.Conditions = append(a.Compensation.Conditions, maternity.Condition{
			ID:          cj.ID,
			Description: cj.Description,
			Expression:  cj.Expression,
		})
	}
	return a, nil
}

// LoadPoliciesFile reads a YAML policy seed file.
func (f *PolicyFactory) LoadPoliciesFile(path string) ([]*maternity.RegionPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return f.ParsePoliciesYAML(data)
}
