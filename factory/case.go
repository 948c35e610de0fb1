package factory

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/maternity-engine/generic"
	"github.com/warp/maternity-engine/maternity"
)

// =============================================================================
// DECIMAL - accepts numbers and strings in both JSON and YAML
// =============================================================================

// Decimal wraps decimal.Decimal so amounts can be written as 12000,
// 12000.50 or "12000.50" in either format.
type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	v, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q", node.Line, node.Value)
	}
	d.Decimal = v
	return nil
}

func (d Decimal) MarshalYAML() (any, error) {
	return d.Decimal.String(), nil
}

func decimalPtr(d *Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := d.Decimal
	return &v
}

// =============================================================================
// CASE DOCUMENT
// =============================================================================

// CaseJSON is the document form of maternity.CaseFacts. Event selects the
// classification; fields belonging to another classification are rejected.
type CaseJSON struct {
	Region       string `json:"region" yaml:"region"`
	CalendarCode string `json:"calendar_code,omitempty" yaml:"calendar_code,omitempty"`

	// normal | difficult | multiple | abortion
	Event        string `json:"event" yaml:"event"`
	DystociaType string `json:"dystocia_type,omitempty" yaml:"dystocia_type,omitempty"`
	Difficult    bool   `json:"difficult,omitempty" yaml:"difficult,omitempty"`
	InfantCount  int    `json:"infant_count,omitempty" yaml:"infant_count,omitempty"`

	GestationDays *int `json:"gestation_days,omitempty" yaml:"gestation_days,omitempty"`
	Ectopic       bool `json:"ectopic,omitempty" yaml:"ectopic,omitempty"`
	ChosenDays    *int `json:"chosen_days,omitempty" yaml:"chosen_days,omitempty"`

	LeaveStart    string `json:"leave_start" yaml:"leave_start"`
	ChildSequence int    `json:"child_sequence,omitempty" yaml:"child_sequence,omitempty"`
	MotherAge     int    `json:"mother_age,omitempty" yaml:"mother_age,omitempty"`

	AverageSalary *Decimal `json:"average_salary,omitempty" yaml:"average_salary,omitempty"`
	CurrentSalary *Decimal `json:"current_salary,omitempty" yaml:"current_salary,omitempty"`
}

// ParseCase parses a JSON case document.
func ParseCase(data []byte) (maternity.CaseFacts, error) {
	var cj CaseJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return maternity.CaseFacts{}, fmt.Errorf("failed to parse case JSON: %w", err)
	}
	return cj.ToFacts()
}

// ParseCaseYAML parses a YAML case document.
func ParseCaseYAML(data []byte) (maternity.CaseFacts, error) {
	var cj CaseJSON
	if err := yaml.Unmarshal(data, &cj); err != nil {
		return maternity.CaseFacts{}, fmt.Errorf("failed to parse case YAML: %w", err)
	}
	return cj.ToFacts()
}

// ToFacts builds CaseFacts, rejecting contradictory classification fields.
func (cj CaseJSON) ToFacts() (maternity.CaseFacts, error) {
	region := generic.NormalizeRegion(cj.Region)
	mismatch := func(field string, value any, reason string) error {
		return &generic.PolicyMismatchError{Region: region, Field: field, Value: value, Reason: reason}
	}

	facts := maternity.CaseFacts{
		Region:        region,
		ChildSequence: cj.ChildSequence,
		MotherAge:     cj.MotherAge,
		AverageSalary: decimalPtr(cj.AverageSalary),
		CurrentSalary: decimalPtr(cj.CurrentSalary),
	}
	if cj.CalendarCode != "" {
		facts.CalendarCode = generic.NormalizeCalendar(cj.CalendarCode)
	}
	if cj.LeaveStart == "" {
		return facts, mismatch("leave_start", "", "leave start date is required")
	}
	start, err := generic.ParseTimePoint(cj.LeaveStart)
	if err != nil {
		return facts, mismatch("leave_start", cj.LeaveStart, err.Error())
	}
	facts.LeaveStart = start

	abortionFields := cj.GestationDays != nil || cj.Ectopic || cj.ChosenDays != nil
	switch maternity.Classification(cj.Event) {
	case maternity.ClassNormal:
		if cj.DystociaType != "" || cj.Difficult || cj.InfantCount > 1 || abortionFields {
			return facts, mismatch("event", cj.Event, "a normal birth carries no dystocia, multiple or abortion fields")
		}
		facts.Event = maternity.NormalBirth{}

	case maternity.ClassDifficult:
		if cj.InfantCount > 1 || abortionFields {
			return facts, mismatch("event", cj.Event, "a difficult birth carries no multiple or abortion fields; use event multiple with difficult set")
		}
		facts.Event = maternity.DifficultBirth{SubType: maternity.DystociaType(cj.DystociaType)}

	case maternity.ClassMultiple:
		if abortionFields {
			return facts, mismatch("event", cj.Event, "a multiple birth carries no abortion fields")
		}
		ev := maternity.MultipleBirth{InfantCount: cj.InfantCount}
		if cj.Difficult || cj.DystociaType != "" {
			ev.Difficult = &maternity.DifficultBirth{SubType: maternity.DystociaType(cj.DystociaType)}
		}
		facts.Event = ev

	case maternity.ClassAbortion:
		if cj.DystociaType != "" || cj.Difficult || cj.InfantCount > 0 {
			return facts, mismatch("event", cj.Event, "an abortion carries no birth fields")
		}
		if cj.GestationDays == nil {
			return facts, mismatch("gestation_days", nil, "gestation days are required for an abortion")
		}
		facts.Event = maternity.Abortion{GestationDays: *cj.GestationDays, Ectopic: cj.Ectopic, ChosenDays: cj.ChosenDays}

	case "":
		return facts, mismatch("event", "", "a birth event classification is required")
	default:
		return facts, mismatch("event", cj.Event, "unknown classification")
	}
	return facts, facts.Validate()
}
