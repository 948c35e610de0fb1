// Package maternity implements maternity leave and allowance calculation
// on top of the generic engine: case facts, region policy rules, rule
// selection, day aggregation, allowance computation and the orchestrator
// that assembles an auditable result.
package maternity

import (
	"github.com/shopspring/decimal"
	"github.com/warp/maternity-engine/generic"
)

// =============================================================================
// BIRTH EVENT - Exactly one classification per case
// =============================================================================

// Classification names the kind of birth event a case describes.
type Classification string

const (
	ClassNormal    Classification = "normal"
	ClassDifficult Classification = "difficult"
	ClassMultiple  Classification = "multiple"
	ClassAbortion  Classification = "abortion"
)

// BirthEvent is a closed union: NormalBirth, DifficultBirth, MultipleBirth
// or Abortion. Holding one value makes the classifications mutually
// exclusive by construction.
type BirthEvent interface {
	Classification() Classification
	isBirthEvent()
}

// DystociaType is the sub-type of a difficult birth.
type DystociaType string

const (
	DystociaCaesarean DystociaType = "caesarean"
	DystociaForceps   DystociaType = "forceps"
	DystociaBreech    DystociaType = "breech"
	DystociaOther     DystociaType = "other"
)

type NormalBirth struct{}

type DifficultBirth struct {
	SubType DystociaType
}

// MultipleBirth may also be a difficult birth; the dystocia days are then
// itemized separately from the per-infant extension.
type MultipleBirth struct {
	InfantCount int
	Difficult   *DifficultBirth
}

// Abortion covers miscarriage and termination. ChosenDays is the caller's
// pick when the matching band grants a day range instead of a fixed value.
type Abortion struct {
	GestationDays int
	Ectopic       bool
	ChosenDays    *int
}

func (NormalBirth) Classification() Classification    { return ClassNormal }
func (DifficultBirth) Classification() Classification { return ClassDifficult }
func (MultipleBirth) Classification() Classification  { return ClassMultiple }
func (Abortion) Classification() Classification       { return ClassAbortion }

func (NormalBirth) isBirthEvent()    {}
func (DifficultBirth) isBirthEvent() {}
func (MultipleBirth) isBirthEvent()  {}
func (Abortion) isBirthEvent()       {}

// =============================================================================
// CASE FACTS
// =============================================================================

// CaseFacts is the input of one calculation. It is built per request and
// never persisted.
type CaseFacts struct {
	Region generic.RegionCode

	// CalendarCode overrides the policy's calendar when set.
	CalendarCode generic.CalendarCode

	Event         BirthEvent
	LeaveStart    generic.TimePoint
	ChildSequence int // 1 = first child
	MotherAge     int // 0 = unknown

	// Salary inputs are optional; without them only leave days are computed.
	AverageSalary *decimal.Decimal // average contribution-base salary
	CurrentSalary *decimal.Decimal // current/company salary
}

// Validate checks the facts that do not depend on a policy.
func (f CaseFacts) Validate() error {
	if f.Event == nil {
		return &generic.PolicyMismatchError{Region: f.Region, Field: "event", Value: nil, Reason: "a birth event classification is required"}
	}
	if f.LeaveStart.IsZero() {
		return &generic.PolicyMismatchError{Region: f.Region, Field: "leave_start", Value: "", Reason: "leave start date is required"}
	}
	if f.ChildSequence < 0 {
		return &generic.PolicyMismatchError{Region: f.Region, Field: "child_sequence", Value: f.ChildSequence, Reason: "must not be negative"}
	}
	if f.MotherAge < 0 {
		return &generic.PolicyMismatchError{Region: f.Region, Field: "mother_age", Value: f.MotherAge, Reason: "must not be negative"}
	}
	return nil
}

func (f CaseFacts) isBirth() bool {
	_, abortion := f.Event.(Abortion)
	return !abortion
}
