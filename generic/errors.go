/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error kinds in one place for consistency and discoverability. Every
  failure the engine can report is a typed value carrying region, rule and
  offending value, so callers can render a precise message instead of
  parsing strings.

ERROR CATEGORIES:
  1. Case errors    - PolicyMismatch, NoApplicableRule, RangeUnresolved
  2. Policy errors  - NegativeDays, InvalidPolicy, NotFound
  3. Calendar       - CalendarUnavailable
  4. Allowance      - InvalidSalaryBase (degrades, never fails the calculation)

USAGE:
  Sentinels work with errors.Is, structured types with errors.As:

    if errors.Is(err, generic.ErrNoApplicableRule) { ... }

    var nar *generic.NoApplicableRuleError
    if errors.As(err, &nar) {
        fmt.Println(nar.GestationDays)
    }
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPolicyMismatch is returned when the case facts contradict themselves
	// or the policy they are evaluated against.
	ErrPolicyMismatch = errors.New("policy mismatch")

	// ErrNoApplicableRule is returned when no abortion band covers the case.
	ErrNoApplicableRule = errors.New("no applicable rule")

	// ErrNegativeDays is returned when a rule contributes negative leave days.
	ErrNegativeDays = errors.New("negative leave days")

	// ErrCalendarUnavailable is returned when the special-date lookup cannot
	// answer for a date.
	ErrCalendarUnavailable = errors.New("calendar unavailable")

	// ErrInvalidSalaryBase is returned when the salary base is missing or not
	// positive. Leave days stay valid; only the allowance is skipped.
	ErrInvalidSalaryBase = errors.New("invalid salary base")

	// ErrNotFound is returned when no policy is effective for region/date.
	ErrNotFound = errors.New("policy not found")

	// ErrRangeUnresolved is returned when an abortion band grants a day
	// range and the caller did not choose a value inside it.
	ErrRangeUnresolved = errors.New("leave day range unresolved")

	// ErrInvalidPolicy is returned when a policy definition breaks an invariant.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrImmutablePolicy is returned when a stored policy version is rewritten.
	ErrImmutablePolicy = errors.New("policy version is immutable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PolicyMismatchError describes a contradictory case classification.
type PolicyMismatchError struct {
	Region RegionCode
	Field  string
	Value  any
	Reason string
}

func (e *PolicyMismatchError) Error() string {
	return fmt.Sprintf("policy mismatch for %s: %s=%v: %s", e.Region, e.Field, e.Value, e.Reason)
}

func (e *PolicyMismatchError) Unwrap() error { return ErrPolicyMismatch }

// NoApplicableRuleError names the gestational stage no band covers.
type NoApplicableRuleError struct {
	Region        RegionCode
	GestationDays int
	Ectopic       bool
}

func (e *NoApplicableRuleError) Error() string {
	return fmt.Sprintf("no abortion rule in %s covers %d gestational days (ectopic=%t)",
		e.Region, e.GestationDays, e.Ectopic)
}

func (e *NoApplicableRuleError) Unwrap() error { return ErrNoApplicableRule }

// NegativeDaysError points at the rule carrying a negative day count.
type NegativeDaysError struct {
	Region RegionCode
	RuleID string
	Days   int
}

func (e *NegativeDaysError) Error() string {
	return fmt.Sprintf("rule %s in %s contributes negative days: %d", e.RuleID, e.Region, e.Days)
}

func (e *NegativeDaysError) Unwrap() error { return ErrNegativeDays }

// CalendarUnavailableError reports the date the lookup could not answer for.
type CalendarUnavailableError struct {
	CalendarCode CalendarCode
	Date         TimePoint
	Reason       string
	Cause        error
}

func (e *CalendarUnavailableError) Error() string {
	msg := fmt.Sprintf("calendar %s unavailable for %s", e.CalendarCode, e.Date)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *CalendarUnavailableError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrCalendarUnavailable, e.Cause}
	}
	return []error{ErrCalendarUnavailable}
}

// InvalidSalaryBaseError names the salary input that was rejected.
type InvalidSalaryBaseError struct {
	Region RegionCode
	Field  string
	Value  decimal.Decimal
}

func (e *InvalidSalaryBaseError) Error() string {
	return fmt.Sprintf("invalid salary base %s=%s for %s: must be positive", e.Field, e.Value, e.Region)
}

func (e *InvalidSalaryBaseError) Unwrap() error { return ErrInvalidSalaryBase }

// NotFoundError identifies the policy lookup that missed.
type NotFoundError struct {
	Region RegionCode
	AsOf   TimePoint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no policy for region %q effective on %s", e.Region, e.AsOf)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RangeUnresolvedError carries the range the caller must choose from.
type RangeUnresolvedError struct {
	Region RegionCode
	RuleID string
	Min    int
	Max    int
	Chosen *int
}

func (e *RangeUnresolvedError) Error() string {
	if e.Chosen != nil {
		return fmt.Sprintf("rule %s in %s: chosen %d days outside [%d, %d]",
			e.RuleID, e.Region, *e.Chosen, e.Min, e.Max)
	}
	return fmt.Sprintf("rule %s in %s grants [%d, %d] days: a value must be chosen",
		e.RuleID, e.Region, e.Min, e.Max)
}

func (e *RangeUnresolvedError) Unwrap() error { return ErrRangeUnresolved }

// InvalidPolicyError reports a broken policy invariant.
type InvalidPolicyError struct {
	Region RegionCode
	RuleID string
	Reason string
}

func (e *InvalidPolicyError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("invalid policy %s: %s", e.Region, e.Reason)
	}
	return fmt.Sprintf("invalid policy %s, rule %s: %s", e.Region, e.RuleID, e.Reason)
}

func (e *InvalidPolicyError) Unwrap() error { return ErrInvalidPolicy }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the submitted case.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPolicyMismatch) ||
		errors.Is(err, ErrNoApplicableRule) ||
		errors.Is(err, ErrRangeUnresolved) ||
		errors.Is(err, ErrInvalidSalaryBase)
}

// IsPolicyError returns true if the stored policy data is at fault.
func IsPolicyError(err error) bool {
	return errors.Is(err, ErrNegativeDays) || errors.Is(err, ErrInvalidPolicy)
}

// IsNotFound returns true if the error indicates a missing policy.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAllowanceError returns true for errors that only skip the allowance.
func IsAllowanceError(err error) bool {
	return errors.Is(err, ErrInvalidSalaryBase)
}
