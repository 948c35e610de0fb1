/*
Package generic provides the region- and domain-agnostic building blocks of
the leave engine.

PURPOSE:
  This package contains the types and algorithms that do not depend on any
  particular leave policy: day-granular time points, periods, the working
  day calendar and its special-date overrides, money rounding, and the
  error taxonomy shared by every layer.

KEY CONCEPTS IN THIS FILE (types.go):
  - RegionCode:   City/region identifier a policy is written for ("beijing")
  - CalendarCode: Public-holiday calendar identifier ("CN")
  - Money:        decimal helpers; all currency math stays in decimal.Decimal

DESIGN PRINCIPLES:
  1. Precision: Money uses decimal.Decimal, rounding happens once at the end
  2. Determinism: Same inputs always give byte-identical outputs
  3. Fail closed: Missing calendar data is an error, never "all days work"

SEE ALSO:
  - time.go: TimePoint and the special-date lookup
  - calendar.go: Leave range resolution
  - errors.go: Error taxonomy
*/
package generic

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RegionCode string

// NormalizeRegion lower-cases and trims a region code so "Beijing " and
// "beijing" address the same policy.
func NormalizeRegion(s string) RegionCode {
	return RegionCode(strings.ToLower(strings.TrimSpace(s)))
}

type CalendarCode string

// NormalizeCalendar upper-cases a calendar code ("cn" -> "CN").
func NormalizeCalendar(s string) CalendarCode {
	return CalendarCode(strings.ToUpper(strings.TrimSpace(s)))
}

const DefaultCalendar CalendarCode = "CN"

// =============================================================================
// MONEY
// =============================================================================

// MoneyPlaces is the number of decimal places every reported amount carries.
const MoneyPlaces = 2

// RoundMoney rounds half-up (away from zero) to two decimal places.
// Callers must only apply it to final figures.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FormatMoney renders an amount with exactly two decimal places.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}
