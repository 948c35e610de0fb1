package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - Day-granular date (leave is always counted in whole days)
// =============================================================================

type TimePoint struct {
	Time time.Time
}

const DateLayout = "2006-01-02"

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func TimePointOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseTimePoint parses an ISO date (YYYY-MM-DD).
func ParseTimePoint(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return TimePointOf(t), nil
}

func Today() TimePoint {
	return TimePointOf(time.Now())
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.normalize().AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool       { wd := tp.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }
func (tp TimePoint) String() string        { return tp.Time.Format(DateLayout) }

// DaysBetween returns the number of calendar days from `from` to `to`.
func DaysBetween(from, to TimePoint) int { return int(to.normalize().Sub(from.normalize()).Hours() / 24) }

// =============================================================================
// SPECIAL DATES - Holiday and adjusted-workday overrides
// =============================================================================

// SpecialDateKind marks how a special date overrides the Mon-Fri default.
type SpecialDateKind string

const (
	// SpecialHoliday: a public holiday, not a working day even on a weekday.
	SpecialHoliday SpecialDateKind = "holiday"

	// SpecialWorkday: an adjusted working day, worked even on a weekend
	// (the make-up days around Chinese Golden Week, for example).
	SpecialWorkday SpecialDateKind = "workday"
)

func (k SpecialDateKind) Valid() bool {
	return k == SpecialHoliday || k == SpecialWorkday
}

// SpecialDate overrides the default working-day rule for one date.
type SpecialDate struct {
	ID           string
	CalendarCode CalendarCode
	Date         TimePoint
	Kind         SpecialDateKind
	Label        string // e.g., "National Day", "Spring Festival make-up workday"
}

// SpecialDateLookup answers working-day questions for a calendar.
// Implementations must either answer for any date or return an error
// that signals unavailability; they must never guess.
type SpecialDateLookup interface {
	// IsWorkingDay reports whether date is worked under calendar code.
	IsWorkingDay(date TimePoint, code CalendarCode) (bool, error)

	// Describe returns the label of a special date, if any.
	Describe(date TimePoint, code CalendarCode) (string, bool, error)
}

// =============================================================================
// SPECIAL DATE TABLE - Pre-fetched lookup covering a fixed window
// =============================================================================

// SpecialDateTable is an immutable, pre-fetched SpecialDateLookup for one
// calendar over a covered period. Dates outside the coverage are reported
// as unavailable, so a too-small prefetch fails closed.
type SpecialDateTable struct {
	code     CalendarCode
	coverage Period
	dates    map[string]SpecialDate
}

// NewSpecialDateTable builds a table from special dates of one calendar.
// Entries for other calendars or outside the coverage are ignored.
func NewSpecialDateTable(code CalendarCode, coverage Period, dates []SpecialDate) *SpecialDateTable {
	t := &SpecialDateTable{
		code:     code,
		coverage: coverage,
		dates:    make(map[string]SpecialDate, len(dates)),
	}
	for _, d := range dates {
		if d.CalendarCode != code || !coverage.Contains(d.Date) {
			continue
		}
		t.dates[d.Date.String()] = d
	}
	return t
}

func (t *SpecialDateTable) Coverage() Period { return t.coverage }
func (t *SpecialDateTable) Code() CalendarCode { return t.code }
func (t *SpecialDateTable) Len() int { return len(t.dates) }

func (t *SpecialDateTable) check(date TimePoint, code CalendarCode) error {
	if code != t.code {
		return &CalendarUnavailableError{
			CalendarCode: code,
			Date:         date,
			Reason:       fmt.Sprintf("lookup holds calendar %q only", t.code),
		}
	}
	if !t.coverage.Contains(date) {
		return &CalendarUnavailableError{
			CalendarCode: code,
			Date:         date,
			Reason:       "date outside prefetched coverage " + t.coverage.String(),
		}
	}
	return nil
}

// IsWorkingDay: explicit special dates win, otherwise Monday to Friday.
func (t *SpecialDateTable) IsWorkingDay(date TimePoint, code CalendarCode) (bool, error) {
	if err := t.check(date, code); err != nil {
		return false, err
	}
	if sd, ok := t.dates[date.String()]; ok {
		return sd.Kind == SpecialWorkday, nil
	}
	return !date.IsWeekend(), nil
}

func (t *SpecialDateTable) Describe(date TimePoint, code CalendarCode) (string, bool, error) {
	if err := t.check(date, code); err != nil {
		return "", false, err
	}
	if sd, ok := t.dates[date.String()]; ok {
		return sd.Label, true, nil
	}
	if date.IsWeekend() {
		return "weekend", true, nil
	}
	return "", false, nil
}

// Compile-time check
var _ SpecialDateLookup = (*SpecialDateTable)(nil)
