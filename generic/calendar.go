/*
calendar.go - Leave range resolution against a working-day calendar

PURPOSE:
  Turns a start date and a day count into an end date. Leave is counted
  either in calendar days (every day consumes) or in working days (only
  days the calendar marks as worked consume). A holiday-delay rule may then
  push the end date off a non-working day.

COUNTING:
  Days are counted from the day after the start date, so calendar-day
  resolution is exactly Start + N and a working-day walk over a calendar
  where every day is worked gives the same answer.

    calendar days:  end = start + N
    working days:   end = N-th working day after start
    holiday delay:  while end is not worked, end = end + 1

FAIL CLOSED:
  Any lookup error surfaces as CalendarUnavailableError. The resolver never
  assumes a day is worked because the calendar could not answer.
*/
package generic

import (
	"errors"
	"fmt"
)

// maxCalendarWalk bounds the search for a working day so a calendar that
// never reports a working day cannot loop forever.
const maxCalendarWalk = 3660

// DelayedDay is a non-working day the holiday-delay rule stepped over.
type DelayedDay struct {
	Date  TimePoint
	Label string
}

// RangeResolution is the outcome of ResolveRange.
type RangeResolution struct {
	Range    Period
	NaiveEnd TimePoint // end before the holiday-delay adjustment

	// SkippedNonWorking counts non-working days stepped over by the
	// working-day walk (always 0 for calendar-day counting).
	SkippedNonWorking int
	Delayed           []DelayedDay
}

// DelayDays returns how many days the holiday delay added.
func (r RangeResolution) DelayDays() int {
	return DaysBetween(r.NaiveEnd, r.Range.End)
}

// ResolveRange computes the leave range for totalDays starting at start.
// lookup may be nil only for calendar-day counting without holiday delay.
func ResolveRange(start TimePoint, totalDays int, calendarDays, holidayDelay bool, lookup SpecialDateLookup, code CalendarCode) (RangeResolution, error) {
	if totalDays < 0 {
		return RangeResolution{}, &NegativeDaysError{RuleID: "total", Days: totalDays}
	}
	if lookup == nil && (!calendarDays || holidayDelay) {
		return RangeResolution{}, &CalendarUnavailableError{
			CalendarCode: code,
			Date:         start,
			Reason:       "no special-date lookup supplied",
		}
	}

	res := RangeResolution{}
	var end TimePoint
	if calendarDays {
		end = start.AddDays(totalDays)
	} else {
		var err error
		end, res.SkippedNonWorking, err = walkWorkingDays(start, totalDays, lookup, code)
		if err != nil {
			return RangeResolution{}, err
		}
	}
	res.NaiveEnd = end

	if holidayDelay {
		for i := 0; ; i++ {
			if i > maxCalendarWalk {
				return RangeResolution{}, &CalendarUnavailableError{
					CalendarCode: code,
					Date:         res.NaiveEnd,
					Reason:       fmt.Sprintf("no working day within %d days", maxCalendarWalk),
				}
			}
			working, err := lookup.IsWorkingDay(end, code)
			if err != nil {
				return RangeResolution{}, wrapCalendarErr(code, end, err)
			}
			if working {
				break
			}
			label, _, err := lookup.Describe(end, code)
			if err != nil {
				return RangeResolution{}, wrapCalendarErr(code, end, err)
			}
			res.Delayed = append(res.Delayed, DelayedDay{Date: end, Label: label})
			end = end.AddDays(1)
		}
	}

	res.Range = Period{Start: start, End: end}
	return res, nil
}

func walkWorkingDays(start TimePoint, totalDays int, lookup SpecialDateLookup, code CalendarCode) (TimePoint, int, error) {
	current := start
	consumed, skipped, sinceLast := 0, 0, 0
	for consumed < totalDays {
		current = current.AddDays(1)
		working, err := lookup.IsWorkingDay(current, code)
		if err != nil {
			return TimePoint{}, 0, wrapCalendarErr(code, current, err)
		}
		if working {
			consumed++
			sinceLast = 0
			continue
		}
		skipped++
		sinceLast++
		if sinceLast > maxCalendarWalk {
			return TimePoint{}, 0, &CalendarUnavailableError{
				CalendarCode: code,
				Date:         current,
				Reason:       fmt.Sprintf("no working day within %d days", maxCalendarWalk),
			}
		}
	}
	return current, skipped, nil
}

func wrapCalendarErr(code CalendarCode, date TimePoint, err error) error {
	var cu *CalendarUnavailableError
	if errors.As(err, &cu) {
		return cu
	}
	return &CalendarUnavailableError{CalendarCode: code, Date: date, Cause: err}
}
