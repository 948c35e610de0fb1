/*
store.go - Persistence interfaces for calendar data

PURPOSE:
  The engine never performs I/O during a calculation. Special dates are
  read through SpecialDateStore before the calculation starts and handed
  to the engine as an immutable SpecialDateTable.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - maternity/service.go: PolicyStore (policy versions live with the
    policy types they return)
*/
package generic

import "context"

// SpecialDateStore persists holiday and adjusted-workday overrides.
type SpecialDateStore interface {
	// SpecialDates returns the overrides of calendar code within [from, to],
	// ordered by date.
	SpecialDates(ctx context.Context, code CalendarCode, from, to TimePoint) ([]SpecialDate, error)

	// SaveSpecialDate inserts or replaces the override for (code, date).
	SaveSpecialDate(ctx context.Context, d SpecialDate) error

	// HasCalendar reports whether any override of code is stored.
	HasCalendar(ctx context.Context, code CalendarCode) (bool, error)
}

// PrefetchCalendar loads every override of code inside window into a
// SpecialDateTable. A store failure or a calendar with no stored overrides
// is reported as CalendarUnavailable.
func PrefetchCalendar(ctx context.Context, store SpecialDateStore, code CalendarCode, window Period) (*SpecialDateTable, error) {
	if store == nil {
		return nil, &CalendarUnavailableError{CalendarCode: code, Date: window.Start, Reason: "no calendar store configured"}
	}
	known, err := store.HasCalendar(ctx, code)
	if err != nil {
		return nil, &CalendarUnavailableError{CalendarCode: code, Date: window.Start, Cause: err}
	}
	if !known {
		return nil, &CalendarUnavailableError{CalendarCode: code, Date: window.Start, Reason: "no special dates recorded for calendar"}
	}
	dates, err := store.SpecialDates(ctx, code, window.Start, window.End)
	if err != nil {
		return nil, &CalendarUnavailableError{CalendarCode: code, Date: window.Start, Cause: err}
	}
	return NewSpecialDateTable(code, window, dates), nil
}

// CalendarWindow is the prefetch window needed to resolve totalDays of
// leave from start: working-day counting needs about 7/5 of the days plus
// holidays, and holiday delay a few more.
func CalendarWindow(start TimePoint, totalDays int) Period {
	return Period{Start: start, End: start.AddDays(2*totalDays + 60)}
}
