package generic

// =============================================================================
// PERIOD - An inclusive date range
// =============================================================================

// Period is the inclusive range [Start, End]. A resolved leave range and the
// coverage window of a prefetched calendar are both Periods.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Valid reports whether End is not before Start.
func (p Period) Valid() bool {
	return p.Start.BeforeOrEqual(p.End)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// CalendarDays is the number of days from Start to End.
func (p Period) CalendarDays() int {
	return DaysBetween(p.Start, p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
