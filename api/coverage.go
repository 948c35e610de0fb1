/*
coverage.go - Special-date coverage monitor

PURPOSE:
  A calendar with no overrides for a year silently degrades to weekends
  only: National Day and Spring Festival stop delaying end dates. The
  monitor periodically checks, for every calendar referenced by a stored
  policy, that each calendar year inside the look-ahead horizon has at
  least one special date, and logs a warning for every gap.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Checks once immediately on Start
  - GET /api/special-dates/coverage runs the same check on demand

CONFIGURATION:
  - CheckInterval: How often to check (default: 6 hours)
  - Horizon: Look-ahead in days from today (default: 365)

USAGE:
  monitor := NewCoverageMonitor(store, logger)
  monitor.Start()
  defer monitor.Stop()

SEE ALSO:
  - handlers.go: SpecialDateCoverage endpoint
  - generic/store.go: CalendarWindow (what a calculation pre-fetches)
*/
package api

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/warp/maternity-engine/generic"
)

// YearCoverage is the number of overrides a calendar holds for one year.
type YearCoverage struct {
	Year    int `json:"year"`
	Entries int `json:"entries"`
}

type CalendarCoverage struct {
	CalendarCode string         `json:"calendar_code"`
	Years        []YearCoverage `json:"years"`
	Missing      []int          `json:"missing,omitempty"`
}

// CoverageReport is the result of one coverage check.
type CoverageReport struct {
	CheckedAt string             `json:"checked_at"`
	From      string             `json:"from"`
	To        string             `json:"to"`
	Calendars []CalendarCoverage `json:"calendars"`
}

// Complete reports whether no calendar has a missing year.
func (r CoverageReport) Complete() bool {
	for _, c := range r.Calendars {
		if len(c.Missing) > 0 {
			return false
		}
	}
	return true
}

// CheckCoverage inspects the calendars used by stored policies over
// [today, today+horizonDays].
func CheckCoverage(ctx context.Context, store Store, today generic.TimePoint, horizonDays int) (CoverageReport, error) {
	end := today.AddDays(horizonDays)
	report := CoverageReport{
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
		From:      today.String(),
		To:        end.String(),
		Calendars: []CalendarCoverage{},
	}

	policies, err := store.ListPolicies(ctx)
	if err != nil {
		return report, err
	}
	codes := make(map[generic.CalendarCode]bool)
	for _, p := range policies {
		if p.ExpiryDate != nil && !p.ExpiryDate.After(today) {
			continue
		}
		codes[p.Calendar()] = true
	}
	sorted := make([]string, 0, len(codes))
	for c := range codes {
		sorted = append(sorted, string(c))
	}
	sort.Strings(sorted)

	for _, code := range sorted {
		cc := CalendarCoverage{CalendarCode: code}
		for year := today.Year(); year <= end.Year(); year++ {
			from := generic.NewTimePoint(year, time.January, 1)
			to := generic.NewTimePoint(year, time.December, 31)
			dates, err := store.SpecialDates(ctx, generic.CalendarCode(code), from, to)
			if err != nil {
				return report, err
			}
			cc.Years = append(cc.Years, YearCoverage{Year: year, Entries: len(dates)})
			if len(dates) == 0 {
				cc.Missing = append(cc.Missing, year)
			}
		}
		report.Calendars = append(report.Calendars, cc)
	}
	return report, nil
}

// =============================================================================
// MONITOR
// =============================================================================

// CoverageMonitor runs CheckCoverage on a schedule.
type CoverageMonitor struct {
	Store         Store
	Logger        *slog.Logger
	CheckInterval time.Duration
	Horizon       int

	now    func() generic.TimePoint
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewCoverageMonitor(store Store, logger *slog.Logger) *CoverageMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CoverageMonitor{
		Store:         store,
		Logger:        logger.With("component", "coverage"),
		CheckInterval: 6 * time.Hour,
		Horizon:       365,
		now:           generic.Today,
	}
}

// Start begins periodic checks. Calling Start twice is a no-op.
func (m *CoverageMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ticker != nil {
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.run(m.ticker, m.stop)

	m.Logger.Info("coverage monitor started", "interval", m.CheckInterval, "horizon_days", m.Horizon)
}

// Stop halts the monitor and waits for a running check to finish.
func (m *CoverageMonitor) Stop() {
	m.mu.Lock()
	if m.ticker == nil {
		m.mu.Unlock()
		return
	}
	m.ticker.Stop()
	close(m.stop)
	m.ticker = nil
	m.mu.Unlock()

	m.wg.Wait()
	m.Logger.Info("coverage monitor stopped")
}

func (m *CoverageMonitor) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer m.wg.Done()

	m.RunNow(context.Background())
	for {
		select {
		case <-ticker.C:
			m.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one check and logs every gap.
func (m *CoverageMonitor) RunNow(ctx context.Context) (CoverageReport, error) {
	report, err := CheckCoverage(ctx, m.Store, m.now(), m.Horizon)
	if err != nil {
		m.Logger.ErrorContext(ctx, "coverage check failed", "error", err)
		return report, err
	}
	for _, c := range report.Calendars {
		for _, year := range c.Missing {
			m.Logger.WarnContext(ctx, "no special dates for calendar year; end dates will ignore public holidays",
				"calendar", c.CalendarCode, "year", year)
		}
	}
	return report, nil
}
