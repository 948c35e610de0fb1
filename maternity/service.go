package maternity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warp/maternity-engine/generic"
)

// PolicyStore returns policy versions. Implementations: store/sqlite and
// generic/store (memory).
type PolicyStore interface {
	// GetPolicy returns the version of region effective on asOf, or a
	// NotFoundError.
	GetPolicy(ctx context.Context, region generic.RegionCode, asOf generic.TimePoint) (*RegionPolicy, error)
}

// Service resolves a case's dependencies (policy version, calendar window)
// and hands them to the pure Engine.
type Service struct {
	Policies PolicyStore
	Calendar generic.SpecialDateStore
	Engine   *Engine
	Logger   *slog.Logger
}

func NewService(policies PolicyStore, calendar generic.SpecialDateStore, engine *Engine, logger *slog.Logger) *Service {
	if engine == nil {
		engine = &Engine{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Policies: policies,
		Calendar: calendar,
		Engine:   engine,
		Logger:   logger.With("component", "maternity"),
	}
}

// Calculate fetches the policy effective on the leave start date and the
// calendar window the case needs, then runs the engine.
func (s *Service) Calculate(ctx context.Context, facts CaseFacts) (*Result, error) {
	log := s.Logger.With("region", facts.Region, "start", facts.LeaveStart.String())

	policy, err := s.Policies.GetPolicy(ctx, facts.Region, facts.LeaveStart)
	if err != nil {
		log.WarnContext(ctx, "policy lookup failed", "error", err)
		return nil, err
	}

	code := policy.Calendar()
	if facts.CalendarCode != "" {
		code = facts.CalendarCode
	}

	// Size the calendar prefetch from the pure part of the pipeline; if it
	// fails, the engine reports the same error before touching the calendar.
	window := generic.CalendarWindow(facts.LeaveStart, EstimateDays(facts, policy))
	calendar, err := generic.PrefetchCalendar(ctx, s.Calendar, code, window)
	if err != nil {
		log.ErrorContext(ctx, "calendar prefetch failed", "calendar", code, "error", err)
		return nil, err
	}

	calc := s.Engine.Run(facts, policy, calendar)
	if calc.Err != nil {
		log.InfoContext(ctx, "calculation failed", "state", calc.State, "error", calc.Err)
		return nil, calc.Err
	}

	res := calc.Result
	if calendar.Len() == 0 && (!res.Counting.CalendarDays || res.Counting.HolidayDelay) {
		note := fmt.Sprintf("calendar %s has no special dates between %s and %s; only weekends were treated as non-working",
			code, window.Start, window.End)
		res.Advisories = append(res.Advisories, note)
		res.Trace = append(res.Trace, "advisory: "+note)
		log.WarnContext(ctx, "calendar window has no special dates", "calendar", code)
	}

	attrs := []any{"policy_version", res.PolicyVersion, "total_days", res.TotalDays, "end", res.Range.End.String()}
	if res.AllowanceErr != nil {
		attrs = append(attrs, "allowance_error", res.AllowanceErr)
	}
	log.InfoContext(ctx, "calculation complete", attrs...)
	return res, nil
}

// EstimateDays runs selection and aggregation only; 0 when they fail.
func EstimateDays(facts CaseFacts, policy *RegionPolicy) int {
	if facts.Validate() != nil {
		return 0
	}
	sel, err := SelectRules(facts, policy)
	if err != nil {
		return 0
	}
	items, err := ResolveRanges(sel.Items, facts, policy.Region)
	if err != nil {
		return 0
	}
	agg, err := Aggregate(items, policy.Region, policy.Statutory)
	if err != nil {
		return 0
	}
	return agg.TotalDays
}
