/*
handlers.go - HTTP API handlers for the maternity leave engine

PURPOSE:
  Exposes the calculation engine and its policy and calendar data via REST
  API. Handles HTTP request/response, JSON serialization, and delegates to
  the maternity service.

ENDPOINTS:
  Calculations:
    POST   /api/calculations             Calculate leave and allowance for a case

  Policies:
    GET    /api/policies                 List all policy versions (?region=)
    POST   /api/policies                 Save a new policy version from JSON
    POST   /api/policies/validate        Check a policy document without saving
    GET    /api/policies/{region}        Version effective today (?as_of=)

  Special dates:
    GET    /api/special-dates            List overrides (?calendar=&from=&to=)
    POST   /api/special-dates            Save one override
    POST   /api/special-dates/import     Import a YAML calendar file
    GET    /api/special-dates/coverage   Years without overrides (?horizon=days)

  Demo:
    GET    /api/scenarios                List demo cases
    POST   /api/scenarios/{id}/run       Calculate a demo case

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Policy versions and special dates
  - Service: Policy/calendar resolution around the pure engine
  - PolicyFactory: JSON to RegionPolicy conversion

ERROR HANDLING:
  Errors are returned as JSON with a hint the client can show:
  - 400: Malformed body or query
  - 404: No policy for the region and date
  - 409: Policy version already exists
  - 422: Case contradicts itself or the policy, or the policy is invalid
  - 503: Calendar data unavailable
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/warp/maternity-engine/factory"
	"github.com/warp/maternity-engine/generic"
	"github.com/warp/maternity-engine/maternity"
)

const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs. Implemented by store/sqlite and
// generic/store.Memory.
type Store interface {
	maternity.PolicyStore
	generic.SpecialDateStore
	SavePolicy(ctx context.Context, p *maternity.RegionPolicy) error
	ListPolicies(ctx context.Context) ([]*maternity.RegionPolicy, error)
	SaveSpecialDates(ctx context.Context, dates []generic.SpecialDate) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         Store
	Service       *maternity.Service
	PolicyFactory *factory.PolicyFactory
	Logger        *slog.Logger

	// now is replaceable in tests.
	now func() generic.TimePoint
}

// NewHandler wires a handler around store. cel may be nil, in which case
// conditional compensation is withheld and expressions are not checked.
func NewHandler(store Store, cel *maternity.CELConditions, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	engine := maternity.NewEngine(maternity.Conditions{CEL: cel})
	return &Handler{
		Store:         store,
		Service:       maternity.NewService(store, store, engine, logger),
		PolicyFactory: &factory.PolicyFactory{CEL: cel},
		Logger:        logger.With("component", "api"),
		now:           generic.Today,
	}
}

// =============================================================================
// CALCULATION ENDPOINTS
// =============================================================================

// Calculate runs one calculation.
// POST /api/calculations
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	facts, err := req.ToFacts()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := h.Service.Calculate(r.Context(), facts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToCalculationDTO(res))
}

// =============================================================================
// POLICY ENDPOINTS
// =============================================================================

// ListPolicies returns every stored version, optionally for one region.
// GET /api/policies
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list policies", err)
		return
	}

	region := r.URL.Query().Get("region")
	dtos := make([]factory.PolicyJSON, 0, len(policies))
	for _, p := range policies {
		if region != "" && p.Region != generic.NormalizeRegion(region) {
			continue
		}
		dtos = append(dtos, h.PolicyFactory.ToJSON(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPolicy returns the version of a region effective on as_of (default today).
// GET /api/policies/{region}
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	region := generic.NormalizeRegion(chi.URLParam(r, "region"))

	asOf := h.now()
	if s := r.URL.Query().Get("as_of"); s != "" {
		tp, err := generic.ParseTimePoint(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid as_of date", err)
			return
		}
		asOf = tp
	}

	p, err := h.Store.GetPolicy(r.Context(), region, asOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(p))
}

// CreatePolicy saves a new policy version.
// POST /api/policies
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", err)
		return
	}

	p, err := h.PolicyFactory.ParsePolicy(string(body))
	if err != nil {
		if errors.Is(err, generic.ErrInvalidPolicy) {
			writeDomainError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid policy document", err)
		return
	}

	if err := h.Store.SavePolicy(r.Context(), p); err != nil {
		writeDomainError(w, err)
		return
	}
	h.Logger.InfoContext(r.Context(), "policy version saved",
		"region", p.Region, "version", p.Version, "effective", p.EffectiveDate.String())
	writeJSON(w, http.StatusCreated, h.PolicyFactory.ToJSON(p))
}

// ValidatePolicy checks a policy document without saving it.
// POST /api/policies/validate
func (h *Handler) ValidatePolicy(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", err)
		return
	}

	p, err := h.PolicyFactory.ParsePolicy(string(body))
	if err != nil {
		writeJSON(w, http.StatusOK, ValidationDTO{Valid: false, Error: err.Error()})
		return
	}
	pj := h.PolicyFactory.ToJSON(p)
	writeJSON(w, http.StatusOK, ValidationDTO{Valid: true, Policy: &pj})
}

// =============================================================================
// SPECIAL DATE ENDPOINTS
// =============================================================================

// ListSpecialDates returns the overrides of a calendar in a date window.
// Defaults: calendar CN, the current calendar year.
// GET /api/special-dates
func (h *Handler) ListSpecialDates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := generic.DefaultCalendar
	if c := q.Get("calendar"); c != "" {
		code = generic.NormalizeCalendar(c)
	}

	today := h.now()
	from := generic.NewTimePoint(today.Year(), time.January, 1)
	to := generic.NewTimePoint(today.Year(), time.December, 31)
	bounds := []struct {
		name string
		dst  *generic.TimePoint
	}{{"from", &from}, {"to", &to}}
	for _, b := range bounds {
		if s := q.Get(b.name); s != "" {
			tp, err := generic.ParseTimePoint(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s date", b.name), err)
				return
			}
			*b.dst = tp
		}
	}

	dates, err := h.Store.SpecialDates(r.Context(), code, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list special dates", err)
		return
	}
	dtos := make([]factory.SpecialDateJSON, 0, len(dates))
	for _, d := range dates {
		dtos = append(dtos, factory.FromSpecialDate(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSpecialDate saves or replaces one override.
// POST /api/special-dates
func (h *Handler) CreateSpecialDate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", err)
		return
	}
	d, err := factory.ParseSpecialDate(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid special date", err)
		return
	}
	if err := h.Store.SaveSpecialDates(r.Context(), []generic.SpecialDate{d}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save special date", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.FromSpecialDate(d))
}

// ImportSpecialDates loads a YAML calendar file in one batch.
// POST /api/special-dates/import
func (h *Handler) ImportSpecialDates(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", err)
		return
	}
	dates, err := factory.ParseSpecialDatesYAML(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar file", err)
		return
	}
	if err := h.Store.SaveSpecialDates(r.Context(), dates); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to import special dates", err)
		return
	}

	seen := make(map[string]bool)
	calendars := []string{}
	for _, d := range dates {
		if !seen[string(d.CalendarCode)] {
			seen[string(d.CalendarCode)] = true
			calendars = append(calendars, string(d.CalendarCode))
		}
	}
	sort.Strings(calendars)
	h.Logger.InfoContext(r.Context(), "special dates imported", "count", len(dates), "calendars", calendars)
	writeJSON(w, http.StatusOK, ImportResultDTO{Imported: len(dates), Calendars: calendars})
}

// SpecialDateCoverage reports calendar years inside the horizon that have
// no overrides for a calendar a policy uses.
// GET /api/special-dates/coverage
func (h *Handler) SpecialDateCoverage(w http.ResponseWriter, r *http.Request) {
	horizon := 365
	if s := r.URL.Query().Get("horizon"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid horizon", err)
			return
		}
		horizon = n
	}

	report, err := CheckCoverage(r.Context(), h.Store, h.now(), horizon)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check coverage", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// HELPERS
// =============================================================================

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps an engine or store error to its status and hint.
func writeDomainError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse(err))
}

func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrImmutablePolicy):
		return http.StatusConflict
	case errors.Is(err, generic.ErrCalendarUnavailable):
		return http.StatusServiceUnavailable
	case generic.IsClientError(err), generic.IsPolicyError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Details: err.Error()}
	switch {
	case generic.IsNotFound(err):
		resp.Error = "no policy for region"
		resp.Hint = "select a valid city policy"
	case errors.Is(err, generic.ErrPolicyMismatch):
		resp.Error = "contradictory case"
		resp.Hint = "choose exactly one birth classification and fill in its fields"
	case errors.Is(err, generic.ErrNoApplicableRule):
		resp.Error = "no abortion band applies"
		resp.Hint = "check the gestational days; the policy has no band for them"
	case errors.Is(err, generic.ErrRangeUnresolved):
		resp.Error = "leave days must be chosen"
		resp.Hint = "enter chosen_days within the range the policy grants"
	case errors.Is(err, generic.ErrInvalidSalaryBase):
		resp.Error = "invalid salary"
		resp.Hint = "enter a positive salary"
	case errors.Is(err, generic.ErrCalendarUnavailable):
		resp.Error = "calendar unavailable"
		resp.Hint = "holiday data is missing for the leave period; try again later or import it"
	case errors.Is(err, generic.ErrImmutablePolicy):
		resp.Error = "policy version exists"
		resp.Hint = "save amendments with a later effective_date"
	case generic.IsPolicyError(err):
		resp.Error = "invalid policy"
		resp.Hint = "the region policy is misconfigured; contact the policy administrator"
	default:
		resp.Error = "internal error"
	}
	return resp
}
