/*
scenarios.go - Demo cases for testing and demonstrations

PURPOSE:

	Provides ready-made case documents that exercise the preset policies:
	regional extensions, holiday delay, multiple births, the allowance and
	its failure mode. The calculator frontend offers them as examples and
	they double as smoke tests against a seeded store.

AVAILABLE SCENARIOS:

	beijing-normal:         Statutory plus Beijing extension, 128 days
	shanghai-caesarean:     Dystocia days, end date moved past National Day
	guangzhou-triplets:     Two extra infants
	beijing-allowance:      Allowance and employer top-up
	beijing-zero-salary:    Leave computed, allowance rejected
	early-termination:      Abortion band with a chosen day count

USAGE VIA API:

	GET  /api/scenarios
	POST /api/scenarios/{id}/run

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description and case
 2. Make sure the preset or seeded policy for its region covers it

SEE ALSO:
  - handlers.go: Calculate handler (same response)
  - maternity/presets.go: Policies the scenarios assume
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/maternity-engine/factory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// Scenario is a named example case.
type Scenario struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Case        factory.CaseJSON `json:"case"`
}

func amount(s string) *factory.Decimal {
	d := factory.Decimal{}
	if err := d.UnmarshalText([]byte(s)); err != nil {
		panic(err)
	}
	return &d
}

func days(n int) *int { return &n }

var scenarios = []Scenario{
	{
		ID:          "beijing-normal",
		Name:        "Beijing normal birth",
		Description: "98 statutory days plus the 30-day Beijing extension, counted in calendar days",
		Case: factory.CaseJSON{
			Region: "beijing", Event: "normal", LeaveStart: "2025-03-03", ChildSequence: 1,
		},
	},
	{
		ID:          "shanghai-caesarean",
		Name:        "Shanghai caesarean over National Day",
		Description: "113 days ending on October 1st; the end moves past the National Day holiday",
		Case: factory.CaseJSON{
			Region: "shanghai", Event: "difficult", DystociaType: "caesarean", LeaveStart: "2025-06-10", ChildSequence: 1,
		},
	},
	{
		ID:          "guangzhou-triplets",
		Name:        "Guangzhou triplets",
		Description: "98 statutory days plus 2 x 15 days for the additional infants",
		Case: factory.CaseJSON{
			Region: "guangzhou", Event: "multiple", InfantCount: 3, LeaveStart: "2025-03-03", ChildSequence: 1,
		},
	},
	{
		ID:          "beijing-allowance",
		Name:        "Beijing allowance with employer top-up",
		Description: "Average contribution base 8000, salary 10000; the employer pays the difference",
		Case: factory.CaseJSON{
			Region: "beijing", Event: "normal", LeaveStart: "2025-03-03", ChildSequence: 1,
			AverageSalary: amount("8000"), CurrentSalary: amount("10000"),
		},
	},
	{
		ID:          "beijing-zero-salary",
		Name:        "Zero contribution base",
		Description: "Leave days are computed; the allowance is rejected with a salary hint",
		Case: factory.CaseJSON{
			Region: "beijing", Event: "normal", LeaveStart: "2025-03-03", ChildSequence: 1,
			AverageSalary: amount("0"),
		},
	},
	{
		ID:          "early-termination",
		Name:        "Termination under two months",
		Description: "The band grants 15 to 30 days; 20 are chosen",
		Case: factory.CaseJSON{
			Region: "beijing", Event: "abortion", GestationDays: days(45), ChosenDays: days(20), LeaveStart: "2025-03-03",
		},
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the available demo cases.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// RunScenario calculates one demo case against the stored policies.
// POST /api/scenarios/{id}/run
func (h *Handler) RunScenario(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var sc *Scenario
	for i := range scenarios {
		if scenarios[i].ID == id {
			sc = &scenarios[i]
			break
		}
	}
	if sc == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown scenario", Details: id, Hint: "GET /api/scenarios lists the available ids"})
		return
	}

	facts, err := sc.Case.ToFacts()
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
