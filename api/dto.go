/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - Money rendered as fixed two-place strings
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Calculation:
    CalculationRequest (factory.CaseJSON), CalculationDTO, ContributionDTO,
    AllowanceDTO

  Policy:
    factory.PolicyJSON is used as-is, ValidationDTO

  Calendar:
    factory.SpecialDateJSON is used as-is, ImportResultDTO

MONEY:
  Amounts are strings with exactly two decimals ("26133.33") so clients
  never parse currency through a float.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/case.go: CaseJSON type
*/
package api

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/maternity-engine/factory"
	"github.com/warp/maternity-engine/generic"
	"github.com/warp/maternity-engine/maternity"
)

// =============================================================================
// CALCULATION
// =============================================================================

// CalculationRequest is the body of POST /api/calculations.
type CalculationRequest = factory.CaseJSON

type CalculationDTO struct {
	Region          string `json:"region"`
	PolicyName      string `json:"policy_name"`
	PolicyVersion   int    `json:"policy_version"`
	PolicyEffective string `json:"policy_effective"`
	Classification  string `json:"classification"`
	CalendarCode    string `json:"calendar_code"`

	TotalDays    int               `json:"total_days"`
	Items        []ContributionDTO `json:"items"`
	Counting     string            `json:"counting"`
	StartDate    string            `json:"start_date"`
	EndDate      string            `json:"end_date"`
	NaiveEndDate string            `json:"naive_end_date"`
	Delayed      []DelayedDayDTO   `json:"delayed,omitempty"`

	Allowance      *AllowanceDTO  `json:"allowance,omitempty"`
	AllowanceError *ErrorResponse `json:"allowance_error,omitempty"`

	Advisories []string `json:"advisories,omitempty"`
	Trace      []string `json:"trace"`
}

type ContributionDTO struct {
	RuleID        string `json:"rule_id"`
	Kind          string `json:"kind"`
	Days          int    `json:"days"`
	Justification string `json:"justification"`
}

type DelayedDayDTO struct {
	Date  string `json:"date"`
	Label string `json:"label,omitempty"`
}

type AllowanceDTO struct {
	Allowance        string                   `json:"allowance"`
	Compensation     *string                  `json:"compensation"`
	TotalPayout      string                   `json:"total_payout"`
	AverageSalary    string                   `json:"average_salary"`
	CurrentSalary    *string                  `json:"current_salary,omitempty"`
	Ratio            string                   `json:"ratio"`
	DayDivisor       string                   `json:"day_divisor"`
	CompensationMode string                   `json:"compensation_mode"`
	SalaryBases      []factory.SalaryBaseJSON `json:"salary_bases,omitempty"`
	Notes            []string                 `json:"notes,omitempty"`
}

// ToCalculationDTO renders a result for clients.
func ToCalculationDTO(res *maternity.Result) CalculationDTO {
	dto := CalculationDTO{
		Region:          string(res.Region),
		PolicyName:      res.PolicyName,
		PolicyVersion:   res.PolicyVersion,
		PolicyEffective: res.PolicyEffective.String(),
		Classification:  string(res.Classification),
		CalendarCode:    string(res.CalendarCode),
		TotalDays:       res.TotalDays,
		Items:           make([]ContributionDTO, 0, len(res.Items)),
		Counting:        res.Counting.String(),
		StartDate:       res.Range.Start.String(),
		EndDate:         res.Range.End.String(),
		NaiveEndDate:    res.NaiveEnd.String(),
		Advisories:      res.Advisories,
		Trace:           res.Trace,
	}
	for _, c := range res.Items {
		dto.Items = append(dto.Items, ContributionDTO{
			RuleID:        c.RuleID,
			Kind:          string(c.Kind),
			Days:          c.Days,
			Justification: c.Justification,
		})
	}
	for _, d := range res.Delayed {
		dto.Delayed = append(dto.Delayed, DelayedDayDTO{Date: d.Date.String(), Label: d.Label})
	}
	if res.Allowance != nil {
		dto.Allowance = toAllowanceDTO(res.Allowance)
	}
	if res.AllowanceErr != nil {
		resp := errorResponse(res.AllowanceErr)
		dto.AllowanceError = &resp
	}
	return dto
}

func toAllowanceDTO(a *maternity.AllowanceResult) *AllowanceDTO {
	dto := &AllowanceDTO{
		Allowance:        generic.FormatMoney(a.Allowance),
		Compensation:     moneyPtr(a.Compensation),
		TotalPayout:      generic.FormatMoney(a.TotalPayout),
		AverageSalary:    generic.FormatMoney(a.AverageSalary),
		CurrentSalary:    moneyPtr(a.CurrentSalary),
		Ratio:            fmt.Sprintf("%d/%d", a.Numerator, a.Denominator),
		DayDivisor:       a.DayDivisor.String(),
		CompensationMode: string(a.CompensationMode),
		Notes:            a.Notes,
	}
	for _, sb := range a.SalaryBases {
		dto.SalaryBases = append(dto.SalaryBases, factory.SalaryBaseJSON{
			Name: sb.Name, Source: string(sb.Source), Description: sb.Description,
		})
	}
	return dto
}

func moneyPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := generic.FormatMoney(*d)
	return &s
}

// =============================================================================
// POLICIES AND CALENDAR
// =============================================================================

// ValidationDTO reports whether a policy document would be accepted.
type ValidationDTO struct {
	Valid  bool                `json:"valid"`
	Error  string              `json:"error,omitempty"`
	Policy *factory.PolicyJSON `json:"policy,omitempty"`
}

// ImportResultDTO summarises a special-date import.
type ImportResultDTO struct {
	Imported  int      `json:"imported"`
	Calendars []string `json:"calendars"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}
