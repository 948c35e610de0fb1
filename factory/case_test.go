package factory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/maternity-engine/factory"
	"github.com/warp/maternity-engine/generic"
	"github.com/warp/maternity-engine/maternity"
)

func TestParseCase_JSON(t *testing.T) {
	facts, err := factory.ParseCase([]byte(`{
		"region": "Shanghai",
		"event": "difficult",
		"dystocia_type": "caesarean",
		"leave_start": "2025-06-10",
		"child_sequence": 1,
		"average_salary": 8000,
		"current_salary": "10000.50"
	}`))
	require.NoError(t, err)

	assert.Equal(t, generic.RegionCode("shanghai"), facts.Region)
	assert.Equal(t, maternity.DifficultBirth{SubType: maternity.DystociaCaesarean}, facts.Event)
	assert.Equal(t, generic.NewTimePoint(2025, time.June, 10), facts.LeaveStart)
	require.NotNil(t, facts.AverageSalary)
	assert.Equal(t, "8000", facts.AverageSalary.String())
	assert.Equal(t, "10000.5", facts.CurrentSalary.String())
}

func TestParseCaseYAML(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want maternity.BirthEvent
	}{
		{"normal", "region: beijing\nevent: normal\nleave_start: 2025-03-03\n", maternity.NormalBirth{}},
		{"multiple", "region: beijing\nevent: multiple\ninfant_count: 3\nleave_start: 2025-03-03\n",
			maternity.MultipleBirth{InfantCount: 3}},
		{"multiple difficult", "region: beijing\nevent: multiple\ninfant_count: 2\ndystocia_type: forceps\nleave_start: 2025-03-03\n",
			maternity.MultipleBirth{InfantCount: 2, Difficult: &maternity.DifficultBirth{SubType: maternity.DystociaForceps}}},
		{"abortion", "region: beijing\nevent: abortion\ngestation_days: 45\nchosen_days: 20\nleave_start: 2025-03-03\n",
			maternity.Abortion{GestationDays: 45, ChosenDays: intPtr(20)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts, err := factory.ParseCaseYAML([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, facts.Event)
		})
	}
}

func TestParseCaseYAML_Salary(t *testing.T) {
	facts, err := factory.ParseCaseYAML([]byte("region: beijing\nevent: normal\nleave_start: 2025-03-03\naverage_salary: 12000.50\n"))
	require.NoError(t, err)
	assert.Equal(t, "12000.5", facts.AverageSalary.String())
	assert.Nil(t, facts.CurrentSalary)

	_, err = factory.ParseCaseYAML([]byte("region: beijing\nevent: normal\nleave_start: 2025-03-03\naverage_salary: lots\n"))
	assert.ErrorContains(t, err, "invalid amount")
}

func TestCaseJSON_ToFacts_Rejects(t *testing.T) {
	// GIVEN: Documents mixing fields of different classifications
	// WHEN: Converting to facts
	// THEN: PolicyMismatch naming the offending field

	g := 45
	tests := []struct {
		name  string
		cj    factory.CaseJSON
		field string
	}{
		{"no start", factory.CaseJSON{Region: "beijing", Event: "normal"}, "leave_start"},
		{"bad start", factory.CaseJSON{Region: "beijing", Event: "normal", LeaveStart: "03/03/2025"}, "leave_start"},
		{"no event", factory.CaseJSON{Region: "beijing", LeaveStart: "2025-03-03"}, "event"},
		{"unknown event", factory.CaseJSON{Region: "beijing", Event: "premature", LeaveStart: "2025-03-03"}, "event"},
		{"normal with dystocia", factory.CaseJSON{Region: "beijing", Event: "normal", DystociaType: "forceps", LeaveStart: "2025-03-03"}, "event"},
		{"difficult with infants", factory.CaseJSON{Region: "beijing", Event: "difficult", InfantCount: 2, LeaveStart: "2025-03-03"}, "event"},
		{"multiple with gestation", factory.CaseJSON{Region: "beijing", Event: "multiple", InfantCount: 2, GestationDays: &g, LeaveStart: "2025-03-03"}, "event"},
		{"abortion with infants", factory.CaseJSON{Region: "beijing", Event: "abortion", InfantCount: 1, GestationDays: &g, LeaveStart: "2025-03-03"}, "event"},
		{"abortion without gestation", factory.CaseJSON{Region: "beijing", Event: "abortion", LeaveStart: "2025-03-03"}, "gestation_days"},
		{"negative age", factory.CaseJSON{Region: "beijing", Event: "normal", LeaveStart: "2025-03-03", MotherAge: -1}, "mother_age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cj.ToFacts()
			var mismatch *generic.PolicyMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, tt.field, mismatch.Field)
		})
	}
}

func TestCaseJSON_CalendarOverride(t *testing.T) {
	facts, err := factory.CaseJSON{Region: "beijing", Event: "normal", LeaveStart: "2025-03-03", CalendarCode: "hk"}.ToFacts()
	require.NoError(t, err)
	assert.Equal(t, generic.CalendarCode("HK"), facts.CalendarCode)
}

func intPtr(n int) *int { return &n }
