package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/maternity-engine/api"
	"github.com/warp/maternity-engine/factory"
	"github.com/warp/maternity-engine/generic"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "leavecalc", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"calculate", "validate", "presets", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leavecalc dev")
}

func TestCalculate_Text(t *testing.T) {
	// GIVEN: A Shanghai caesarean case with salaries
	// WHEN: Calculating with the built-in presets and CN calendar
	// THEN: The report shows the delayed end date and the payout

	out, err := run(t, "calculate", "testdata/shanghai_caesarean.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "Leave:      113 days, calendar days, holiday delay")
	assert.Contains(t, out, "Dates:      2025-06-10 to 2025-10-09")
	assert.Contains(t, out, "sh-dystocia")
	assert.Contains(t, out, "Allowance:    30133.33")
	assert.Contains(t, out, "Compensation: 7533.33 (conditional)")
	assert.Contains(t, out, "Total payout: 37666.66")
}

func TestCalculate_JSON(t *testing.T) {
	out, err := run(t, "calculate", "testdata/shanghai_caesarean.yaml", "--format", "json")
	require.NoError(t, err)

	var dto api.CalculationDTO
	require.NoError(t, json.Unmarshal([]byte(out), &dto))
	assert.Equal(t, 113, dto.TotalDays)
	assert.Equal(t, "2025-10-09", dto.EndDate)
	require.NotNil(t, dto.Allowance)
	assert.Equal(t, "37666.66", dto.Allowance.TotalPayout)
}

func TestCalculate_CustomPoliciesAndCalendar(t *testing.T) {
	out, err := run(t, "calculate", "testdata/chengdu_normal.yaml", "--policies", "testdata/chengdu_policies.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Leave:      158 days, calendar days")
	assert.Contains(t, out, "Allowance:    31600.00")
	assert.Contains(t, out, "Total payout: 31600.00")

	// A calendar with nothing in the window leaves only weekends: October 1st
	// 2025 is a Wednesday.
	out, err = run(t, "calculate", "testdata/shanghai_caesarean.yaml", "--calendar", "testdata/no_holidays.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Dates:      2025-06-10 to 2025-10-01")
	assert.Contains(t, out, "Note: calendar CN has no special dates between 2025-06-10 and")
}

func TestCalculate_Errors(t *testing.T) {
	_, err := run(t, "calculate", "testdata/missing.yaml")
	assert.ErrorContains(t, err, "failed to read case file")

	// Chengdu is not a preset.
	_, err = run(t, "calculate", "testdata/chengdu_normal.yaml")
	assert.ErrorIs(t, err, generic.ErrNotFound)

	_, err = run(t, "calculate", "testdata/shanghai_caesarean.yaml", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, "calculate")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", "testdata/chengdu_policies.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "ok  chengdu version 1 effective 2025-01-01")

	dup := filepath.Join(t.TempDir(), "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte(`policies:
  - {region: a, effective_date: "2025-01-01", statutory: {id: s, leave_days: 98, calendar_days: true}}
  - {region: a, effective_date: "2025-01-01", statutory: {id: s, leave_days: 98, calendar_days: true}}
`), 0o600))
	_, err = run(t, "validate", dup)
	assert.ErrorIs(t, err, generic.ErrImmutablePolicy)
}

func TestPresetsCommand(t *testing.T) {
	// The printed presets are a valid policy file.
	out, err := run(t, "presets")
	require.NoError(t, err)
	assert.Contains(t, out, "region: beijing")

	policies, err := factory.NewPolicyFactory().ParsePoliciesYAML([]byte(out))
	require.NoError(t, err)
	assert.Len(t, policies, 3)
}
