package maternity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/maternity-engine/generic"
	"github.com/warp/maternity-engine/maternity"
)

func TestPresets_Valid(t *testing.T) {
	for _, p := range maternity.Presets() {
		assert.NoError(t, p.Validate(), p.Region)
	}
}

func TestRegionPolicy_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *maternity.RegionPolicy)
		reason string
	}{
		{"missing region", func(p *maternity.RegionPolicy) { p.Region = "" }, "region is required"},
		{"missing effective date", func(p *maternity.RegionPolicy) { p.EffectiveDate = generic.TimePoint{} }, "effective date is required"},
		{"expiry before effective", func(p *maternity.RegionPolicy) {
			exp := p.EffectiveDate
			p.ExpiryDate = &exp
		}, "must be after effective date"},
		{"duplicate rule id", func(p *maternity.RegionPolicy) { p.Dystocia.ID = p.Statutory.ID }, "duplicate rule id"},
		{"negative statutory", func(p *maternity.RegionPolicy) { p.Statutory.LeaveDays = -1 }, "negative leave days"},
		{"cap below leave", func(p *maternity.RegionPolicy) {
			limit := 90
			p.Statutory.MaxLeaveDays = &limit
		}, "below leave days"},
		{"bad cap mode", func(p *maternity.RegionPolicy) { p.Statutory.CapMode = "soft" }, "unknown cap mode"},
		{"negative sub-type days", func(p *maternity.RegionPolicy) {
			p.Dystocia.SubTypeDays = map[maternity.DystociaType]int{maternity.DystociaForceps: -1}
		}, "negative days for sub-type"},
		{"bad activation", func(p *maternity.RegionPolicy) { p.Extensions[0].Activation.Kind = "sometimes" }, "unknown activation"},
		{"overlapping bands", func(p *maternity.RegionPolicy) { p.Abortion[1].MinGestationDays = 50 }, "overlaps abortion-under-2m"},
		{"inverted band", func(p *maternity.RegionPolicy) { p.Abortion[2].MaxGestationDays = 100 }, "gestation band"},
		{"inverted range", func(p *maternity.RegionPolicy) {
			p.Abortion[0].Leave = maternity.RangeDays{Min: 30, Max: 15}
		}, "leave range [30, 15]"},
		{"band without leave", func(p *maternity.RegionPolicy) { p.Abortion[0].Leave = nil }, "band has no leave days"},
		{"zero denominator", func(p *maternity.RegionPolicy) { p.Allowance.Denominator = 0 }, "funding ratio"},
		{"conditional without conditions", func(p *maternity.RegionPolicy) {
			p.Allowance.Compensation = maternity.CompensationRule{Mode: maternity.CompensateConditional}
		}, "at least one condition"},
		{"unknown compensation mode", func(p *maternity.RegionPolicy) { p.Allowance.Compensation.Mode = "sometimes" }, "unknown compensation mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := maternity.BeijingPolicy()
			tt.mutate(p)

			err := p.Validate()
			assert.ErrorIs(t, err, generic.ErrInvalidPolicy)
			assert.ErrorContains(t, err, tt.reason)
		})
	}
}

func TestRegionPolicy_EctopicBandMayOverlapNonEctopic(t *testing.T) {
	// The ectopic band spans the non-ectopic stages; the flag separates them.
	p := maternity.BeijingPolicy()
	require.NoError(t, p.Validate())
	assert.Len(t, p.MatchingBands(90, false), 1)
	assert.Len(t, p.MatchingBands(90, true), 1)
	assert.Empty(t, p.MatchingBands(250, false))
}

func TestRegionPolicy_EffectiveOn(t *testing.T) {
	p := maternity.BeijingPolicy()
	p.EffectiveDate = day(2025, time.January, 1)
	exp := day(2026, time.January, 1)
	p.ExpiryDate = &exp

	assert.False(t, p.EffectiveOn(day(2024, time.December, 31)))
	assert.True(t, p.EffectiveOn(day(2025, time.January, 1)))
	assert.True(t, p.EffectiveOn(day(2025, time.December, 31)))
	assert.False(t, p.EffectiveOn(day(2026, time.January, 1)), "expiry is exclusive")
}

func TestRegionPolicy_Rules(t *testing.T) {
	p := maternity.BeijingPolicy()
	var kinds []maternity.RuleKind
	for _, r := range p.Rules() {
		kinds = append(kinds, r.Kind())
	}
	assert.Equal(t, []maternity.RuleKind{
		maternity.KindStatutory, maternity.KindDystocia, maternity.KindMultipleInfant,
		maternity.KindAbortion, maternity.KindAbortion, maternity.KindAbortion, maternity.KindAbortion,
		maternity.KindOtherExtension,
	}, kinds)
}

func TestRegionPolicy_Calendar(t *testing.T) {
	p := maternity.BeijingPolicy()
	p.CalendarCode = ""
	assert.Equal(t, generic.DefaultCalendar, p.Calendar())
	p.CalendarCode = "HK"
	assert.Equal(t, generic.CalendarCode("HK"), p.Calendar())
}

func TestRegionPolicy_Clone(t *testing.T) {
	// GIVEN: The Guangzhou preset, which carries a cap, sub-type days and bands
	// WHEN: Mutating every nested field of its clone
	// THEN: The original is unchanged

	p := maternity.GuangzhouPolicy()
	c := p.Clone()
	require.Equal(t, p, c)

	c.Dystocia.SubTypeDays[maternity.DystociaCaesarean] = 1
	*c.Statutory.MaxLeaveDays = 1
	c.Abortion[0].ID = "changed"
	c.Allowance.SalaryBases[0].Name = "changed"

	assert.Equal(t, maternity.GuangzhouPolicy(), p)
}
