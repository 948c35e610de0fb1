package factory

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/warp/maternity-engine/generic"
)

// =============================================================================
// SPECIAL DATE DOCUMENTS
// =============================================================================

//go:embed defaults/calendar_cn.yaml
var defaultCalendarYAML []byte

// SpecialDateJSON is the document form of a generic.SpecialDate.
type SpecialDateJSON struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty"`
	CalendarCode string `json:"calendar_code,omitempty" yaml:"calendar_code,omitempty"`
	Date         string `json:"date" yaml:"date"`
	Kind         string `json:"kind" yaml:"kind"`
	Label        string `json:"label,omitempty" yaml:"label,omitempty"`
}

// CalendarFileYAML is a special-date import file. Entries without their own
// calendar_code inherit the file's.
type CalendarFileYAML struct {
	CalendarCode string            `yaml:"calendar_code"`
	Dates        []SpecialDateJSON `yaml:"dates"`
}

// ToSpecialDate validates and converts one entry. fallback is used when the
// entry names no calendar.
func (sj SpecialDateJSON) ToSpecialDate(fallback generic.CalendarCode) (generic.SpecialDate, error) {
	date, err := generic.ParseTimePoint(sj.Date)
	if err != nil {
		return generic.SpecialDate{}, fmt.Errorf("special date %q: %w", sj.Date, err)
	}
	kind := generic.SpecialDateKind(sj.Kind)
	if !kind.Valid() {
		return generic.SpecialDate{}, fmt.Errorf("special date %s: unknown kind %q", sj.Date, sj.Kind)
	}
	code := fallback
	if sj.CalendarCode != "" {
		code = generic.NormalizeCalendar(sj.CalendarCode)
	}
	if code == "" {
		code = generic.DefaultCalendar
	}
	return generic.SpecialDate{ID: sj.ID, CalendarCode: code, Date: date, Kind: kind, Label: sj.Label}, nil
}

func FromSpecialDate(d generic.SpecialDate) SpecialDateJSON {
	return SpecialDateJSON{
		ID:           d.ID,
		CalendarCode: string(d.CalendarCode),
		Date:         d.Date.String(),
		Kind:         string(d.Kind),
		Label:        d.Label,
	}
}

// ParseSpecialDate parses a single JSON special date.
func ParseSpecialDate(data []byte) (generic.SpecialDate, error) {
	var sj SpecialDateJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return generic.SpecialDate{}, fmt.Errorf("failed to parse special date JSON: %w", err)
	}
	return sj.ToSpecialDate(generic.DefaultCalendar)
}

// ParseSpecialDatesYAML parses a calendar import file. Duplicate dates within
// one calendar are rejected.
func ParseSpecialDatesYAML(data []byte) ([]generic.SpecialDate, error) {
	var file CalendarFileYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse calendar YAML: %w", err)
	}
	fallback := generic.NormalizeCalendar(file.CalendarCode)

	seen := make(map[string]bool, len(file.Dates))
	out := make([]generic.SpecialDate, 0, len(file.Dates))
	for _, sj := range file.Dates {
		d, err := sj.ToSpecialDate(fallback)
		if err != nil {
			return nil, err
		}
		k := string(d.CalendarCode) + "/" + d.Date.String()
		if seen[k] {
			return nil, fmt.Errorf("special date %s listed twice for calendar %s", d.Date, d.CalendarCode)
		}
		seen[k] = true
		out = append(out, d)
	}
	return out, nil
}

// DefaultSpecialDates returns the bundled mainland China holiday schedule.
func DefaultSpecialDates() ([]generic.SpecialDate, error) {
	return ParseSpecialDatesYAML(defaultCalendarYAML)
}

// LoadSpecialDatesFile reads a YAML calendar import file.
func LoadSpecialDatesFile(path string) ([]generic.SpecialDate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar file: %w", err)
	}
	return ParseSpecialDatesYAML(data)
}
