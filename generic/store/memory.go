// Package store provides in-memory store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/maternity-engine/generic"
	"github.com/warp/maternity-engine/maternity"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	policies map[generic.RegionCode][]*maternity.RegionPolicy // sorted by EffectiveDate
	dates    map[key]generic.SpecialDate

	// Unavailable makes every calendar read fail, to exercise fail-closed paths.
	Unavailable error
}

type key struct {
	Code generic.CalendarCode
	Date string
}

func NewMemory() *Memory {
	return &Memory{
		policies: make(map[generic.RegionCode][]*maternity.RegionPolicy),
		dates:    make(map[key]generic.SpecialDate),
	}
}

// SavePolicy stores a copy of a policy version. A version with the same
// effective date is immutable and may not be replaced.
func (m *Memory) SavePolicy(_ context.Context, p *maternity.RegionPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.policies[p.Region]
	for _, v := range versions {
		if v.EffectiveDate.Equal(p.EffectiveDate) {
			return generic.ErrImmutablePolicy
		}
	}

	// Binary search for insertion point
	i := sort.Search(len(versions), func(i int) bool {
		return versions[i].EffectiveDate.After(p.EffectiveDate)
	})
	versions = append(versions, nil)
	copy(versions[i+1:], versions[i:])
	versions[i] = p.Clone()
	m.policies[p.Region] = versions
	return nil
}

// GetPolicy returns the latest version effective on asOf.
func (m *Memory) GetPolicy(_ context.Context, region generic.RegionCode, asOf generic.TimePoint) (*maternity.RegionPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions := m.policies[region]
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].EffectiveOn(asOf) {
			return versions[i].Clone(), nil
		}
	}
	return nil, &generic.NotFoundError{Region: region, AsOf: asOf}
}

// ListPolicies returns copies of every stored version, grouped by region.
func (m *Memory) ListPolicies(_ context.Context) ([]*maternity.RegionPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	regions := make([]string, 0, len(m.policies))
	for r := range m.policies {
		regions = append(regions, string(r))
	}
	sort.Strings(regions)

	var out []*maternity.RegionPolicy
	for _, r := range regions {
		for _, p := range m.policies[generic.RegionCode(r)] {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (m *Memory) CountPolicies(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, versions := range m.policies {
		n += len(versions)
	}
	return n, nil
}

func (m *Memory) SaveSpecialDate(ctx context.Context, d generic.SpecialDate) error {
	return m.SaveSpecialDates(ctx, []generic.SpecialDate{d})
}

// SaveSpecialDates stores a batch; nothing is stored if any entry is invalid.
func (m *Memory) SaveSpecialDates(_ context.Context, dates []generic.SpecialDate) error {
	for _, d := range dates {
		if !d.Kind.Valid() {
			return fmt.Errorf("special date %s: unknown kind %q", d.Date, d.Kind)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range dates {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		m.dates[key{Code: d.CalendarCode, Date: d.Date.String()}] = d
	}
	return nil
}

func (m *Memory) SpecialDates(_ context.Context, code generic.CalendarCode, from, to generic.TimePoint) ([]generic.SpecialDate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Unavailable != nil {
		return nil, m.Unavailable
	}

	var out []generic.SpecialDate
	for k, d := range m.dates {
		if k.Code == code && from.BeforeOrEqual(d.Date) && d.Date.BeforeOrEqual(to) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) HasCalendar(_ context.Context, code generic.CalendarCode) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Unavailable != nil {
		return false, m.Unavailable
	}
	for k := range m.dates {
		if k.Code == code {
			return true, nil
		}
	}
	return false, nil
}

var (
	_ maternity.PolicyStore    = (*Memory)(nil)
	_ generic.SpecialDateStore = (*Memory)(nil)
)
