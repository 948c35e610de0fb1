/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists region policy versions and calendar special dates so the
  service can resolve "the policy effective on this date" and pre-fetch
  the holiday window a calculation needs. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  maternity.PolicyStore:    Effective-dated policy lookup
  generic.SpecialDateStore: Holiday and make-up workday overrides

IMMUTABLE VERSIONS:
  A policy version is identified by (region, effective_date) and is never
  updated in place. Amendments are saved as a new version with a later
  effective date; a calculation always sees the rules that were in force
  on its leave start date.

KEY TABLES:
  policies:      One row per policy version, rules stored as JSON
  special_dates: Per-calendar overrides of the weekday/weekend default

INDEXES:
  - idx_policies_region_effective: Version lookup (hot path), also unique
  - idx_special_dates_code_date:   Window pre-fetch, also unique

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/maternity.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := maternity.NewService(store, store, engine, logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: SpecialDateStore and calendar pre-fetch
  - generic/store/memory.go: In-memory implementation for testing
  - factory/policy.go: The JSON form stored in config_json
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/warp/maternity-engine/factory"
	"github.com/warp/maternity-engine/generic"
	"github.com/warp/maternity-engine/maternity"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	factory *factory.PolicyFactory
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, factory: factory.NewPolicyFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Policy versions (immutable)
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		region TEXT NOT NULL,
		name TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		expiry_date TEXT,
		version INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_policies_region_effective
		ON policies(region, effective_date);

	-- Calendar overrides
	CREATE TABLE IF NOT EXISTS special_dates (
		id TEXT PRIMARY KEY,
		calendar_code TEXT NOT NULL,
		date TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('holiday', 'workday')),
		label TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_special_dates_code_date
		ON special_dates(calendar_code, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// POLICY STORE IMPLEMENTATION
// =============================================================================

// SavePolicy stores a new policy version. Saving a second version with the
// same region and effective date fails with generic.ErrImmutablePolicy.
func (s *Store) SavePolicy(ctx context.Context, p *maternity.RegionPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	configJSON, err := s.factory.MarshalPolicy(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var expiry sql.NullString
	if p.ExpiryDate != nil {
		expiry = nullString(p.ExpiryDate.String())
	}

	query := `
		INSERT INTO policies (id, region, name, effective_date, expiry_date, version, config_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.NewString(), string(p.Region), p.Name, p.EffectiveDate.String(), expiry,
		p.Version, configJSON, time.Now().UTC().Format(time.RFC3339),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%s version effective %s: %w", p.Region, p.EffectiveDate, generic.ErrImmutablePolicy)
	}
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

// GetPolicy returns the latest version of region effective on asOf.
func (s *Store) GetPolicy(ctx context.Context, region generic.RegionCode, asOf generic.TimePoint) (*maternity.RegionPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT config_json FROM policies
		WHERE region = ? AND effective_date <= ?
		ORDER BY effective_date DESC
	`
	policies, err := s.queryPolicies(ctx, query, string(region), asOf.String())
	if err != nil {
		return nil, err
	}
	for _, p := range policies {
		if p.EffectiveOn(asOf) {
			return p, nil
		}
	}
	return nil, &generic.NotFoundError{Region: region, AsOf: asOf}
}

// ListPolicies returns every stored version ordered by region and date.
func (s *Store) ListPolicies(ctx context.Context) ([]*maternity.RegionPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPolicies(ctx, "SELECT config_json FROM policies ORDER BY region ASC, effective_date ASC")
}

// CountPolicies is used by the server to decide whether to seed presets.
func (s *Store) CountPolicies(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM policies").Scan(&n)
	return n, err
}

func (s *Store) queryPolicies(ctx context.Context, query string, args ...any) ([]*maternity.RegionPolicy, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*maternity.RegionPolicy
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, err
		}
		p, err := s.factory.ParsePolicy(configJSON)
		if err != nil {
			return nil, fmt.Errorf("stored policy is unreadable: %w", err)
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// =============================================================================
// SPECIAL DATE STORE IMPLEMENTATION
// =============================================================================

// SaveSpecialDate inserts or replaces the override for a calendar date.
func (s *Store) SaveSpecialDate(ctx context.Context, d generic.SpecialDate) error {
	if !d.Kind.Valid() {
		return fmt.Errorf("special date %s: unknown kind %q", d.Date, d.Kind)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO special_dates (id, calendar_code, date, kind, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(calendar_code, date) DO UPDATE SET
			kind = excluded.kind,
			label = excluded.label
	`
	_, err := s.db.ExecContext(ctx, query,
		d.ID, string(d.CalendarCode), d.Date.String(), string(d.Kind), nullString(d.Label),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// SaveSpecialDates stores a batch atomically.
func (s *Store) SaveSpecialDates(ctx context.Context, dates []generic.SpecialDate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO special_dates (id, calendar_code, date, kind, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(calendar_code, date) DO UPDATE SET
			kind = excluded.kind,
			label = excluded.label
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, d := range dates {
		if !d.Kind.Valid() {
			return fmt.Errorf("special date %s: unknown kind %q", d.Date, d.Kind)
		}
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, d.ID, string(d.CalendarCode), d.Date.String(),
			string(d.Kind), nullString(d.Label), now); err != nil {
			return fmt.Errorf("failed to save special date %s: %w", d.Date, err)
		}
	}
	return tx.Commit()
}

// SpecialDates returns the overrides of code within [from, to], by date.
func (s *Store) SpecialDates(ctx context.Context, code generic.CalendarCode, from, to generic.TimePoint) ([]generic.SpecialDate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, calendar_code, date, kind, label
		FROM special_dates
		WHERE calendar_code = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(code), from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []generic.SpecialDate
	for rows.Next() {
		var d generic.SpecialDate
		var code, dateStr, kind string
		var label sql.NullString
		if err := rows.Scan(&d.ID, &code, &dateStr, &kind, &label); err != nil {
			return nil, err
		}
		date, err := generic.ParseTimePoint(dateStr)
		if err != nil {
			return nil, fmt.Errorf("stored special date %q: %w", dateStr, err)
		}
		d.CalendarCode = generic.CalendarCode(code)
		d.Date = date
		d.Kind = generic.SpecialDateKind(kind)
		d.Label = label.String
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// HasCalendar reports whether code has at least one stored override.
func (s *Store) HasCalendar(ctx context.Context, code generic.CalendarCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM special_dates WHERE calendar_code = ? LIMIT 1", string(code)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteSpecialDate removes the override for a calendar date, if any.
func (s *Store) DeleteSpecialDate(ctx context.Context, code generic.CalendarCode, date generic.TimePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM special_dates WHERE calendar_code = ? AND date = ?",
		string(code), date.String())
	return err
}

var (
	_ maternity.PolicyStore    = (*Store)(nil)
	_ generic.SpecialDateStore = (*Store)(nil)
)

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
