/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Persists service-point opening hours, loan policies, and fixed due-date
  schedules, and serves the calendar lookups the due-date resolver needs.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  circulation.CalendarRepository: previous/requested/next opening days

KEY TABLES:
  opening_days:              One row per service point per date
  loan_policies:             Due-date-management configuration
  due_date_schedules:        Fixed due-date schedule headers
  due_date_schedule_entries: Ordered (from, to, limit) triples

CLOSED-DAY FALLBACK:
  A date with no opening_days row is treated as a closed day, so sparse
  calendars behave as "closed unless stated open".

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/circulation.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - circulation/resolve.go: Consumer of the calendar lookups
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/warp/circulation-engine/calendar"
	"github.com/warp/circulation-engine/policy"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrating database")
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
	-- Opening hours, one row per service point per date
	CREATE TABLE IF NOT EXISTS opening_days (
		service_point_id TEXT NOT NULL,
		date TEXT NOT NULL,
		open INTEGER NOT NULL,
		all_day INTEGER NOT NULL,
		hours TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (service_point_id, date)
	);

	-- Fixed due date schedules
	CREATE TABLE IF NOT EXISTS due_date_schedules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS due_date_schedule_entries (
		schedule_id TEXT NOT NULL REFERENCES due_date_schedules(id),
		position INTEGER NOT NULL,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		due_date_limit TEXT NOT NULL,
		PRIMARY KEY (schedule_id, position)
	);

	-- Loan policies (due-date-management configuration only)
	CREATE TABLE IF NOT EXISTS loan_policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		due_date_management TEXT NOT NULL,
		timezone TEXT NOT NULL,
		schedule_id TEXT REFERENCES due_date_schedules(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// OPENING DAYS
// =============================================================================

// PutOpeningDays upserts opening-hour records for a service point.
func (s *Store) PutOpeningDays(ctx context.Context, servicePointID string, days []calendar.OpeningDay) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	for _, day := range days {
		hours, err := json.Marshal(day.Hours)
		if err != nil {
			return errors.Wrap(err, "encoding opening hours")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO opening_days (service_point_id, date, open, all_day, hours)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (service_point_id, date)
			DO UPDATE SET open = excluded.open, all_day = excluded.all_day, hours = excluded.hours`,
			servicePointID, day.Date.String(), day.Open, day.AllDay, string(hours))
		if err != nil {
			return errors.Wrapf(err, "storing opening day %s", day.Date)
		}
	}
	return tx.Commit()
}

// GetOpeningDay returns one day's record. A date with no row is a closed
// day.
func (s *Store) GetOpeningDay(ctx context.Context, servicePointID string, date calendar.Date) (calendar.OpeningDay, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT open, all_day, hours FROM opening_days
		WHERE service_point_id = ? AND date = ?`,
		servicePointID, date.String())

	var open, allDay bool
	var hoursJSON string
	if err := row.Scan(&open, &allDay, &hoursJSON); err != nil {
		if err == sql.ErrNoRows {
			return calendar.ClosedDay(date), nil
		}
		return calendar.OpeningDay{}, errors.Wrapf(err, "looking up opening day %s", date)
	}

	var hours []calendar.OpeningHour
	if err := json.Unmarshal([]byte(hoursJSON), &hours); err != nil {
		return calendar.OpeningDay{}, errors.Wrapf(err, "decoding opening hours for %s", date)
	}
	return calendar.OpeningDay{Date: date, Open: open, AllDay: allDay, Hours: hours}, nil
}

// AdjacentOpeningDays implements circulation.CalendarRepository.
func (s *Store) AdjacentOpeningDays(ctx context.Context, date calendar.Date, servicePointID string) (calendar.AdjacentOpeningDays, error) {
	previous, err := s.GetOpeningDay(ctx, servicePointID, date.AddDays(-1))
	if err != nil {
		return calendar.AdjacentOpeningDays{}, err
	}
	requested, err := s.GetOpeningDay(ctx, servicePointID, date)
	if err != nil {
		return calendar.AdjacentOpeningDays{}, err
	}
	next, err := s.GetOpeningDay(ctx, servicePointID, date.AddDays(1))
	if err != nil {
		return calendar.AdjacentOpeningDays{}, err
	}
	return calendar.NewAdjacentOpeningDays(previous, requested, next), nil
}

// =============================================================================
// FIXED DUE DATE SCHEDULES
// =============================================================================

// CreateSchedule stores a schedule and its entries, generating an id when
// absent. Returns the stored schedule.
func (s *Store) CreateSchedule(ctx context.Context, schedule policy.FixedDueDateSchedule) (policy.FixedDueDateSchedule, error) {
	if schedule.ID == "" {
		schedule.ID = policy.ID(uuid.NewString())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return policy.FixedDueDateSchedule{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO due_date_schedules (id, name) VALUES (?, ?)`,
		string(schedule.ID), schedule.Name)
	if err != nil {
		return policy.FixedDueDateSchedule{}, errors.Wrap(err, "storing schedule")
	}
	for i, entry := range schedule.Entries {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO due_date_schedule_entries
				(schedule_id, position, from_date, to_date, due_date_limit)
			VALUES (?, ?, ?, ?, ?)`,
			string(schedule.ID), i,
			entry.From.Format(time.RFC3339),
			entry.To.Format(time.RFC3339),
			entry.DueDateLimit.Format(time.RFC3339))
		if err != nil {
			return policy.FixedDueDateSchedule{}, errors.Wrapf(err, "storing schedule entry %d", i)
		}
	}
	if err := tx.Commit(); err != nil {
		return policy.FixedDueDateSchedule{}, errors.Wrap(err, "committing schedule")
	}
	return schedule, nil
}

// GetSchedule loads a schedule with its entries in stored order.
func (s *Store) GetSchedule(ctx context.Context, id policy.ID) (policy.FixedDueDateSchedule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name FROM due_date_schedules WHERE id = ?`, string(id))

	schedule := policy.FixedDueDateSchedule{ID: id}
	if err := row.Scan(&schedule.Name); err != nil {
		if err == sql.ErrNoRows {
			return policy.FixedDueDateSchedule{}, policy.ErrScheduleNotFound
		}
		return policy.FixedDueDateSchedule{}, errors.Wrap(err, "looking up schedule")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT from_date, to_date, due_date_limit
		FROM due_date_schedule_entries
		WHERE schedule_id = ? ORDER BY position`, string(id))
	if err != nil {
		return policy.FixedDueDateSchedule{}, errors.Wrap(err, "looking up schedule entries")
	}
	defer rows.Close()

	for rows.Next() {
		var from, to, limit string
		if err := rows.Scan(&from, &to, &limit); err != nil {
			return policy.FixedDueDateSchedule{}, errors.Wrap(err, "scanning schedule entry")
		}
		entry, err := parseScheduleEntry(from, to, limit)
		if err != nil {
			return policy.FixedDueDateSchedule{}, err
		}
		schedule.Entries = append(schedule.Entries, entry)
	}
	return schedule, rows.Err()
}

func parseScheduleEntry(from, to, limit string) (policy.ScheduleEntry, error) {
	var entry policy.ScheduleEntry
	var err error
	if entry.From, err = time.Parse(time.RFC3339, from); err != nil {
		return entry, errors.Wrap(err, "parsing schedule entry from")
	}
	if entry.To, err = time.Parse(time.RFC3339, to); err != nil {
		return entry, errors.Wrap(err, "parsing schedule entry to")
	}
	if entry.DueDateLimit, err = time.Parse(time.RFC3339, limit); err != nil {
		return entry, errors.Wrap(err, "parsing schedule entry limit")
	}
	return entry, nil
}

// =============================================================================
// LOAN POLICIES
// =============================================================================

// CreatePolicy stores a loan policy, generating an id when absent. The
// referenced schedule, if any, must already exist. Returns the stored
// policy.
func (s *Store) CreatePolicy(ctx context.Context, p policy.LoanPolicy) (policy.LoanPolicy, error) {
	if p.ID == "" {
		p.ID = policy.ID(uuid.NewString())
	}

	var scheduleID interface{}
	if p.Schedule != nil {
		scheduleID = string(p.Schedule.ID)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loan_policies (id, name, due_date_management, timezone, schedule_id)
		VALUES (?, ?, ?, ?, ?)`,
		string(p.ID), p.Name, string(p.DueDateManagement), p.Zone.String(), scheduleID)
	if err != nil {
		return policy.LoanPolicy{}, errors.Wrap(err, "storing loan policy")
	}
	return p, nil
}

// GetPolicy loads a loan policy, resolving its timezone and schedule.
func (s *Store) GetPolicy(ctx context.Context, id policy.ID) (policy.LoanPolicy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, due_date_management, timezone, schedule_id
		FROM loan_policies WHERE id = ?`, string(id))

	var name, management, timezone string
	var scheduleID sql.NullString
	if err := row.Scan(&name, &management, &timezone, &scheduleID); err != nil {
		if err == sql.ErrNoRows {
			return policy.LoanPolicy{}, policy.ErrPolicyNotFound
		}
		return policy.LoanPolicy{}, errors.Wrap(err, "looking up loan policy")
	}
	return s.buildPolicy(ctx, id, name, management, timezone, scheduleID)
}

// ListPolicies loads all stored loan policies.
func (s *Store) ListPolicies(ctx context.Context) ([]policy.LoanPolicy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, due_date_management, timezone, schedule_id
		FROM loan_policies ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "listing loan policies")
	}
	defer rows.Close()

	var policies []policy.LoanPolicy
	for rows.Next() {
		var id, name, management, timezone string
		var scheduleID sql.NullString
		if err := rows.Scan(&id, &name, &management, &timezone, &scheduleID); err != nil {
			return nil, errors.Wrap(err, "scanning loan policy")
		}
		p, err := s.buildPolicy(ctx, policy.ID(id), name, management, timezone, scheduleID)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (s *Store) buildPolicy(ctx context.Context, id policy.ID, name, management, timezone string, scheduleID sql.NullString) (policy.LoanPolicy, error) {
	dueDateManagement, err := policy.ParseDueDateManagement(management)
	if err != nil {
		return policy.LoanPolicy{}, errors.Wrapf(err, "loan policy %s", id)
	}
	zone, err := time.LoadLocation(timezone)
	if err != nil {
		return policy.LoanPolicy{}, errors.Wrapf(err, "loan policy %s timezone", id)
	}

	p := policy.LoanPolicy{
		ID:                id,
		Name:              name,
		DueDateManagement: dueDateManagement,
		Zone:              zone,
	}
	if scheduleID.Valid {
		schedule, err := s.GetSchedule(ctx, policy.ID(scheduleID.String))
		if err != nil {
			return policy.LoanPolicy{}, err
		}
		p.Schedule = &schedule
	}
	return p, nil
}
