package circulation_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/circulation-engine/calendar"
	"github.com/warp/circulation-engine/circulation"
	"github.com/warp/circulation-engine/policy"
	"github.com/warp/circulation-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const servicePoint = "sp-main-desk"

func newService(calendars circulation.CalendarRepository) *circulation.DueDateService {
	return circulation.NewDueDateService(calendars, zerolog.Nop())
}

// openAround records all-day-open records for the three days around each
// given date, so any strategy finds an open requested day.
func openAround(store *memory.Store, dates ...calendar.Date) {
	for _, date := range dates {
		for _, d := range []calendar.Date{date.AddDays(-1), date, date.AddDays(1)} {
			store.PutOpeningDay(servicePoint, calendar.AllDayOpen(d))
		}
	}
}

func rollingPolicy(m policy.DueDateManagement) policy.LoanPolicy {
	return policy.LoanPolicy{
		ID:                "policy-rolling",
		Name:              "Three Week Rolling",
		DueDateManagement: m,
		Zone:              time.UTC,
	}
}

func basicLoan(dueDate, loanDate time.Time) circulation.Loan {
	return circulation.Loan{
		ID:                     "loan-1",
		DueDate:                dueDate,
		LoanDate:               loanDate,
		CheckoutServicePointID: servicePoint,
	}
}

func utc(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

// countingCalendar wraps a repository and counts lookups, optionally
// failing every call.
type countingCalendar struct {
	inner circulation.CalendarRepository
	err   error
	calls int
}

func (c *countingCalendar) AdjacentOpeningDays(ctx context.Context, date calendar.Date, servicePointID string) (calendar.AdjacentOpeningDays, error) {
	c.calls++
	if c.err != nil {
		return calendar.AdjacentOpeningDays{}, c.err
	}
	return c.inner.AdjacentOpeningDays(ctx, date, servicePointID)
}

// =============================================================================
// PIPELINE - HAPPY PATH
// =============================================================================

func TestResolve_AdjustsToEndOfOpenDay(t *testing.T) {
	store := memory.New()
	raw := utc(2026, time.March, 3, 11, 0)
	openAround(store, calendar.NewDate(2026, time.March, 3))

	adjusted, err := newService(store).Resolve(context.Background(),
		basicLoan(raw, utc(2026, time.February, 10, 9, 0)),
		rollingPolicy(policy.EndOfNextOpenDay), false, time.Now())
	require.NoError(t, err)

	assert.Equal(t, utc(2026, time.March, 3, 23, 59).Add(59*time.Second), adjusted.DueDate)
	assert.Equal(t, raw, adjusted.RawDueDate)
	assert.True(t, adjusted.Changed)
	assert.True(t, adjusted.ShiftHours.IsPositive())
}

func TestResolve_KeepCurrentPassesThrough(t *testing.T) {
	// No opening-day records at all: every day reads closed, and
	// KEEP_CURRENT still returns the raw date untouched.
	store := memory.New()
	raw := utc(2026, time.March, 3, 11, 30)

	adjusted, err := newService(store).Resolve(context.Background(),
		basicLoan(raw, utc(2026, time.February, 10, 9, 0)),
		rollingPolicy(policy.KeepCurrent), false, time.Now())
	require.NoError(t, err)

	assert.Equal(t, raw, adjusted.DueDate)
	assert.False(t, adjusted.Changed)
	assert.True(t, adjusted.ShiftHours.IsZero())
}

// =============================================================================
// PIPELINE - FAILURES
// =============================================================================

func TestResolve_AbsentTimetableNamesPolicy(t *testing.T) {
	// Scenario: requested, previous and next day all closed.
	store := memory.New()
	raw := utc(2026, time.March, 3, 11, 0)

	_, err := newService(store).Resolve(context.Background(),
		basicLoan(raw, utc(2026, time.February, 10, 9, 0)),
		rollingPolicy(policy.EndOfNextOpenDay), false, time.Now())
	require.Error(t, err)

	assert.ErrorIs(t, err, policy.ErrAbsentTimetable)
	var verr *policy.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, policy.ID("policy-rolling"), verr.PolicyID)
	assert.Equal(t, "Three Week Rolling", verr.PolicyName)
}

func TestResolve_CalendarFetchFailurePropagates(t *testing.T) {
	fetchErr := errors.New("calendar storage unavailable")
	calendars := &countingCalendar{err: fetchErr}

	_, err := newService(calendars).Resolve(context.Background(),
		basicLoan(utc(2026, time.March, 3, 11, 0), utc(2026, time.February, 10, 9, 0)),
		rollingPolicy(policy.EndOfNextOpenDay), false, time.Now())

	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, 1, calendars.calls, "pipeline must stop at the first failure")
}

func TestResolve_StrategyFailureSkipsLaterStages(t *testing.T) {
	// All days closed, so the strategy fails; the schedule and expiration
	// ceilings must never fetch.
	store := memory.New()
	calendars := &countingCalendar{inner: store}

	p := rollingPolicy(policy.EndOfNextOpenDay)
	p.Schedule = &policy.FixedDueDateSchedule{
		Entries: []policy.ScheduleEntry{{
			From:         utc(2026, time.January, 1, 0, 0),
			To:           utc(2026, time.December, 31, 23, 59),
			DueDateLimit: utc(2026, time.February, 1, 23, 59),
		}},
	}
	expiration := utc(2026, time.February, 15, 0, 0)
	loan := basicLoan(utc(2026, time.March, 3, 11, 0), utc(2026, time.January, 10, 9, 0))
	loan.User = &circulation.User{ID: "user-1", ExpirationDate: &expiration}

	_, err := newService(calendars).Resolve(context.Background(), loan, p, false, time.Now())

	assert.ErrorIs(t, err, policy.ErrAbsentTimetable)
	assert.Equal(t, 1, calendars.calls)
}

// =============================================================================
// SCHEDULE CEILING
// =============================================================================

func TestResolve_ScheduleCeilingClamps(t *testing.T) {
	// Scenario: adjusted due date's local date is after the fixed schedule
	// limit, so the limit's closed-library-adjusted end wins.
	store := memory.New()
	openAround(store,
		calendar.NewDate(2026, time.May, 20),
		calendar.NewDate(2026, time.May, 8),
	)

	p := rollingPolicy(policy.EndOfNextOpenDay)
	p.Schedule = &policy.FixedDueDateSchedule{
		ID:   "schedule-term",
		Name: "Spring Term",
		Entries: []policy.ScheduleEntry{{
			From:         utc(2026, time.January, 12, 0, 0),
			To:           utc(2026, time.May, 8, 23, 59),
			DueDateLimit: utc(2026, time.May, 8, 23, 59),
		}},
	}

	calendars := &countingCalendar{inner: store}
	adjusted, err := newService(calendars).Resolve(context.Background(),
		basicLoan(utc(2026, time.May, 20, 10, 0), utc(2026, time.February, 1, 9, 0)),
		p, false, time.Now())
	require.NoError(t, err)

	assert.Equal(t, utc(2026, time.May, 8, 23, 59).Add(59*time.Second), adjusted.DueDate)
	assert.Equal(t, 2, calendars.calls, "clamping fetches a second window around the limit date")
}

func TestResolve_ScheduleCeilingComparesLocalDates(t *testing.T) {
	// The adjusted date and the limit share a local date; time of day is
	// ignored, so no clamp happens even though the instant is later.
	store := memory.New()
	openAround(store, calendar.NewDate(2026, time.May, 8))

	p := rollingPolicy(policy.EndOfNextOpenDay)
	p.Schedule = &policy.FixedDueDateSchedule{
		Entries: []policy.ScheduleEntry{{
			From:         utc(2026, time.January, 12, 0, 0),
			To:           utc(2026, time.May, 8, 23, 59),
			DueDateLimit: utc(2026, time.May, 8, 12, 0),
		}},
	}

	calendars := &countingCalendar{inner: store}
	adjusted, err := newService(calendars).Resolve(context.Background(),
		basicLoan(utc(2026, time.May, 8, 10, 0), utc(2026, time.February, 1, 9, 0)),
		p, false, time.Now())
	require.NoError(t, err)

	assert.Equal(t, utc(2026, time.May, 8, 23, 59).Add(59*time.Second), adjusted.DueDate)
	assert.Equal(t, 1, calendars.calls, "no second fetch when the limit does not bind")
}

func TestResolve_NoScheduleEntryPassesThrough(t *testing.T) {
	store := memory.New()
	openAround(store, calendar.NewDate(2026, time.March, 3))

	p := rollingPolicy(policy.EndOfNextOpenDay)
	p.Schedule = &policy.FixedDueDateSchedule{
		Entries: []policy.ScheduleEntry{{
			From:         utc(2027, time.January, 1, 0, 0),
			To:           utc(2027, time.June, 30, 23, 59),
			DueDateLimit: utc(2027, time.June, 30, 23, 59),
		}},
	}

	adjusted, err := newService(store).Resolve(context.Background(),
		basicLoan(utc(2026, time.March, 3, 11, 0), utc(2026, time.February, 10, 9, 0)),
		p, false, time.Now())
	require.NoError(t, err)
	assert.Equal(t, utc(2026, time.March, 3, 23, 59).Add(59*time.Second), adjusted.DueDate)
}

// =============================================================================
// PATRON-EXPIRATION CEILING
// =============================================================================

func TestResolve_PatronExpirationOverridesScheduleResult(t *testing.T) {
	// Scenario: the user expires before even the schedule-clamped due
	// date; the expiration-anchored adjustment wins.
	store := memory.New()
	openAround(store,
		calendar.NewDate(2026, time.May, 20),
		calendar.NewDate(2026, time.May, 8),
		calendar.NewDate(2026, time.May, 5),
	)

	p := rollingPolicy(policy.EndOfNextOpenDay)
	p.Schedule = &policy.FixedDueDateSchedule{
		Entries: []policy.ScheduleEntry{{
			From:         utc(2026, time.January, 12, 0, 0),
			To:           utc(2026, time.May, 8, 23, 59),
			DueDateLimit: utc(2026, time.May, 8, 23, 59),
		}},
	}

	expiration := utc(2026, time.May, 5, 12, 0)
	loan := basicLoan(utc(2026, time.May, 20, 10, 0), utc(2026, time.February, 1, 9, 0))
	loan.User = &circulation.User{ID: "user-1", ExpirationDate: &expiration}

	calendars := &countingCalendar{inner: store}
	adjusted, err := newService(calendars).Resolve(context.Background(), loan, p, false, time.Now())
	require.NoError(t, err)

	assert.Equal(t, utc(2026, time.May, 5, 23, 59).Add(59*time.Second), adjusted.DueDate)
	assert.Equal(t, 3, calendars.calls)
}

func TestResolve_ExpirationComparedByInstantNotLocalDate(t *testing.T) {
	store := memory.New()
	openAround(store, calendar.NewDate(2026, time.March, 3))

	// Same local date as the adjusted due date but an earlier instant, so
	// truncation applies.
	expiration := utc(2026, time.March, 3, 8, 0)
	loan := basicLoan(utc(2026, time.March, 3, 11, 0), utc(2026, time.February, 10, 9, 0))
	loan.User = &circulation.User{ID: "user-1", ExpirationDate: &expiration}

	adjusted, err := newService(store).Resolve(context.Background(), loan,
		rollingPolicy(policy.EndOfNextOpenDay), false, time.Now())
	require.NoError(t, err)

	// The truncation strategy anchors at the expiration date; the
	// expiration day is open, so it resolves to that day's end.
	assert.Equal(t, utc(2026, time.March, 3, 23, 59).Add(59*time.Second), adjusted.DueDate)
}

func TestResolve_LaterExpirationLeavesDueDate(t *testing.T) {
	store := memory.New()
	openAround(store, calendar.NewDate(2026, time.March, 3))

	expiration := utc(2026, time.June, 1, 0, 0)
	loan := basicLoan(utc(2026, time.March, 3, 11, 0), utc(2026, time.February, 10, 9, 0))
	loan.User = &circulation.User{ID: "user-1", ExpirationDate: &expiration}

	calendars := &countingCalendar{inner: store}
	adjusted, err := newService(calendars).Resolve(context.Background(), loan,
		rollingPolicy(policy.EndOfNextOpenDay), false, time.Now())
	require.NoError(t, err)

	assert.Equal(t, utc(2026, time.March, 3, 23, 59).Add(59*time.Second), adjusted.DueDate)
	assert.Equal(t, 1, calendars.calls, "no expiration fetch when the ceiling does not bind")
}

func TestResolve_KeepCurrentStillTruncatesToExpiration(t *testing.T) {
	// KEEP_CURRENT ignores closures, but an expired patron's loan is still
	// truncated, using the end-of-previous-open-day fallback.
	store := memory.New()
	openAround(store, calendar.NewDate(2026, time.March, 1))

	expiration := utc(2026, time.March, 1, 10, 0)
	loan := basicLoan(utc(2026, time.March, 10, 11, 0), utc(2026, time.February, 10, 9, 0))
	loan.User = &circulation.User{ID: "user-1", ExpirationDate: &expiration}

	adjusted, err := newService(store).Resolve(context.Background(), loan,
		rollingPolicy(policy.KeepCurrent), false, time.Now())
	require.NoError(t, err)

	assert.Equal(t, utc(2026, time.March, 1, 23, 59).Add(59*time.Second), adjusted.DueDate)
}
