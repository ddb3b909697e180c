/*
strategy.go - Closed-library due-date strategies

PURPOSE:
  Five interchangeable algorithms that shift a due date out of a closed
  period, polymorphic over the ClosedLibraryStrategy interface.

STRATEGY OVERVIEW:
  KeepCurrent:               due date unchanged, closures ignored by policy
  EndOfPreviousOpenDay:      requested day open -> 23:59:59 that day,
                             else previous day open -> 23:59:59 previous day
  EndOfNextOpenDay:          symmetric, looking at the next day
  EndOfCurrentHours:         end of the open interval containing the date
  BeginningOfNextOpenHours:  start of the next open interval

  The day-granularity strategies only consult the three OpeningDay flags.
  The hour-granularity strategies build the merged timetable because they
  must respect partial-day opening windows.

FAILURE MODE:
  Every strategy that needs an open day/interval fails with
  ErrAbsentTimetable when the three-day window offers none.

SEE ALSO:
  - calendar/timetable.go: The interval algebra behind the hour strategies
  - circulation/resolve.go: Pipeline selecting and running strategies
*/
package policy

import (
	"time"

	"github.com/warp/circulation-engine/calendar"
)

// =============================================================================
// CONTRACT
// =============================================================================

// ClosedLibraryStrategy computes an adjusted due date from an opening-hours
// window. Implementations fail with ErrAbsentTimetable when no open day or
// interval can serve the requested date.
type ClosedLibraryStrategy interface {
	CalculateDueDate(requested time.Time, days calendar.AdjacentOpeningDays) (time.Time, error)
}

// =============================================================================
// STRATEGY DETERMINATION - Pure mapping from policy configuration
// =============================================================================

// DetermineStrategy maps a loan policy's configuration to its strategy.
// An unrecognized configuration value is a validation failure naming the
// policy.
func DetermineStrategy(p LoanPolicy) (ClosedLibraryStrategy, error) {
	switch p.DueDateManagement {
	case KeepCurrent:
		return KeepCurrentStrategy{}, nil
	case EndOfPreviousOpenDay:
		return EndOfPreviousOpenDayStrategy{Zone: p.Zone}, nil
	case EndOfNextOpenDay:
		return EndOfNextOpenDayStrategy{Zone: p.Zone}, nil
	case EndOfCurrentHours:
		return EndOfCurrentHoursStrategy{Zone: p.Zone}, nil
	case BeginningOfNextOpenHours:
		return BeginningOfNextOpenHoursStrategy{Zone: p.Zone}, nil
	default:
		return nil, ValidationFailure(p, &UnknownStrategyError{Value: string(p.DueDateManagement)})
	}
}

// DetermineStrategyForMovingBackward maps the policy to the strategy used
// when clamping against a fixed schedule limit: the date may only move
// backward, so everything except KeepCurrent resolves as end of the
// previous open day.
func DetermineStrategyForMovingBackward(p LoanPolicy) ClosedLibraryStrategy {
	if p.DueDateManagement == KeepCurrent {
		return KeepCurrentStrategy{}
	}
	return EndOfPreviousOpenDayStrategy{Zone: p.Zone}
}

// DetermineStrategyForTruncatedDueDate maps the policy to the strategy used
// when truncating to a patron's expiration date. KeepCurrent would leave an
// expired patron's due date standing, so it resolves as end of the previous
// open day; every other configuration keeps its main strategy.
func DetermineStrategyForTruncatedDueDate(p LoanPolicy) (ClosedLibraryStrategy, error) {
	if p.DueDateManagement == KeepCurrent {
		return EndOfPreviousOpenDayStrategy{Zone: p.Zone}, nil
	}
	return DetermineStrategy(p)
}

// =============================================================================
// DAY-GRANULARITY STRATEGIES
// =============================================================================

// KeepCurrentStrategy returns the requested date unchanged.
type KeepCurrentStrategy struct{}

func (KeepCurrentStrategy) CalculateDueDate(requested time.Time, _ calendar.AdjacentOpeningDays) (time.Time, error) {
	return requested, nil
}

// EndOfPreviousOpenDayStrategy moves a due date landing on a closed day back
// to the end of the previous open day.
type EndOfPreviousOpenDayStrategy struct {
	Zone *time.Location
}

func (s EndOfPreviousOpenDayStrategy) CalculateDueDate(requested time.Time, days calendar.AdjacentOpeningDays) (time.Time, error) {
	if days.Requested.Open {
		return atEndOfDay(requested, s.Zone), nil
	}
	if !days.Previous.Open {
		return time.Time{}, ErrAbsentTimetable
	}
	return days.Previous.Date.EndOfDay(s.Zone), nil
}

// EndOfNextOpenDayStrategy moves a due date landing on a closed day forward
// to the end of the next open day.
type EndOfNextOpenDayStrategy struct {
	Zone *time.Location
}

func (s EndOfNextOpenDayStrategy) CalculateDueDate(requested time.Time, days calendar.AdjacentOpeningDays) (time.Time, error) {
	if days.Requested.Open {
		return atEndOfDay(requested, s.Zone), nil
	}
	if !days.Next.Open {
		return time.Time{}, ErrAbsentTimetable
	}
	return days.Next.Date.EndOfDay(s.Zone), nil
}

// =============================================================================
// HOUR-GRANULARITY STRATEGIES
// =============================================================================

// EndOfCurrentHoursStrategy moves the due date to the end of the open
// interval containing it. A date outside any open interval fails; this
// strategy never searches forward past a closed interval.
type EndOfCurrentHoursStrategy struct {
	Zone *time.Location
}

func (s EndOfCurrentHoursStrategy) CalculateDueDate(requested time.Time, days calendar.AdjacentOpeningDays) (time.Time, error) {
	timetable := calendar.BuildTimetable(days, s.Zone)
	interval, found := timetable.FindContaining(requested)
	if !found || !interval.Open {
		return time.Time{}, ErrAbsentTimetable
	}
	return interval.End, nil
}

// BeginningOfNextOpenHoursStrategy moves a due date landing in a closed
// interval forward to the start of the next open interval. A date already
// inside an open interval needs no adjustment.
type BeginningOfNextOpenHoursStrategy struct {
	Zone *time.Location
}

func (s BeginningOfNextOpenHoursStrategy) CalculateDueDate(requested time.Time, days calendar.AdjacentOpeningDays) (time.Time, error) {
	timetable := calendar.BuildTimetable(days, s.Zone)
	if interval, found := timetable.FindContaining(requested); found && interval.Open {
		return requested, nil
	}
	next, found := timetable.FirstOpenStartingAt(requested)
	if !found {
		return time.Time{}, ErrAbsentTimetable
	}
	return next.Start, nil
}

// atEndOfDay pins an instant to 23:59:59 of its local date in zone.
func atEndOfDay(t time.Time, zone *time.Location) time.Time {
	return calendar.DateOf(t, zone).EndOfDay(zone)
}
