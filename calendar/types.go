/*
Package calendar provides the opening-hours model for library service points.

PURPOSE:
  This package contains the value types describing when a service point is
  open (a single day's hours, the three-day window around a candidate due
  date) and the timetable algebra that turns that window into an ordered
  open/closed interval sequence.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A civil calendar date with no time-of-day or zone attached
  - TimeOfDay: A local wall-clock time (hour/minute)
  - OpeningHour: One open window within a day (start..end TimeOfDay)
  - OpeningDay: A date plus its open/allDay flags and hour list
  - AdjacentOpeningDays: previous/requested/next days for one service point

DESIGN PRINCIPLES:
  1. Immutability: All values are constructed fresh per resolution and
     never mutated afterwards.
  2. Explicit zones: A Date only becomes an instant when combined with a
     time.Location. Local-date vs instant comparisons stay visible at the
     call site.

SEE ALSO:
  - timetable.go: Interval merging over a three-day window
  - policy/strategy.go: Strategies consuming these types
*/
package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Civil date, zone applied on demand
// =============================================================================

// Date is a calendar date without time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the local date of t in the given zone.
func DateOf(t time.Time, zone *time.Location) Date {
	local := t.In(zone)
	return Date{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// At anchors a wall-clock time to this date in the given zone.
func (d Date) At(tod TimeOfDay, zone *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, tod.Hour, tod.Minute, 0, 0, zone)
}

// StartOfDay returns midnight on this date in the given zone.
func (d Date) StartOfDay(zone *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, zone)
}

// EndOfDay returns 23:59:59 on this date in the given zone.
func (d Date) EndOfDay(zone *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 23, 59, 59, 0, zone)
}

func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) After(other Date) bool { return other.Before(d) }
func (d Date) Equal(other Date) bool { return d == other }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseDate parses a date in "2006-01-02" form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// =============================================================================
// TIME OF DAY - Local wall-clock time
// =============================================================================

// TimeOfDay is a wall-clock time within a day, minute granularity.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

func (t TimeOfDay) Before(other TimeOfDay) bool {
	if t.Hour != other.Hour {
		return t.Hour < other.Hour
	}
	return t.Minute < other.Minute
}

func (t TimeOfDay) After(other TimeOfDay) bool { return other.Before(t) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses a wall-clock time in "15:04" form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// MarshalJSON renders the time as an "HH:MM" string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", t)), nil
}

// UnmarshalJSON parses an "HH:MM" string.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("time of day must be a string, got %s", data)
	}
	parsed, err := ParseTimeOfDay(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// =============================================================================
// OPENING HOUR / OPENING DAY
// =============================================================================

// OpeningHour is one open window within a day. Invariant: Start <= End.
type OpeningHour struct {
	Start TimeOfDay `json:"startTime"`
	End   TimeOfDay `json:"endTime"`
}

func NewOpeningHour(start, end TimeOfDay) OpeningHour {
	return OpeningHour{Start: start, End: end}
}

// OpeningDay describes one service-point day. When Open is false the day
// contributes no open time regardless of AllDay or Hours; when AllDay is
// true the Hours list is ignored and the day is open midnight to midnight.
type OpeningDay struct {
	Date   Date          `json:"date"`
	Open   bool          `json:"open"`
	AllDay bool          `json:"allDay"`
	Hours  []OpeningHour `json:"openingHour,omitempty"`
}

// ClosedDay returns a day with no open time.
func ClosedDay(date Date) OpeningDay {
	return OpeningDay{Date: date, Open: false}
}

// AllDayOpen returns a day open midnight to midnight.
func AllDayOpen(date Date) OpeningDay {
	return OpeningDay{Date: date, Open: true, AllDay: true}
}

// OpenDay returns a day open for the given hour windows.
func OpenDay(date Date, hours ...OpeningHour) OpeningDay {
	return OpeningDay{Date: date, Open: true, Hours: hours}
}

// =============================================================================
// ADJACENT OPENING DAYS - The three-day window around a due date
// =============================================================================

// AdjacentOpeningDays is the previous/requested/next window for one service
// point, anchored on the requested date. Immutable once fetched.
type AdjacentOpeningDays struct {
	Previous  OpeningDay
	Requested OpeningDay
	Next      OpeningDay
}

func NewAdjacentOpeningDays(previous, requested, next OpeningDay) AdjacentOpeningDays {
	return AdjacentOpeningDays{Previous: previous, Requested: requested, Next: next}
}
