/*
schedule.go - Fixed due-date schedules

PURPOSE:
  A fixed due-date schedule caps due dates at fixed limits: an ordered list
  of (from, to, dueDateLimit) entries. Resolution uses the single entry
  whose [from, to] range contains the lookup instant; the first match wins.
*/
package policy

import "time"

// ScheduleEntry is one (from, to, dueDateLimit) triple. From and To are
// instants; To is expected to already sit at the inclusive end of its range
// (end of day for date-granularity schedules).
type ScheduleEntry struct {
	From         time.Time
	To           time.Time
	DueDateLimit time.Time
}

// ContainsInstant reports whether t falls within [From, To].
func (e ScheduleEntry) ContainsInstant(t time.Time) bool {
	return !t.Before(e.From) && !t.After(e.To)
}

// FixedDueDateSchedule is an ordered list of due-date-limit entries.
type FixedDueDateSchedule struct {
	ID      ID
	Name    string
	Entries []ScheduleEntry
}

// DueDateFor returns the limit of the first entry containing the lookup
// instant, if any.
func (s FixedDueDateSchedule) DueDateFor(t time.Time) (time.Time, bool) {
	for _, entry := range s.Entries {
		if entry.ContainsInstant(t) {
			return entry.DueDateLimit, true
		}
	}
	return time.Time{}, false
}

// IsEmpty reports whether the schedule has no entries.
func (s FixedDueDateSchedule) IsEmpty() bool {
	return len(s.Entries) == 0
}
