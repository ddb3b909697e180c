/*
timetable.go - Interval algebra over a three-day opening window

PURPOSE:
  Merges an AdjacentOpeningDays window into a Timetable: a single ordered,
  internally gap-free sequence of alternating open/closed intervals. This is
  what lets hour-granularity due-date strategies reason about partial-day
  opening windows instead of whole-day flags.

ALGORITHM:
  1. Derive the open intervals of each day (closed: none, allDay: the whole
     day, otherwise one interval per opening hour) anchored in the zone.
  2. Concatenate previous/requested/next in order.
  3. Merge abutting open intervals until no merge applies, so two adjacent
     all-day-open days read as one 48h open interval.
  4. Weave a closed interval into every remaining non-empty gap between
     consecutive open intervals.

OUTPUT INVARIANT:
  Intervals are chronologically ordered, non-overlapping, and strictly
  alternate open/closed. A window with no open time yields an empty
  timetable.

SEE ALSO:
  - types.go: OpeningDay / AdjacentOpeningDays
  - policy/strategy.go: EndOfCurrentHours / BeginningOfNextOpenHours
*/
package calendar

import "time"

// =============================================================================
// INTERVAL - Half-open time range with open/closed flag
// =============================================================================

// Interval is a half-open range [Start, End). Invariant: Start < End.
type Interval struct {
	Start time.Time
	End   time.Time
	Open  bool
}

// Contains reports whether t falls within [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Abuts reports whether next begins exactly where this interval ends.
func (i Interval) Abuts(next Interval) bool {
	return i.End.Equal(next.Start)
}

// =============================================================================
// TIMETABLE - Ordered alternating open/closed sequence
// =============================================================================

// Timetable is the merged interval sequence for a three-day window. An empty
// timetable signals a fully closed window.
type Timetable struct {
	Intervals []Interval
}

func (tt Timetable) IsEmpty() bool {
	return len(tt.Intervals) == 0
}

// FindContaining returns the interval containing t, if any.
func (tt Timetable) FindContaining(t time.Time) (Interval, bool) {
	for _, interval := range tt.Intervals {
		if interval.Contains(t) {
			return interval, true
		}
	}
	return Interval{}, false
}

// FirstOpenStartingAt returns the first open interval whose start is
// at-or-after t, if any.
func (tt Timetable) FirstOpenStartingAt(t time.Time) (Interval, bool) {
	for _, interval := range tt.Intervals {
		if interval.Open && !interval.Start.Before(t) {
			return interval, true
		}
	}
	return Interval{}, false
}

// =============================================================================
// BUILDER
// =============================================================================

// BuildTimetable merges the three-day window into a timetable in the given
// zone.
func BuildTimetable(days AdjacentOpeningDays, zone *time.Location) Timetable {
	var open []Interval
	for _, day := range []OpeningDay{days.Previous, days.Requested, days.Next} {
		open = append(open, openIntervalsForDay(day, zone)...)
	}
	if len(open) == 0 {
		return Timetable{}
	}

	merged := mergeAbutting(open)

	// Weave closed intervals into the gaps. Touching intervals were merged
	// above, so every remaining gap is non-empty.
	intervals := make([]Interval, 0, 2*len(merged)-1)
	for i, curr := range merged {
		intervals = append(intervals, curr)
		if i == len(merged)-1 {
			break
		}
		next := merged[i+1]
		if curr.End.Before(next.Start) {
			intervals = append(intervals, Interval{Start: curr.End, End: next.Start, Open: false})
		}
	}
	return Timetable{Intervals: intervals}
}

// openIntervalsForDay derives the open intervals of one day, anchored to the
// day's date in the given zone.
func openIntervalsForDay(day OpeningDay, zone *time.Location) []Interval {
	if !day.Open {
		return nil
	}
	if day.AllDay {
		start := day.Date.StartOfDay(zone)
		return []Interval{{Start: start, End: start.AddDate(0, 0, 1), Open: true}}
	}
	intervals := make([]Interval, 0, len(day.Hours))
	for _, hour := range day.Hours {
		start := day.Date.At(hour.Start, zone)
		end := day.Date.At(hour.End, zone)
		if !start.Before(end) {
			continue
		}
		intervals = append(intervals, Interval{Start: start, End: end, Open: true})
	}
	return intervals
}

// mergeAbutting collapses runs of open intervals that touch end-to-start.
func mergeAbutting(open []Interval) []Interval {
	merged := make([]Interval, 0, len(open))
	for _, interval := range open {
		if n := len(merged); n > 0 && merged[n-1].Abuts(interval) {
			merged[n-1].End = interval.End
			continue
		}
		merged = append(merged, interval)
	}
	return merged
}
