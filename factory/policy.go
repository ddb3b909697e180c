/*
Package factory provides JSON to Go loan-policy conversion.

PURPOSE:
  Converts JSON loan-policy definitions into policy.LoanPolicy values. This
  enables policy configuration without code changes - library staff can
  define policies in JSON, stored alongside the fixed due-date schedules
  they reference.

JSON SCHEMA:
  {
    "id": "two-week-rolling",
    "name": "Two Week Rolling",
    "closedLibraryDueDateManagement": "END_OF_NEXT_OPEN_DAY",
    "timezone": "America/New_York",
    "fixedDueDateSchedule": {
      "id": "spring-term",
      "name": "Spring Term",
      "schedules": [
        {"from": "2026-01-12", "to": "2026-05-08", "due": "2026-05-08"}
      ]
    }
  }

DATE HANDLING:
  Schedule entry fields accept either RFC 3339 instants or plain dates.
  Plain dates are anchored in the policy's timezone: "from" at start of
  day, "to" and "due" at end of day, making the [from, to] range
  date-inclusive.

KEY FEATURES:
  - Validates the due-date-management enum
  - Resolves the timezone to a time.Location
  - Rejects malformed schedules as validation failures

SEE ALSO:
  - policy: LoanPolicy and FixedDueDateSchedule definitions
  - store/sqlite: Persistence of parsed policies
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/circulation-engine/calendar"
	"github.com/warp/circulation-engine/policy"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LoanPolicyJSON is the JSON representation of a loan policy.
type LoanPolicyJSON struct {
	ID                             string        `json:"id"`
	Name                           string        `json:"name"`
	ClosedLibraryDueDateManagement string        `json:"closedLibraryDueDateManagement"`
	Timezone                       string        `json:"timezone"`
	FixedDueDateSchedule           *ScheduleJSON `json:"fixedDueDateSchedule,omitempty"`
}

// ScheduleJSON represents a fixed due-date schedule.
type ScheduleJSON struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Schedules []ScheduleEntryJSON `json:"schedules"`
}

// ScheduleEntryJSON is one (from, to, due) triple.
type ScheduleEntryJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
	Due  string `json:"due"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON loan policies to Go structs.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParseLoanPolicy parses a JSON string into a LoanPolicy.
func (f *PolicyFactory) ParseLoanPolicy(jsonStr string) (policy.LoanPolicy, error) {
	var pj LoanPolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return policy.LoanPolicy{}, fmt.Errorf("failed to parse loan policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts LoanPolicyJSON to a policy.LoanPolicy.
func (f *PolicyFactory) FromJSON(pj LoanPolicyJSON) (policy.LoanPolicy, error) {
	management, err := policy.ParseDueDateManagement(pj.ClosedLibraryDueDateManagement)
	if err != nil {
		return policy.LoanPolicy{}, fmt.Errorf("loan policy %q: %w", pj.ID, err)
	}

	zone := time.UTC
	if pj.Timezone != "" {
		zone, err = time.LoadLocation(pj.Timezone)
		if err != nil {
			return policy.LoanPolicy{}, fmt.Errorf("loan policy %q: invalid timezone %q: %w", pj.ID, pj.Timezone, err)
		}
	}

	p := policy.LoanPolicy{
		ID:                policy.ID(pj.ID),
		Name:              pj.Name,
		DueDateManagement: management,
		Zone:              zone,
	}

	if pj.FixedDueDateSchedule != nil {
		schedule, err := parseSchedule(*pj.FixedDueDateSchedule, zone)
		if err != nil {
			return policy.LoanPolicy{}, fmt.Errorf("loan policy %q: %w", pj.ID, err)
		}
		p.Schedule = &schedule
	}
	return p, nil
}

// ToJSON converts a LoanPolicy back to its JSON representation.
func (f *PolicyFactory) ToJSON(p policy.LoanPolicy) LoanPolicyJSON {
	pj := LoanPolicyJSON{
		ID:                             string(p.ID),
		Name:                           p.Name,
		ClosedLibraryDueDateManagement: string(p.DueDateManagement),
		Timezone:                       p.Zone.String(),
	}
	if p.Schedule != nil {
		sj := ScheduleJSON{ID: string(p.Schedule.ID), Name: p.Schedule.Name}
		for _, entry := range p.Schedule.Entries {
			sj.Schedules = append(sj.Schedules, ScheduleEntryJSON{
				From: entry.From.Format(time.RFC3339),
				To:   entry.To.Format(time.RFC3339),
				Due:  entry.DueDateLimit.Format(time.RFC3339),
			})
		}
		pj.FixedDueDateSchedule = &sj
	}
	return pj
}

// =============================================================================
// SCHEDULE PARSING
// =============================================================================

func parseSchedule(sj ScheduleJSON, zone *time.Location) (policy.FixedDueDateSchedule, error) {
	schedule := policy.FixedDueDateSchedule{
		ID:   policy.ID(sj.ID),
		Name: sj.Name,
	}
	for i, ej := range sj.Schedules {
		entry, err := parseScheduleEntry(ej, zone)
		if err != nil {
			return policy.FixedDueDateSchedule{}, fmt.Errorf("schedule %q entry %d: %w", sj.ID, i, err)
		}
		schedule.Entries = append(schedule.Entries, entry)
	}
	return schedule, nil
}

func parseScheduleEntry(ej ScheduleEntryJSON, zone *time.Location) (policy.ScheduleEntry, error) {
	from, err := parseScheduleTime(ej.From, zone, false)
	if err != nil {
		return policy.ScheduleEntry{}, fmt.Errorf("from: %w", err)
	}
	to, err := parseScheduleTime(ej.To, zone, true)
	if err != nil {
		return policy.ScheduleEntry{}, fmt.Errorf("to: %w", err)
	}
	due, err := parseScheduleTime(ej.Due, zone, true)
	if err != nil {
		return policy.ScheduleEntry{}, fmt.Errorf("due: %w", err)
	}
	if to.Before(from) {
		return policy.ScheduleEntry{}, fmt.Errorf("range end %s before start %s", ej.To, ej.From)
	}
	return policy.ScheduleEntry{From: from, To: to, DueDateLimit: due}, nil
}

// parseScheduleTime accepts an RFC 3339 instant or a plain date. Plain
// dates anchor at start of day, or end of day for inclusive bounds.
func parseScheduleTime(s string, zone *time.Location, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	date, err := calendar.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 instant or date, got %q", s)
	}
	if endOfDay {
		return date.EndOfDay(zone), nil
	}
	return date.StartOfDay(zone), nil
}
