/*
Package policy provides loan-policy configuration and the closed-library
due-date strategies.

PURPOSE:
  A loan policy decides what happens when a naively computed due date lands
  while the lending service point is closed. This package holds the policy
  value type, the five-strategy due-date-management enum, the fixed
  due-date-limit schedule, and the strategy implementations themselves.

KEY CONCEPTS IN THIS FILE (policy.go):
  - LoanPolicy: Policy identity, zone, strategy selection, optional schedule
  - DueDateManagement: The five-variant strategy enum

DESIGN PRINCIPLES:
  1. Flat dispatch: strategies are a fixed variant set behind one interface,
     selected once per resolution by a pure mapping from the enum.
  2. Zones live on the policy: all local-date math for a loan happens in the
     policy's zone.

SEE ALSO:
  - strategy.go: Strategy implementations and determination
  - schedule.go: FixedDueDateSchedule
  - errors.go: Sentinel and validation error types
*/
package policy

import "time"

// =============================================================================
// DUE DATE MANAGEMENT - Closed-library strategy selection
// =============================================================================

// DueDateManagement selects how a due date is shifted out of a closed
// period. Configured per loan policy, immutable for one resolution.
type DueDateManagement string

const (
	KeepCurrent              DueDateManagement = "KEEP_CURRENT"
	EndOfPreviousOpenDay     DueDateManagement = "END_OF_PREVIOUS_OPEN_DAY"
	EndOfNextOpenDay         DueDateManagement = "END_OF_NEXT_OPEN_DAY"
	EndOfCurrentHours        DueDateManagement = "END_OF_CURRENT_HOURS"
	BeginningOfNextOpenHours DueDateManagement = "BEGINNING_OF_NEXT_OPEN_HOURS"
)

// ParseDueDateManagement validates a raw configuration value.
func ParseDueDateManagement(s string) (DueDateManagement, error) {
	switch m := DueDateManagement(s); m {
	case KeepCurrent, EndOfPreviousOpenDay, EndOfNextOpenDay,
		EndOfCurrentHours, BeginningOfNextOpenHours:
		return m, nil
	default:
		return "", &UnknownStrategyError{Value: s}
	}
}

// =============================================================================
// LOAN POLICY
// =============================================================================

type ID string

// LoanPolicy carries the due-date-management configuration for one loan.
// The raw due date itself is computed upstream; this policy only governs
// how that date is adjusted around closures.
type LoanPolicy struct {
	ID                ID
	Name              string
	DueDateManagement DueDateManagement

	// Zone is the policy's timezone. Local-date comparisons (schedule
	// ceiling, end-of-day anchoring) happen here.
	Zone *time.Location

	// Schedule optionally caps due dates at fixed limits. Nil when the
	// policy defines none.
	Schedule *FixedDueDateSchedule
}

// ScheduleLimit returns the applicable due-date limit for this loan, if the
// policy defines a schedule and an entry matches. Renewals look up by the
// current instant, checkouts by the loan date.
func (p LoanPolicy) ScheduleLimit(loanDate time.Time, isRenewal bool, now time.Time) (time.Time, bool) {
	if p.Schedule == nil {
		return time.Time{}, false
	}
	lookup := loanDate
	if isRenewal {
		lookup = now
	}
	return p.Schedule.DueDateFor(lookup)
}
