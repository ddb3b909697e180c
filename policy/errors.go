/*
errors.go - Error types for due-date resolution

PURPOSE:
  All policy-level error types in one place. A resolution failure is always
  surfaced as a validation failure naming the loan policy, never as a
  partially adjusted date.

ERROR CATEGORIES:
  1. Absent timetable - no open day/interval in the fetched window
  2. Configuration errors - unrecognized strategy, malformed schedule
  3. Validation wrapper - carries policy identity to the caller

USAGE:
  if errors.Is(err, policy.ErrAbsentTimetable) { ... }

  var verr *policy.ValidationError
  if errors.As(err, &verr) { ... verr.PolicyID ... }
*/
package policy

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAbsentTimetable is returned when no open day or interval can be
	// found in the available opening-hours window for the selected
	// strategy. It reflects bad calendar data or policy configuration and
	// is never retried.
	ErrAbsentTimetable = errors.New("no open day or interval in the opening hours window")

	// ErrPolicyNotFound is returned when a referenced loan policy doesn't
	// exist in the store.
	ErrPolicyNotFound = errors.New("loan policy not found")

	// ErrScheduleNotFound is returned when a referenced fixed due date
	// schedule doesn't exist in the store.
	ErrScheduleNotFound = errors.New("fixed due date schedule not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnknownStrategyError is returned for an unrecognized due-date-management
// configuration value.
type UnknownStrategyError struct {
	Value string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown closed library due date management %q", e.Value)
}

// ValidationError is a policy-level failure surfaced to the caller as a
// "could not check out/renew under this policy" style message. It names the
// offending policy.
type ValidationError struct {
	PolicyID   ID
	PolicyName string
	Err        error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("loan policy %s (%s): %v", e.PolicyName, e.PolicyID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationFailure wraps err with the identity of the policy it violated.
// Already-wrapped errors pass through unchanged.
func ValidationFailure(p LoanPolicy, err error) error {
	var existing *ValidationError
	if errors.As(err, &existing) {
		return err
	}
	return &ValidationError{PolicyID: p.ID, PolicyName: p.Name, Err: err}
}
