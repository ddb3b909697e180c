/*
resolve.go - The due-date resolution pipeline

PURPOSE:
  Runs the five-stage pipeline for one loan, strictly in order, each stage
  able to short-circuit the rest:

  1. Raw due date -> local date in the policy zone
  2. Fetch AdjacentOpeningDays for that date and service point
  3. Select and run the closed-library strategy
  4. Clamp against the fixed due-date schedule (may refetch + rerun)
  5. Clamp against the patron's account expiration (may refetch + rerun)

FAILURE PROPAGATION:
  The first failing stage aborts the rest; its error is returned verbatim.
  No partial due date is ever returned alongside an error, and nothing is
  retried here - transient-fetch policy belongs to the calendar
  collaborator.

COMPARISON MODES:
  The schedule ceiling compares LOCAL DATES in the policy zone (time of day
  ignored); the patron-expiration ceiling compares exact instants. Keeping
  the two modes separate is what avoids the off-by-one-day class of bug.

CONCURRENCY:
  One logical flow per loan. Every value is immutable and constructed fresh
  per call, so concurrent resolutions need no coordination.
*/
package circulation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/circulation-engine/calendar"
	"github.com/warp/circulation-engine/policy"
)

// =============================================================================
// SERVICE
// =============================================================================

// DueDateService resolves effective due dates against a calendar
// collaborator. Safe for concurrent use.
type DueDateService struct {
	calendars CalendarRepository
	log       zerolog.Logger
}

func NewDueDateService(calendars CalendarRepository, log zerolog.Logger) *DueDateService {
	return &DueDateService{calendars: calendars, log: log}
}

// Resolve computes the effective due date for one loan under the given
// policy. Failures are policy validation errors or calendar fetch errors;
// see the package documentation for the pipeline stages.
func (s *DueDateService) Resolve(ctx context.Context, loan Loan, p policy.LoanPolicy, isRenewal bool, now time.Time) (AdjustedDueDate, error) {
	requestedDate := calendar.DateOf(loan.DueDate, p.Zone)

	days, err := s.calendars.AdjacentOpeningDays(ctx, requestedDate, loan.CheckoutServicePointID)
	if err != nil {
		return AdjustedDueDate{}, err
	}

	dueDate, err := s.applyStrategy(loan, p, days)
	if err != nil {
		return AdjustedDueDate{}, err
	}

	dueDate, err = s.applyScheduleLimit(ctx, dueDate, loan, p, isRenewal, now)
	if err != nil {
		return AdjustedDueDate{}, err
	}

	dueDate, err = s.truncateToPatronExpiration(ctx, dueDate, loan, p)
	if err != nil {
		return AdjustedDueDate{}, err
	}

	result := newAdjustedDueDate(loan.DueDate, dueDate)
	s.log.Debug().
		Str("loan", loan.ID).
		Str("policy", string(p.ID)).
		Time("raw_due_date", result.RawDueDate).
		Time("due_date", result.DueDate).
		Bool("changed", result.Changed).
		Msg("due date resolved")
	return result, nil
}

// =============================================================================
// STAGE 3 - CLOSED-LIBRARY STRATEGY
// =============================================================================

func (s *DueDateService) applyStrategy(loan Loan, p policy.LoanPolicy, days calendar.AdjacentOpeningDays) (time.Time, error) {
	strategy, err := policy.DetermineStrategy(p)
	if err != nil {
		return time.Time{}, err
	}
	dueDate, err := strategy.CalculateDueDate(loan.DueDate, days)
	if err != nil {
		return time.Time{}, policy.ValidationFailure(p, err)
	}
	return dueDate, nil
}

// =============================================================================
// STAGE 4 - SCHEDULE CEILING
// =============================================================================

// applyScheduleLimit clamps the due date against the policy's fixed
// due-date schedule. The comparison is by local date in the policy zone;
// clamping reruns a moving-backward strategy anchored at the limit date,
// against a window fetched around that date.
func (s *DueDateService) applyScheduleLimit(ctx context.Context, dueDate time.Time, loan Loan, p policy.LoanPolicy, isRenewal bool, now time.Time) (time.Time, error) {
	limit, ok := p.ScheduleLimit(loan.LoanDate, isRenewal, now)
	if !ok {
		return dueDate, nil
	}

	limitDate := calendar.DateOf(limit, p.Zone)
	if !calendar.DateOf(dueDate, p.Zone).After(limitDate) {
		return dueDate, nil
	}

	days, err := s.calendars.AdjacentOpeningDays(ctx, limitDate, loan.CheckoutServicePointID)
	if err != nil {
		return time.Time{}, err
	}

	clamped, err := policy.DetermineStrategyForMovingBackward(p).CalculateDueDate(limit, days)
	if err != nil {
		return time.Time{}, policy.ValidationFailure(p, err)
	}
	s.log.Debug().
		Str("loan", loan.ID).
		Time("limit", limit).
		Time("due_date", clamped).
		Msg("due date clamped to fixed schedule limit")
	return clamped, nil
}

// =============================================================================
// STAGE 5 - PATRON-EXPIRATION CEILING
// =============================================================================

// truncateToPatronExpiration caps the due date at the user's account
// expiration. The comparison is by exact instant; truncation reruns the
// policy's truncation strategy anchored at the expiration date, against a
// window fetched around that date.
func (s *DueDateService) truncateToPatronExpiration(ctx context.Context, dueDate time.Time, loan Loan, p policy.LoanPolicy) (time.Time, error) {
	user := loan.User
	if user == nil || user.ExpirationDate == nil || !user.ExpirationDate.Before(dueDate) {
		return dueDate, nil
	}
	expiration := *user.ExpirationDate

	days, err := s.calendars.AdjacentOpeningDays(ctx, calendar.DateOf(expiration, p.Zone), loan.CheckoutServicePointID)
	if err != nil {
		return time.Time{}, err
	}

	strategy, err := policy.DetermineStrategyForTruncatedDueDate(p)
	if err != nil {
		return time.Time{}, err
	}
	truncated, err := strategy.CalculateDueDate(expiration, days)
	if err != nil {
		return time.Time{}, policy.ValidationFailure(p, err)
	}
	s.log.Debug().
		Str("loan", loan.ID).
		Str("user", user.ID).
		Time("expiration", expiration).
		Time("due_date", truncated).
		Msg("due date truncated to patron expiration")
	return truncated, nil
}
