/*
Package circulation provides the due-date resolution service for loan
checkout and renewal.

PURPOSE:
  Orchestrates one loan's effective due date: fetch the opening-hours window
  around the raw due date, run the policy's closed-library strategy, clamp
  against the fixed due-date schedule, clamp against the patron's account
  expiration, return the final date or the first failure.

KEY CONCEPTS IN THIS FILE (types.go):
  - Loan: The loan context consumed by the resolver
  - User: The borrowing patron (expiration date may be absent)
  - AdjustedDueDate: The resolution result with its audit shift
  - CalendarRepository: The calendar-lookup collaborator

SEE ALSO:
  - resolve.go: The resolution pipeline
  - policy: Strategy selection and schedule types
*/
package circulation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/circulation-engine/calendar"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// CalendarRepository looks up the previous/requested/next opening days for a
// service point. Lookups are I/O and may fail; any failure is terminal for
// the resolution that issued it.
type CalendarRepository interface {
	AdjacentOpeningDays(ctx context.Context, date calendar.Date, servicePointID string) (calendar.AdjacentOpeningDays, error)
}

// =============================================================================
// LOAN CONTEXT
// =============================================================================

// User is the borrowing patron. ExpirationDate is nil when the account does
// not expire.
type User struct {
	ID             string
	ExpirationDate *time.Time
}

// Loan carries the fields the resolver needs: the raw due date produced by
// the upstream loan-period calculation, the loan date, the service point
// whose calendar governs closures, and the borrowing user.
type Loan struct {
	ID                     string
	DueDate                time.Time
	LoanDate               time.Time
	CheckoutServicePointID string
	User                   *User
}

// =============================================================================
// RESULT
// =============================================================================

// AdjustedDueDate is the outcome of a successful resolution. ShiftHours is
// the signed distance from the raw due date, kept as a decimal quantity for
// audit reporting.
type AdjustedDueDate struct {
	DueDate    time.Time
	RawDueDate time.Time
	Changed    bool
	ShiftHours decimal.Decimal
}

func newAdjustedDueDate(raw, final time.Time) AdjustedDueDate {
	return AdjustedDueDate{
		DueDate:    final,
		RawDueDate: raw,
		Changed:    !final.Equal(raw),
		ShiftHours: decimal.NewFromFloat(final.Sub(raw).Hours()).Round(2),
	}
}
