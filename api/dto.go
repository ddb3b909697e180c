/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: LoanPolicyJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/circulation-engine/calendar"
	"github.com/warp/circulation-engine/factory"
)

// =============================================================================
// DUE DATE RESOLUTION
// =============================================================================

// ResolveDueDateRequest carries one loan's context for resolution.
type ResolveDueDateRequest struct {
	LoanPolicyID           string     `json:"loanPolicyId"`
	DueDate                time.Time  `json:"dueDate"`
	LoanDate               time.Time  `json:"loanDate"`
	CheckoutServicePointID string     `json:"checkoutServicePointId"`
	IsRenewal              bool       `json:"isRenewal"`
	UserID                 string     `json:"userId,omitempty"`
	UserExpirationDate     *time.Time `json:"userExpirationDate,omitempty"`
}

// ResolveDueDateResponse is the adjusted due date plus its audit shift.
type ResolveDueDateResponse struct {
	ResolutionID string          `json:"resolutionId"`
	DueDate      time.Time       `json:"dueDate"`
	RawDueDate   time.Time       `json:"rawDueDate"`
	Changed      bool            `json:"changed"`
	ShiftHours   decimal.Decimal `json:"shiftHours"`
}

// =============================================================================
// OPENING DAYS
// =============================================================================

// OpeningDayDTO represents one service-point day. Dates are "2006-01-02",
// times "15:04".
type OpeningDayDTO struct {
	Date   string            `json:"date"`
	Open   bool              `json:"open"`
	AllDay bool              `json:"allDay"`
	Hours  []OpeningHourDTO  `json:"openingHour,omitempty"`
}

type OpeningHourDTO struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// PutOpeningDaysRequest replaces/creates opening-day records for a service
// point.
type PutOpeningDaysRequest struct {
	Days []OpeningDayDTO `json:"openingDays"`
}

// =============================================================================
// POLICIES
// =============================================================================

// PolicyDTO represents a loan policy in API responses.
type PolicyDTO struct {
	factory.LoanPolicyJSON
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toOpeningDay(dto OpeningDayDTO) (calendar.OpeningDay, error) {
	date, err := calendar.ParseDate(dto.Date)
	if err != nil {
		return calendar.OpeningDay{}, err
	}
	day := calendar.OpeningDay{Date: date, Open: dto.Open, AllDay: dto.AllDay}
	for _, h := range dto.Hours {
		start, err := calendar.ParseTimeOfDay(h.StartTime)
		if err != nil {
			return calendar.OpeningDay{}, err
		}
		end, err := calendar.ParseTimeOfDay(h.EndTime)
		if err != nil {
			return calendar.OpeningDay{}, err
		}
		day.Hours = append(day.Hours, calendar.NewOpeningHour(start, end))
	}
	return day, nil
}

func toOpeningDayDTO(day calendar.OpeningDay) OpeningDayDTO {
	dto := OpeningDayDTO{
		Date:   day.Date.String(),
		Open:   day.Open,
		AllDay: day.AllDay,
	}
	for _, h := range day.Hours {
		dto.Hours = append(dto.Hours, OpeningHourDTO{
			StartTime: h.Start.String(),
			EndTime:   h.End.String(),
		})
	}
	return dto
}
