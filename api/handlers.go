/*
handlers.go - HTTP API handlers for the due-date resolution service

PURPOSE:
  Exposes due-date resolution and its supporting calendar/policy management
  via REST API. Handles HTTP request/response, JSON serialization, and
  delegates to domain logic.

ENDPOINTS:
  Resolution:
    POST   /api/due-dates/resolve                     Resolve one loan's due date

  Calendars:
    PUT    /api/service-points/{id}/opening-days      Upsert opening-day records
    GET    /api/service-points/{id}/opening-days/{date} One day's record

  Policies:
    GET    /api/loan-policies                         List loan policies
    POST   /api/loan-policies                         Create from JSON
    GET    /api/loan-policies/{id}                    Get policy

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (resolver, store, factory)
  4. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input
  - 404: Unknown policy / schedule
  - 422: Policy validation failure (absent timetable, bad configuration)
  - 500: Storage errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/circulation-engine/calendar"
	"github.com/warp/circulation-engine/circulation"
	"github.com/warp/circulation-engine/factory"
	"github.com/warp/circulation-engine/policy"
	"github.com/warp/circulation-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	Resolver      *circulation.DueDateService
	PolicyFactory *factory.PolicyFactory
	Log           zerolog.Logger
}

// NewHandler creates a new handler with the given store and resolver.
func NewHandler(store *sqlite.Store, resolver *circulation.DueDateService, log zerolog.Logger) *Handler {
	return &Handler{
		Store:         store,
		Resolver:      resolver,
		PolicyFactory: factory.NewPolicyFactory(),
		Log:           log,
	}
}

// =============================================================================
// RESOLUTION HANDLER
// =============================================================================

// ResolveDueDate resolves one loan's effective due date.
// POST /api/due-dates/resolve
func (h *Handler) ResolveDueDate(w http.ResponseWriter, r *http.Request) {
	var req ResolveDueDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.LoanPolicyID == "" || req.CheckoutServicePointID == "" || req.DueDate.IsZero() {
		writeError(w, http.StatusBadRequest, "loanPolicyId, checkoutServicePointId and dueDate are required", nil)
		return
	}

	p, err := h.Store.GetPolicy(r.Context(), policy.ID(req.LoanPolicyID))
	if err != nil {
		if errors.Is(err, policy.ErrPolicyNotFound) {
			writeError(w, http.StatusNotFound, "loan policy not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load loan policy", err)
		return
	}

	loan := circulation.Loan{
		ID:                     uuid.NewString(),
		DueDate:                req.DueDate,
		LoanDate:               req.LoanDate,
		CheckoutServicePointID: req.CheckoutServicePointID,
	}
	if req.UserID != "" || req.UserExpirationDate != nil {
		loan.User = &circulation.User{ID: req.UserID, ExpirationDate: req.UserExpirationDate}
	}

	adjusted, err := h.Resolver.Resolve(r.Context(), loan, p, req.IsRenewal, time.Now())
	if err != nil {
		var verr *policy.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusUnprocessableEntity, "due date cannot be resolved under this policy", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "due date resolution failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ResolveDueDateResponse{
		ResolutionID: loan.ID,
		DueDate:      adjusted.DueDate,
		RawDueDate:   adjusted.RawDueDate,
		Changed:      adjusted.Changed,
		ShiftHours:   adjusted.ShiftHours,
	})
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// PutOpeningDays upserts opening-day records for a service point.
// PUT /api/service-points/{id}/opening-days
func (h *Handler) PutOpeningDays(w http.ResponseWriter, r *http.Request) {
	servicePointID := chi.URLParam(r, "id")

	var req PutOpeningDaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	days := make([]calendar.OpeningDay, 0, len(req.Days))
	for _, dto := range req.Days {
		day, err := toOpeningDay(dto)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid opening day", err)
			return
		}
		days = append(days, day)
	}

	if err := h.Store.PutOpeningDays(r.Context(), servicePointID, days); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store opening days", err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// GetOpeningDay returns one day's record for a service point.
// GET /api/service-points/{id}/opening-days/{date}
func (h *Handler) GetOpeningDay(w http.ResponseWriter, r *http.Request) {
	servicePointID := chi.URLParam(r, "id")

	date, err := calendar.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}

	day, err := h.Store.GetOpeningDay(r.Context(), servicePointID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load opening day", err)
		return
	}
	writeJSON(w, http.StatusOK, toOpeningDayDTO(day))
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// CreatePolicy creates a loan policy (and its schedule, when embedded) from
// JSON.
// POST /api/loan-policies
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var pj factory.LoanPolicyJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	p, err := h.PolicyFactory.FromJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan policy", err)
		return
	}

	if p.Schedule != nil {
		schedule, err := h.Store.CreateSchedule(r.Context(), *p.Schedule)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store schedule", err)
			return
		}
		p.Schedule = &schedule
	}

	stored, err := h.Store.CreatePolicy(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store loan policy", err)
		return
	}

	h.Log.Info().Str("policy", string(stored.ID)).Msg("loan policy created")
	writeJSON(w, http.StatusCreated, PolicyDTO{LoanPolicyJSON: h.PolicyFactory.ToJSON(stored)})
}

// GetPolicy returns one loan policy.
// GET /api/loan-policies/{id}
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetPolicy(r.Context(), policy.ID(chi.URLParam(r, "id")))
	if err != nil {
		if errors.Is(err, policy.ErrPolicyNotFound) {
			writeError(w, http.StatusNotFound, "loan policy not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load loan policy", err)
		return
	}
	writeJSON(w, http.StatusOK, PolicyDTO{LoanPolicyJSON: h.PolicyFactory.ToJSON(p)})
}

// ListPolicies returns all loan policies.
// GET /api/loan-policies
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list loan policies", err)
		return
	}

	dtos := make([]PolicyDTO, 0, len(policies))
	for _, p := range policies {
		dtos = append(dtos, PolicyDTO{LoanPolicyJSON: h.PolicyFactory.ToJSON(p)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
