package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/viscan/viscan-backend/internal/auth"
	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/logging"
)

type violationService interface {
	GetViolation(ctx context.Context, id uuid.UUID) (*domain.Violation, error)
	GetViolationForUser(ctx context.Context, violationID, userID uuid.UUID) (*domain.Violation, error)
	PayOutstanding(ctx context.Context, violationID, payerUserID uuid.UUID) (*domain.Violation, error)
}

type ViolationHandler struct {
	violations violationService
}

func NewViolationHandler(violations violationService) *ViolationHandler {
	return &ViolationHandler{violations: violations}
}

// Get returns one violation. Non-staff callers only see violations on
// their own vehicles.
func (h *ViolationHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrInvalidToken, nil)
		return
	}

	violationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "id", Message: "must be a valid UUID"}})
		return
	}

	var v *domain.Violation
	if claims.IsStaff {
		v, err = h.violations.GetViolation(r.Context(), violationID)
	} else {
		v, err = h.violations.GetViolationForUser(r.Context(), violationID, claims.UserID)
	}
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toViolationDTO(v))
}

// Pay settles a pending violation from the caller's wallet.
func (h *ViolationHandler) Pay(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrInvalidToken, nil)
		return
	}

	violationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "id", Message: "must be a valid UUID"}})
		return
	}

	v, err := h.violations.PayOutstanding(r.Context(), violationID, userID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("violation payment failed",
			"violation_id", violationID,
			"user_id", userID,
			"error", err,
		)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toViolationDTO(v))
}
