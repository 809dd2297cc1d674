package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/viscan/viscan-backend/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		appErr = ErrInsufficientFunds
	case errors.Is(err, domain.ErrAlreadyPaid):
		appErr = ErrAlreadyPaid
	case errors.Is(err, domain.ErrNotAuthorized):
		appErr = ErrNotAuthorized
	case errors.Is(err, domain.ErrDuplicatePlate):
		appErr = ErrDuplicatePlate
	case errors.Is(err, domain.ErrUserExists):
		appErr = ErrUserExists
	case errors.Is(err, domain.ErrInvalidCredentials):
		appErr = ErrInvalidCredentials
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrEmptyPlate):
		appErr = ErrEmptyPlate
	case errors.Is(err, domain.ErrNoPlateFound):
		appErr = ErrNoPlateFound
	case errors.Is(err, domain.ErrDetectionFailed):
		appErr = ErrDetectionFailed
	case errors.Is(err, domain.ErrOCRFailed):
		appErr = ErrOCRFailed
	case errors.Is(err, domain.ErrConcurrencyConflict), errors.Is(err, domain.ErrVersionConflict):
		appErr = ErrConcurrencyConflict
	default:
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
