package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrStaffOnly          = &AppError{http.StatusForbidden, "STAFF_ONLY", "Staff access required"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInsufficientFunds   = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient wallet balance"}
	ErrAlreadyPaid         = &AppError{http.StatusConflict, "ALREADY_PAID", "Violation already paid"}
	ErrNotAuthorized       = &AppError{http.StatusForbidden, "NOT_AUTHORIZED", "Not authorized to pay this violation"}
	ErrDuplicatePlate      = &AppError{http.StatusConflict, "DUPLICATE_PLATE", "Plate already registered"}
	ErrUserExists          = &AppError{http.StatusConflict, "USER_ALREADY_EXISTS", "User already registered"}
	ErrInvalidAmount       = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrEmptyPlate          = &AppError{http.StatusBadRequest, "EMPTY_PLATE", "Plate is empty after normalization"}
	ErrDetectionFailed     = &AppError{http.StatusBadGateway, "DETECTION_FAILED", "Plate detection service failed"}
	ErrOCRFailed           = &AppError{http.StatusBadGateway, "OCR_FAILED", "Plate recognition service failed"}
	ErrNoPlateFound        = &AppError{http.StatusUnprocessableEntity, "NO_PLATE_FOUND", "No plate found in image"}
	ErrConcurrencyConflict = &AppError{http.StatusConflict, "CONCURRENCY_CONFLICT", "Resource was modified concurrently, please retry"}
)
