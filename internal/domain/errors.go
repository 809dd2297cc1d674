package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrEmptyPlate          = errors.New("plate empty after normalization")
	ErrDuplicatePlate      = errors.New("plate already registered")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientFunds   = errors.New("insufficient wallet balance")
	ErrAlreadyPaid         = errors.New("violation already paid")
	ErrNotAuthorized       = errors.New("not authorized for this violation")
	ErrVersionConflict     = errors.New("optimistic lock conflict")
	ErrConcurrencyConflict = errors.New("storage contention, retry the request")
	ErrDetectionFailed     = errors.New("plate detection failed")
	ErrOCRFailed           = errors.New("plate recognition failed")
	ErrNoPlateFound        = errors.New("no plate found in image")
	ErrUserExists          = errors.New("user already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
)
