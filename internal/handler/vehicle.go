package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/viscan/viscan-backend/internal/auth"
	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/logging"
)

type vehicleService interface {
	Register(ctx context.Context, userID uuid.UUID, plateRaw string) (*domain.Vehicle, error)
	GetForUser(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error)
	ReassignPlate(ctx context.Context, vehicleID uuid.UUID, plateRaw string) (*domain.Vehicle, error)
	ReassignOwner(ctx context.Context, vehicleID, userID uuid.UUID) (*domain.Vehicle, error)
	Remove(ctx context.Context, vehicleID uuid.UUID) error
}

type VehicleHandler struct {
	vehicles vehicleService
}

func NewVehicleHandler(vehicles vehicleService) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles}
}

type vehicleDTO struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	PlateNumber    string    `json:"plate_number"`
	PlateCanonical string    `json:"plate_canonical"`
	CreatedAt      time.Time `json:"created_at"`
}

func toVehicleDTO(v *domain.Vehicle) vehicleDTO {
	return vehicleDTO{
		ID:             v.ID,
		UserID:         v.UserID,
		PlateNumber:    v.PlateRaw,
		PlateCanonical: v.PlateCanonical,
		CreatedAt:      v.CreatedAt,
	}
}

func toVehicleDTOs(vehicles []domain.Vehicle) []vehicleDTO {
	out := make([]vehicleDTO, len(vehicles))
	for i := range vehicles {
		out[i] = toVehicleDTO(&vehicles[i])
	}
	return out
}

type registerVehicleRequest struct {
	PlateNumber string `json:"plate_number"`
}

// Register adds a vehicle to the authenticated user's account.
func (h *VehicleHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrInvalidToken, nil)
		return
	}

	var req registerVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.PlateNumber == "" {
		RespondValidationError(w, []FieldError{{Field: "plate_number", Message: "required"}})
		return
	}

	v, err := h.vehicles.Register(r.Context(), userID, req.PlateNumber)
	if err != nil {
		logging.FromContext(r.Context()).Warn("vehicle registration failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toVehicleDTO(v))
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrInvalidToken, nil)
		return
	}

	vehicles, err := h.vehicles.GetForUser(r.Context(), userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toVehicleDTOs(vehicles))
}

type adminRegisterVehicleRequest struct {
	UserID      uuid.UUID `json:"user_id"`
	PlateNumber string    `json:"plate_number"`
}

// AdminRegister adds a vehicle to any user's account. Staff only.
func (h *VehicleHandler) AdminRegister(w http.ResponseWriter, r *http.Request) {
	var req adminRegisterVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var fields []FieldError
	if req.UserID == uuid.Nil {
		fields = append(fields, FieldError{Field: "user_id", Message: "required"})
	}
	if req.PlateNumber == "" {
		fields = append(fields, FieldError{Field: "plate_number", Message: "required"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	v, err := h.vehicles.Register(r.Context(), req.UserID, req.PlateNumber)
	if err != nil {
		logging.FromContext(r.Context()).Warn("admin vehicle registration failed",
			"user_id", req.UserID,
			"error", err,
		)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toVehicleDTO(v))
}

type updateVehicleRequest struct {
	PlateNumber *string    `json:"plate_number"`
	UserID      *uuid.UUID `json:"user_id"`
}

// Update is a staff operation; routes mounting it sit behind the staff
// middleware. Plate and owner may be changed independently.
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "id", Message: "must be a valid UUID"}})
		return
	}

	var req updateVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.PlateNumber == nil && req.UserID == nil {
		RespondValidationError(w, []FieldError{{Field: "plate_number", Message: "plate_number or user_id required"}})
		return
	}

	var v *domain.Vehicle
	if req.PlateNumber != nil {
		v, err = h.vehicles.ReassignPlate(r.Context(), vehicleID, *req.PlateNumber)
		if err != nil {
			RespondDomainError(w, err)
			return
		}
	}
	if req.UserID != nil {
		v, err = h.vehicles.ReassignOwner(r.Context(), vehicleID, *req.UserID)
		if err != nil {
			RespondDomainError(w, err)
			return
		}
	}

	RespondSuccess(w, http.StatusOK, toVehicleDTO(v))
}

// Delete removes a vehicle and its violations. Staff only.
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "id", Message: "must be a valid UUID"}})
		return
	}

	if err := h.vehicles.Remove(r.Context(), vehicleID); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"status": "deleted"})
}
