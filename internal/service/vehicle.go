package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/logging"
	"github.com/viscan/viscan-backend/internal/plate"
)

type vehicleRepo interface {
	Create(ctx context.Context, v *domain.Vehicle) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error)
	UpdatePlate(ctx context.Context, id uuid.UUID, plateRaw, plateCanonical string) error
	UpdateOwner(ctx context.Context, id, userID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type VehicleService struct {
	vehicles vehicleRepo
}

func NewVehicleService(vehicles vehicleRepo) *VehicleService {
	return &VehicleService{vehicles: vehicles}
}

// Register stores both the plate as given and its canonical key, computed
// once here. Lookups at detection time hit the canonical key only, so the
// two forms must never be written independently.
func (s *VehicleService) Register(ctx context.Context, userID uuid.UUID, plateRaw string) (*domain.Vehicle, error) {
	log := logging.FromContext(ctx)

	canonical, err := plate.Canonicalize(plateRaw)
	if err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	v := &domain.Vehicle{
		ID:             uuid.New(),
		UserID:         userID,
		PlateRaw:       plateRaw,
		PlateCanonical: canonical,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.vehicles.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	log.Info("vehicle registered", "vehicle_id", v.ID, "user_id", userID)
	return v, nil
}

func (s *VehicleService) GetForUser(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error) {
	vehicles, err := s.vehicles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetForUser: %w", err)
	}
	return vehicles, nil
}

// ReassignPlate is an administrative override: it recomputes the
// canonical key and re-checks uniqueness in one write.
func (s *VehicleService) ReassignPlate(ctx context.Context, vehicleID uuid.UUID, plateRaw string) (*domain.Vehicle, error) {
	canonical, err := plate.Canonicalize(plateRaw)
	if err != nil {
		return nil, fmt.Errorf("ReassignPlate: %w", err)
	}

	if err := s.vehicles.UpdatePlate(ctx, vehicleID, plateRaw, canonical); err != nil {
		return nil, fmt.Errorf("ReassignPlate: %w", err)
	}

	v, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("ReassignPlate: %w", err)
	}
	return v, nil
}

func (s *VehicleService) ReassignOwner(ctx context.Context, vehicleID, userID uuid.UUID) (*domain.Vehicle, error) {
	if err := s.vehicles.UpdateOwner(ctx, vehicleID, userID); err != nil {
		return nil, fmt.Errorf("ReassignOwner: %w", err)
	}

	v, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("ReassignOwner: %w", err)
	}
	return v, nil
}

// Remove deletes a vehicle and, through the schema cascade, its
// violations. Administrative override; the settlement core never deletes.
func (s *VehicleService) Remove(ctx context.Context, vehicleID uuid.UUID) error {
	if err := s.vehicles.Delete(ctx, vehicleID); err != nil {
		return fmt.Errorf("Remove: %w", err)
	}
	logging.FromContext(ctx).Info("vehicle removed", "vehicle_id", vehicleID)
	return nil
}
